package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/home-store/internal/domain"
	"github.com/prn-tf/home-store/internal/pkg/crypto"
	"github.com/prn-tf/home-store/internal/repository"
)

// DefaultSessionLifetime matches the two-week cookie age browsers are given.
const DefaultSessionLifetime = 14 * 24 * time.Hour

// SessionService manages browser sessions.
type SessionService struct {
	sessionRepo repository.SessionRepository
	lifetime    time.Duration
	logger      zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(sessionRepo repository.SessionRepository, lifetime time.Duration, logger zerolog.Logger) *SessionService {
	if lifetime <= 0 {
		lifetime = DefaultSessionLifetime
	}
	return &SessionService{
		sessionRepo: sessionRepo,
		lifetime:    lifetime,
		logger:      logger.With().Str("service", "session").Logger(),
	}
}

// Lifetime returns how long new sessions live.
func (s *SessionService) Lifetime() time.Duration {
	return s.lifetime
}

// Start creates an anonymous session. It is called lazily, the first time
// a visitor needs a session key (adding a product to the cart).
func (s *SessionService) Start(ctx context.Context) (*domain.Session, error) {
	return s.create(ctx, nil)
}

// Resolve returns the live session for key. Unknown, malformed and expired
// keys all yield ErrSessionNotFound; expired rows are deleted on sight.
func (s *SessionService) Resolve(ctx context.Context, key string) (*domain.Session, error) {
	if !crypto.IsValidSessionKey(key) {
		return nil, ErrSessionNotFound
	}

	session, err := s.sessionRepo.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error().Err(err).Msg("failed to load session")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if session.IsExpired() {
		if err := s.sessionRepo.Delete(ctx, key); err != nil {
			s.logger.Warn().Err(err).Msg("failed to delete expired session")
		}
		return nil, ErrSessionNotFound
	}

	return session, nil
}

// LoginOutput is the result of authenticating a browser session.
type LoginOutput struct {
	// Session is the new authenticated session.
	Session *domain.Session

	// PreviousKey is the anonymous key the browser presented before login,
	// or "" when it had none.
	PreviousKey string
}

// Login replaces the browser's session (if any) with a fresh authenticated
// one. The key always changes so a key observed before login is useless
// afterwards. Carts keyed by an anonymous previous session must be carried
// over before calling Login, since the previous row is deleted here.
func (s *SessionService) Login(ctx context.Context, previous *domain.Session, userID int64) (*LoginOutput, error) {
	session, err := s.create(ctx, &userID)
	if err != nil {
		return nil, err
	}

	out := &LoginOutput{Session: session, PreviousKey: previous.AnonymousKey()}
	if previous != nil {
		if err := s.sessionRepo.Delete(ctx, previous.Key); err != nil {
			s.logger.Error().Err(err).Msg("failed to delete previous session")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
	}

	s.logger.Info().
		Int64("user_id", userID).
		Bool("had_session", previous != nil).
		Msg("session authenticated")

	return out, nil
}

// Logout deletes the session. A missing session is not an error.
func (s *SessionService) Logout(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.sessionRepo.Delete(ctx, key); err != nil {
		s.logger.Error().Err(err).Msg("failed to delete session")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return nil
}

// PurgeExpired deletes every expired session and returns how many.
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.sessionRepo.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to purge expired sessions")
		return 0, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return n, nil
}

func (s *SessionService) create(ctx context.Context, userID *int64) (*domain.Session, error) {
	key, err := crypto.GenerateSessionKey()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to generate session key")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	session := domain.NewSession(key, userID, s.lifetime)
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		s.logger.Error().Err(err).Msg("failed to create session")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Debug().Bool("authenticated", userID != nil).Msg("session started")
	return session, nil
}
