package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/prn-tf/home-store/internal/domain"
	"github.com/prn-tf/home-store/internal/repository"
)

// sessionRepository implements repository.SessionRepository.
type sessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new PostgreSQL session repository.
func NewSessionRepository(db *DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

// Create stores a new session.
func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO sessions (session_key, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`,
		session.Key, session.UserID, session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByKey retrieves a session by key.
func (r *sessionRepository) GetByKey(ctx context.Context, key string) (*domain.Session, error) {
	session := &domain.Session{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT session_key, user_id, created_at, expires_at FROM sessions WHERE session_key = $1`,
		key,
	).Scan(&session.Key, &session.UserID, &session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// Delete removes a session.
func (r *sessionRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE session_key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes every session that expired before now.
func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected(), nil
}

var _ repository.SessionRepository = (*sessionRepository)(nil)
