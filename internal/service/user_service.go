package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/prn-tf/home-store/internal/domain"
	"github.com/prn-tf/home-store/internal/events"
	"github.com/prn-tf/home-store/internal/pkg/crypto"
	"github.com/prn-tf/home-store/internal/repository"
	"github.com/prn-tf/home-store/internal/storage"
)

// Form field names used as ValidationError keys.
const (
	FieldUsername  = "username"
	FieldEmail     = "email"
	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
	FieldPassword1 = "password1"
	FieldPassword2 = "password2"
	FieldImage     = "image"
)

const maxUsernameLength = 150

var usernameRegex = regexp.MustCompile(`^[\w.@+-]+$`)

// imageExtensions lists the accepted avatar content types.
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// UserServiceConfig holds password and avatar policy.
type UserServiceConfig struct {
	// BcryptCost is the work factor for new password hashes.
	BcryptCost int

	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength int

	// MaxImageSize is the largest accepted avatar in bytes.
	MaxImageSize int64
}

// DefaultUserServiceConfig returns the production defaults.
func DefaultUserServiceConfig() UserServiceConfig {
	return UserServiceConfig{
		BcryptCost:        bcrypt.DefaultCost,
		MinPasswordLength: 8,
		MaxImageSize:      5 << 20,
	}
}

// UserService handles account management operations.
type UserService struct {
	userRepo  repository.UserRepository
	media     storage.Backend
	publisher events.Publisher
	config    UserServiceConfig
	logger    zerolog.Logger

	// dummyHash is compared against when the username is unknown so that
	// both failure paths cost one bcrypt comparison.
	dummyHash []byte
}

// NewUserService creates a new UserService.
func NewUserService(
	userRepo repository.UserRepository,
	media storage.Backend,
	publisher events.Publisher,
	config UserServiceConfig,
	logger zerolog.Logger,
) *UserService {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("unused-password"), config.BcryptCost)

	return &UserService{
		userRepo:  userRepo,
		media:     media,
		publisher: publisher,
		config:    config,
		logger:    logger.With().Str("service", "user").Logger(),
		dummyHash: dummy,
	}
}

// =============================================================================
// Registration
// =============================================================================

// CreateUserInput contains the data needed to create a new user.
type CreateUserInput struct {
	Username        string
	Email           string
	FirstName       string
	LastName        string
	Password        string
	PasswordConfirm string
}

// CreateUserOutput contains the result of creating a user.
type CreateUserOutput struct {
	User *domain.User
}

// Create creates a new active account. Field problems are returned as a
// *ValidationError keyed by form field name.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*CreateUserOutput, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)

	verr := NewValidationError()
	s.validateUsername(verr, input.Username)
	validateEmail(verr, input.Email)
	s.validatePassword(verr, input.Username, input.Password, input.PasswordConfirm)

	if !verr.Has(FieldUsername) {
		exists, err := s.userRepo.ExistsByUsername(ctx, input.Username)
		if err != nil {
			s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to check username existence")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		if exists {
			verr.Add(FieldUsername, MsgUsernameTaken)
		}
	}

	if !verr.Has(FieldEmail) && input.Email != "" {
		exists, err := s.userRepo.ExistsByEmail(ctx, input.Email)
		if err != nil {
			s.logger.Error().Err(err).Str("email", input.Email).Msg("failed to check email existence")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		if exists {
			verr.Add(FieldEmail, MsgEmailTaken)
		}
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.config.BcryptCost)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	user := domain.NewUser(input.Username, input.Email, string(passwordHash))
	user.FirstName = strings.TrimSpace(input.FirstName)
	user.LastName = strings.TrimSpace(input.LastName)

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			// Lost a race with a concurrent registration.
			verr.Add(FieldUsername, MsgUsernameTaken)
			return nil, verr
		}
		s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to create user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Msg("user created")

	s.publish(ctx, events.NewEvent(events.TypeUserRegistered, map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
		"email":    user.Email,
	}))

	return &CreateUserOutput{User: user}, nil
}

// =============================================================================
// Authentication
// =============================================================================

// Authenticate verifies user credentials and returns the user.
// It never returns a nil user without an error.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			s.logger.Debug().Str("username", username).Msg("user not found during authentication")
			return nil, ErrInvalidCredentials
		}
		s.logger.Error().Err(err).Str("username", username).Msg("failed to load user for authentication")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Debug().Str("username", username).Msg("invalid password during authentication")
		return nil, ErrInvalidCredentials
	}

	// Checked after the password so an inactive account is only revealed
	// to someone who knows its password.
	if !user.CanAuthenticate() {
		s.logger.Debug().Str("username", username).Msg("inactive user attempted authentication")
		return nil, ErrUserInactive
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Msg("user authenticated")

	return user, nil
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error().Err(err).Int64("user_id", id).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}

// =============================================================================
// Profile
// =============================================================================

// ImageUpload is an avatar file submitted with the profile form.
type ImageUpload struct {
	Filename string
	Content  io.Reader
}

// UpdateProfileInput contains the editable profile fields.
type UpdateProfileInput struct {
	UserID    int64
	Username  string
	Email     string
	FirstName string
	LastName  string

	// Image is nil when no new avatar was uploaded.
	Image *ImageUpload
}

// UpdateProfile validates and saves the profile form. Nothing is stored
// when any field fails.
func (s *UserService) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)

	verr := NewValidationError()
	s.validateUsername(verr, input.Username)
	validateEmail(verr, input.Email)

	if !verr.Has(FieldUsername) && input.Username != user.Username {
		exists, err := s.userRepo.ExistsByUsername(ctx, input.Username)
		if err != nil {
			s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to check username existence")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		if exists {
			verr.Add(FieldUsername, MsgUsernameTaken)
		}
	}

	if !verr.Has(FieldEmail) && input.Email != "" && !strings.EqualFold(input.Email, user.Email) {
		exists, err := s.userRepo.ExistsByEmail(ctx, input.Email)
		if err != nil {
			s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to check email existence")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		if exists {
			verr.Add(FieldEmail, MsgEmailTaken)
		}
	}

	var image *avatar
	if input.Image != nil {
		image, err = s.readAvatar(input.Image)
		if err != nil {
			verr.Add(FieldImage, err.Error())
		}
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if image != nil {
		if err := s.media.Put(ctx, image.key, bytes.NewReader(image.data), int64(len(image.data)), image.contentType); err != nil {
			s.logger.Error().Err(err).Int64("user_id", user.ID).Str("key", image.key).Msg("failed to store avatar")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		user.Image = image.key
	}

	user.Username = input.Username
	user.Email = input.Email
	user.FirstName = strings.TrimSpace(input.FirstName)
	user.LastName = strings.TrimSpace(input.LastName)
	user.UpdatedAt = time.Now().UTC()

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			verr.Add(FieldUsername, MsgUsernameTaken)
			return nil, verr
		}
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to update profile")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Bool("avatar_changed", image != nil).
		Msg("profile updated")

	return user, nil
}

// AvatarURL returns the browser URL of the user's avatar, or "" without one.
func (s *UserService) AvatarURL(user *domain.User) string {
	if user == nil || user.Image == "" || s.media == nil {
		return ""
	}
	return s.media.URL(user.Image)
}

type avatar struct {
	key         string
	contentType string
	data        []byte
}

// readAvatar buffers the upload, checks its size and type, and derives a
// content-addressed storage key.
func (s *UserService) readAvatar(upload *ImageUpload) (*avatar, error) {
	limit := s.config.MaxImageSize
	if limit <= 0 {
		limit = DefaultUserServiceConfig().MaxImageSize
	}

	data, err := io.ReadAll(io.LimitReader(upload.Content, limit+1))
	if err != nil {
		return nil, errors.New(MsgImageInvalid)
	}
	if int64(len(data)) > limit {
		return nil, errors.New(MsgImageTooLarge)
	}
	if len(data) == 0 {
		return nil, errors.New(MsgImageInvalid)
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, errors.New(MsgImageInvalid)
	}

	return &avatar{
		key:         storage.AvatarKey(crypto.ComputeSHA256(data), ext),
		contentType: contentType,
		data:        data,
	}, nil
}

// =============================================================================
// Listing
// =============================================================================

// ListUsersInput contains pagination options for listing users.
type ListUsersInput struct {
	Limit  int
	Offset int
}

// ListUsersOutput contains the result of listing users.
type ListUsersOutput struct {
	Users      []*domain.User
	TotalCount int64
}

// List returns users ordered by ID with pagination.
func (s *UserService) List(ctx context.Context, input ListUsersInput) (*ListUsersOutput, error) {
	if input.Limit <= 0 {
		input.Limit = 20
	}
	if input.Limit > 100 {
		input.Limit = 100
	}

	result, err := s.userRepo.List(ctx, repository.ListOptions{
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list users")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return &ListUsersOutput{
		Users:      result.Items,
		TotalCount: result.Total,
	}, nil
}

// =============================================================================
// Validation
// =============================================================================

func (s *UserService) validateUsername(verr *ValidationError, username string) {
	switch {
	case username == "":
		verr.Add(FieldUsername, MsgRequired)
	case len(username) < 3 || len(username) > maxUsernameLength:
		verr.Add(FieldUsername, fmt.Sprintf("Ensure this value has between 3 and %d characters.", maxUsernameLength))
	case !usernameRegex.MatchString(username):
		verr.Add(FieldUsername, MsgUsernameInvalid)
	}
}

func validateEmail(verr *ValidationError, email string) {
	if email == "" {
		verr.Add(FieldEmail, MsgRequired)
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		verr.Add(FieldEmail, MsgEmailInvalid)
	}
}

func (s *UserService) validatePassword(verr *ValidationError, username, password, confirm string) {
	minLen := s.config.MinPasswordLength
	if minLen <= 0 {
		minLen = DefaultUserServiceConfig().MinPasswordLength
	}

	switch {
	case password == "":
		verr.Add(FieldPassword1, MsgRequired)
	case len(password) < minLen:
		verr.Add(FieldPassword1, fmt.Sprintf("This password is too short. It must contain at least %d characters.", minLen))
	case isNumeric(password):
		verr.Add(FieldPassword1, "This password is entirely numeric.")
	case username != "" && strings.EqualFold(password, username):
		verr.Add(FieldPassword1, "The password is too similar to the username.")
	}

	if confirm == "" {
		verr.Add(FieldPassword2, MsgRequired)
	} else if password != confirm {
		verr.Add(FieldPassword2, MsgPasswordMismatch)
	}
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func (s *UserService) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("event_type", event.Type).Msg("failed to publish event")
	}
}
