package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/prn-tf/home-store/internal/domain"
	"github.com/prn-tf/home-store/internal/repository"
)

// sessionRepository implements repository.SessionRepository for SQLite.
type sessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(db *DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

// Create stores a new session.
func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (session_key, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		session.Key,
		nullInt64(session.UserID),
		formatTime(session.CreatedAt),
		formatTime(session.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByKey retrieves a session by key.
func (r *sessionRepository) GetByKey(ctx context.Context, key string) (*domain.Session, error) {
	session := &domain.Session{}
	var userID sql.NullInt64
	var createdAt, expiresAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT session_key, user_id, created_at, expires_at FROM sessions WHERE session_key = ?`,
		key,
	).Scan(&session.Key, &userID, &createdAt, &expiresAt)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session.UserID = int64Ptr(userID)
	session.CreatedAt = parseTime(createdAt)
	session.ExpiresAt = parseTime(expiresAt)
	return session, nil
}

// Delete removes a session.
func (r *sessionRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes every session that expired before now.
func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

var _ repository.SessionRepository = (*sessionRepository)(nil)
