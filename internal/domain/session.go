package domain

import "time"

// Session is a browsing context identified by an opaque key stored in a cookie.
// Anonymous sessions have no UserID; logging in replaces the session with a
// new, authenticated one.
type Session struct {
	// Key is the random session identifier sent to the browser.
	Key string `json:"key"`

	// UserID is set for authenticated sessions.
	UserID *int64 `json:"user_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewSession creates a session that expires after lifetime.
func NewSession(key string, userID *int64, lifetime time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		Key:       key,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(lifetime),
	}
}

// IsAuthenticated reports whether the session belongs to a user.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.UserID != nil
}

// IsExpired reports whether the session is past its expiry time.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// AnonymousKey returns the key of an anonymous session, or "" for a nil or
// authenticated one. Carts keyed by it belong to the visitor.
func (s *Session) AnonymousKey() string {
	if s == nil || s.UserID != nil {
		return ""
	}
	return s.Key
}
