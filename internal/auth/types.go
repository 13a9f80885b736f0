// Package auth resolves the browser session cookie into an authentication
// context for the HOME web pages.
package auth

import (
	"github.com/prn-tf/home-store/internal/domain"
)

// =============================================================================
// Context Types
// =============================================================================

// AuthContext contains the session information attached to a request.
// It is set by the auth middleware on every request; both fields are nil
// for a visitor without a live session.
type AuthContext struct {
	// Session is the live session, anonymous or authenticated.
	Session *domain.Session

	// User is the session's active user, nil for anonymous visitors.
	User *domain.User
}

// IsAuthenticated reports whether the request belongs to a logged-in user.
func (a *AuthContext) IsAuthenticated() bool {
	return a != nil && a.User != nil
}

// SessionKey returns the session key, or "" without a session.
func (a *AuthContext) SessionKey() string {
	if a == nil || a.Session == nil {
		return ""
	}
	return a.Session.Key
}

// authContextKey is the context key for AuthContext.
type authContextKey struct{}

// AuthContextKey is the key used to store AuthContext in request context.
var AuthContextKey = authContextKey{}
