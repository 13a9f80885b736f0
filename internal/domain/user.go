// Package domain contains the core business entities for the HOME store.
// These are plain Go structs with no infrastructure dependencies.
package domain

import (
	"strings"
	"time"
)

// User represents a registered customer account.
type User struct {
	// ID is the unique identifier for the user (auto-generated).
	ID int64 `json:"id"`

	// Username is the unique login name.
	// Constraints: 3-150 characters of letters, digits and . @ + - _.
	Username string `json:"username"`

	// Email is the unique email address for the user.
	Email string `json:"email"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	// Image is the storage key of the user's avatar, empty when none was uploaded.
	Image string `json:"image,omitempty"`

	// PasswordHash is the bcrypt hash of the user's password.
	// This should never be exposed in responses.
	PasswordHash string `json:"-"`

	// IsActive indicates whether the account may log in.
	IsActive bool `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser creates a new active User.
func NewUser(username, email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CanAuthenticate returns true if the user is allowed to log in.
func (u *User) CanAuthenticate() bool {
	return u.IsActive
}

// FullName returns "First Last", or the username when both are empty.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}
