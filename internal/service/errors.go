// Package service provides the business logic behind the HOME account pages.
package service

import (
	"errors"
	"sort"
	"strings"
)

// Common service errors.
var (
	// User errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserInactive       = errors.New("user is inactive")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")

	// Catalogue errors
	ErrProductNotFound      = errors.New("product not found")
	ErrProductAlreadyExists = errors.New("product already exists")
	ErrInvalidProduct       = errors.New("invalid product")

	// Cart errors
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrCartBusy         = errors.New("cart is being updated by another request")
	ErrMissingCartOwner = errors.New("cart owner is required")

	// General errors
	ErrValidation    = errors.New("validation failed")
	ErrInternalError = errors.New("internal server error")
)

// Field-level validation messages shown next to form inputs.
const (
	MsgRequired         = "This field is required."
	MsgUsernameInvalid  = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	MsgUsernameTaken    = "A user with that username already exists."
	MsgEmailInvalid     = "Enter a valid email address."
	MsgEmailTaken       = "A user with that email already exists."
	MsgPasswordMismatch = "The two password fields didn't match."
	MsgImageInvalid     = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
	MsgImageTooLarge    = "The uploaded image is too large."
)

// ValidationError collects per-field messages for a submitted form.
// It matches ErrValidation with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates an empty ValidationError.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records msg for field unless the field already has a message.
func (e *ValidationError) Add(field, msg string) {
	if _, ok := e.Fields[field]; ok {
		return
	}
	e.Fields[field] = msg
}

// Has reports whether field has a message.
func (e *ValidationError) Has(field string) bool {
	_, ok := e.Fields[field]
	return ok
}

// Empty reports whether no field failed.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// OrNil returns e when it holds messages and nil otherwise.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e.Fields[f])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Unwrap returns ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// FieldErrors extracts the field messages from err, or nil when err is not
// a validation error.
func FieldErrors(err error) map[string]string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return nil
}
