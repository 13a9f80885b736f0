// Package repository defines data access interfaces for the HOME store.
// These interfaces abstract database operations, allowing for different implementations
// (PostgreSQL, SQLite, mocks for testing) while keeping the service layer clean.
package repository

import (
	"context"
	"time"

	"github.com/prn-tf/home-store/internal/domain"
)

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create creates a new user and sets its ID.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByUsername retrieves a user by username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// Update updates an existing user.
	Update(ctx context.Context, user *domain.User) error

	// List returns all users with pagination.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.User], error)

	// ExistsByUsername checks if a user with the given username exists.
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// ExistsByEmail checks if a user with the given email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// =============================================================================
// Session Repository
// =============================================================================

// SessionRepository defines the interface for browser session storage.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *domain.Session) error

	// GetByKey retrieves a session by key, expired or not.
	GetByKey(ctx context.Context, key string) (*domain.Session, error)

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteExpired removes sessions that expired before now and returns how many.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// =============================================================================
// Cart Repository
// =============================================================================

// CartOwner selects the cart rows of either a user or an anonymous session.
type CartOwner struct {
	UserID     *int64
	SessionKey string
}

// IsZero reports whether no owner is set.
func (o CartOwner) IsZero() bool {
	return o.UserID == nil && o.SessionKey == ""
}

// CartRepository defines the interface for cart data access.
type CartRepository interface {
	// ListByOwner returns the owner's cart rows with products, oldest first.
	ListByOwner(ctx context.Context, owner CartOwner) (domain.Carts, error)

	// AddProduct adds quantity of a product to the owner's cart,
	// incrementing an existing row for the same product.
	AddProduct(ctx context.Context, owner CartOwner, productID int64, quantity int) (*domain.Cart, error)

	// Reassign moves every row keyed by sessionKey to userID and clears the
	// session key. When discardExisting is set the user's current rows are
	// deleted first. Both steps run in a single transaction.
	Reassign(ctx context.Context, sessionKey string, userID int64, discardExisting bool) (*ReassignResult, error)
}

// ReassignResult reports what a cart reassignment changed.
type ReassignResult struct {
	// Discarded is the number of the user's previous rows that were deleted.
	Discarded int64

	// Reassigned is the number of session rows moved to the user.
	Reassigned int64
}

// =============================================================================
// Order Repository
// =============================================================================

// OrderRepository defines read access to order history.
type OrderRepository interface {
	// ListByUser returns the user's orders newest first (by ID), each with
	// its items and each item's product.
	ListByUser(ctx context.Context, userID int64) ([]*domain.Order, error)
}

// =============================================================================
// Product Repository
// =============================================================================

// ProductRepository defines the catalogue access this service needs.
type ProductRepository interface {
	// Create creates a new product and sets its ID.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by ID.
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
}

// =============================================================================
// Common Types
// =============================================================================

// ListOptions contains common pagination options.
type ListOptions struct {
	// Offset is the number of records to skip.
	Offset int

	// Limit is the maximum number of records to return.
	Limit int
}

// ListResult is a generic paginated list result.
type ListResult[T any] struct {
	// Items is the list of items.
	Items []*T

	// Total is the total number of items (without pagination).
	Total int64

	// Offset is the current offset.
	Offset int

	// Limit is the current limit.
	Limit int
}
