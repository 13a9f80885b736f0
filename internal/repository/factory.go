package repository

import "context"

// Repositories holds all repository instances.
type Repositories struct {
	User    UserRepository
	Session SessionRepository
	Cart    CartRepository
	Order   OrderRepository
	Product ProductRepository
}

// Database is the connection behind a set of repositories.
// It satisfies handler.HealthChecker for the health endpoint.
type Database interface {
	Health(ctx context.Context) error
	Migrate(ctx context.Context) error
	CurrentVersion(ctx context.Context) (int, error)
	Close() error
}
