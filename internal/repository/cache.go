// Package repository defines data access interfaces for the HOME store.
package repository

import (
	"context"
	"strconv"
	"time"
)

// =============================================================================
// Cache Interface
// =============================================================================

// Cache is a key-value store with per-key expiry.
// Implemented in memory for single-node deployments and on Redis otherwise.
type Cache interface {
	// Get retrieves a value by key.
	// Returns ErrCacheMiss if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with a TTL.
	// If ttl is 0, the value doesn't expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// =============================================================================
// Common Cache Keys
// =============================================================================

// CacheKey generates cache keys for common scenarios.
type CacheKey struct{}

// UserOrders returns the cache key for a user's order history.
func (CacheKey) UserOrders(userID int64) string {
	return "cache:user:" + strconv.FormatInt(userID, 10) + ":orders"
}
