// Package lock provides distributed and local locking abstractions.
// For single-node deployments, memory-based locks are used.
// For distributed deployments, Redis-based locks can be used.
package lock

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// ErrNotAcquired indicates the lock is held by someone else.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker defines the interface for distributed/local locking.
type Locker interface {
	// Acquire attempts to acquire a lock.
	// Returns true if the lock was acquired, false if it's held by another process.
	// The lock will automatically expire after the specified TTL.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// AcquireWithRetry attempts to acquire a lock with retries.
	// Will retry up to maxRetries times with retryDelay between attempts.
	AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error)

	// Release releases a lock.
	// Returns true if the lock was released, false if it wasn't held.
	Release(ctx context.Context, key string) (bool, error)
}

// Options controls how WithLock waits for a busy lock.
type Options struct {
	TTL        time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultOptions suits short critical sections such as a cart carryover.
var DefaultOptions = Options{
	TTL:        10 * time.Second,
	MaxRetries: 20,
	RetryDelay: 50 * time.Millisecond,
}

// WithLock runs fn while holding key. It returns ErrNotAcquired when the
// lock stays busy for all retries. The lock is released even if fn fails.
func WithLock(ctx context.Context, locker Locker, key string, opts Options, fn func(ctx context.Context) error) error {
	acquired, err := locker.AcquireWithRetry(ctx, key, opts.TTL, opts.MaxRetries, opts.RetryDelay)
	if err != nil {
		return err
	}
	if !acquired {
		return ErrNotAcquired
	}

	defer func() {
		// Release with a fresh context so a cancelled request still unlocks.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_, _ = locker.Release(releaseCtx, key)
	}()

	return fn(ctx)
}

// retry implements AcquireWithRetry on top of a single-attempt acquire.
func retry(ctx context.Context, maxRetries int, retryDelay time.Duration, acquire func() (bool, error)) (bool, error) {
	for i := 0; i <= maxRetries; i++ {
		acquired, err := acquire()
		if err != nil {
			return false, err
		}
		if acquired {
			return true, nil
		}

		// Don't sleep on the last attempt.
		if i < maxRetries {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return false, nil
}

// =============================================================================
// Common Lock Keys
// =============================================================================

// Keys provides lock key generation for common scenarios.
var Keys = lockKeys{}

type lockKeys struct{}

// CartCarryover returns the lock key serialising cart carryovers for one user.
func (lockKeys) CartCarryover(userID int64) string {
	return "lock:cart:carryover:" + strconv.FormatInt(userID, 10)
}

// SessionPurge returns the lock key for the expired-session janitor.
func (lockKeys) SessionPurge() string {
	return "lock:session:purge"
}
