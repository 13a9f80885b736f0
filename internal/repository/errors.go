package repository

import "errors"

// Cache errors
var (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable indicates the cache backend could not be reached.
	ErrCacheUnavailable = errors.New("cache unavailable")
)
