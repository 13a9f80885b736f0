// Package storage persists user-uploaded media such as avatars.
// Objects are addressed by slash-separated keys derived from their content hash.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrInvalidKey indicates a key that is empty or escapes the storage root.
var ErrInvalidKey = errors.New("invalid storage key")

// Backend defines the interface for media storage backends.
type Backend interface {
	// Put stores size bytes from reader under key, replacing any existing object.
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Delete removes the object at key. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns the public URL the browser uses to fetch key.
	URL(key string) string
}
