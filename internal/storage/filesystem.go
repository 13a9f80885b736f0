package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// FilesystemBackend stores media under a local directory that the server
// also exposes below URLPrefix.
type FilesystemBackend struct {
	root      string
	urlPrefix string
	logger    zerolog.Logger
}

// NewFilesystemBackend creates the root directory if needed.
func NewFilesystemBackend(root, urlPrefix string, logger zerolog.Logger) (*FilesystemBackend, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &FilesystemBackend{
		root:      root,
		urlPrefix: urlPrefix,
		logger:    logger.With().Str("component", "storage").Str("backend", "filesystem").Logger(),
	}, nil
}

// Root returns the directory served as media.
func (b *FilesystemBackend) Root() string {
	return b.root
}

// Put writes the object through a temporary file and renames it into place.
func (b *FilesystemBackend) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	dest := filepath.Join(b.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	written, err := io.Copy(tmp, reader)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if size >= 0 && written != size {
		return fmt.Errorf("size mismatch for %s: expected %d, wrote %d", key, size, written)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", key, err)
	}

	b.logger.Debug().Str("key", key).Int64("size", written).Msg("stored media object")
	return nil
}

// Delete removes the object at key.
func (b *FilesystemBackend) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(b.root, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// URL returns the path under which the server serves key.
func (b *FilesystemBackend) URL(key string) string {
	return b.urlPrefix + key
}

var _ Backend = (*FilesystemBackend)(nil)
