package storage

import (
	"path"
	"strings"
)

// PathConfig holds configuration for storage key generation.
type PathConfig struct {
	// Prefix is the leading key segment, e.g. "users_images".
	Prefix string

	// ShardLevels is the number of directory levels for sharding.
	// Default: 2 (e.g., ab/cd/abcdef...)
	ShardLevels int

	// ShardWidth is the number of characters per shard level.
	// Default: 2 (e.g., ab, cd)
	ShardWidth int
}

// DefaultPathConfig returns the default key configuration.
func DefaultPathConfig(prefix string) PathConfig {
	return PathConfig{
		Prefix:      prefix,
		ShardLevels: 2,
		ShardWidth:  2,
	}
}

// ComputeKey generates the storage key for a content hash and file extension.
// Uses directory sharding to distribute files across directories.
//
// Example with default config (2 levels, 2 chars each):
//
//	hash: "abcdef1234567890..."
//	prefix: "users_images"
//	ext: ".png"
//	result: "users_images/ab/cd/abcdef1234567890....png"
func ComputeKey(config PathConfig, contentHash, ext string) string {
	components := make([]string, 0, config.ShardLevels+2)
	components = append(components, config.Prefix)

	if len(contentHash) >= config.ShardLevels*config.ShardWidth {
		offset := 0
		for i := 0; i < config.ShardLevels; i++ {
			components = append(components, contentHash[offset:offset+config.ShardWidth])
			offset += config.ShardWidth
		}
	}

	components = append(components, contentHash+ext)
	return path.Join(components...)
}

// AvatarKey returns the key for an avatar with the given content hash.
func AvatarKey(contentHash, ext string) string {
	return ComputeKey(DefaultPathConfig("users_images"), contentHash, ext)
}

// ValidateKey rejects keys that are empty, absolute, or climb out of the root.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrInvalidKey
	}
	if path.Clean(key) != key {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}
