// Package crypto provides random key generation and hashing helpers.
package crypto

import (
	"crypto/rand"
	"fmt"
)

const (
	// SessionKeyLength is the length of a session key.
	SessionKeyLength = 32

	// sessionKeyChars contains the characters used in session keys.
	sessionKeyChars = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// GenerateSessionKey generates a random 32-character session key of
// lowercase letters and digits.
func GenerateSessionKey() (string, error) {
	return generateRandomString(SessionKeyLength, sessionKeyChars)
}

// IsValidSessionKey reports whether key has the shape of a generated session key.
func IsValidSessionKey(key string) bool {
	if len(key) != SessionKeyLength {
		return false
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if !((c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}

// generateRandomString generates a random string of the specified length
// using characters from the provided character set. Bytes that would bias
// the distribution towards the start of charset are discarded.
func generateRandomString(length int, charset string) (string, error) {
	result := make([]byte, 0, length)
	charsetLen := len(charset)
	limit := 256 - (256 % charsetLen)

	buf := make([]byte, length*2)
	for len(result) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			result = append(result, charset[int(b)%charsetLen])
			if len(result) == length {
				break
			}
		}
	}

	return string(result), nil
}
