package token

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
)

const (
	// SigningSecretEnvKey is the env var name for the session signing secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	SigningSecretEnvKey = "DESK_AUTH_SIGNING_SECRET"

	// MinSecretBytes is the minimum accepted signing secret size for HMAC-SHA256.
	MinSecretBytes = 32
)

// HashSHA256Hex returns a SHA-256 hex digest of s (64 chars).
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// ShortHashHex returns the first n hex chars of the SHA-256 digest of s.
// n is clamped to [1, 64].
func ShortHashHex(s string, n int) string {
	h := HashSHA256Hex(s)
	if n <= 0 || n > len(h) {
		return h
	}
	return h[:n]
}

// SecretFromEnv returns the configured signing secret bytes (trimmed), enforcing a minimum byte length.
// If the env var is missing/blank -> ErrSecretMissing.
// If too short -> ErrSecretTooShort.
func SecretFromEnv(minBytes int) ([]byte, error) {
	return ParseSecret(os.Getenv(SigningSecretEnvKey), minBytes)
}

// ParseSecret applies the same trimming and size policy as SecretFromEnv to raw.
// Size is measured in bytes, not runes, because the secret is used as raw key material.
func ParseSecret(raw string, minBytes int) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrSecretMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrSecretTooShort
	}
	return b, nil
}
