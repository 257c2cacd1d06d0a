// Package utils holds small helpers shared across packages.
package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher computes SHA-256 content digests, e.g. of module sources.
type Hasher struct{}

var defaultHasher = &Hasher{}

// DefaultHasher returns the shared hasher.
func DefaultHasher() *Hasher {
	return defaultHasher
}

// Hash computes a hex digest of data.
func (h *Hasher) Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashString computes a digest of a string
func (h *Hasher) HashString(s string) string {
	return h.Hash([]byte(s))
}

// Short returns the first 8 characters of a digest, for display.
func Short(digest string) string {
	if len(digest) < 8 {
		return digest
	}
	return digest[:8]
}
