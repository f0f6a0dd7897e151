package kv

import (
	"errors"
	"strings"
)

// MaxKeyLength is the maximum allowed length for a storage key.
const MaxKeyLength = 512

// Sentinel errors for storage operations.
var (
	ErrNilStore   = errors.New("kv: store is nil")
	ErrInvalidKey = errors.New("kv: key is invalid")
	ErrKeyTooLong = errors.New("kv: key exceeds max length")
	ErrClosed     = errors.New("kv: store is closed")
)

// Store is the durable key-value port shared by every stateful component.
// It abstracts the platform's per-origin storage so that core logic never
// touches platform globals directly.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Atomicity: Set replaces the whole value for a key in one write.
// - Errors: Get returns (nil, false, nil) on miss; Delete is idempotent.
type Store interface {
	// Get retrieves the value for a key. Returns (nil, false, nil) on miss.
	Get(key string) ([]byte, bool, error)

	// Set stores a value, replacing any previous value atomically.
	Set(key string, value []byte) error

	// Delete removes a key. No error when the key is absent.
	Delete(key string) error

	// Keys returns every stored key with the given prefix.
	Keys(prefix string) ([]string, error)
}

// ValidateKey checks if a key is usable for storage.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
