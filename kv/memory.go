package kv

import (
	"strings"
	"sync"
)

// Memory is an in-memory Store implementation, used as the test double and
// for ephemeral (incognito-like) profiles.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]byte)}
}

// Get retrieves a value. Returns (nil, false, nil) on miss.
func (m *Memory) Get(key string) ([]byte, bool, error) {
	if err := ValidateKey(key); err != nil {
		return nil, false, err
	}

	m.mu.RLock()
	value, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	// Copy so callers cannot mutate stored state.
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

// Set stores a value, replacing any previous value.
func (m *Memory) Set(key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	m.entries[key] = stored
	m.mu.Unlock()
	return nil
}

// Delete removes a key. Idempotent.
func (m *Memory) Delete(key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Keys returns every stored key with the given prefix.
func (m *Memory) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Ensure Memory implements Store
var _ Store = (*Memory)(nil)
