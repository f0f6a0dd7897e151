package kv

// Null is the Store used when no durable storage exists (server-side
// rendering, headless tests). Every read misses and every write is dropped,
// so callers degrade to unpersisted anonymous behavior.
type Null struct{}

// NewNull creates a no-op store.
func NewNull() *Null {
	return &Null{}
}

// Get always misses.
func (Null) Get(string) ([]byte, bool, error) { return nil, false, nil }

// Set drops the value.
func (Null) Set(string, []byte) error { return nil }

// Delete is a no-op.
func (Null) Delete(string) error { return nil }

// Keys returns no keys.
func (Null) Keys(string) ([]string, error) { return nil, nil }

// Ensure Null implements Store
var _ Store = (*Null)(nil)
