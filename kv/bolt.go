package kv

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

const stateBucket = "state"

// Bolt is a file-backed Store. The file is shared by every process of the
// same browser profile, which is what makes cross-tab revision polling work.
type Bolt struct {
	db *bbolt.DB
}

// OpenBolt opens (creating if needed) a bolt-backed store at the given path.
func OpenBolt(path string) (*Bolt, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("kv: storage path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("kv: open storage db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(stateBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("kv: ensure bucket: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Close closes the underlying database.
func (b *Bolt) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Get retrieves a value. Returns (nil, false, nil) on miss.
func (b *Bolt) Get(key string) ([]byte, bool, error) {
	if err := ValidateKey(key); err != nil {
		return nil, false, err
	}
	if b == nil || b.db == nil {
		return nil, false, ErrNilStore
	}

	var value []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket([]byte(stateBucket)).Get([]byte(key))
		if raw == nil {
			return nil
		}
		value = make([]byte, len(raw))
		copy(value, raw)
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("kv: get %q: %w", key, err)
	}
	if value == nil {
		return nil, false, nil
	}
	return value, true, nil
}

// Set stores a value in a single write transaction.
func (b *Bolt) Set(key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if b == nil || b.db == nil {
		return ErrNilStore
	}

	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(stateBucket)).Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("kv: set %q: %w", key, err)
	}
	return nil
}

// Delete removes a key. Idempotent.
func (b *Bolt) Delete(key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if b == nil || b.db == nil {
		return ErrNilStore
	}

	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(stateBucket)).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("kv: delete %q: %w", key, err)
	}
	return nil
}

// Keys returns every stored key with the given prefix.
func (b *Bolt) Keys(prefix string) ([]string, error) {
	if b == nil || b.db == nil {
		return nil, ErrNilStore
	}

	var keys []string
	err := b.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(stateBucket)).Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("kv: keys %q: %w", prefix, err)
	}
	return keys, nil
}

// Ensure Bolt implements Store
var _ Store = (*Bolt)(nil)
