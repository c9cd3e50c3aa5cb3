// Package kv provides durable storage of named JSON blobs.
//
// A Store has no query capability: values are read and written whole.
// Three implementations exist:
//   - FileStore: one file per key under a data directory (default)
//   - GormStore: a single key/value table in PostgreSQL
//   - MemoryStore: process memory, for tests and dry runs
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key has never been written or was deleted.
var ErrNotFound = errors.New("kv: key not found")

// Store is the persistence contract used by the collection store.
type Store interface {
	// Get returns the raw value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the value stored under key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// GetJSON decodes the value under key into v. found is false when the key is absent.
func GetJSON(ctx context.Context, s Store, key string, v interface{}) (found bool, err error) {
	const op = "GetJSON"

	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: failed to read %s: %w", op, key, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("%s: failed to decode %s: %w", op, key, err)
	}
	return true, nil
}

// PutJSON encodes v and stores it under key.
func PutJSON(ctx context.Context, s Store, key string, v interface{}) error {
	const op = "PutJSON"

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s: failed to encode %s: %w", op, key, err)
	}
	if err := s.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("%s: failed to write %s: %w", op, key, err)
	}
	return nil
}
