// Package kv provides the versioned key-value store that backs all
// persisted state. Values are opaque JSON documents; every write carries the
// version the writer last observed so concurrent overwrites are detected
// instead of silently lost.
package kv

import (
	"context"
	"errors"
)

// Store errors.
var (
	// ErrNotFound is returned by Get when the key does not exist.
	ErrNotFound = errors.New("key not found")
	// ErrVersionConflict is returned by Put when the stored version does not
	// match the expected version.
	ErrVersionConflict = errors.New("version conflict")
)

// Entry is a stored value together with its version.
// Versions start at 1 and increase by one on every successful Put.
type Entry struct {
	Value   []byte
	Version int64
}

// Store is a versioned key-value store.
type Store interface {
	// Get returns the entry stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (*Entry, error)

	// Put stores value under key if the current version equals expected.
	// An expected version of 0 means the key must not exist yet.
	// Returns the new version, or ErrVersionConflict.
	Put(ctx context.Context, key string, value []byte, expected int64) (int64, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
