package kv

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store. It is the default backend and the one
// used by unit tests.
type MemoryStore struct {
	mu      sync.RWMutex
	prefix  string
	entries map[string]Entry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(prefix string) *MemoryStore {
	return &MemoryStore{
		prefix:  prefix,
		entries: make(map[string]Entry),
	}
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, key string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[s.prefix+key]
	if !ok {
		return nil, ErrNotFound
	}
	value := make([]byte, len(e.Value))
	copy(value, e.Value)
	return &Entry{Value: value, Version: e.Version}, nil
}

// Put implements Store.
func (s *MemoryStore) Put(ctx context.Context, key string, value []byte, expected int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.entries[s.prefix+key].Version
	if current != expected {
		return 0, ErrVersionConflict
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	s.entries[s.prefix+key] = Entry{Value: stored, Version: current + 1}
	return current + 1, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, s.prefix+key)
	return nil
}

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}
