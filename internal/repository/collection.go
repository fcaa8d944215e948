// Package repository provides the persistence layer: one JSON document per
// entity type stored in a versioned key-value store.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bharat-rewards/internal/pkg/kv"
)

// Store keys, one document per entity type.
const (
	KeyUsers           = "users"
	KeySessions        = "sessions"
	KeyRedeemRequests  = "redeems"
	KeySettings        = "settings"
	KeyCustomQuestions = "custom_questions"
)

// maxWriteAttempts bounds the read-modify-write retry loop.
const maxWriteAttempts = 8

// ErrTooManyConflicts is returned when a write keeps losing to concurrent
// writers.
var ErrTooManyConflicts = errors.New("too many concurrent write conflicts")

// document is the stored form of a collection: records indexed by id plus
// their insertion order.
type document[T any] struct {
	Order []string     `json:"order"`
	Items map[string]T `json:"items"`
}

func newDocument[T any]() *document[T] {
	return &document[T]{Items: make(map[string]T)}
}

// values returns the records in insertion order.
func (d *document[T]) values() []T {
	out := make([]T, 0, len(d.Order))
	for _, id := range d.Order {
		if item, ok := d.Items[id]; ok {
			out = append(out, item)
		}
	}
	return out
}

func (d *document[T]) get(id string) (T, bool) {
	item, ok := d.Items[id]
	return item, ok
}

// upsert replaces the record in place or appends it.
func (d *document[T]) upsert(id string, item T) {
	if _, ok := d.Items[id]; !ok {
		d.Order = append(d.Order, id)
	}
	d.Items[id] = item
}

// remove deletes the record, reporting whether it existed.
func (d *document[T]) remove(id string) bool {
	if _, ok := d.Items[id]; !ok {
		return false
	}
	delete(d.Items, id)
	for i, existing := range d.Order {
		if existing == id {
			d.Order = append(d.Order[:i], d.Order[i+1:]...)
			break
		}
	}
	return true
}

// collection reads and writes one document through a kv.Store.
type collection[T any] struct {
	store kv.Store
	key   string
}

func newCollection[T any](store kv.Store, key string) *collection[T] {
	return &collection[T]{store: store, key: key}
}

// load returns the document and its version. A missing key yields an empty
// document at version 0. Malformed stored data is returned as an error.
func (c *collection[T]) load(ctx context.Context) (*document[T], int64, error) {
	entry, err := c.store.Get(ctx, c.key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return newDocument[T](), 0, nil
		}
		return nil, 0, fmt.Errorf("failed to load %s: %w", c.key, err)
	}

	doc := newDocument[T]()
	if err := json.Unmarshal(entry.Value, doc); err != nil {
		return nil, 0, fmt.Errorf("failed to decode %s: %w", c.key, err)
	}
	if doc.Items == nil {
		doc.Items = make(map[string]T)
	}
	return doc, entry.Version, nil
}

// list returns all records in insertion order.
func (c *collection[T]) list(ctx context.Context) ([]T, error) {
	doc, _, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.values(), nil
}

// update runs fn against the latest document and writes it back if fn
// reports a change. On a version conflict the document is reloaded and fn
// runs again, so fn must be free of side effects outside the document.
func (c *collection[T]) update(ctx context.Context, fn func(doc *document[T]) (bool, error)) error {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		doc, version, err := c.load(ctx)
		if err != nil {
			return err
		}

		changed, err := fn(doc)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		payload, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", c.key, err)
		}

		_, err = c.store.Put(ctx, c.key, payload, version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, kv.ErrVersionConflict) {
			return fmt.Errorf("failed to save %s: %w", c.key, err)
		}
	}
	return fmt.Errorf("failed to save %s: %w", c.key, ErrTooManyConflicts)
}
