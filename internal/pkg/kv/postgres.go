package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the table used by PostgresStore.
const Schema = `
	CREATE TABLE IF NOT EXISTS kv_entries (
		key        TEXT PRIMARY KEY,
		value      JSONB NOT NULL,
		version    BIGINT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
`

// Migrate applies Schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create kv_entries table: %w", err)
	}
	return nil
}

// PostgresStore is a Store backed by the kv_entries table.
type PostgresStore struct {
	pool   *pgxpool.Pool
	prefix string
}

// NewPostgresStore creates a PostgresStore on an existing pool.
// The pool is owned by the caller and is not closed by Close.
func NewPostgresStore(pool *pgxpool.Pool, prefix string) *PostgresStore {
	return &PostgresStore{pool: pool, prefix: prefix}
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, key string) (*Entry, error) {
	const query = `SELECT value, version FROM kv_entries WHERE key = $1`

	var e Entry
	err := s.pool.QueryRow(ctx, query, s.prefix+key).Scan(&e.Value, &e.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return &e, nil
}

// Put implements Store.
func (s *PostgresStore) Put(ctx context.Context, key string, value []byte, expected int64) (int64, error) {
	const insert = `
		INSERT INTO kv_entries (key, value, version, updated_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (key) DO NOTHING
	`
	const update = `
		UPDATE kv_entries
		SET value = $2, version = version + 1, updated_at = NOW()
		WHERE key = $1 AND version = $3
	`

	if expected == 0 {
		result, err := s.pool.Exec(ctx, insert, s.prefix+key, value)
		if err != nil {
			return 0, fmt.Errorf("failed to insert %s: %w", key, err)
		}
		if result.RowsAffected() == 0 {
			return 0, ErrVersionConflict
		}
		return 1, nil
	}

	result, err := s.pool.Exec(ctx, update, s.prefix+key, value, expected)
	if err != nil {
		return 0, fmt.Errorf("failed to update %s: %w", key, err)
	}
	if result.RowsAffected() == 0 {
		return 0, ErrVersionConflict
	}
	return expected + 1, nil
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM kv_entries WHERE key = $1`

	if _, err := s.pool.Exec(ctx, query, s.prefix+key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	return nil
}
