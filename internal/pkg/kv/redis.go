package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Hash fields of a stored entry.
const (
	fieldValue   = "value"
	fieldVersion = "version"
)

// RedisStore is a Store keeping each entry in a Redis hash. Conditional
// writes use WATCH/MULTI so a concurrent writer aborts the transaction.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisClient returns a connected Redis client.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// NewRedisStore creates a RedisStore. Close closes the client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	fields, err := s.client.HMGet(ctx, s.prefix+key, fieldValue, fieldVersion).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	if len(fields) != 2 || fields[0] == nil || fields[1] == nil {
		return nil, ErrNotFound
	}

	value, ok := fields[0].(string)
	if !ok {
		return nil, fmt.Errorf("redis get %s: unexpected value type %T", key, fields[0])
	}
	rawVersion, ok := fields[1].(string)
	if !ok {
		return nil, fmt.Errorf("redis get %s: unexpected version type %T", key, fields[1])
	}
	var version int64
	if _, err := fmt.Sscan(rawVersion, &version); err != nil {
		return nil, fmt.Errorf("redis get %s: bad version %q: %w", key, rawVersion, err)
	}

	return &Entry{Value: []byte(value), Version: version}, nil
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, key string, value []byte, expected int64) (int64, error) {
	fullKey := s.prefix + key
	next := expected + 1

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, fullKey, fieldVersion).Int64()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				return err
			}
			current = 0
		}
		if current != expected {
			return ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, fullKey, fieldValue, value, fieldVersion, next)
			return nil
		})
		return err
	}, fullKey)

	switch {
	case err == nil:
		return next, nil
	case errors.Is(err, ErrVersionConflict), errors.Is(err, redis.TxFailedErr):
		return 0, ErrVersionConflict
	default:
		return 0, fmt.Errorf("redis put %s: %w", key, err)
	}
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
