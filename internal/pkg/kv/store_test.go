package kv

import (
	"context"
	"os/exec"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// runStoreSuite exercises the Store contract against any backend.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("CreateThenUpdate", func(t *testing.T) {
		s := newStore(t)

		v1, err := s.Put(ctx, "doc", []byte(`{"a":1}`), 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), v1)

		e, err := s.Get(ctx, "doc")
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":1}`, string(e.Value))
		assert.Equal(t, int64(1), e.Version)

		v2, err := s.Put(ctx, "doc", []byte(`{"a":2}`), v1)
		require.NoError(t, err)
		assert.Equal(t, int64(2), v2)

		e, err = s.Get(ctx, "doc")
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":2}`, string(e.Value))
	})

	t.Run("StaleWriteConflicts", func(t *testing.T) {
		s := newStore(t)

		_, err := s.Put(ctx, "doc", []byte(`[]`), 0)
		require.NoError(t, err)

		// Creating an existing key conflicts.
		_, err = s.Put(ctx, "doc", []byte(`[1]`), 0)
		assert.ErrorIs(t, err, ErrVersionConflict)

		_, err = s.Put(ctx, "doc", []byte(`[1]`), 1)
		require.NoError(t, err)

		// Writing with the old version conflicts.
		_, err = s.Put(ctx, "doc", []byte(`[2]`), 1)
		assert.ErrorIs(t, err, ErrVersionConflict)

		e, err := s.Get(ctx, "doc")
		require.NoError(t, err)
		assert.JSONEq(t, `[1]`, string(e.Value))
	})

	t.Run("DeleteResetsVersion", func(t *testing.T) {
		s := newStore(t)

		_, err := s.Put(ctx, "doc", []byte(`{}`), 0)
		require.NoError(t, err)
		require.NoError(t, s.Delete(ctx, "doc"))
		require.NoError(t, s.Delete(ctx, "doc"))

		_, err = s.Get(ctx, "doc")
		assert.ErrorIs(t, err, ErrNotFound)

		v, err := s.Put(ctx, "doc", []byte(`{}`), 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)
	})

	t.Run("ConcurrentWritersOneWinsPerVersion", func(t *testing.T) {
		s := newStore(t)

		_, err := s.Put(ctx, "doc", []byte(`0`), 0)
		require.NoError(t, err)

		const writers = 8
		var wins atomic.Int32
		var wg sync.WaitGroup
		wg.Add(writers)
		for i := 0; i < writers; i++ {
			go func() {
				defer wg.Done()
				if _, err := s.Put(ctx, "doc", []byte(`1`), 1); err == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
	})
}
