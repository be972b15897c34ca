package blobstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("PutGet", func(t *testing.T) {
		s := NewMemoryStore()

		require.NoError(t, s.Put(ctx, "m.bin", []byte("payload")))
		data, err := s.Get(ctx, "m.bin")
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), data)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := NewMemoryStore()
		_, err := s.Get(ctx, "missing")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("CopiesOnBothSides", func(t *testing.T) {
		s := NewMemoryStore()

		in := []byte("abc")
		require.NoError(t, s.Put(ctx, "m.bin", in))
		in[0] = 'x'

		out, err := s.Get(ctx, "m.bin")
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), out)

		out[1] = 'y'
		again, err := s.Get(ctx, "m.bin")
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), again)
	})

	t.Run("Delete", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Put(ctx, "m.bin", []byte("x")))
		require.NoError(t, s.Delete(ctx, "m.bin"))
		assert.Equal(t, 0, s.Len())
		require.NoError(t, s.Delete(ctx, "m.bin"))
	})

	t.Run("ConcurrentAccess", func(t *testing.T) {
		s := NewMemoryStore()

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					_ = s.Put(ctx, "shared", []byte("data"))
					_, _ = s.Get(ctx, "shared")
				}
			}()
		}
		wg.Wait()

		data, err := s.Get(ctx, "shared")
		require.NoError(t, err)
		assert.Equal(t, []byte("data"), data)
	})
}
