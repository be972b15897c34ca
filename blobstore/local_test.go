package blobstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()

	t.Run("PutGet", func(t *testing.T) {
		s := NewLocalStore(t.TempDir())

		require.NoError(t, s.Put(ctx, "models/knn.bin", []byte("payload")))
		data, err := s.Get(ctx, "models/knn.bin")
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), data)
	})

	t.Run("Overwrite", func(t *testing.T) {
		s := NewLocalStore(t.TempDir())

		require.NoError(t, s.Put(ctx, "m.bin", []byte("v1")))
		require.NoError(t, s.Put(ctx, "m.bin", []byte("v2")))

		data, err := s.Get(ctx, "m.bin")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), data)
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := NewLocalStore(t.TempDir())

		_, err := s.Get(ctx, "missing.bin")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("Delete", func(t *testing.T) {
		s := NewLocalStore(t.TempDir())

		require.NoError(t, s.Put(ctx, "m.bin", []byte("x")))
		require.NoError(t, s.Delete(ctx, "m.bin"))
		_, err := s.Get(ctx, "m.bin")
		assert.True(t, errors.Is(err, ErrNotFound))

		// Deleting again is fine.
		require.NoError(t, s.Delete(ctx, "m.bin"))
	})

	t.Run("NoTempFileLeftBehind", func(t *testing.T) {
		dir := t.TempDir()
		s := NewLocalStore(dir)
		require.NoError(t, s.Put(ctx, "m.bin", []byte("x")))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "m.bin", entries[0].Name())
	})

	t.Run("EmptyRootUsesNameAsPath", func(t *testing.T) {
		dir := t.TempDir()
		s := NewLocalStore("")

		name := filepath.Join(dir, "m.bin")
		require.NoError(t, s.Put(ctx, name, []byte("x")))
		data, err := s.Get(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, []byte("x"), data)
	})
}
