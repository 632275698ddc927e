package boltstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/flightcache/storage"
	"github.com/jonwraymond/flightcache/storage/storagetest"
)

func openTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		return openTestStore(t, Options{})
	})
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	s, err := Open(path, Options{Bucket: "users"})
	require.NoError(t, err)
	require.NoError(t, storage.Store(ctx, s, "user:42", storagetest.Profile{ID: 42, Name: "ada"}, time.Hour))
	require.NoError(t, s.Close())

	s, err = Open(path, Options{Bucket: "users"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	got, ok, err := storage.Load[storagetest.Profile](ctx, s, "user:42")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ada", got.Name)
}

func TestStore_ExpiredEntriesDroppedOnRead(t *testing.T) {
	s := openTestStore(t, Options{})
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }
	require.NoError(t, storage.Store(ctx, s, "k", "v", time.Minute))
	require.Equal(t, 1, s.Len())

	now = now.Add(2 * time.Minute)
	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestStore_Sweep(t *testing.T) {
	s := openTestStore(t, Options{})
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }
	require.NoError(t, storage.Store(ctx, s, "short-1", 1, time.Second))
	require.NoError(t, storage.Store(ctx, s, "short-2", 2, time.Second))
	require.NoError(t, storage.Store(ctx, s, "long", 3, time.Hour))

	now = now.Add(time.Minute)
	removed, err := s.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, s.Len())

	got, ok, err := storage.Load[int](ctx, s, "long")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, got)
}

func TestOpen_LockedFileTimesOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(path, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = Open(path, Options{OpenTimeout: 50 * time.Millisecond})
	assert.Error(t, err)
}

func TestClose_Nil(t *testing.T) {
	var s *Store
	assert.NoError(t, s.Close())
}
