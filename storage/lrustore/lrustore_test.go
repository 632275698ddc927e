package lrustore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/flightcache/storage"
	"github.com/jonwraymond/flightcache/storage/storagetest"
)

func TestStore_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		s, err := New(Config{})
		require.NoError(t, err)
		return s
	})
}

func TestStore_EvictsLeastRecentlyUsed(t *testing.T) {
	s, err := New(Config{Capacity: 2})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, storage.Store(ctx, s, "a", 1, time.Minute))
	require.NoError(t, storage.Store(ctx, s, "b", 2, time.Minute))

	// Touch a so b is the oldest.
	_, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, storage.Store(ctx, s, "c", 3, time.Minute))
	assert.Equal(t, 2, s.Len())

	_, ok, _ = s.Get(ctx, "b")
	assert.False(t, ok, "b should have been evicted")
	_, ok, _ = s.Get(ctx, "a")
	assert.True(t, ok)
}

func TestStore_MaxTTLBoundsEntries(t *testing.T) {
	s, err := New(Config{Capacity: 10, MaxTTL: 50 * time.Millisecond})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, storage.Store(ctx, s, "k", "v", time.Hour))
	time.Sleep(100 * time.Millisecond)

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		config  Config
		wantErr bool
	}{
		{DefaultConfig(), false},
		{Config{Capacity: -1, MaxTTL: time.Hour}, true},
		{Config{Capacity: 1, MaxTTL: -time.Second}, true},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, storage.ErrInvalidArgument)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	_, err := New(Config{Capacity: -1})
	assert.ErrorIs(t, err, storage.ErrInvalidArgument)
}

func TestStore_ExpiredReadKeepsSlot(t *testing.T) {
	s, err := New(Config{})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, storage.Store(ctx, s, "k", "old", 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	// The read reports a miss without deleting, so it cannot race a writer.
	assert.Equal(t, 1, s.Len())

	require.NoError(t, storage.Store(ctx, s, "k", "new", time.Minute))
	got, ok, err := storage.Load[string](ctx, s, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", got)
}
