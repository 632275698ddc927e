// Package storagetest provides a contract suite for storage.Storage
// implementations.
//
// Backends call Run from their own tests:
//
//	func TestContract(t *testing.T) {
//		storagetest.Run(t, func(t *testing.T) storage.Storage {
//			return newStore(t)
//		})
//	}
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/flightcache/storage"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) storage.Storage

// Options tunes the suite for backends with coarse clocks.
type Options struct {
	// ShortTTL is the TTL used by the expiry test. Default: 100ms
	ShortTTL time.Duration

	// Advance moves the backend's clock forward. Default: time.Sleep
	Advance func(d time.Duration)

	// SkipExpiry disables the expiry test.
	SkipExpiry bool

	// NoExpiryReport marks backends whose hits carry no expiry.
	NoExpiryReport bool
}

// Profile is the struct payload used by the suite.
type Profile struct {
	ID    int
	Name  string
	Tags  []string
	Admin bool
}

// Run executes the contract suite against stores built by newStore.
func Run(t *testing.T, newStore Factory, opts ...Options) {
	t.Helper()

	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.ShortTTL <= 0 {
		o.ShortTTL = 100 * time.Millisecond
	}
	if o.Advance == nil {
		o.Advance = time.Sleep
	}

	t.Run("MissIsNotAnError", func(t *testing.T) {
		s := newStore(t)
		v, ok, err := s.Get(context.Background(), "absent")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.True(t, v.IsZero())
	})

	t.Run("RoundTripStruct", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		want := Profile{ID: 42, Name: "ada", Tags: []string{"a", "b"}, Admin: true}

		require.NoError(t, storage.Store(ctx, s, "user:42", want, time.Minute))

		got, ok, err := storage.Load[Profile](ctx, s, "user:42")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, got)
	})

	t.Run("RoundTripScalars", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, storage.Store(ctx, s, "n", 7, time.Minute))
		require.NoError(t, storage.Store(ctx, s, "s", "seven", time.Minute))

		n, ok, err := storage.Load[int](ctx, s, "n")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 7, n)

		str, ok, err := storage.Load[string](ctx, s, "s")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "seven", str)
	})

	t.Run("Overwrite", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, storage.Store(ctx, s, "k", "v1", time.Minute))
		require.NoError(t, storage.Store(ctx, s, "k", "v2", time.Minute))

		got, ok, err := storage.Load[string](ctx, s, "k")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "v2", got)
	})

	t.Run("RemoveIsIdempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, storage.Store(ctx, s, "k", "v", time.Minute))
		require.NoError(t, s.Remove(ctx, "k"))
		require.NoError(t, s.Remove(ctx, "k"))
		require.NoError(t, s.Remove(ctx, "never-set"))

		_, ok, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("TypeMismatch", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, storage.Store(ctx, s, "k", "text", time.Minute))

		_, ok, err := storage.Load[int](ctx, s, "k")
		assert.False(t, ok)
		assert.ErrorIs(t, err, storage.ErrTypeMismatch)
	})

	t.Run("InvalidArguments", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		v := storage.ValueOf("v")

		tests := []struct {
			name string
			key  string
			ttl  time.Duration
		}{
			{name: "empty key", key: "", ttl: time.Minute},
			{name: "blank key", key: "   ", ttl: time.Minute},
			{name: "zero ttl", key: "k", ttl: 0},
			{name: "negative ttl", key: "k", ttl: -time.Second},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := s.Set(ctx, tt.key, v, tt.ttl)
				assert.ErrorIs(t, err, storage.ErrInvalidArgument)
			})
		}

		_, _, err := s.Get(ctx, "")
		assert.ErrorIs(t, err, storage.ErrInvalidArgument)
	})

	t.Run("Expiry", func(t *testing.T) {
		if o.SkipExpiry {
			t.Skip("expiry not testable for this backend")
		}
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, storage.Store(ctx, s, "short", "lived", o.ShortTTL))

		_, ok, err := s.Get(ctx, "short")
		require.NoError(t, err)
		require.True(t, ok, "entry should be present immediately")

		o.Advance(o.ShortTTL + o.ShortTTL/2)

		_, ok, err = s.Get(ctx, "short")
		require.NoError(t, err)
		assert.False(t, ok, "entry should be absent after its ttl")
	})

	t.Run("ReportsExpiry", func(t *testing.T) {
		if o.NoExpiryReport {
			t.Skip("backend does not report expiry on hits")
		}
		s := newStore(t)
		ctx := context.Background()

		before := time.Now()
		require.NoError(t, storage.Store(ctx, s, "k", "v", time.Minute))

		v, ok, err := s.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)

		expiresAt, ok := v.ExpiresAt()
		require.True(t, ok, "hit should carry its expiry")
		assert.False(t, expiresAt.Before(before.Add(time.Minute-time.Second)), "expiry too early: %v", expiresAt)
		assert.False(t, expiresAt.After(time.Now().Add(time.Minute+time.Second)), "expiry too late: %v", expiresAt)
	})

	t.Run("ConcurrentDistinctKeys", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		const workers = 16
		var wg sync.WaitGroup
		wg.Add(workers)
		for i := 0; i < workers; i++ {
			go func(id int) {
				defer wg.Done()
				key := fmt.Sprintf("worker:%d", id)
				assert.NoError(t, storage.Store(ctx, s, key, id, time.Minute))
			}(i)
		}
		wg.Wait()

		for i := 0; i < workers; i++ {
			got, ok, err := storage.Load[int](ctx, s, fmt.Sprintf("worker:%d", i))
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, i, got)
		}
	})
}
