package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/jonwraymond/flightcache/health"
	"github.com/jonwraymond/flightcache/storage"
	"github.com/jonwraymond/flightcache/storage/redisstore"
)

func TestOpenBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	tests := []struct {
		name        string
		cfg         backendConfig
		wantBreaker bool
		wantEntries bool
	}{
		{"memory", backendConfig{Kind: "memory"}, false, true},
		{"lru", backendConfig{Kind: "lru", Capacity: 10}, false, true},
		{"sturdyc", backendConfig{Kind: "sturdyc", Capacity: 100}, false, true},
		{"bolt", backendConfig{Kind: "bolt", BoltPath: filepath.Join(dir, "c.db"), Codec: "json"}, false, true},
		{"redis", backendConfig{Kind: "redis", RedisURL: "redis://" + mr.Addr(), Prefix: "t:"}, true, false},
		{"tiered", backendConfig{Kind: "tiered", RedisURL: "redis://" + mr.Addr(), Prefix: "tiered:"}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			b, err := openBackend(ctx, tt.cfg)
			if err != nil {
				t.Fatalf("openBackend() error = %v", err)
			}
			defer func() {
				if err := b.Close(); err != nil {
					t.Errorf("Close() error = %v", err)
				}
			}()

			if err := storage.Store(ctx, b.store, "k", "v", time.Minute); err != nil {
				t.Fatalf("Store() error = %v", err)
			}
			got, ok, err := storage.Load[string](ctx, b.store, "k")
			if err != nil || !ok || got != "v" {
				t.Errorf("Load() = %q, %v, %v", got, ok, err)
			}

			if (len(b.breakers) > 0) != tt.wantBreaker {
				t.Errorf("breakers = %v, want present=%v", b.breakers, tt.wantBreaker)
			}
			if (b.entries != nil) != tt.wantEntries {
				t.Errorf("entries set = %v, want %v", b.entries != nil, tt.wantEntries)
			}

			agg := health.NewAggregator()
			b.register(agg)
			results := agg.CheckAll(ctx)
			if status := agg.OverallStatus(results); status != health.StatusHealthy {
				t.Errorf("health = %v (%+v), want healthy", status, results)
			}
		})
	}
}

func TestOpenBackend_TieredBackfillsFront(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	cfg := backendConfig{
		Kind:        "tiered",
		RedisURL:    "redis://" + mr.Addr(),
		Prefix:      "bf:",
		BackfillTTL: time.Minute,
	}

	b, err := openBackend(ctx, cfg)
	if err != nil {
		t.Fatalf("openBackend() error = %v", err)
	}
	defer b.Close()

	// Written by another process: only redis has it.
	other, err := redisstore.Open(ctx, cfg.RedisURL, redisstore.Config{Prefix: cfg.Prefix, Codec: storage.MsgpackCodec{}})
	if err != nil {
		t.Fatalf("redisstore.Open() error = %v", err)
	}
	defer other.Close()
	if err := storage.Store(ctx, other, "k", "shared", time.Minute); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	got, ok, err := storage.Load[string](ctx, b.store, "k")
	if err != nil || !ok || got != "shared" {
		t.Fatalf("Load() = %q, %v, %v", got, ok, err)
	}
	if n := b.entries(); n != 1 {
		t.Errorf("lru front entries = %d, want 1", n)
	}

	mr.Del(cfg.Prefix + "k")
	got, ok, err = storage.Load[string](ctx, b.store, "k")
	if err != nil || !ok || got != "shared" {
		t.Errorf("Load() after redis lost the key = %q, %v, %v; want a front-tier hit", got, ok, err)
	}
}

func TestOpenBackend_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  backendConfig
	}{
		{"unknown kind", backendConfig{Kind: "floppy"}},
		{"unknown codec", backendConfig{Kind: "bolt", Codec: "xml", BoltPath: "x.db"}},
		{"bolt without path", backendConfig{Kind: "bolt"}},
		{"redis without url", backendConfig{Kind: "redis"}},
		{"memcache without servers", backendConfig{Kind: "memcache"}},
		{"tiered without url", backendConfig{Kind: "tiered"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := openBackend(context.Background(), tt.cfg); err == nil {
				t.Error("openBackend() error = nil")
			}
		})
	}

	_, err := openBackend(context.Background(), backendConfig{Kind: "floppy"})
	if !errors.Is(err, errUnknownBackend) {
		t.Errorf("error = %v, want errUnknownBackend", err)
	}
}
