package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/flightcache/health"
	"github.com/jonwraymond/flightcache/resilience"
	"github.com/jonwraymond/flightcache/storage"
	"github.com/jonwraymond/flightcache/storage/boltstore"
	"github.com/jonwraymond/flightcache/storage/lrustore"
	"github.com/jonwraymond/flightcache/storage/memcachestore"
	"github.com/jonwraymond/flightcache/storage/redisstore"
	"github.com/jonwraymond/flightcache/storage/sturdystore"
)

var errUnknownBackend = errors.New("flightcache: unknown storage backend")

// backendConfig selects and configures the storage behind the cache.
type backendConfig struct {
	Kind            string // memory|lru|sturdyc|bolt|redis|memcache|tiered
	Prefix          string
	Codec           string // msgpack|json
	Capacity        int
	BoltPath        string
	RedisURL        string
	MemcacheServers []string

	// Timeout bounds each call to a remote backend.
	Timeout time.Duration

	// BreakerFailures is how many consecutive remote failures open the breaker.
	BreakerFailures int

	// BackfillTTL caps how long a tiered redis hit is copied into the lru front.
	BackfillTTL time.Duration
}

// backend is an opened storage stack plus what it needs for health and shutdown.
type backend struct {
	name    string
	store   storage.Storage
	entries func() int

	breakers map[string]*resilience.CircuitBreaker
	pingers  map[string]health.Pinger
	closers  []func() error
}

func (b *backend) register(agg *health.Aggregator) {
	agg.Register("storage", health.NewStorageChecker("storage", b.store))
	for name, cb := range b.breakers {
		agg.Register(name+"-breaker", health.NewBreakerChecker(name, cb))
	}
	for name, p := range b.pingers {
		agg.Register(name+"-ping", health.NewPingChecker(name, p))
	}
}

func (b *backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	return errors.Join(errs...)
}

func (c backendConfig) codec() (storage.Codec, error) {
	switch c.Codec {
	case "", "msgpack":
		return storage.MsgpackCodec{}, nil
	case "json":
		return storage.JSONCodec{}, nil
	default:
		return nil, fmt.Errorf("flightcache: unknown codec %q", c.Codec)
	}
}

func openBackend(ctx context.Context, cfg backendConfig) (*backend, error) {
	b := &backend{
		name:     cfg.Kind,
		breakers: map[string]*resilience.CircuitBreaker{},
		pingers:  map[string]health.Pinger{},
	}
	store, err := b.open(ctx, cfg, cfg.Kind)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.store = store
	return b, nil
}

func (b *backend) open(ctx context.Context, cfg backendConfig, kind string) (storage.Storage, error) {
	codec, err := cfg.codec()
	if err != nil {
		return nil, err
	}

	switch kind {
	case "memory":
		m := storage.NewMemory(storage.MemoryConfig{JanitorInterval: time.Minute})
		b.entries = m.Len
		b.closers = append(b.closers, m.Close)
		return m, nil

	case "lru":
		lc := lrustore.DefaultConfig()
		if cfg.Capacity > 0 {
			lc.Capacity = cfg.Capacity
		}
		s, err := lrustore.New(lc)
		if err != nil {
			return nil, err
		}
		b.entries = s.Len
		return s, nil

	case "sturdyc":
		sc := sturdystore.DefaultConfig()
		if cfg.Capacity > 0 {
			sc.Capacity = cfg.Capacity
		}
		s, err := sturdystore.New(sc)
		if err != nil {
			return nil, err
		}
		b.entries = s.Len
		return s, nil

	case "bolt":
		if cfg.BoltPath == "" {
			return nil, errors.New("flightcache: bolt backend needs --bolt-path")
		}
		s, err := boltstore.Open(cfg.BoltPath, boltstore.Options{Codec: codec})
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, s.Close)
		b.entries = s.Len
		return s, nil

	case "redis":
		if cfg.RedisURL == "" {
			return nil, errors.New("flightcache: redis backend needs --redis-url")
		}
		s, err := redisstore.Open(ctx, cfg.RedisURL, redisstore.Config{Prefix: cfg.Prefix, Codec: codec})
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, s.Close)
		b.pingers["redis"] = s
		return b.guard("redis", s, cfg)

	case "memcache":
		s, err := memcachestore.New(memcachestore.Config{
			Servers: cfg.MemcacheServers,
			Prefix:  cfg.Prefix,
			Timeout: cfg.Timeout,
			Codec:   codec,
		})
		if err != nil {
			return nil, err
		}
		b.pingers["memcache"] = s
		return b.guard("memcache", s, cfg)

	case "tiered":
		front, err := b.open(ctx, cfg, "lru")
		if err != nil {
			return nil, err
		}
		back, err := b.open(ctx, cfg, "redis")
		if err != nil {
			return nil, err
		}
		return storage.NewTiered(
			storage.Tier{Name: "lru", Store: front, BackfillTTL: cfg.BackfillTTL},
			storage.Tier{Name: "redis", Store: back},
		)

	default:
		return nil, fmt.Errorf("%w: %q", errUnknownBackend, kind)
	}
}

func (b *backend) guard(name string, s storage.Storage, cfg backendConfig) (storage.Storage, error) {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures:  cfg.BreakerFailures,
		ResetTimeout: 10 * time.Second,
	})
	g, err := storage.NewGuarded(s, storage.GuardConfig{Name: name, Breaker: cb, Timeout: cfg.Timeout})
	if err != nil {
		return nil, err
	}
	b.breakers[name] = g.Breaker()
	return g, nil
}
