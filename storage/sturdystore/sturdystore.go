// Package sturdystore implements a sharded in-process storage.Storage on
// viccon/sturdyc.
package sturdystore

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"

	"github.com/jonwraymond/flightcache/storage"
)

// Config holds the sturdyc client settings.
type Config struct {
	// Capacity is the maximum number of entries. Must be greater than 0.
	Capacity int

	// NumShards is the number of independently locked shards.
	// Must be greater than 0. Default: 256
	NumShards int

	// MaxTTL is the sturdyc TTL. It bounds every entry's lifetime; shorter
	// per-entry TTLs are checked on read. Must be greater than 0.
	MaxTTL time.Duration

	// EvictionPercentage is the share of entries evicted when the cache is
	// full. Must be between 1 and 100. Default: 10
	EvictionPercentage int

	// EvictionInterval sets how often sturdyc scans for expired entries.
	// Zero uses the sturdyc default.
	EvictionInterval time.Duration
}

// DefaultConfig returns a Config with defaults for most uses.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		MaxTTL:             24 * time.Hour,
		EvictionPercentage: 10,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}
	if c.MaxTTL <= 0 {
		return &ConfigError{Field: "MaxTTL", Message: "must be greater than 0"}
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}
	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}
	return nil
}

func (c Config) options() []sturdyc.Option {
	var opts []sturdyc.Option
	if c.EvictionInterval > 0 {
		opts = append(opts, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return opts
}

// ConfigError reports an invalid Config field.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "sturdystore: config error in field " + e.Field + ": " + e.Message
}

// Unwrap lets ConfigError match storage.ErrInvalidArgument.
func (e *ConfigError) Unwrap() error {
	return storage.ErrInvalidArgument
}

type entry struct {
	value     storage.Value
	expiresAt time.Time
}

// Store is a sturdyc-backed storage.Storage.
type Store struct {
	client *sturdyc.Client[entry]
}

// New validates cfg and creates a Store.
func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := sturdyc.New[entry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.MaxTTL,
		cfg.EvictionPercentage,
		cfg.options()...,
	)
	return &Store{client: client}, nil
}

// Get returns the entry for key.
func (s *Store) Get(_ context.Context, key string) (storage.Value, bool, error) {
	if err := storage.ValidateKey(key); err != nil {
		return storage.Value{}, false, err
	}

	e, ok := s.client.Get(key)
	if !ok {
		return storage.Value{}, false, nil
	}
	if !time.Now().Before(e.expiresAt) {
		// Left for MaxTTL or eviction to reclaim; deleting here could drop
		// a fresh Set that raced this read.
		return storage.Value{}, false, nil
	}
	return e.value.WithExpiry(e.expiresAt), true, nil
}

// Set stores value.
func (s *Store) Set(_ context.Context, key string, value storage.Value, ttl time.Duration) error {
	if err := storage.ValidateEntry(key, ttl); err != nil {
		return err
	}
	s.client.Set(key, entry{value: value, expiresAt: time.Now().Add(ttl)})
	return nil
}

// Remove deletes key.
func (s *Store) Remove(_ context.Context, key string) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	s.client.Delete(key)
	return nil
}

// Len returns the number of entries held.
func (s *Store) Len() int {
	return s.client.Size()
}

var _ storage.Storage = (*Store)(nil)
