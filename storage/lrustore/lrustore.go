// Package lrustore implements a bounded in-process storage.Storage on
// hashicorp/golang-lru's expirable LRU.
package lrustore

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/jonwraymond/flightcache/storage"
)

// Config configures a Store.
type Config struct {
	// Capacity is the maximum number of entries. Default: 10000
	Capacity int

	// MaxTTL bounds every entry's lifetime regardless of the TTL it was set
	// with. Default: 24h
	MaxTTL time.Duration
}

// DefaultConfig returns a Config with defaults applied.
func DefaultConfig() Config {
	return Config{
		Capacity: 10000,
		MaxTTL:   24 * time.Hour,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive", storage.ErrInvalidArgument)
	}
	if c.MaxTTL <= 0 {
		return fmt.Errorf("%w: max ttl must be positive", storage.ErrInvalidArgument)
	}
	return nil
}

type entry struct {
	value     storage.Value
	expiresAt time.Time
}

// Store evicts the least recently used entry once Capacity is reached.
//
// The LRU expires entries after MaxTTL; the shorter per-entry TTL is checked
// on read.
type Store struct {
	lru *expirable.LRU[string, entry]
}

// New creates a Store. Zero fields in config take their defaults.
func New(config Config) (*Store, error) {
	def := DefaultConfig()
	if config.Capacity == 0 {
		config.Capacity = def.Capacity
	}
	if config.MaxTTL == 0 {
		config.MaxTTL = def.MaxTTL
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Store{lru: expirable.NewLRU[string, entry](config.Capacity, nil, config.MaxTTL)}, nil
}

// Get returns the entry for key.
func (s *Store) Get(_ context.Context, key string) (storage.Value, bool, error) {
	if err := storage.ValidateKey(key); err != nil {
		return storage.Value{}, false, err
	}

	e, ok := s.lru.Get(key)
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

// Set stores value, evicting the least recently used entry if full.
func (s *Store) Set(_ context.Context, key string, value storage.Value, ttl time.Duration) error {
	if err := storage.ValidateEntry(key, ttl); err != nil {
		return err
	}
	s.lru.Add(key, entry{value: value, expiresAt: time.Now().Add(ttl)})
	return nil
}

// Remove deletes key.
func (s *Store) Remove(_ context.Context, key string) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	s.lru.Remove(key)
	return nil
}

// Len returns the number of entries held, including any not yet expired by
// the LRU.
func (s *Store) Len() int {
	return s.lru.Len()
}

var _ storage.Storage = (*Store)(nil)
