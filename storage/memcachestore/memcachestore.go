// Package memcachestore implements storage.Storage on memcached using
// bradfitz/gomemcache.
package memcachestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/jonwraymond/flightcache/storage"
)

const (
	backend = "memcache"

	// maxKeyLength is memcached's key limit.
	maxKeyLength = 250

	// maxRelativeExpiry is the largest expiry memcached reads as relative
	// seconds; larger values are taken as unix timestamps.
	maxRelativeExpiry = 30 * 24 * 60 * 60
)

// Config configures a Store.
type Config struct {
	// Servers lists memcached addresses (host:port).
	Servers []string

	// Prefix is prepended to every key.
	Prefix string

	// Timeout bounds each socket operation. Default: gomemcache's default (500ms)
	Timeout time.Duration

	// Codec encodes values. Default: storage.DefaultCodec()
	Codec storage.Codec
}

// Store is a memcached-backed storage.Storage.
//
// gomemcache has no context support, so ctx is only checked before each
// call; Timeout bounds the call itself.
type Store struct {
	client *memcache.Client
	prefix string
	codec  storage.Codec
}

// New creates a Store for config.Servers.
func New(config Config) (*Store, error) {
	if len(config.Servers) == 0 {
		return nil, errors.New("memcachestore: no servers configured")
	}
	if config.Codec == nil {
		config.Codec = storage.DefaultCodec()
	}

	client := memcache.New(config.Servers...)
	if config.Timeout > 0 {
		client.Timeout = config.Timeout
	}
	return &Store{client: client, prefix: config.Prefix, codec: config.Codec}, nil
}

// Get returns the entry for key.
func (s *Store) Get(ctx context.Context, key string) (storage.Value, bool, error) {
	if err := storage.ValidateKey(key); err != nil {
		return storage.Value{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return storage.Value{}, false, storage.ReadError(backend, key, err)
	}

	item, err := s.client.Get(s.key(key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return storage.Value{}, false, nil
	}
	if err != nil {
		return storage.Value{}, false, storage.ReadError(backend, key, err)
	}

	v, err := storage.DecodeValue(s.codec, item.Value)
	if err != nil {
		return storage.Value{}, false, storage.ReadError(backend, key, err)
	}
	return v, true, nil
}

// Set stores value. The TTL is rounded up to whole seconds and capped at 30
// days.
func (s *Store) Set(ctx context.Context, key string, value storage.Value, ttl time.Duration) error {
	if err := storage.ValidateEntry(key, ttl); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return storage.WriteError(backend, storage.OpSet, key, err)
	}

	data, err := storage.EncodeValue(s.codec, value)
	if err != nil {
		return storage.WriteError(backend, storage.OpSet, key, err)
	}

	err = s.client.Set(&memcache.Item{
		Key:        s.key(key),
		Value:      data,
		Expiration: expiration(ttl),
	})
	if err != nil {
		return storage.WriteError(backend, storage.OpSet, key, err)
	}
	return nil
}

// Remove deletes key.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return storage.WriteError(backend, storage.OpRemove, key, err)
	}

	err := s.client.Delete(s.key(key))
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return storage.WriteError(backend, storage.OpRemove, key, err)
	}
	return nil
}

// Ping checks every server responds.
func (s *Store) Ping(context.Context) error {
	return s.client.Ping()
}

// key maps a storage key to one memcached accepts. Keys that are too long or
// contain whitespace or control characters are replaced by their SHA-256.
func (s *Store) key(key string) string {
	k := s.prefix + key
	if len(k) <= maxKeyLength && legalKey(k) {
		return k
	}
	sum := sha256.Sum256([]byte(k))
	return s.prefix + "sha256:" + hex.EncodeToString(sum[:])
}

func legalKey(k string) bool {
	for i := 0; i < len(k); i++ {
		if k[i] <= ' ' || k[i] == 0x7f {
			return false
		}
	}
	return true
}

// expiration converts ttl to memcached's relative seconds.
func expiration(ttl time.Duration) int32 {
	secs := int64((ttl + time.Second - 1) / time.Second)
	if secs > maxRelativeExpiry {
		secs = maxRelativeExpiry
	}
	return int32(secs)
}

var _ storage.Storage = (*Store)(nil)
