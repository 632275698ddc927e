// Package redisstore implements storage.Storage on Redis.
//
// Values are stored as codec envelopes with SET ... PX, so entries expire
// server-side and a Store can be shared by many processes. Only values are
// shared: computations still coalesce per process.
package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/flightcache/storage"
)

const backend = "redis"

// Config configures a Store.
type Config struct {
	// Prefix is prepended to every key, e.g. "flightcache:".
	Prefix string

	// Codec encodes values. Default: storage.DefaultCodec()
	Codec storage.Codec
}

// Store is a Redis-backed storage.Storage.
type Store struct {
	client redis.UniversalClient
	prefix string
	codec  storage.Codec
}

// New wraps an existing client. The caller keeps ownership of client.
func New(client redis.UniversalClient, config Config) (*Store, error) {
	if client == nil {
		return nil, errors.New("redisstore: client is nil")
	}
	if config.Codec == nil {
		config.Codec = storage.DefaultCodec()
	}
	return &Store{client: client, prefix: config.Prefix, codec: config.Codec}, nil
}

// Open connects to the server at url (redis://...) and checks it responds.
func Open(ctx context.Context, url string, config Config) (*Store, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return New(rdb, config)
}

func (s *Store) key(key string) string {
	return s.prefix + key
}

// Get returns the entry for key. Redis reports expired keys as absent.
func (s *Store) Get(ctx context.Context, key string) (storage.Value, bool, error) {
	if err := storage.ValidateKey(key); err != nil {
		return storage.Value{}, false, err
	}

	var (
		get *redis.StringCmd
		ttl *redis.DurationCmd
	)
	// GET and PTTL in one MULTI so the expiry belongs to the value read.
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		get = p.Get(ctx, s.key(key))
		ttl = p.PTTL(ctx, s.key(key))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return storage.Value{}, false, storage.ReadError(backend, key, err)
	}

	data, err := get.Bytes()
	if errors.Is(err, redis.Nil) {
		return storage.Value{}, false, nil
	}
	if err != nil {
		return storage.Value{}, false, storage.ReadError(backend, key, err)
	}

	v, err := storage.DecodeValue(s.codec, data)
	if err != nil {
		return storage.Value{}, false, storage.ReadError(backend, key, err)
	}
	// PTTL is -1 for keys without expiry; those are not reported.
	if d, err := ttl.Result(); err == nil && d > 0 {
		v = v.WithExpiry(time.Now().Add(d))
	}
	return v, true, nil
}

// Set stores value with a millisecond-precision expiry.
func (s *Store) Set(ctx context.Context, key string, value storage.Value, ttl time.Duration) error {
	if err := storage.ValidateEntry(key, ttl); err != nil {
		return err
	}

	data, err := storage.EncodeValue(s.codec, value)
	if err != nil {
		return storage.WriteError(backend, storage.OpSet, key, err)
	}
	if err := s.client.Set(ctx, s.key(key), data, ttl).Err(); err != nil {
		return storage.WriteError(backend, storage.OpSet, key, err)
	}
	return nil
}

// Remove deletes key. Deleting a missing key is not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return storage.WriteError(backend, storage.OpRemove, key, err)
	}
	return nil
}

// Ping checks the server responds.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

var _ storage.Storage = (*Store)(nil)
