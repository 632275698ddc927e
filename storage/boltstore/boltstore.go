// Package boltstore implements storage.Storage on a bbolt database file.
//
// Each record is an 8-byte big-endian expiry (unix nanoseconds) followed by
// the codec envelope. Expired records are dropped lazily on read and in bulk
// by Sweep.
package boltstore

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/jonwraymond/flightcache/storage"
)

const (
	backend    = "bolt"
	headerSize = 8
)

// Options configures a Store.
type Options struct {
	// Bucket is the bucket holding entries. Default: "cache"
	Bucket string

	// Codec encodes values. Default: storage.DefaultCodec()
	Codec storage.Codec

	// OpenTimeout bounds waiting for the file lock. Default: 1s
	OpenTimeout time.Duration
}

// Store is a persistent storage.Storage backed by bbolt.
// It is safe for concurrent use.
type Store struct {
	db     *bolt.DB
	bucket []byte
	codec  storage.Codec
	now    func() time.Time
}

// Open initializes or opens a Store at path.
func Open(path string, opts Options) (*Store, error) {
	if opts.Bucket == "" {
		opts.Bucket = "cache"
	}
	if opts.Codec == nil {
		opts.Codec = storage.DefaultCodec()
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = time.Second
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: opts.OpenTimeout})
	if err != nil {
		return nil, err
	}
	bucket := []byte(opts.Bucket)
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, bucket: bucket, codec: opts.Codec, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the entry for key, deleting it if it has expired.
func (s *Store) Get(_ context.Context, key string) (storage.Value, bool, error) {
	if err := storage.ValidateKey(key); err != nil {
		return storage.Value{}, false, err
	}

	var (
		data      []byte
		expired   bool
		expiresAt int64
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		rec := tx.Bucket(s.bucket).Get([]byte(key))
		if rec == nil {
			return nil
		}
		if len(rec) < headerSize {
			return errors.New("boltstore: record too short")
		}
		if !s.live(rec) {
			expired = true
			return nil
		}
		// rec is only valid inside the transaction.
		data = append([]byte(nil), rec[headerSize:]...)
		expiresAt = int64(binary.BigEndian.Uint64(rec[:headerSize]))
		return nil
	})
	if err != nil {
		return storage.Value{}, false, storage.ReadError(backend, key, err)
	}

	if expired {
		s.dropExpired(key)
		return storage.Value{}, false, nil
	}
	if data == nil {
		return storage.Value{}, false, nil
	}

	v, err := storage.DecodeValue(s.codec, data)
	if err != nil {
		return storage.Value{}, false, storage.ReadError(backend, key, err)
	}
	return v.WithExpiry(time.Unix(0, expiresAt)), true, nil
}

// Set stores value with an absolute expiry of now+ttl.
func (s *Store) Set(_ context.Context, key string, value storage.Value, ttl time.Duration) error {
	if err := storage.ValidateEntry(key, ttl); err != nil {
		return err
	}

	env, err := storage.EncodeValue(s.codec, value)
	if err != nil {
		return storage.WriteError(backend, storage.OpSet, key, err)
	}

	rec := make([]byte, headerSize+len(env))
	binary.BigEndian.PutUint64(rec[:headerSize], uint64(s.now().Add(ttl).UnixNano()))
	copy(rec[headerSize:], env)

	if err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), rec)
	}); err != nil {
		return storage.WriteError(backend, storage.OpSet, key, err)
	}
	return nil
}

// Remove deletes key.
func (s *Store) Remove(_ context.Context, key string) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	if err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	}); err != nil {
		return storage.WriteError(backend, storage.OpRemove, key, err)
	}
	return nil
}

// Sweep deletes every expired record and returns how many were removed.
func (s *Store) Sweep() (int, error) {
	var removed int
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)

		var expired [][]byte
		if err := b.ForEach(func(k, rec []byte) error {
			if len(rec) < headerSize || !s.live(rec) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}

		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})
	return removed, err
}

// Len returns the number of records, expired ones included.
func (s *Store) Len() int {
	n := 0
	_ = s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(s.bucket).Stats().KeyN
		return nil
	})
	return n
}

func (s *Store) live(rec []byte) bool {
	expiresAt := int64(binary.BigEndian.Uint64(rec[:headerSize]))
	return s.now().UnixNano() < expiresAt
}

// dropExpired deletes key if it is still expired.
func (s *Store) dropExpired(key string) {
	_ = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		rec := b.Get([]byte(key))
		if rec == nil || (len(rec) >= headerSize && s.live(rec)) {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

var _ storage.Storage = (*Store)(nil)
