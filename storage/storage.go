package storage

import (
	"context"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a storage key.
const MaxKeyLength = 512

// Storage is the contract every backing store satisfies.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use, including
//     concurrent Set calls for different keys.
//   - Get: a miss or an expired entry returns (Value{}, false, nil). Errors are
//     reserved for invalid arguments and backend failures.
//   - Set: replaces any existing entry unconditionally. TTL must be positive.
//   - Remove: idempotent, no error on miss.
type Storage interface {
	// Get retrieves the value stored under key.
	Get(ctx context.Context, key string) (Value, bool, error)

	// Set stores value under key with an absolute expiry of now+ttl.
	Set(ctx context.Context, key string, value Value, ttl time.Duration) error

	// Remove deletes any entry for key.
	Remove(ctx context.Context, key string) error
}

// ValidateKey checks if a key is valid for storage.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}

// ValidateTTL rejects zero and negative TTLs.
func ValidateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	return nil
}

// ValidateEntry runs the checks Set applies before touching a backend.
func ValidateEntry(key string, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return ValidateTTL(ttl)
}

// Load reads key from s and decodes it as T.
// It returns ok=false on a miss and ErrTypeMismatch when the stored type differs.
func Load[T any](ctx context.Context, s Storage, key string) (T, bool, error) {
	var zero T
	if s == nil {
		return zero, false, ErrNilStorage
	}
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}
	out, err := As[T](v)
	if err != nil {
		return zero, false, err
	}
	return out, true, nil
}

// Store writes value under key with the given ttl.
func Store[T any](ctx context.Context, s Storage, key string, value T, ttl time.Duration) error {
	if s == nil {
		return ErrNilStorage
	}
	return s.Set(ctx, key, ValueOf(value), ttl)
}
