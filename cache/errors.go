package cache

import (
	"errors"

	"github.com/jonwraymond/flightcache/flight"
	"github.com/jonwraymond/flightcache/storage"
)

// Sentinel errors for cache operations.
var (
	// ErrNilCache is returned when an operation is called on a nil Cache.
	ErrNilCache = errors.New("cache: cache is nil")
)

// IsTypeMismatch reports whether err comes from requesting a key as a type
// other than the one stored or being computed for it.
func IsTypeMismatch(err error) bool {
	return errors.Is(err, storage.ErrTypeMismatch) || errors.Is(err, flight.ErrTypeMismatch)
}

// IsInvalidArgument reports whether err was caused by an invalid key or TTL.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, storage.ErrInvalidArgument)
}
