package health

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonwraymond/flightcache/resilience"
	"github.com/jonwraymond/flightcache/storage"
)

// ReservedKeyPrefix starts every key written by a StorageChecker. Servers
// sharing a store with the checker must refuse client keys carrying it.
const ReservedKeyPrefix = "_health:"

// IsReservedKey reports whether key belongs to the checker keyspace.
func IsReservedKey(key string) bool {
	return strings.HasPrefix(key, ReservedKeyPrefix)
}

// StorageChecker verifies a store by writing, reading back and removing a
// dedicated key.
type StorageChecker struct {
	name  string
	store storage.Storage
	key   string
}

// NewStorageChecker creates a checker for store. It uses the key
// ReservedKeyPrefix+name.
func NewStorageChecker(name string, store storage.Storage) *StorageChecker {
	return &StorageChecker{name: name, store: store, key: ReservedKeyPrefix + name}
}

// Name returns the checker name.
func (s *StorageChecker) Name() string {
	return s.name
}

// Check runs one Set, Get and Remove round trip.
func (s *StorageChecker) Check(ctx context.Context) Result {
	want := time.Now().UnixNano()

	if err := storage.Store(ctx, s.store, s.key, want, time.Minute); err != nil {
		return Unhealthy("round-trip write failed", err)
	}
	got, ok, err := storage.Load[int64](ctx, s.store, s.key)
	if err != nil {
		return Unhealthy("round-trip read failed", err)
	}
	if !ok || got != want {
		return Unhealthy("round-trip read back a different value", ErrRoundTripMismatch)
	}
	if err := s.store.Remove(ctx, s.key); err != nil {
		return Degraded("round-trip remove failed").WithDetails(map[string]any{"error": err.Error()})
	}
	return Healthy("storage round trip ok")
}

// NewBreakerChecker maps a circuit breaker's state to a status: closed is
// healthy, half-open degraded and open unhealthy.
func NewBreakerChecker(name string, cb *resilience.CircuitBreaker) Checker {
	return NewCheckerFunc(name, func(context.Context) Result {
		m := cb.Metrics()
		details := map[string]any{"state": m.State.String(), "failures": m.Failures}

		switch m.State {
		case resilience.StateOpen:
			return Unhealthy("circuit open", resilience.ErrCircuitOpen).WithDetails(details)
		case resilience.StateHalfOpen:
			return Degraded("circuit half-open").WithDetails(details)
		default:
			return Healthy("circuit closed").WithDetails(details)
		}
	})
}

// FlightStats is satisfied by *cache.Cache.
type FlightStats interface {
	InFlight() int
	PendingWrites() int
}

// NewFlightChecker reports computations and write-backs in progress. It
// reports degraded once PendingWrites exceeds maxPending; zero disables the
// limit.
func NewFlightChecker(name string, stats FlightStats, maxPending int) Checker {
	return NewCheckerFunc(name, func(context.Context) Result {
		inFlight, pending := stats.InFlight(), stats.PendingWrites()
		details := map[string]any{"in_flight": inFlight, "pending_writes": pending}

		if maxPending > 0 && pending > maxPending {
			return Degraded(fmt.Sprintf("%d write-backs pending", pending)).WithDetails(details)
		}
		return Healthy("ok").WithDetails(details)
	})
}
