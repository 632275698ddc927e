package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jonwraymond/flightcache/resilience"
)

// GuardConfig configures a Guarded store.
type GuardConfig struct {
	// Name identifies the wrapped backend in errors. Default: "guarded"
	Name string

	// Breaker trips after repeated backend failures.
	// If nil, a breaker with resilience defaults is created.
	Breaker *resilience.CircuitBreaker

	// Timeout bounds each backend call.
	// Default: 0 (no per-call timeout)
	Timeout time.Duration
}

// Guarded wraps a remote Storage with a circuit breaker and a per-call timeout.
//
// While the breaker is open, Get reports a read failure and Set a write
// failure without touching the backend.
type Guarded struct {
	inner    Storage
	name     string
	breaker  *resilience.CircuitBreaker
	executor *resilience.Executor
}

// NewGuarded wraps inner.
func NewGuarded(inner Storage, config GuardConfig) (*Guarded, error) {
	if inner == nil {
		return nil, ErrNilStorage
	}
	if config.Name == "" {
		config.Name = "guarded"
	}
	if config.Breaker == nil {
		config.Breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{})
	}

	opts := []resilience.ExecutorOption{resilience.WithCircuitBreaker(config.Breaker)}
	if config.Timeout > 0 {
		opts = append(opts, resilience.WithTimeout(config.Timeout))
	}

	return &Guarded{
		inner:    inner,
		name:     config.Name,
		breaker:  config.Breaker,
		executor: resilience.NewExecutor(opts...),
	}, nil
}

// Breaker returns the circuit breaker guarding the backend.
func (g *Guarded) Breaker() *resilience.CircuitBreaker {
	return g.breaker
}

// Get looks key up through the breaker.
func (g *Guarded) Get(ctx context.Context, key string) (Value, bool, error) {
	if err := ValidateKey(key); err != nil {
		return Value{}, false, err
	}

	type result struct {
		v  Value
		ok bool
	}
	res := &result{}
	err := g.executor.Execute(ctx, func(ctx context.Context) error {
		v, ok, err := g.inner.Get(ctx, key)
		if err != nil {
			return err
		}
		res.v, res.ok = v, ok
		return nil
	})
	if err != nil {
		return Value{}, false, g.wrap(OpGet, key, err)
	}
	return res.v, res.ok, nil
}

// Set writes through the breaker.
func (g *Guarded) Set(ctx context.Context, key string, value Value, ttl time.Duration) error {
	if err := ValidateEntry(key, ttl); err != nil {
		return err
	}
	err := g.executor.Execute(ctx, func(ctx context.Context) error {
		return g.inner.Set(ctx, key, value, ttl)
	})
	if err != nil {
		return g.wrap(OpSet, key, err)
	}
	return nil
}

// Remove deletes through the breaker.
func (g *Guarded) Remove(ctx context.Context, key string) error {
	err := g.executor.Execute(ctx, func(ctx context.Context) error {
		return g.inner.Remove(ctx, key)
	})
	if err != nil {
		return g.wrap(OpRemove, key, err)
	}
	return nil
}

func (g *Guarded) wrap(op Op, key string, err error) error {
	// Backend errors are already classified.
	var opErr *OpError
	if errors.As(err, &opErr) {
		return err
	}
	if op == OpGet {
		return ReadError(g.name, key, err)
	}
	return WriteError(g.name, op, key, err)
}

// Ensure Guarded implements Storage
var _ Storage = (*Guarded)(nil)
