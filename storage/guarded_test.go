package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/flightcache/resilience"
)

func TestNewGuarded_NilInner(t *testing.T) {
	if _, err := NewGuarded(nil, GuardConfig{}); !errors.Is(err, ErrNilStorage) {
		t.Errorf("NewGuarded(nil) error = %v, want ErrNilStorage", err)
	}
}

func TestGuarded_PassesThrough(t *testing.T) {
	ctx := context.Background()
	g, err := NewGuarded(NewMemory(MemoryConfig{}), GuardConfig{Name: "mem", Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewGuarded failed: %v", err)
	}

	if err := Store(ctx, g, "k", "v", time.Minute); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	got, ok, err := Load[string](ctx, g, "k")
	if err != nil || !ok || got != "v" {
		t.Fatalf("Load = %q, %v, %v", got, ok, err)
	}
	if err := g.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
}

func TestGuarded_OpensBreaker(t *testing.T) {
	ctx := context.Background()
	inner := &flakyStore{err: errors.New("connection refused")}
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures:  2,
		ResetTimeout: time.Hour,
	})

	g, err := NewGuarded(inner, GuardConfig{Name: "remote", Breaker: breaker})
	if err != nil {
		t.Fatalf("NewGuarded failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, _, err := g.Get(ctx, "k"); !errors.Is(err, ErrReadFailure) {
			t.Fatalf("Get #%d error = %v, want ErrReadFailure", i, err)
		}
	}
	if breaker.State() != resilience.StateOpen {
		t.Fatalf("breaker state = %v, want open", breaker.State())
	}

	calls := inner.calls
	_, _, err = g.Get(ctx, "k")
	if !errors.Is(err, ErrReadFailure) || !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("Get with open breaker error = %v", err)
	}
	err = g.Set(ctx, "k", ValueOf(1), time.Minute)
	if !errors.Is(err, ErrWriteFailure) || !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("Set with open breaker error = %v", err)
	}
	if inner.calls != calls {
		t.Error("open breaker must not reach the backend")
	}
}

func TestGuarded_InvalidArgumentsDoNotTrip(t *testing.T) {
	ctx := context.Background()
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{MaxFailures: 1})
	g, err := NewGuarded(NewMemory(MemoryConfig{}), GuardConfig{Breaker: breaker})
	if err != nil {
		t.Fatalf("NewGuarded failed: %v", err)
	}

	if err := g.Set(ctx, "k", ValueOf(1), 0); !errors.Is(err, ErrInvalidTTL) {
		t.Errorf("Set with zero ttl error = %v, want ErrInvalidTTL", err)
	}
	if _, _, err := g.Get(ctx, ""); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Get with empty key error = %v, want ErrInvalidKey", err)
	}
	if breaker.State() != resilience.StateClosed {
		t.Errorf("breaker state = %v, want closed", breaker.State())
	}
}

func TestGuarded_Timeout(t *testing.T) {
	ctx := context.Background()
	g, err := NewGuarded(&slowStore{delay: 200 * time.Millisecond}, GuardConfig{Timeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewGuarded failed: %v", err)
	}

	_, _, err = g.Get(ctx, "k")
	if !errors.Is(err, ErrReadFailure) || !errors.Is(err, resilience.ErrTimeout) {
		t.Errorf("Get on slow backend error = %v, want read failure wrapping ErrTimeout", err)
	}
}

// slowStore blocks until its delay elapses or ctx is done.
type slowStore struct {
	delay time.Duration
}

func (s *slowStore) Get(ctx context.Context, key string) (Value, bool, error) {
	select {
	case <-time.After(s.delay):
		return Value{}, false, nil
	case <-ctx.Done():
		return Value{}, false, ctx.Err()
	}
}

func (s *slowStore) Set(ctx context.Context, key string, value Value, ttl time.Duration) error {
	_, _, err := s.Get(ctx, key)
	return err
}

func (s *slowStore) Remove(ctx context.Context, key string) error {
	_, _, err := s.Get(ctx, key)
	return err
}
