package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/flightcache/resilience"
)

func ExampleCircuitBreaker_State() {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures:  2,
		ResetTimeout: time.Minute,
	})
	ctx := context.Background()
	backendDown := errors.New("backend down")

	fmt.Println("initial:", cb.State())
	for i := 0; i < 2; i++ {
		_ = cb.Execute(ctx, func(context.Context) error { return backendDown })
	}
	fmt.Println("after failures:", cb.State())

	err := cb.Execute(ctx, func(context.Context) error { return nil })
	fmt.Println(errors.Is(err, resilience.ErrCircuitOpen))

	cb.Reset()
	fmt.Println("after reset:", cb.State())
	// Output:
	// initial: closed
	// after failures: open
	// true
	// after reset: closed
}

func ExampleRetry_Execute() {
	r := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		Strategy:     resilience.BackoffConstant,
	})

	attempts := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("write refused")
		}
		return nil
	})
	fmt.Println(attempts, err)
	// Output:
	// 3 <nil>
}

func ExampleNewExecutor() {
	// A write-back path: bounded concurrency, then retries with a per-attempt timeout.
	exec := resilience.NewExecutor(
		resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 4})),
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond})),
		resilience.WithTimeout(time.Second),
	)

	err := exec.Execute(context.Background(), func(context.Context) error {
		return errors.New("store unavailable")
	})
	fmt.Println(errors.Is(err, resilience.ErrMaxRetriesExceeded))
	// Output:
	// true
}

func ExampleRateLimiter_Execute() {
	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 1, Burst: 2})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := rl.Execute(ctx, func(context.Context) error { return nil })
		fmt.Println(err)
	}
	// Output:
	// <nil>
	// <nil>
	// resilience: rate limit exceeded
}
