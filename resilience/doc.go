// Package resilience guards calls to remote cache backends.
//
// The patterns compose through an Executor:
//
//   - CircuitBreaker stops calling a backend after repeated failures and
//     probes it again after ResetTimeout. storage.Guarded puts one in front
//     of every remote store, so an outage turns into fast misses.
//   - Retry re-runs a failed call with constant, linear or exponential
//     backoff. Background write-backs use it to ride out blips.
//   - RateLimiter (golang.org/x/time/rate) and Bulkhead
//     (golang.org/x/sync/semaphore) cap the rate and concurrency of
//     write-backs so a burst of misses cannot flood the backend.
//   - Timeout bounds a single call.
//
// Usage:
//
//	exec := resilience.NewExecutor(
//	    resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 32})),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 3})),
//	    resilience.WithTimeout(time.Second),
//	)
//	c, _ := cache.New(store, cache.WithWriteBackExecutor(exec))
//
// Execute applies the stages outermost first: rate limiter, bulkhead,
// circuit breaker, retry, timeout.
package resilience
