package resilience

import "errors"

// Failures reported by the guards around storage backends and origin calls.
// Callers match them with errors.Is; storage.Guarded wraps them in its own
// read and write failures.
var (
	// ErrCircuitOpen rejects a call without reaching the backend while the
	// breaker is open.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrMaxRetriesExceeded wraps the last attempt's error once Retry gives up.
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")

	// ErrRateLimitExceeded rejects a call that got no token in time.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrBulkheadFull rejects a call that could not get a concurrency slot
	// within MaxWait.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrTimeout is returned when a guarded call outlives its deadline.
	ErrTimeout = errors.New("resilience: operation timed out")
)
