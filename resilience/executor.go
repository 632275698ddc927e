package resilience

import (
	"context"
	"time"
)

// stage is one pattern an Executor applies.
type stage interface {
	Execute(ctx context.Context, op func(context.Context) error) error
}

// Executor composes resilience patterns around an operation.
type Executor struct {
	rateLimiter    *RateLimiter
	bulkhead       *Bulkhead
	circuitBreaker *CircuitBreaker
	retry          *Retry
	timeout        *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an executor. With no options it just calls op.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithCircuitBreaker adds a circuit breaker.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.circuitBreaker = cb }
}

// WithRetry adds retries.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) { e.retry = r }
}

// WithRateLimiter adds rate limiting.
func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) { e.rateLimiter = rl }
}

// WithBulkhead adds a concurrency limit.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) { e.bulkhead = b }
}

// WithTimeout bounds each attempt to timeout.
func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = NewTimeout(TimeoutConfig{Timeout: timeout}) }
}

// WithTimeoutConfig bounds each attempt with t.
func WithTimeoutConfig(t *Timeout) ExecutorOption {
	return func(e *Executor) { e.timeout = t }
}

// stages returns the configured patterns, outermost first.
func (e *Executor) stages() []stage {
	var out []stage
	if e.rateLimiter != nil {
		out = append(out, e.rateLimiter)
	}
	if e.bulkhead != nil {
		out = append(out, e.bulkhead)
	}
	if e.circuitBreaker != nil {
		out = append(out, e.circuitBreaker)
	}
	if e.retry != nil {
		out = append(out, e.retry)
	}
	if e.timeout != nil {
		out = append(out, e.timeout)
	}
	return out
}

// Execute runs op through the configured patterns in the order rate
// limiter, bulkhead, circuit breaker, retry, timeout. The breaker sees one
// outcome per Execute; the timeout applies to each retry attempt.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	run := op
	stages := e.stages()
	for i := len(stages) - 1; i >= 0; i-- {
		s, inner := stages[i], run
		run = func(ctx context.Context) error {
			return s.Execute(ctx, inner)
		}
	}
	return run(ctx)
}
