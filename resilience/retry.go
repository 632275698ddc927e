package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy defines how delays increase between retries.
type BackoffStrategy int

const (
	// BackoffExponential multiplies the delay by Multiplier each attempt.
	BackoffExponential BackoffStrategy = iota
	// BackoffLinear grows the delay by InitialDelay each attempt.
	BackoffLinear
	// BackoffConstant waits InitialDelay between every attempt.
	BackoffConstant
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, the first included.
	// Default: 3
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	// Default: 100ms
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	// Default: 30s
	MaxDelay time.Duration

	// Multiplier is the growth factor for BackoffExponential.
	// Default: 2.0
	Multiplier float64

	// Strategy is the backoff strategy.
	// Default: BackoffExponential
	Strategy BackoffStrategy

	// Jitter adds up to 25% random delay to each wait.
	Jitter bool

	// RetryIf decides whether err is worth another attempt.
	// Default: every non-nil error.
	RetryIf func(err error) bool

	// OnRetry is called before each retry with the failed attempt number.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry re-runs failed operations with backoff.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}
	return &Retry{config: config}
}

// Execute runs op until it succeeds, fails with an error RetryIf rejects, or
// MaxAttempts is used up. In the last case the error matches both
// ErrMaxRetriesExceeded and the final attempt's error.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil || !r.config.RetryIf(err) {
			return err
		}
		if attempt >= r.config.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetriesExceeded, attempt, err)
		}

		delay := r.delay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// delay returns the wait after the given failed attempt.
func (r *Retry) delay(attempt int) time.Duration {
	var d time.Duration
	switch r.config.Strategy {
	case BackoffConstant:
		d = r.config.InitialDelay
	case BackoffLinear:
		d = r.config.InitialDelay * time.Duration(attempt)
	default:
		d = time.Duration(float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt-1)))
	}
	d = min(d, r.config.MaxDelay)

	if r.config.Jitter && d >= 4 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		d += time.Duration(rand.Int64N(int64(d / 4)))
	}
	return d
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
