package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	var retries []int
	r := NewRetry(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		OnRetry:      func(attempt int, _ error, _ time.Duration) { retries = append(retries, attempt) },
	})

	calls := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errBackend
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Errorf("err=%v calls=%d, want nil and 3", err, calls)
	}
	if len(retries) != 2 || retries[0] != 1 || retries[1] != 2 {
		t.Errorf("OnRetry attempts = %v, want [1 2]", retries)
	}
}

func TestRetry_Exhausted(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond})

	calls := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		calls++
		return errBackend
	})
	if !errors.Is(err, ErrMaxRetriesExceeded) || !errors.Is(err, errBackend) {
		t.Errorf("error = %v, want ErrMaxRetriesExceeded wrapping the last error", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetry_RetryIfStopsEarly(t *testing.T) {
	errPermanent := errors.New("permanent")
	r := NewRetry(RetryConfig{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		RetryIf:      func(err error) bool { return !errors.Is(err, errPermanent) },
	})

	calls := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		calls++
		return errPermanent
	})
	if !errors.Is(err, errPermanent) || errors.Is(err, ErrMaxRetriesExceeded) || calls != 1 {
		t.Errorf("err=%v calls=%d, want the permanent error after 1 call", err, calls)
	}
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	err := r.Execute(ctx, func(context.Context) error {
		cancel()
		return errBackend
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestRetry_Delay(t *testing.T) {
	tests := []struct {
		name    string
		config  RetryConfig
		attempt int
		want    time.Duration
	}{
		{"constant", RetryConfig{Strategy: BackoffConstant, InitialDelay: 10 * time.Millisecond}, 3, 10 * time.Millisecond},
		{"linear", RetryConfig{Strategy: BackoffLinear, InitialDelay: 10 * time.Millisecond}, 3, 30 * time.Millisecond},
		{"exponential", RetryConfig{InitialDelay: 10 * time.Millisecond, Multiplier: 2}, 3, 40 * time.Millisecond},
		{"capped", RetryConfig{InitialDelay: time.Second, MaxDelay: 2 * time.Second}, 5, 2 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewRetry(tt.config).delay(tt.attempt); got != tt.want {
				t.Errorf("delay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestRetry_Jitter(t *testing.T) {
	r := NewRetry(RetryConfig{Strategy: BackoffConstant, InitialDelay: 100 * time.Millisecond, Jitter: true})
	for i := 0; i < 50; i++ {
		d := r.delay(1)
		if d < 100*time.Millisecond || d >= 125*time.Millisecond {
			t.Fatalf("jittered delay %v outside [100ms, 125ms)", d)
		}
	}
}

func TestRetry_Defaults(t *testing.T) {
	c := NewRetry(RetryConfig{}).Config()
	if c.MaxAttempts != 3 || c.InitialDelay != 100*time.Millisecond || c.MaxDelay != 30*time.Second || c.Multiplier != 2 {
		t.Errorf("defaults = %+v", c)
	}
}
