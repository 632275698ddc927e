package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(99), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.status.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResultConstructors(t *testing.T) {
	errDown := errors.New("down")
	tests := []struct {
		name    string
		result  Result
		status  Status
		wantErr error
	}{
		{"healthy", Healthy("ok"), StatusHealthy, nil},
		{"degraded", Degraded("slow"), StatusDegraded, nil},
		{"unhealthy", Unhealthy("down", errDown), StatusUnhealthy, errDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.result.Status != tt.status {
				t.Errorf("Status = %v, want %v", tt.result.Status, tt.status)
			}
			if !errors.Is(tt.result.Error, tt.wantErr) {
				t.Errorf("Error = %v, want %v", tt.result.Error, tt.wantErr)
			}
			if tt.result.Timestamp.IsZero() {
				t.Error("Timestamp should be set")
			}
		})
	}
}

func TestResult_With(t *testing.T) {
	r := Healthy("ok").WithDetails(map[string]any{"entries": 3}).WithDuration(time.Second)
	if r.Details["entries"] != 3 {
		t.Errorf("Details = %v", r.Details)
	}
	if r.Duration != time.Second {
		t.Errorf("Duration = %v, want 1s", r.Duration)
	}
}

func TestCheckerFunc(t *testing.T) {
	c := NewCheckerFunc("probe", func(ctx context.Context) Result {
		if ctx.Err() != nil {
			return Unhealthy("cancelled", ctx.Err())
		}
		return Healthy("ok")
	})
	if c.Name() != "probe" {
		t.Errorf("Name() = %q", c.Name())
	}
	if r := c.Check(context.Background()); r.Status != StatusHealthy {
		t.Errorf("Check() = %v, want healthy", r.Status)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if r := c.Check(ctx); r.Status != StatusUnhealthy {
		t.Errorf("Check(cancelled) = %v, want unhealthy", r.Status)
	}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestPingChecker(t *testing.T) {
	errDown := errors.New("connection refused")

	up := NewPingChecker("redis", fakePinger{})
	if r := up.Check(context.Background()); r.Status != StatusHealthy {
		t.Errorf("reachable = %v, want healthy", r.Status)
	}

	down := NewPingChecker("redis", fakePinger{err: errDown})
	r := down.Check(context.Background())
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, errDown) {
		t.Errorf("unreachable = (%v, %v), want unhealthy wrapping the ping error", r.Status, r.Error)
	}
	if down.Name() != "redis" {
		t.Errorf("Name() = %q", down.Name())
	}
}
