package health

import (
	"context"
	"testing"
)

func TestNewMemoryChecker_Thresholds(t *testing.T) {
	tests := []struct {
		name         string
		config       MemoryCheckerConfig
		wantWarn     float64
		wantCritical float64
	}{
		{"defaults", MemoryCheckerConfig{}, 0.8, 0.95},
		{"custom", MemoryCheckerConfig{WarningThreshold: 0.5, CriticalThreshold: 0.7}, 0.5, 0.7},
		{"out of range", MemoryCheckerConfig{WarningThreshold: 2, CriticalThreshold: -1}, 0.8, 0.95},
		{"critical below warning", MemoryCheckerConfig{WarningThreshold: 0.9, CriticalThreshold: 0.5}, 0.9, 0.99},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMemoryChecker(tt.config)
			if m.config.WarningThreshold != tt.wantWarn || m.config.CriticalThreshold != tt.wantCritical {
				t.Errorf("thresholds = %v/%v, want %v/%v",
					m.config.WarningThreshold, m.config.CriticalThreshold, tt.wantWarn, tt.wantCritical)
			}
		})
	}
}

func TestMemoryChecker_Check(t *testing.T) {
	m := NewMemoryChecker(MemoryCheckerConfig{Entries: func() int { return 12 }})
	if m.Name() != "memory" {
		t.Errorf("Name() = %q", m.Name())
	}

	r := m.Check(context.Background())
	if r.Details["entries"] != 12 {
		t.Errorf("entries detail = %v, want 12", r.Details["entries"])
	}
	if _, ok := r.Details["alloc_bytes"]; !ok {
		t.Error("alloc_bytes detail missing")
	}
}

func TestMemoryChecker_OverBudget(t *testing.T) {
	m := NewMemoryChecker(MemoryCheckerConfig{MaxAlloc: 1})
	if r := m.Check(context.Background()); r.Status != StatusUnhealthy {
		t.Errorf("Check() over a 1-byte budget = %v, want unhealthy", r.Status)
	}
}

func TestMemoryChecker_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if r := NewMemoryChecker(MemoryCheckerConfig{}).Check(ctx); r.Status != StatusUnhealthy {
		t.Errorf("Check(cancelled) = %v, want unhealthy", r.Status)
	}
}
