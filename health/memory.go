package health

import (
	"context"
	"fmt"
	"runtime"
)

// MemoryCheckerConfig configures the memory health checker.
type MemoryCheckerConfig struct {
	// WarningThreshold is the heap usage ratio that reports degraded.
	// Value should be between 0 and 1. Default: 0.8
	WarningThreshold float64

	// CriticalThreshold is the heap usage ratio that reports unhealthy.
	// Value should be between 0 and 1. Default: 0.95
	CriticalThreshold float64

	// MaxAlloc is the heap budget in bytes. Default: 0 (runtime Sys)
	MaxAlloc uint64

	// Entries, if set, reports how many entries an in-process store holds,
	// e.g. (*storage.Memory).Len. It is included in the details.
	Entries func() int
}

// MemoryChecker checks heap usage of a process holding in-process stores.
type MemoryChecker struct {
	config MemoryCheckerConfig
}

// NewMemoryChecker creates a new memory health checker.
func NewMemoryChecker(config MemoryCheckerConfig) *MemoryChecker {
	if config.WarningThreshold <= 0 || config.WarningThreshold >= 1 {
		config.WarningThreshold = 0.8
	}
	if config.CriticalThreshold <= 0 || config.CriticalThreshold >= 1 {
		config.CriticalThreshold = 0.95
	}
	if config.CriticalThreshold < config.WarningThreshold {
		config.CriticalThreshold = min(config.WarningThreshold+0.1, 0.99)
	}
	return &MemoryChecker{config: config}
}

// Name returns "memory".
func (m *MemoryChecker) Name() string {
	return "memory"
}

// Check compares the live heap against the configured budget.
func (m *MemoryChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	maxAlloc := m.config.MaxAlloc
	if maxAlloc == 0 {
		maxAlloc = stats.Sys
	}

	details := map[string]any{
		"alloc_bytes":  stats.Alloc,
		"heap_objects": stats.HeapObjects,
		"num_gc":       stats.NumGC,
		"goroutines":   runtime.NumGoroutine(),
	}
	if m.config.Entries != nil {
		details["entries"] = m.config.Entries()
	}
	if maxAlloc == 0 {
		return Healthy("memory stats unavailable").WithDetails(details)
	}

	ratio := float64(stats.Alloc) / float64(maxAlloc)
	details["max_alloc"] = maxAlloc
	details["usage_percent"] = ratio * 100

	switch {
	case ratio >= m.config.CriticalThreshold:
		return Unhealthy(fmt.Sprintf("memory usage critical: %.1f%%", ratio*100), ErrCheckFailed).WithDetails(details)
	case ratio >= m.config.WarningThreshold:
		return Degraded(fmt.Sprintf("memory usage high: %.1f%%", ratio*100)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("memory usage normal: %.1f%%", ratio*100)).WithDetails(details)
	}
}
