package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LookupResult classifies a storage lookup.
type LookupResult string

const (
	LookupHit   LookupResult = "hit"
	LookupMiss  LookupResult = "miss"
	LookupError LookupResult = "error"
)

// Metrics records cache activity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordLookup records the outcome of a storage lookup.
	RecordLookup(ctx context.Context, meta OpMeta, result LookupResult)

	// RecordComputation records one computation started by the cache.
	RecordComputation(ctx context.Context, meta OpMeta, duration time.Duration, err error)

	// RecordJoin records a caller joining a computation already in flight.
	RecordJoin(ctx context.Context, meta OpMeta)

	// RecordWriteBack records the outcome of a background write-back.
	RecordWriteBack(ctx context.Context, meta OpMeta, err error)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	lookups      metric.Int64Counter
	computations metric.Int64Counter
	joins        metric.Int64Counter
	writeBacks   metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates the cache instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	lookups, err := meter.Int64Counter(
		"cache.lookups",
		metric.WithDescription("Storage lookups by result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	computations, err := meter.Int64Counter(
		"cache.computations",
		metric.WithDescription("Computations started on a miss"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	joins, err := meter.Int64Counter(
		"cache.joins",
		metric.WithDescription("Callers that joined an in-flight computation"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	writeBacks, err := meter.Int64Counter(
		"cache.writebacks",
		metric.WithDescription("Background write-backs by result"),
		metric.WithUnit("{write}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"cache.computation.duration_ms",
		metric.WithDescription("Computation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		lookups:      lookups,
		computations: computations,
		joins:        joins,
		writeBacks:   writeBacks,
		durationHist: durationHist,
	}, nil
}

func (m *metricsImpl) RecordLookup(ctx context.Context, meta OpMeta, result LookupResult) {
	attrs := append(meta.attributes(), attribute.String("result", string(result)))
	m.lookups.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metricsImpl) RecordComputation(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
	attrs := append(meta.attributes(), attribute.Bool("error", err != nil))
	opt := metric.WithAttributes(attrs...)

	m.computations.Add(ctx, 1, opt)
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordJoin(ctx context.Context, meta OpMeta) {
	m.joins.Add(ctx, 1, metric.WithAttributes(meta.attributes()...))
}

func (m *metricsImpl) RecordWriteBack(ctx context.Context, meta OpMeta, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	attrs := append(meta.attributes(), attribute.String("result", result))
	m.writeBacks.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics {
	return noopMetrics{}
}

type noopMetrics struct{}

func (noopMetrics) RecordLookup(context.Context, OpMeta, LookupResult)              {}
func (noopMetrics) RecordComputation(context.Context, OpMeta, time.Duration, error) {}
func (noopMetrics) RecordJoin(context.Context, OpMeta)                              {}
func (noopMetrics) RecordWriteBack(context.Context, OpMeta, error)                  {}
