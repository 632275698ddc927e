package observe

import (
	"context"
	"time"
)

// OperationFunc is the signature of an observed operation.
type OperationFunc func(ctx context.Context) error

// Middleware wraps cache computations with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: the wrapped function receives a context carrying the span.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware. Nil components are replaced by
// no-op implementations.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Tracer returns the middleware's tracer.
func (m *Middleware) Tracer() Tracer { return m.tracer }

// Metrics returns the middleware's metrics.
func (m *Middleware) Metrics() Metrics { return m.metrics }

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger { return m.logger }

// Run executes fn inside a span, records its duration as a computation and
// logs the outcome.
func (m *Middleware) Run(ctx context.Context, meta OpMeta, fn OperationFunc) error {
	ctx, span := m.tracer.StartSpan(ctx, meta)

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	m.tracer.EndSpan(span, err)
	m.metrics.RecordComputation(ctx, meta, duration, err)

	logger := WithOp(m.logger, meta)
	fields := []Field{
		{Key: "duration_ms", Value: float64(duration.Microseconds()) / 1000},
	}
	if err != nil {
		fields = append(fields, Field{Key: "error", Value: err.Error()})
		logger.Warn(ctx, "computation failed", fields...)
	} else {
		logger.Debug(ctx, "computation completed", fields...)
	}

	return err
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
