package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Operation names used by the cache.
const (
	OpGetOrCompute = "get_or_compute"
	OpCompute      = "compute"
	OpWarmUp       = "warm_up"
	OpWriteBack    = "write_back"
	OpRemove       = "remove"
)

// OpMeta describes a cache operation for telemetry purposes.
type OpMeta struct {
	Op        string // Operation name (required)
	Key       string // Cache key (optional, spans and logs only)
	Namespace string // Logical cache namespace (optional)
	Backend   string // Storage backend name (optional)
}

// SpanName returns the deterministic span name for this operation.
// Format: cache.<op>
func (m OpMeta) SpanName() string {
	return "cache." + m.Op
}

// Validate checks the metadata carries an operation name.
func (m OpMeta) Validate() error {
	if m.Op == "" {
		return ErrMissingOp
	}
	return nil
}

// attributes returns the bounded-cardinality attributes shared by spans and
// metrics.
func (m OpMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("cache.op", m.Op)}
	if m.Namespace != "" {
		attrs = append(attrs, attribute.String("cache.namespace", m.Namespace))
	}
	if m.Backend != "" {
		attrs = append(attrs, attribute.String("cache.backend", m.Backend))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with cache-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: StartSpan returns a context carrying the new span.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a cache operation.
	StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		return NopTracer()
	}
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with operation metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span) {
	attrs := append(meta.attributes(), attribute.Bool("cache.error", false))
	if meta.Key != "" {
		attrs = append(attrs, attribute.String("cache.key", meta.Key))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("cache.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// NopTracer returns a tracer that records nothing.
func NopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
