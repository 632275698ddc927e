package cache

import (
	"time"

	"github.com/jonwraymond/flightcache/flight"
	"github.com/jonwraymond/flightcache/observe"
	"github.com/jonwraymond/flightcache/resilience"
)

// ReadErrorPolicy decides what a failed storage lookup means. It returns
// true to fail the call with the read error and false to treat it as a miss
// and compute the value.
type ReadErrorPolicy func(err error) bool

// TreatAsMiss computes the value whenever the lookup fails. It is the default.
func TreatAsMiss(error) bool { return false }

// PropagateReadErrors fails the call whenever the lookup fails.
func PropagateReadErrors(error) bool { return true }

type options struct {
	observer observe.Observer
	logger   observe.Logger
	metrics  observe.Metrics
	tracer   observe.Tracer

	registry  *flight.Registry
	backend   string
	namespace string

	readErrorPolicy  ReadErrorPolicy
	writeBackTimeout time.Duration
	writeBackExec    *resilience.Executor
}

// Option configures a Cache.
type Option func(*options)

// WithObserver takes the tracer, meter and logger from obs. Explicit
// WithLogger, WithMetrics and WithTracer options take precedence.
func WithObserver(obs observe.Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithLogger sets the logger. Default: no-op
func WithLogger(l observe.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics sets the metrics recorder. Default: no-op
func WithMetrics(m observe.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTracer sets the tracer. Default: no-op
func WithTracer(t observe.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithRegistry shares reg with other caches, so computations for the same
// key coalesce across them. Default: a registry owned by the cache
func WithRegistry(reg *flight.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithBackendName names the storage backend in telemetry.
func WithBackendName(name string) Option {
	return func(o *options) {
		o.backend = name
	}
}

// WithNamespace names the cache in telemetry.
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = ns
	}
}

// WithReadErrorPolicy sets how failed lookups are handled. Default: TreatAsMiss
func WithReadErrorPolicy(p ReadErrorPolicy) Option {
	return func(o *options) {
		o.readErrorPolicy = p
	}
}

// WithWriteBackTimeout bounds each background write-back.
// Default: 0 (bounded only by the backend)
func WithWriteBackTimeout(d time.Duration) Option {
	return func(o *options) {
		o.writeBackTimeout = d
	}
}

// WithWriteBackExecutor runs write-backs through e, for example to retry
// them or cap their concurrency with a bulkhead.
func WithWriteBackExecutor(e *resilience.Executor) Option {
	return func(o *options) {
		o.writeBackExec = e
	}
}
