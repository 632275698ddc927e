package cache

import (
	"context"
	"errors"
	"time"

	"github.com/jonwraymond/flightcache/flight"
	"github.com/jonwraymond/flightcache/observe"
	"github.com/jonwraymond/flightcache/resilience"
	"github.com/jonwraymond/flightcache/storage"
)

// Cache is a read-through cache over a Storage that runs at most one
// computation per key at a time.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Hits: a fresh entry is returned without touching the registry.
//   - Misses: concurrent callers for a key share one computation and its
//     outcome; the value is written back in the background.
//   - Errors: write-back failures are logged and counted, never returned.
//     Computation failures are not cached.
type Cache struct {
	store    storage.Storage
	registry *flight.Registry

	tracer  observe.Tracer
	metrics observe.Metrics
	logger  observe.Logger
	mw      *observe.Middleware

	backend   string
	namespace string

	readErrorPolicy  ReadErrorPolicy
	writeBackTimeout time.Duration
	writeBackExec    *resilience.Executor

	writes pending
}

// New creates a cache over store.
func New(store storage.Storage, opts ...Option) (*Cache, error) {
	if store == nil {
		return nil, storage.ErrNilStorage
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	tracer, metrics, logger := observe.NopTracer(), observe.NopMetrics(), observe.NopLogger()
	if o.observer != nil {
		mw, err := observe.MiddlewareFromObserver(o.observer)
		if err != nil {
			return nil, err
		}
		tracer, metrics, logger = mw.Tracer(), mw.Metrics(), mw.Logger()
	}
	if o.tracer != nil {
		tracer = o.tracer
	}
	if o.metrics != nil {
		metrics = o.metrics
	}
	if o.logger != nil {
		logger = o.logger
	}

	if o.registry == nil {
		o.registry = flight.NewRegistry()
	}
	if o.readErrorPolicy == nil {
		o.readErrorPolicy = TreatAsMiss
	}

	return &Cache{
		store:            store,
		registry:         o.registry,
		tracer:           tracer,
		metrics:          metrics,
		logger:           logger,
		mw:               observe.NewMiddleware(tracer, metrics, logger),
		backend:          o.backend,
		namespace:        o.namespace,
		readErrorPolicy:  o.readErrorPolicy,
		writeBackTimeout: o.writeBackTimeout,
		writeBackExec:    o.writeBackExec,
	}, nil
}

// Store returns the backing store.
func (c *Cache) Store() storage.Storage {
	return c.store
}

// Registry returns the in-flight registry.
func (c *Cache) Registry() *flight.Registry {
	return c.registry
}

// InFlight returns the number of computations currently running.
func (c *Cache) InFlight() int {
	return c.registry.InFlight()
}

// PendingWrites returns the number of write-backs not yet finished,
// including those waiting for their computation.
func (c *Cache) PendingWrites() int {
	return c.writes.count()
}

// Flush waits until every write-back dispatched so far has finished or ctx
// is done.
func (c *Cache) Flush(ctx context.Context) error {
	if c == nil {
		return ErrNilCache
	}
	return c.writes.wait(ctx)
}

// Remove deletes key from storage.
//
// A computation already running for key is not cancelled; its write-back
// may store the value again after Remove returns.
func (c *Cache) Remove(ctx context.Context, key string) error {
	if c == nil {
		return ErrNilCache
	}
	if err := storage.ValidateKey(key); err != nil {
		return err
	}

	ctx, span := c.tracer.StartSpan(ctx, c.meta(observe.OpRemove, key))
	err := c.store.Remove(ctx, key)
	c.tracer.EndSpan(span, err)
	return err
}

func (c *Cache) meta(op, key string) observe.OpMeta {
	return observe.OpMeta{Op: op, Key: key, Namespace: c.namespace, Backend: c.backend}
}

// GetOrCompute returns the value stored under key, or runs fn to produce it.
//
// Key and ttl are validated before anything else, so an invalid ttl never
// starts a computation. On a miss, concurrent callers for key share one run
// of fn; the result is returned as soon as it is known and written back with
// ttl in the background. A value stored as another type fails with an error
// matching storage.ErrTypeMismatch.
func GetOrCompute[T any](ctx context.Context, c *Cache, key string, fn flight.Func[T], ttl time.Duration) (T, error) {
	var zero T
	if c == nil {
		return zero, ErrNilCache
	}
	if err := storage.ValidateEntry(key, ttl); err != nil {
		return zero, err
	}
	if fn == nil {
		return zero, flight.ErrNilFunc
	}

	meta := c.meta(observe.OpGetOrCompute, key)
	ctx, span := c.tracer.StartSpan(ctx, meta)
	v, err := getOrCompute(ctx, c, key, fn, ttl, meta)
	c.tracer.EndSpan(span, err)
	return v, err
}

func getOrCompute[T any](ctx context.Context, c *Cache, key string, fn flight.Func[T], ttl time.Duration, meta observe.OpMeta) (T, error) {
	var zero T

	v, ok, err := storage.Load[T](ctx, c.store, key)
	switch {
	case err == nil && ok:
		c.metrics.RecordLookup(ctx, meta, observe.LookupHit)
		return v, nil
	case err == nil:
		c.metrics.RecordLookup(ctx, meta, observe.LookupMiss)
	case errors.Is(err, storage.ErrTypeMismatch):
		c.metrics.RecordLookup(ctx, meta, observe.LookupError)
		return zero, err
	default:
		c.metrics.RecordLookup(ctx, meta, observe.LookupError)
		if c.readErrorPolicy(err) {
			return zero, err
		}
		observe.WithOp(c.logger, meta).Warn(ctx, "storage lookup failed, computing",
			observe.Field{Key: "error", Value: err})
	}

	return coalesce(ctx, c, key, fn, ttl, meta)
}

// WarmUp stores value under key directly, without a computation.
// Registry state for key is left untouched.
func WarmUp[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	if c == nil {
		return ErrNilCache
	}
	if err := storage.ValidateEntry(key, ttl); err != nil {
		return err
	}

	ctx, span := c.tracer.StartSpan(ctx, c.meta(observe.OpWarmUp, key))
	err := c.store.Set(ctx, key, storage.ValueOf(value), ttl)
	c.tracer.EndSpan(span, err)
	return err
}

// WarmUpWith runs fn for key without consulting storage, coalescing with any
// computation already running for key, and writes the result back with ttl.
// The computed value is returned.
func WarmUpWith[T any](ctx context.Context, c *Cache, key string, fn flight.Func[T], ttl time.Duration) (T, error) {
	var zero T
	if c == nil {
		return zero, ErrNilCache
	}
	if err := storage.ValidateEntry(key, ttl); err != nil {
		return zero, err
	}
	if fn == nil {
		return zero, flight.ErrNilFunc
	}

	meta := c.meta(observe.OpWarmUp, key)
	ctx, span := c.tracer.StartSpan(ctx, meta)
	v, err := coalesce(ctx, c, key, fn, ttl, meta)
	c.tracer.EndSpan(span, err)
	return v, err
}

// coalesce starts or joins the computation for key and waits for it.
// Only the caller that starts the computation attaches the write-back.
func coalesce[T any](ctx context.Context, c *Cache, key string, fn flight.Func[T], ttl time.Duration, meta observe.OpMeta) (T, error) {
	var zero T

	c.writes.add()
	h, joined, err := flight.RunOnce(ctx, c.registry, key, instrument(c, key, fn), writeBack[T](c, ttl))
	if err != nil {
		c.writes.done()
		return zero, err
	}
	if joined {
		c.writes.done()
		c.metrics.RecordJoin(ctx, meta)
	}

	return h.Wait(ctx)
}

func instrument[T any](c *Cache, key string, fn flight.Func[T]) flight.Func[T] {
	meta := c.meta(observe.OpCompute, key)
	return func(ctx context.Context) (T, error) {
		var v T
		err := c.mw.Run(ctx, meta, func(ctx context.Context) error {
			var err error
			v, err = fn(ctx)
			return err
		})
		return v, err
	}
}

// writeBack returns the hook that persists a successful computation.
func writeBack[T any](c *Cache, ttl time.Duration) flight.Hook[T] {
	return func(ctx context.Context, key string, value T, err error) {
		defer c.writes.done()
		if err != nil {
			return
		}

		meta := c.meta(observe.OpWriteBack, key)
		if c.writeBackTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.writeBackTimeout)
			defer cancel()
		}

		v := storage.ValueOf(value)
		set := func(ctx context.Context) error {
			return c.store.Set(ctx, key, v, ttl)
		}

		var werr error
		if c.writeBackExec != nil {
			werr = c.writeBackExec.Execute(ctx, set)
		} else {
			werr = set(ctx)
		}

		c.metrics.RecordWriteBack(ctx, meta, werr)
		if werr != nil {
			observe.WithOp(c.logger, meta).Warn(ctx, "write-back failed",
				observe.Field{Key: "error", Value: werr},
				observe.Field{Key: "ttl_ms", Value: ttl.Milliseconds()},
			)
		}
	}
}
