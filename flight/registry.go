package flight

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Func is a value-producing computation.
type Func[T any] func(ctx context.Context) (T, error)

// Hook observes the outcome of a computation. Hooks are attached by the
// caller that starts a computation and run in their own goroutine once it
// settles; value is the zero value when err is non-nil.
//
// ctx carries the values of the creator's context but is never cancelled.
type Hook[T any] func(ctx context.Context, key string, value T, err error)

// Registry tracks the computations currently in flight, one per key.
//
// Contract:
//   - Concurrency: safe for concurrent use; register-or-join is a single
//     atomic compare-and-insert, and unrelated keys do not contend.
//   - Lifetime: a registration exists only while its computation runs and is
//     removed exactly once after it settles.
//   - Ownership: computations run on the registry's goroutines, never on the
//     caller's; the registry holds no lock while they run.
type Registry struct {
	calls *xsync.MapOf[string, *call]

	started atomic.Uint64
	joined  atomic.Uint64
}

// Stats is a snapshot of registry activity.
type Stats struct {
	// InFlight is the number of computations currently running.
	InFlight int

	// Started counts computations started since the registry was created.
	Started uint64

	// Joined counts RunOnce calls that joined a running computation.
	Joined uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{calls: xsync.NewMapOf[string, *call]()}
}

// InFlight returns the number of registered computations.
func (r *Registry) InFlight() int {
	return r.calls.Size()
}

// Has reports whether a computation for key is registered.
func (r *Registry) Has(key string) bool {
	_, ok := r.calls.Load(key)
	return ok
}

// Stats returns a snapshot of registry activity.
func (r *Registry) Stats() Stats {
	return Stats{
		InFlight: r.calls.Size(),
		Started:  r.started.Load(),
		Joined:   r.joined.Load(),
	}
}

// release removes c if it is still the registration for its key.
func (r *Registry) release(c *call) {
	r.calls.Compute(c.key, func(current *call, loaded bool) (*call, bool) {
		if !loaded {
			return nil, true
		}
		return current, current == c
	})
}

// call is the shared, type-erased state of one computation.
type call struct {
	key     string
	typ     reflect.Type
	started time.Time
	done    chan struct{}
	joins   atomic.Int64

	// written once before done is closed
	val any
	err error
}

// RunOnce starts fn for key, or joins the computation already running for it.
//
// joined reports whether the returned handle belongs to a computation some
// other caller started. Hooks are attached only when this call starts the
// computation; a joining caller's hooks are ignored.
func RunOnce[T any](ctx context.Context, r *Registry, key string, fn Func[T], hooks ...Hook[T]) (*Handle[T], bool, error) {
	if r == nil {
		return nil, false, ErrNilRegistry
	}
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	if fn == nil {
		return nil, false, ErrNilFunc
	}

	c, loaded := r.calls.LoadOrCompute(key, func() *call {
		return &call{
			key:     key,
			typ:     reflect.TypeFor[T](),
			started: time.Now(),
			done:    make(chan struct{}),
		}
	})
	if loaded {
		c.joins.Add(1)
		r.joined.Add(1)
		return &Handle[T]{c: c, shared: true}, true, nil
	}

	r.started.Add(1)
	go execute(ctx, r, c, fn, hooks)
	return &Handle[T]{c: c}, false, nil
}

func execute[T any](ctx context.Context, r *Registry, c *call, fn Func[T], hooks []Hook[T]) {
	defer r.release(c)

	ctx = context.WithoutCancel(ctx)
	v, err := invoke(ctx, fn)
	if err != nil {
		var zero T
		v, err = zero, &ComputationError{Key: c.key, Err: err}
	}

	c.val, c.err = v, err
	close(c.done)

	for _, h := range hooks {
		if h != nil {
			go h(ctx, c.key, v, err)
		}
	}
}

func invoke[T any](ctx context.Context, fn Func[T]) (v T, err error) {
	defer func() {
		if p := recover(); p != nil {
			var zero T
			v, err = zero, &PanicError{Value: p, Stack: debug.Stack()}
		}
	}()
	return fn(ctx)
}

// Handle is a caller's view of a computation.
type Handle[T any] struct {
	c      *call
	shared bool
}

// Key returns the key the computation runs for.
func (h *Handle[T]) Key() string {
	return h.c.key
}

// Done is closed once the computation has settled.
func (h *Handle[T]) Done() <-chan struct{} {
	return h.c.done
}

// Shared reports whether the handle joined a computation started by another
// caller.
func (h *Handle[T]) Shared() bool {
	return h.shared
}

// Joins returns how many callers joined the computation so far.
func (h *Handle[T]) Joins() int {
	return int(h.c.joins.Load())
}

// Elapsed returns how long the computation has been running.
func (h *Handle[T]) Elapsed() time.Duration {
	return time.Since(h.c.started)
}

// Wait blocks until the computation settles or ctx is done.
//
// Abandoning the wait does not cancel the computation. If the running
// computation produces a type other than T, Wait returns ErrTypeMismatch
// without blocking.
func (h *Handle[T]) Wait(ctx context.Context) (T, error) {
	var zero T
	if want := reflect.TypeFor[T](); h.c.typ != want {
		return zero, fmt.Errorf("%w: %q produces %v, want %v", ErrTypeMismatch, h.c.key, h.c.typ, want)
	}

	select {
	case <-h.c.done:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	if h.c.err != nil {
		return zero, h.c.err
	}
	v, _ := h.c.val.(T)
	return v, nil
}
