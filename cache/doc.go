// Package cache is a read-through cache that coalesces concurrent
// computations for the same key.
//
// GetOrCompute looks the key up in a storage.Storage. A hit is returned
// directly. On a miss the computation runs through a flight.Registry, so
// concurrent callers for the key share a single run and its outcome, and the
// value is written back to storage in the background without delaying any
// caller:
//
//	c, _ := cache.New(storage.NewMemory(storage.MemoryConfig{}))
//
//	user, err := cache.GetOrCompute(ctx, c, "user:42", func(ctx context.Context) (User, error) {
//	    return db.LoadUser(ctx, 42)
//	}, time.Minute)
//
// A failed write-back is logged and counted but never reported to callers,
// and a failed lookup is treated as a miss unless a ReadErrorPolicy says
// otherwise. Computation failures are shared by every joined caller and are
// not cached; the next call starts a fresh computation.
//
// WarmUp seeds storage with a known value and WarmUpWith runs a computation
// without consulting storage first. Memoize wraps a loader taking structured
// input, deriving keys with a Keyer.
//
// Deduplication is process-local. A shared backend such as Redis shares
// values between processes, never computations.
package cache
