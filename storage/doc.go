// Package storage defines the contract between the cache orchestrator and
// its backing stores.
//
// A Storage holds type-tagged values under string keys with an absolute
// expiry. A miss is never an error: Get reports it with ok=false. Errors are
// reserved for invalid arguments (ErrInvalidArgument) and backend failures,
// which are reported as *OpError matching ErrReadFailure or ErrWriteFailure.
//
// # Values
//
// Value carries a payload together with its declared Go type name, so a
// value stored as one type is never silently returned as another:
//
//	_ = storage.Store(ctx, s, "user:42", user, time.Minute)
//	u, ok, err := storage.Load[User](ctx, s, "user:42")
//
// In-process stores keep the Go value itself. Byte-oriented backends encode
// a Value into an envelope with EncodeValue and decode it with DecodeValue
// using a Codec (MsgpackCodec by default).
//
// # Composition
//
// Memory is the reference in-process store. Tiered layers several stores,
// fastest first, and back-fills the front tiers on a hit further back.
// Guarded wraps a remote store with a circuit breaker and a per-call
// timeout.
//
// Backends for Redis, bbolt, memcached, an LRU and sturdyc live in the
// sub-packages, and storagetest holds the contract suite they all pass.
package storage
