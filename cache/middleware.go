package cache

import (
	"context"

	"github.com/jonwraymond/flightcache/observe"
)

// LoadFunc loads a value from structured input.
type LoadFunc[In, T any] func(ctx context.Context, in In) (T, error)

// Memoize wraps fn with read-through caching.
//
// Keys are derived from namespace and the input with keyer (DefaultKeyer if
// nil) and entries are stored with policy.EffectiveTTL(0). Concurrent calls
// with equal input share one call of fn. When the policy disables caching or
// a key cannot be derived, fn is called directly. Errors are not cached.
func Memoize[In, T any](c *Cache, namespace string, keyer Keyer, policy Policy, fn LoadFunc[In, T]) LoadFunc[In, T] {
	if keyer == nil {
		keyer = NewDefaultKeyer()
	}

	return func(ctx context.Context, in In) (T, error) {
		if c == nil || !policy.ShouldCache() {
			return fn(ctx, in)
		}

		key, err := keyer.Key(namespace, in)
		if err != nil {
			c.logger.Debug(ctx, "key derivation failed, bypassing cache",
				observe.Field{Key: "cache.namespace", Value: namespace},
				observe.Field{Key: "error", Value: err},
			)
			return fn(ctx, in)
		}

		return GetOrCompute(ctx, c, key, func(ctx context.Context) (T, error) {
			return fn(ctx, in)
		}, policy.EffectiveTTL(0))
	}
}
