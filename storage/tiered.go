package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Tier is one layer of a Tiered store.
type Tier struct {
	// Name identifies the tier in errors.
	Name string

	// Store is the backing store for this tier.
	Store Storage

	// BackfillTTL caps the TTL used when a hit in a later tier is copied
	// into this one. The copy never outlives the hit's own expiry. Zero
	// disables back-filling into this tier.
	BackfillTTL time.Duration
}

// Tiered layers several stores, fastest first.
//
// Get returns the first hit and back-fills the tiers in front of it with
// min(BackfillTTL, remaining lifetime of the hit). Hits from a tier that does
// not report expiry (see Value.ExpiresAt) are not back-filled. Set and Remove
// fan out to every tier concurrently.
type Tiered struct {
	tiers []Tier
}

// NewTiered creates a tiered store. At least one tier is required.
func NewTiered(tiers ...Tier) (*Tiered, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("%w: tiered store needs at least one tier", ErrInvalidArgument)
	}
	for i, t := range tiers {
		if t.Store == nil {
			return nil, fmt.Errorf("tier %d (%s): %w", i, t.Name, ErrNilStorage)
		}
		if t.Name == "" {
			tiers[i].Name = fmt.Sprintf("tier%d", i)
		}
	}
	return &Tiered{tiers: tiers}, nil
}

// Get returns the value from the first tier that holds it.
// A failing tier is skipped; its error is reported only if no tier hits.
func (t *Tiered) Get(ctx context.Context, key string) (Value, bool, error) {
	if err := ValidateKey(key); err != nil {
		return Value{}, false, err
	}

	var errs []error
	for i, tier := range t.tiers {
		v, ok, err := tier.Store.Get(ctx, key)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", tier.Name, err))
			continue
		}
		if !ok {
			continue
		}
		t.backfill(ctx, key, v, i)
		return v, true, nil
	}

	if len(errs) > 0 {
		return Value{}, false, ReadError("tiered", key, errors.Join(errs...))
	}
	return Value{}, false, nil
}

func (t *Tiered) backfill(ctx context.Context, key string, v Value, hit int) {
	expiresAt, ok := v.ExpiresAt()
	if !ok {
		return
	}
	remaining := time.Until(expiresAt)
	if remaining <= 0 {
		return
	}
	for _, tier := range t.tiers[:hit] {
		if tier.BackfillTTL <= 0 {
			continue
		}
		// Best effort: the value is already in hand.
		_ = tier.Store.Set(ctx, key, v, min(tier.BackfillTTL, remaining))
	}
}

// Set writes to every tier.
func (t *Tiered) Set(ctx context.Context, key string, value Value, ttl time.Duration) error {
	if err := ValidateEntry(key, ttl); err != nil {
		return err
	}
	return t.fanOut(func(tier Tier) error {
		return tier.Store.Set(ctx, key, value, ttl)
	})
}

// Remove deletes key from every tier.
func (t *Tiered) Remove(ctx context.Context, key string) error {
	return t.fanOut(func(tier Tier) error {
		return tier.Store.Remove(ctx, key)
	})
}

func (t *Tiered) fanOut(op func(Tier) error) error {
	errs := make([]error, len(t.tiers))

	var g errgroup.Group
	for i, tier := range t.tiers {
		g.Go(func() error {
			if err := op(tier); err != nil {
				errs[i] = fmt.Errorf("%s: %w", tier.Name, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// Ensure Tiered implements Storage
var _ Storage = (*Tiered)(nil)
