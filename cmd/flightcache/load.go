package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/flightcache/cache"
)

type loadConfig struct {
	Callers int
	Keys    int
	Latency time.Duration
	TTL     time.Duration
}

// loadReport summarizes a load run.
type loadReport struct {
	Calls        int64
	Computations int64
	Failures     int64
	Elapsed      time.Duration
}

func (r loadReport) write(w io.Writer) {
	fmt.Fprintf(w, "calls:        %d\n", r.Calls)
	fmt.Fprintf(w, "computations: %d\n", r.Computations)
	fmt.Fprintf(w, "failures:     %d\n", r.Failures)
	fmt.Fprintf(w, "elapsed:      %s\n", r.Elapsed.Round(time.Millisecond))
	if r.Computations > 0 {
		fmt.Fprintf(w, "calls/computation: %.1f\n", float64(r.Calls)/float64(r.Computations))
	}
}

// runLoad fires cfg.Callers concurrent GetOrCompute calls spread over
// cfg.Keys keys, each computation taking cfg.Latency.
func runLoad(ctx context.Context, c *cache.Cache, cfg loadConfig) (loadReport, error) {
	if cfg.Callers <= 0 || cfg.Keys <= 0 {
		return loadReport{}, errors.New("flightcache: --callers and --keys must be positive")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Minute
	}

	var computations, failures atomic.Int64
	compute := func(key string) func(context.Context) (string, error) {
		return func(ctx context.Context) (string, error) {
			computations.Add(1)
			select {
			case <-time.After(cfg.Latency):
				return "value:" + key, nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	start := time.Now()
	var g errgroup.Group
	for i := 0; i < cfg.Callers; i++ {
		key := fmt.Sprintf("load:%d", i%cfg.Keys)
		g.Go(func() error {
			if _, err := cache.GetOrCompute(ctx, c, key, compute(key), cfg.TTL); err != nil {
				failures.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := c.Flush(ctx); err != nil {
		return loadReport{}, err
	}
	return loadReport{
		Calls:        int64(cfg.Callers),
		Computations: computations.Load(),
		Failures:     failures.Load(),
		Elapsed:      time.Since(start),
	}, nil
}
