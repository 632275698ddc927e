// Command flightcache runs a read-through, single-flight cache in front of
// an HTTP origin, or a load generator that shows request coalescing.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/jonwraymond/flightcache/cache"
	"github.com/jonwraymond/flightcache/health"
	"github.com/jonwraymond/flightcache/observe"
	"github.com/jonwraymond/flightcache/resilience"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "flightcache:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := &cli.App{
		Name:    "flightcache",
		Usage:   "read-through cache that runs one computation per key at a time",
		Version: version,
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "storage",
			Usage:   "storage backend: memory, lru, sturdyc, bolt, redis, memcache or tiered",
			Value:   "memory",
			EnvVars: []string{"FLIGHTCACHE_STORAGE"},
		},
		&cli.StringFlag{
			Name:    "prefix",
			Usage:   "key prefix for shared backends",
			Value:   "flightcache:",
			EnvVars: []string{"FLIGHTCACHE_PREFIX"},
		},
		&cli.StringFlag{
			Name:    "codec",
			Usage:   "value encoding for byte-oriented backends: msgpack or json",
			Value:   "msgpack",
			EnvVars: []string{"FLIGHTCACHE_CODEC"},
		},
		&cli.IntFlag{
			Name:    "capacity",
			Usage:   "entry limit for lru and sturdyc",
			Value:   10000,
			EnvVars: []string{"FLIGHTCACHE_CAPACITY"},
		},
		&cli.StringFlag{
			Name:    "bolt-path",
			Usage:   "database file for the bolt backend",
			Value:   "flightcache.db",
			EnvVars: []string{"FLIGHTCACHE_BOLT_PATH"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis://host:port/db for the redis and tiered backends",
			EnvVars: []string{"FLIGHTCACHE_REDIS_URL", "REDIS_URL"},
		},
		&cli.StringSliceFlag{
			Name:    "memcache-servers",
			Usage:   "host:port of each memcached server",
			EnvVars: []string{"FLIGHTCACHE_MEMCACHE_SERVERS"},
		},
		&cli.DurationFlag{
			Name:    "backend-timeout",
			Usage:   "per-call timeout for remote backends",
			Value:   500 * time.Millisecond,
			EnvVars: []string{"FLIGHTCACHE_BACKEND_TIMEOUT"},
		},
		&cli.IntFlag{
			Name:    "breaker-failures",
			Usage:   "consecutive remote backend failures that open the circuit",
			Value:   5,
			EnvVars: []string{"FLIGHTCACHE_BREAKER_FAILURES"},
		},
		&cli.DurationFlag{
			Name:    "backfill-ttl",
			Usage:   "longest a redis hit is kept in the tiered lru front; 0 disables back-fill",
			Value:   time.Minute,
			EnvVars: []string{"FLIGHTCACHE_BACKFILL_TTL"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			EnvVars: []string{"FLIGHTCACHE_LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "tracing-exporter",
			Usage:   "otlp, stdout or none",
			Value:   "none",
			EnvVars: []string{"FLIGHTCACHE_TRACING_EXPORTER"},
		},
	}

	app.Commands = []*cli.Command{
		serveCmd,
		loadCmd,
	}
	return app
}

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "run the HTTP read-through proxy",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "listen",
			Value:   ":8080",
			EnvVars: []string{"FLIGHTCACHE_LISTEN"},
		},
		&cli.StringFlag{
			Name:     "origin",
			Usage:    "base URL of the origin service",
			Required: true,
			EnvVars:  []string{"FLIGHTCACHE_ORIGIN"},
		},
		&cli.IntFlag{
			Name:    "origin-retries",
			Value:   3,
			EnvVars: []string{"FLIGHTCACHE_ORIGIN_RETRIES"},
		},
		&cli.DurationFlag{
			Name:    "origin-timeout",
			Value:   10 * time.Second,
			EnvVars: []string{"FLIGHTCACHE_ORIGIN_TIMEOUT"},
		},
		&cli.DurationFlag{
			Name:    "default-ttl",
			Usage:   "TTL for responses without a ?ttl= override; 0 disables caching",
			Value:   5 * time.Minute,
			EnvVars: []string{"FLIGHTCACHE_DEFAULT_TTL"},
		},
		&cli.DurationFlag{
			Name:    "max-ttl",
			Value:   time.Hour,
			EnvVars: []string{"FLIGHTCACHE_MAX_TTL"},
		},
		&cli.DurationFlag{
			Name:    "writeback-timeout",
			Value:   2 * time.Second,
			EnvVars: []string{"FLIGHTCACHE_WRITEBACK_TIMEOUT"},
		},
		&cli.Float64Flag{
			Name:    "writeback-rate",
			Usage:   "write-backs per second",
			Value:   1000,
			EnvVars: []string{"FLIGHTCACHE_WRITEBACK_RATE"},
		},
		&cli.IntFlag{
			Name:    "writeback-concurrency",
			Value:   32,
			EnvVars: []string{"FLIGHTCACHE_WRITEBACK_CONCURRENCY"},
		},
		&cli.IntFlag{
			Name:    "writeback-attempts",
			Value:   3,
			EnvVars: []string{"FLIGHTCACHE_WRITEBACK_ATTEMPTS"},
		},
		&cli.StringFlag{
			Name:    "metrics-exporter",
			Usage:   "prometheus, otlp, stdout or none",
			Value:   "prometheus",
			EnvVars: []string{"FLIGHTCACHE_METRICS_EXPORTER"},
		},
	},
	Action: runServe,
}

var loadCmd = &cli.Command{
	Name:  "load",
	Usage: "fire concurrent lookups and report how many computations ran",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "callers", Value: 1000, EnvVars: []string{"FLIGHTCACHE_LOAD_CALLERS"}},
		&cli.IntFlag{Name: "keys", Value: 10, EnvVars: []string{"FLIGHTCACHE_LOAD_KEYS"}},
		&cli.DurationFlag{Name: "latency", Value: 100 * time.Millisecond, EnvVars: []string{"FLIGHTCACHE_LOAD_LATENCY"}},
		&cli.DurationFlag{Name: "ttl", Value: time.Minute, EnvVars: []string{"FLIGHTCACHE_LOAD_TTL"}},
	},
	Action: runLoadCmd,
}

func backendFromFlags(cctx *cli.Context) backendConfig {
	return backendConfig{
		Kind:            cctx.String("storage"),
		Prefix:          cctx.String("prefix"),
		Codec:           cctx.String("codec"),
		Capacity:        cctx.Int("capacity"),
		BoltPath:        cctx.String("bolt-path"),
		RedisURL:        cctx.String("redis-url"),
		MemcacheServers: cctx.StringSlice("memcache-servers"),
		Timeout:         cctx.Duration("backend-timeout"),
		BreakerFailures: cctx.Int("breaker-failures"),
		BackfillTTL:     cctx.Duration("backfill-ttl"),
	}
}

func newObserver(ctx context.Context, cctx *cli.Context, metricsExporter string, reg prometheus.Registerer) (observe.Observer, error) {
	cfg := observe.DefaultConfig("flightcache")
	cfg.Version = version
	cfg.Logging.Level = cctx.String("log-level")
	if exp := cctx.String("tracing-exporter"); exp != "none" {
		cfg.Tracing = observe.TracingConfig{Enabled: true, Exporter: exp, SamplePct: 1.0}
	}
	if metricsExporter != "none" {
		cfg.Metrics = observe.MetricsConfig{Enabled: true, Exporter: metricsExporter, Registerer: reg}
	}
	return observe.NewObserver(ctx, cfg)
}

func runServe(cctx *cli.Context) error {
	ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	obs, err := newObserver(ctx, cctx, cctx.String("metrics-exporter"), reg)
	if err != nil {
		return err
	}
	logger := obs.Logger()

	b, err := openBackend(ctx, backendFromFlags(cctx))
	if err != nil {
		return err
	}

	exec := resilience.NewExecutor(
		resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:        cctx.Float64("writeback-rate"),
			Burst:       cctx.Int("writeback-concurrency"),
			WaitOnLimit: true,
		})),
		resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: cctx.Int("writeback-concurrency"),
			MaxWait:       time.Second,
		})),
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  cctx.Int("writeback-attempts"),
			InitialDelay: 50 * time.Millisecond,
			Jitter:       true,
		})),
	)

	c, err := cache.New(b.store,
		cache.WithObserver(obs),
		cache.WithBackendName(b.name),
		cache.WithNamespace("proxy"),
		cache.WithWriteBackTimeout(cctx.Duration("writeback-timeout")),
		cache.WithWriteBackExecutor(exec),
	)
	if err != nil {
		_ = b.Close()
		return err
	}

	org, err := newOrigin(originConfig{
		BaseURL: cctx.String("origin"),
		Retries: cctx.Int("origin-retries"),
		Timeout: cctx.Duration("origin-timeout"),
	}, logger)
	if err != nil {
		_ = b.Close()
		return err
	}

	agg := health.NewAggregator()
	b.register(agg)
	agg.Register("flight", health.NewFlightChecker("flight", c, 10000))
	agg.Register("memory", health.NewMemoryChecker(health.MemoryCheckerConfig{Entries: b.entries}))

	mux := http.NewServeMux()
	srv := &server{
		cache:  c,
		origin: org,
		policy: cache.Policy{DefaultTTL: cctx.Duration("default-ttl"), MaxTTL: cctx.Duration("max-ttl")},
		logger: logger,
	}
	srv.routes(mux)
	health.RegisterHandlers(mux, agg)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	httpSrv := &http.Server{
		Addr:              cctx.String("listen"),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info(ctx, "listening",
			observe.Field{Key: "addr", Value: httpSrv.Addr},
			observe.Field{Key: "storage", Value: b.name},
		)
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err = <-errc:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	logger.Info(shutdownCtx, "shutting down")

	if serr := httpSrv.Shutdown(shutdownCtx); serr != nil {
		logger.Warn(shutdownCtx, "http shutdown", observe.Field{Key: "error", Value: serr.Error()})
	}
	if ferr := c.Flush(shutdownCtx); ferr != nil {
		logger.Warn(shutdownCtx, "pending write-backs dropped",
			observe.Field{Key: "count", Value: c.PendingWrites()},
		)
	}
	if cerr := b.Close(); cerr != nil {
		logger.Warn(shutdownCtx, "closing storage", observe.Field{Key: "error", Value: cerr.Error()})
	}
	_ = obs.Shutdown(shutdownCtx)

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func runLoadCmd(cctx *cli.Context) error {
	ctx := cctx.Context

	obs, err := newObserver(ctx, cctx, "none", nil)
	if err != nil {
		return err
	}
	defer func() { _ = obs.Shutdown(context.WithoutCancel(ctx)) }()

	b, err := openBackend(ctx, backendFromFlags(cctx))
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	c, err := cache.New(b.store, cache.WithObserver(obs), cache.WithBackendName(b.name), cache.WithNamespace("load"))
	if err != nil {
		return err
	}

	report, err := runLoad(ctx, c, loadConfig{
		Callers: cctx.Int("callers"),
		Keys:    cctx.Int("keys"),
		Latency: cctx.Duration("latency"),
		TTL:     cctx.Duration("ttl"),
	})
	if err != nil {
		return err
	}
	report.write(cctx.App.Writer)
	return nil
}
