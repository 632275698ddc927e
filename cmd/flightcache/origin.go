package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/jonwraymond/flightcache/observe"
)

// document is what the proxy caches for a key.
type document struct {
	ContentType string `msgpack:"ct" json:"content_type"`
	Body        []byte `msgpack:"b" json:"body"`
}

// originError is a non-2xx answer from the origin.
type originError struct {
	Status int
}

func (e *originError) Error() string {
	return fmt.Sprintf("origin: status %d", e.Status)
}

type originConfig struct {
	BaseURL    string
	Retries    int
	Timeout    time.Duration
	MaxBody    int64
	RetryWait  time.Duration
	RetryLimit time.Duration
}

// origin fetches documents from the upstream service.
type origin struct {
	base    *url.URL
	client  *retryablehttp.Client
	maxBody int64
}

func newOrigin(cfg originConfig, logger observe.Logger) (*origin, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("flightcache: --origin is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("flightcache: parse origin: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("flightcache: origin must be http or https, got %q", base.Scheme)
	}
	if cfg.MaxBody <= 0 {
		cfg.MaxBody = 10 << 20
	}

	client := retryablehttp.NewClient()
	client.RetryMax = cfg.Retries
	if cfg.RetryWait > 0 {
		client.RetryWaitMin = cfg.RetryWait
	}
	if cfg.RetryLimit > 0 {
		client.RetryWaitMax = cfg.RetryLimit
	}
	if cfg.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Timeout
	}
	client.Logger = leveledLogger{logger}

	return &origin{base: base, client: client, maxBody: cfg.MaxBody}, nil
}

// Fetch GETs key below the origin base URL.
func (o *origin) Fetch(ctx context.Context, key string) (document, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, o.base.JoinPath(key).String(), nil)
	if err != nil {
		return document{}, err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return document{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return document{}, &originError{Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, o.maxBody+1))
	if err != nil {
		return document{}, fmt.Errorf("origin: read body: %w", err)
	}
	if int64(len(body)) > o.maxBody {
		return document{}, fmt.Errorf("origin: body exceeds %d bytes", o.maxBody)
	}
	return document{ContentType: resp.Header.Get("Content-Type"), Body: body}, nil
}

// leveledLogger routes retryablehttp logs to an observe.Logger. Errors are
// logged at warn because the client retries them.
type leveledLogger struct {
	inner observe.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...any) {
	l.inner.Warn(context.Background(), msg, fields(keysAndValues)...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...any) {
	l.inner.Warn(context.Background(), msg, fields(keysAndValues)...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...any) {
	l.inner.Debug(context.Background(), msg, fields(keysAndValues)...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...any) {
	l.inner.Debug(context.Background(), msg, fields(keysAndValues)...)
}

func fields(kv []any) []observe.Field {
	out := make([]observe.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, observe.Field{Key: fmt.Sprint(kv[i]), Value: kv[i+1]})
	}
	return out
}

var _ retryablehttp.LeveledLogger = leveledLogger{}
