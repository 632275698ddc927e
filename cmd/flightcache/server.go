package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jonwraymond/flightcache/cache"
	"github.com/jonwraymond/flightcache/health"
	"github.com/jonwraymond/flightcache/observe"
)

// server is the HTTP read-through proxy in front of the origin.
type server struct {
	cache  *cache.Cache
	origin *origin
	policy cache.Policy
	logger observe.Logger
}

func (s *server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/cache/{key...}", s.handleGet)
	mux.HandleFunc("DELETE /v1/cache/{key...}", s.handleDelete)
}

func (s *server) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := r.PathValue("key")
	if rejectReserved(w, key) {
		return
	}

	var override time.Duration
	if v := r.URL.Query().Get("ttl"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			http.Error(w, "ttl must be a positive duration", http.StatusBadRequest)
			return
		}
		override = d
	}

	fetch := func(ctx context.Context) (document, error) {
		return s.origin.Fetch(ctx, key)
	}

	var (
		doc document
		err error
	)
	if s.policy.ShouldCache() {
		doc, err = cache.GetOrCompute(ctx, s.cache, key, fetch, s.policy.EffectiveTTL(override))
	} else {
		doc, err = fetch(ctx)
	}
	if err != nil {
		s.writeError(ctx, w, key, err)
		return
	}

	if doc.ContentType != "" {
		w.Header().Set("Content-Type", doc.ContentType)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}

func (s *server) handleDelete(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if rejectReserved(w, key) {
		return
	}
	if err := s.cache.Remove(r.Context(), key); err != nil {
		s.writeError(r.Context(), w, key, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// rejectReserved answers 400 for keys in the health checker's keyspace, which
// shares the store with proxied documents.
func rejectReserved(w http.ResponseWriter, key string) bool {
	if !health.IsReservedKey(key) {
		return false
	}
	http.Error(w, "keys starting with "+health.ReservedKeyPrefix+" are reserved", http.StatusBadRequest)
	return true
}

func (s *server) writeError(ctx context.Context, w http.ResponseWriter, key string, err error) {
	status := http.StatusBadGateway
	var oe *originError
	switch {
	case cache.IsInvalidArgument(err):
		status = http.StatusBadRequest
	case errors.As(err, &oe) && oe.Status == http.StatusNotFound:
		status = http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// Client went away.
		return
	}

	if status >= 500 {
		s.logger.Warn(ctx, "request failed",
			observe.Field{Key: "key", Value: key},
			observe.Field{Key: "status", Value: status},
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
	http.Error(w, http.StatusText(status), status)
}
