// Package health reports whether a cache process and its backends are usable.
//
// A Checker reports a Status: Healthy, Degraded or Unhealthy. The package
// ships checkers for the cache's moving parts:
//
//   - StorageChecker writes, reads back and removes a key under ReservedKeyPrefix.
//   - NewBreakerChecker maps a resilience.CircuitBreaker to a status, so an
//     open breaker in front of a remote store shows up as unhealthy.
//   - NewPingChecker wraps a backend's Ping method.
//   - NewFlightChecker reports in-flight computations and pending write-backs.
//   - MemoryChecker watches heap usage of in-process stores.
//
// An Aggregator runs named checkers together and computes the worst status:
//
//	agg := health.NewAggregator()
//	agg.Register("storage", health.NewStorageChecker("storage", store))
//	agg.Register("breaker", health.NewBreakerChecker("breaker", guarded.Breaker()))
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg)
//
// RegisterHandlers serves /healthz (liveness), /readyz (readiness), /health
// (JSON detail for every check) and /health/{name}.
package health
