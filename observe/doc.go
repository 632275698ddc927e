// Package observe provides tracing, metrics and structured logging for cache
// operations.
//
// It is a pure instrumentation library: no caching and no transport, no I/O
// beyond exporter setup. An Observer builds the OpenTelemetry tracer and
// meter and a zap-backed Logger from a Config; a Middleware records one
// span, one duration sample and one log line per observed operation.
//
// Cache keys are attached to spans and logs but never to metric attributes,
// so metric cardinality stays bounded by the number of operations, backends
// and namespaces.
package observe
