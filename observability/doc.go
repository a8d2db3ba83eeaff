// Package observability provides OpenTelemetry tracing and metrics for
// featflow pipelines.
//
// The execution engine records one span per pass and per-node counters and
// latency histograms through a Metrics bundle. Everything here is optional:
// a pipeline built without a Metrics instance records nothing, and span
// creation falls back to the global (no-op) tracer provider unless InitTracer
// has been called.
package observability
