// Package telemetry provides structured logging, metrics, tracing and
// lifecycle events for testbed runs.
//
// Logging is built on zerolog with field helpers for the identifiers a
// run carries (run ID, board, suite, test, keyword). Metrics use
// Prometheus and cover deployments, releases, per-test gate verdicts
// and keyword invocations. Tracing uses OpenTelemetry with stdout or
// OTLP/gRPC exporters. The event publisher fans lifecycle events out to
// subscribers, optionally on a background goroutine.
//
// Every component degrades to a no-op when disabled, so callers never
// guard telemetry calls.
package telemetry
