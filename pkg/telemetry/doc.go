// Package telemetry provides structured logging, Prometheus metrics, and
// OpenTelemetry tracing for stratoctl.
//
// Logging is zerolog-based; the root logger is created once from the
// logging configuration and component loggers are derived from it.
// Metrics cover the operation lifecycle: submissions, polls, await
// durations, terminal outcomes, resource fetches, and local preflight
// violations. Tracing wraps the submit/await/resolve flow with spans and
// supports OTLP and stdout exporters.
package telemetry
