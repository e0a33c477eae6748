// Package observability groups structured logging, Prometheus metrics and
// OpenTelemetry tracing.
//
// Subpackages:
//   - logging: slog constructors and context propagation
//   - metrics: Prometheus metrics registry and recorders
//   - tracing: OpenTelemetry tracer and HTTP middleware
package observability
