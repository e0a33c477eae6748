// Package metrics provides Prometheus metrics registry and recording utilities.
//
// Metrics cover:
//   - HTTP request metrics (duration, count, size)
//   - Chunking metrics (segments per document, oversized units)
//   - Capability call metrics (count by status, latency)
//   - Circuit breaker state
//
// All metrics are registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	start := time.Now()
//	summary, err := capability.Summarize(ctx, segment, opts)
//	status := metrics.StatusSuccess
//	if err != nil {
//	    status = metrics.StatusFailure
//	}
//	metrics.RecordCapabilityCall("huggingface", status, time.Since(start))
package metrics
