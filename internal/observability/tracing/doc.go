// Package tracing provides OpenTelemetry tracing integration.
//
// Spans are created for every HTTP request (Middleware), for every document
// summarization and for every per-segment capability call. No exporter is
// configured here; the process installs a TracerProvider at startup.
//
//	ctx, span := tracing.StartSpan(ctx, "summarize.segment",
//	    attribute.Int("segment.index", 2))
//	defer span.End()
package tracing
