package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Capability call statuses used as label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusTimeout = "timeout"
)

// Chunking and aggregation metrics
var (
	// SegmentsPerDocument measures how many segments a document was split into
	SegmentsPerDocument = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chunk_segments_per_document",
			Help:    "Number of segments produced per summarized document",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
		},
	)

	// OversizedUnitsTotal counts sentence units longer than the max chunk size, by policy
	OversizedUnitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chunk_oversized_units_total",
			Help: "Total number of sentence units exceeding the max chunk size",
		},
		[]string{"policy"},
	)

	// CapabilityCallsTotal counts per-segment capability calls by provider and status
	CapabilityCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capability_calls_total",
			Help: "Total number of summarization capability calls",
		},
		[]string{"provider", "status"},
	)

	// CapabilityCallDuration measures a single capability call
	CapabilityCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "capability_call_duration_seconds",
			Help:    "Time taken by one summarization capability call",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"provider"},
	)

	// AggregationsTotal counts whole-document summarizations by status
	AggregationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregations_total",
			Help: "Total number of documents summarized",
		},
		[]string{"status"},
	)

	// AggregationDuration measures end-to-end summarization of a document
	AggregationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aggregation_duration_seconds",
			Help:    "Time taken to chunk and summarize a document",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	// DocumentFetchTotal counts URL document fetches by result
	DocumentFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "document_fetch_total",
			Help: "Total number of document fetch attempts",
		},
		[]string{"result"}, // result: success, failure
	)
)

// RecordSegments records the segment count for one document.
func RecordSegments(count int) {
	SegmentsPerDocument.Observe(float64(count))
}

// RecordOversizedUnit records one oversized sentence unit handled under policy.
func RecordOversizedUnit(policy string) {
	OversizedUnitsTotal.WithLabelValues(policy).Inc()
}

// RecordCapabilityCall records the outcome of one capability call.
// Status should be StatusSuccess, StatusFailure or StatusTimeout.
func RecordCapabilityCall(provider, status string, duration time.Duration) {
	CapabilityCallsTotal.WithLabelValues(provider, status).Inc()
	CapabilityCallDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordAggregation records the result of a whole-document summarization.
func RecordAggregation(success bool, duration time.Duration) {
	status := StatusSuccess
	if !success {
		status = StatusFailure
	}
	AggregationsTotal.WithLabelValues(status).Inc()
	AggregationDuration.Observe(duration.Seconds())
}

// RecordDocumentFetch records a URL fetch result.
func RecordDocumentFetch(success bool) {
	result := StatusSuccess
	if !success {
		result = StatusFailure
	}
	DocumentFetchTotal.WithLabelValues(result).Inc()
}
