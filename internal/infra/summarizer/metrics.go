package summarizer

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PartialMetricsRecorder records per-call output metrics for a backend.
// Tests inject a fake instead of the Prometheus implementation.
type PartialMetricsRecorder interface {
	// RecordLength records the length of one partial summary in words.
	RecordLength(words int)

	// RecordBounds records whether a partial summary respected the requested word bounds.
	RecordBounds(withinBounds bool)

	// RecordDuration records the time spent in the provider call.
	RecordDuration(duration time.Duration)
}

// PrometheusPartialMetrics implements PartialMetricsRecorder with Prometheus collectors.
type PrometheusPartialMetrics struct {
	lengthHistogram   *prometheus.HistogramVec
	outOfBounds       *prometheus.CounterVec
	durationHistogram *prometheus.HistogramVec
	provider          string
}

var (
	partialLength     *prometheus.HistogramVec
	partialOutOfBound *prometheus.CounterVec
	providerDuration  *prometheus.HistogramVec
	partialOnce       sync.Once
)

// getOrCreateHistogramVec returns the already-registered collector when one exists.
func getOrCreateHistogramVec(opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(opts, labels)
	if err := prometheus.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.HistogramVec)
		}
		return promauto.NewHistogramVec(opts, labels)
	}
	return h
}

func getOrCreateCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labels)
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec)
		}
		return promauto.NewCounterVec(opts, labels)
	}
	return c
}

// NewPrometheusPartialMetrics returns a recorder labelled with provider.
// Collectors are registered once per process.
func NewPrometheusPartialMetrics(provider string) *PrometheusPartialMetrics {
	partialOnce.Do(func() {
		partialLength = getOrCreateHistogramVec(prometheus.HistogramOpts{
			Name:    "partial_summary_length_words",
			Help:    "Distribution of partial summary lengths in words",
			Buckets: []float64{5, 10, 25, 40, 50, 75, 100, 200},
		}, []string{"provider"})
		partialOutOfBound = getOrCreateCounterVec(prometheus.CounterOpts{
			Name: "partial_summary_out_of_bounds_total",
			Help: "Total number of partial summaries outside the requested word bounds",
		}, []string{"provider"})
		providerDuration = getOrCreateHistogramVec(prometheus.HistogramOpts{
			Name:    "summarizer_provider_request_duration_seconds",
			Help:    "Time spent in a single provider request",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"provider"})
	})
	return &PrometheusPartialMetrics{
		lengthHistogram:   partialLength,
		outOfBounds:       partialOutOfBound,
		durationHistogram: providerDuration,
		provider:          provider,
	}
}

// RecordLength implements PartialMetricsRecorder.
func (p *PrometheusPartialMetrics) RecordLength(words int) {
	p.lengthHistogram.WithLabelValues(p.provider).Observe(float64(words))
}

// RecordBounds implements PartialMetricsRecorder.
func (p *PrometheusPartialMetrics) RecordBounds(withinBounds bool) {
	if !withinBounds {
		p.outOfBounds.WithLabelValues(p.provider).Inc()
	}
}

// RecordDuration implements PartialMetricsRecorder.
func (p *PrometheusPartialMetrics) RecordDuration(duration time.Duration) {
	p.durationHistogram.WithLabelValues(p.provider).Observe(duration.Seconds())
}
