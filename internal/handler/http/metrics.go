package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chunk-summarizer/internal/observability/metrics"
)

var (
	// httpRequestsInFlight tracks requests currently being served.
	// Summaries can take minutes, so this is the first signal of backend saturation.
	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)

	httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)
)

// unmatchedRoute labels requests for paths the router does not serve.
const unmatchedRoute = "other"

// MetricsMiddleware records request count, duration and sizes per route.
// Paths outside routes are labelled "other" to keep label cardinality bounded.
func MetricsMiddleware(routes ...string) func(http.Handler) http.Handler {
	known := make(map[string]struct{}, len(routes))
	for _, r := range routes {
		known[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			path := r.URL.Path
			if _, ok := known[path]; !ok {
				path = unmatchedRoute
			}

			rec := newStatusRecorder(w)
			start := time.Now()
			next.ServeHTTP(rec, r)

			metrics.RecordHTTPRequest(r.Method, path, strconv.Itoa(rec.status), time.Since(start), int(r.ContentLength))
			httpResponseSize.WithLabelValues(r.Method, path).Observe(float64(rec.bytes))
		})
	}
}

// MetricsHandler returns an HTTP handler for the Prometheus metrics endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
