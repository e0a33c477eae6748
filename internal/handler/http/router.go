package http

import (
	"log/slog"
	"net/http"
	"time"

	"chunk-summarizer/internal/handler/http/requestid"
	sumHTTP "chunk-summarizer/internal/handler/http/summarize"
	"chunk-summarizer/internal/observability/tracing"
	"chunk-summarizer/internal/resilience/circuitbreaker"
)

// Routes served by NewRouter.
const (
	RouteSummarize = "/summarize"
	RouteHealth    = "/health"
	RouteLive      = "/live"
	RouteMetrics   = "/metrics"
)

// RouterConfig holds the dependencies and limits for NewRouter.
type RouterConfig struct {
	Pipeline  sumHTTP.Pipeline
	Documents sumHTTP.DocumentFetcher
	Circuits  []*circuitbreaker.CircuitBreaker
	Logger    *slog.Logger

	Version         string
	Provider        string
	MaxRequestBytes int64
	RequestTimeout  time.Duration
	// RateLimitRPS of 0 disables per-client rate limiting.
	RateLimitRPS      float64
	RateLimitBurst    int
	TrustProxyHeaders bool
}

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so that the first one is outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// NewRouter builds the API handler.
//
// /summarize goes through body limit, rate limit and timeout; the probes and
// /metrics bypass them. Every route shares tracing, request IDs, logging,
// panic recovery and metrics.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var summarize http.Handler = sumHTTP.Handler{
		Pipeline:  cfg.Pipeline,
		Documents: cfg.Documents,
		Logger:    logger,
	}
	summarizeChain := []Middleware{}
	if cfg.MaxRequestBytes > 0 {
		summarizeChain = append(summarizeChain, LimitRequestBody(cfg.MaxRequestBytes))
	}
	if cfg.RateLimitRPS > 0 {
		summarizeChain = append(summarizeChain, NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.TrustProxyHeaders).Limit)
	}
	if cfg.RequestTimeout > 0 {
		summarizeChain = append(summarizeChain, Timeout(cfg.RequestTimeout))
	}
	summarize = Chain(summarize, summarizeChain...)

	mux := http.NewServeMux()
	mux.Handle("POST "+RouteSummarize, summarize)
	mux.Handle("GET "+RouteHealth, &HealthHandler{Version: cfg.Version, Provider: cfg.Provider, Circuits: cfg.Circuits})
	mux.Handle("GET "+RouteLive, &LiveHandler{})
	mux.Handle("GET "+RouteMetrics, MetricsHandler())

	return Chain(mux,
		tracing.Middleware,
		requestid.Middleware,
		Logging(logger),
		Recover(logger),
		MetricsMiddleware(RouteSummarize, RouteHealth, RouteLive, RouteMetrics),
	)
}
