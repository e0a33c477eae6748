// Package http wires the HTTP surface of the summarizer: health and metrics
// endpoints, the middleware chain and the router.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"chunk-summarizer/internal/resilience/circuitbreaker"
)

// Health states reported by HealthHandler.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string                 `json:"status"`    // healthy, degraded or unhealthy
	Timestamp string                 `json:"timestamp"` // RFC 3339
	Provider  string                 `json:"provider"`
	Checks    map[string]CheckStatus `json:"checks"`
	Version   string                 `json:"version"`
}

// CheckStatus represents the status of a single health check.
type CheckStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthHandler reports the state of the circuit breakers guarding remote calls.
// The first circuit is the summarization backend: when it is open the service
// cannot summarize and reports unhealthy. Other open circuits only degrade it.
type HealthHandler struct {
	Version  string
	Provider string
	Circuits []*circuitbreaker.CircuitBreaker
}

// ServeHTTP returns 200 when healthy or degraded and 503 when unhealthy.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]CheckStatus, len(h.Circuits))
	status := StatusHealthy

	for i, cb := range h.Circuits {
		check := CheckStatus{Status: StatusHealthy, Message: cb.State().String()}
		if cb.IsOpen() {
			check.Status = StatusUnhealthy
			switch {
			case i == 0:
				status = StatusUnhealthy
			case status == StatusHealthy:
				status = StatusDegraded
			}
		}
		checks[cb.Name()] = check
	}

	code := http.StatusOK
	if status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Provider:  h.Provider,
		Checks:    checks,
		Version:   h.Version,
	}); err != nil {
		slog.Default().Error("health: failed to encode response", slog.Any("error", err))
	}
}

// LiveHandler handles liveness probes. It always returns 200 while the process can respond.
type LiveHandler struct{}

// ServeHTTP writes "alive".
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}
