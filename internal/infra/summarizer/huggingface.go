package summarizer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"chunk-summarizer/internal/resilience/circuitbreaker"
	"chunk-summarizer/internal/resilience/retry"
	"chunk-summarizer/internal/usecase/summarize"
)

// maxResponseBytes caps how much of a provider response is read.
const maxResponseBytes = 1 << 20

// HuggingFace calls a summarization pipeline on the Hugging Face inference API.
// With the default model this matches running facebook/bart-large-cnn locally:
// bounded output length and greedy decoding when Deterministic is set.
type HuggingFace struct {
	client          *http.Client
	endpoint        string
	apiKey          string
	circuitBreaker  *circuitbreaker.CircuitBreaker
	metricsRecorder PartialMetricsRecorder
}

// NewHuggingFace creates a client for cfg.Model at cfg.BaseURL.
func NewHuggingFace(cfg Config) *HuggingFace {
	cfg = cfg.withDefaults()
	return &HuggingFace{
		client:          &http.Client{Timeout: cfg.Timeout},
		endpoint:        strings.TrimRight(cfg.BaseURL, "/") + "/models/" + cfg.Model,
		apiKey:          cfg.APIKey,
		circuitBreaker:  newBreaker(ProviderHuggingFace),
		metricsRecorder: NewPrometheusPartialMetrics(ProviderHuggingFace),
	}
}

// Summarize implements summarize.Capability.
func (h *HuggingFace) Summarize(ctx context.Context, input string, opts summarize.GenerationOptions) (string, error) {
	return guarded(h.circuitBreaker, func() (string, error) {
		return h.doSummarize(ctx, input, opts)
	})
}

// requestBody builds {"inputs": ..., "parameters": {...}, "options": {...}}.
func requestBody(input string, opts summarize.GenerationOptions) ([]byte, error) {
	body := []byte(`{}`)
	var err error
	set := func(path string, value any) {
		if err == nil {
			body, err = sjson.SetBytes(body, path, value)
		}
	}
	set("inputs", input)
	set("parameters.max_length", opts.MaxLength)
	set("parameters.min_length", opts.MinLength)
	set("parameters.do_sample", !opts.Deterministic)
	set("options.wait_for_model", true)
	set("options.use_cache", opts.Deterministic)
	return body, err
}

func (h *HuggingFace) doSummarize(ctx context.Context, input string, opts summarize.GenerationOptions) (string, error) {
	body, err := requestBody(input, opts)
	if err != nil {
		return "", fmt.Errorf("encode huggingface request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create huggingface request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("huggingface api error: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	duration := time.Since(start)
	if err != nil {
		return "", fmt.Errorf("read huggingface response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(payload, "error").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		slog.WarnContext(ctx, "huggingface api returned error",
			slog.Int("status", resp.StatusCode),
			slog.String("message", msg),
			slog.Duration("duration", duration))

		if isInputTooLong(resp.StatusCode, msg) {
			return "", fmt.Errorf("%w: %s", summarize.ErrInputTooLong, msg)
		}
		return "", fmt.Errorf("huggingface api error: %w", &retry.HTTPError{StatusCode: resp.StatusCode, Message: msg})
	}

	result := gjson.GetBytes(payload, "0.summary_text")
	if !result.Exists() {
		// some deployments answer with a bare object instead of a list
		result = gjson.GetBytes(payload, "summary_text")
	}
	if !result.Exists() {
		return "", fmt.Errorf("huggingface api returned unexpected response: %.200s", payload)
	}

	summary := strings.TrimSpace(result.String())
	observe(ctx, h.metricsRecorder, ProviderHuggingFace, opts, summary, duration)
	return summary, nil
}

// isInputTooLong recognises the pipeline's responses to inputs longer than the model's context.
func isInputTooLong(status int, msg string) bool {
	if status == http.StatusRequestEntityTooLarge {
		return true
	}
	if status != http.StatusBadRequest {
		return false
	}
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "index out of range") ||
		strings.Contains(lower, "too long") ||
		strings.Contains(lower, "maximum sequence length")
}

// Close releases idle connections.
func (h *HuggingFace) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

// Breaker exposes the circuit breaker for health reporting.
func (h *HuggingFace) Breaker() *circuitbreaker.CircuitBreaker {
	return h.circuitBreaker
}
