package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"

	"chunk-summarizer/internal/resilience/circuitbreaker"
	"chunk-summarizer/internal/resilience/retry"
	"chunk-summarizer/internal/usecase/summarize"
)

// Claude summarizes segments with Anthropic's Messages API.
type Claude struct {
	client          anthropic.Client
	model           string
	circuitBreaker  *circuitbreaker.CircuitBreaker
	metricsRecorder PartialMetricsRecorder
}

// NewClaude creates a Claude backend. SDK-level retries are disabled because
// the aggregating summarizer owns the retry policy.
func NewClaude(cfg Config) *Claude {
	cfg = cfg.withDefaults()
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Claude{
		client:          anthropic.NewClient(opts...),
		model:           cfg.Model,
		circuitBreaker:  newBreaker(ProviderClaude),
		metricsRecorder: NewPrometheusPartialMetrics(ProviderClaude),
	}
}

// Summarize implements summarize.Capability.
func (c *Claude) Summarize(ctx context.Context, input string, opts summarize.GenerationOptions) (string, error) {
	return guarded(c.circuitBreaker, func() (string, error) {
		return c.doSummarize(ctx, input, opts)
	})
}

func (c *Claude) doSummarize(ctx context.Context, input string, opts summarize.GenerationOptions) (string, error) {
	requestID := uuid.New().String()
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokensFor(opts)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(opts, input))),
		},
	}
	if opts.Deterministic {
		params.Temperature = anthropic.Float(0)
	}

	start := time.Now()
	message, err := c.client.Messages.New(ctx, params)
	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "claude summarization failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", classifyClaudeError(err)
	}

	if len(message.Content) == 0 {
		return "", fmt.Errorf("claude api returned empty response")
	}
	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return "", fmt.Errorf("claude api returned unexpected response type")
	}

	summary := strings.TrimSpace(textBlock.Text)
	observe(ctx, c.metricsRecorder, ProviderClaude, opts, summary, duration)
	return summary, nil
}

// classifyClaudeError exposes the status code so retry.IsRetryable can judge it.
func classifyClaudeError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("claude api error: %w", err)
	}
	if apiErr.StatusCode == http.StatusRequestEntityTooLarge ||
		(apiErr.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(apiErr.Error()), "too long")) {
		return fmt.Errorf("%w: %s", summarize.ErrInputTooLong, apiErr.Error())
	}
	return fmt.Errorf("claude api error: %w", &retry.HTTPError{StatusCode: apiErr.StatusCode, Message: apiErr.Error()})
}

// Breaker exposes the circuit breaker for health reporting.
func (c *Claude) Breaker() *circuitbreaker.CircuitBreaker {
	return c.circuitBreaker
}
