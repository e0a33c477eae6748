package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"chunk-summarizer/internal/resilience/circuitbreaker"
	"chunk-summarizer/internal/resilience/retry"
	"chunk-summarizer/internal/usecase/summarize"
)

// OpenAI summarizes segments with the chat completions API.
// Any OpenAI-compatible server can be used through BaseURL.
type OpenAI struct {
	client          *openai.Client
	model           string
	circuitBreaker  *circuitbreaker.CircuitBreaker
	metricsRecorder PartialMetricsRecorder
}

// NewOpenAI creates an OpenAI backend.
func NewOpenAI(cfg Config) *OpenAI {
	cfg = cfg.withDefaults()
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAI{
		client:          openai.NewClientWithConfig(clientCfg),
		model:           cfg.Model,
		circuitBreaker:  newBreaker(ProviderOpenAI),
		metricsRecorder: NewPrometheusPartialMetrics(ProviderOpenAI),
	}
}

// Summarize implements summarize.Capability.
func (o *OpenAI) Summarize(ctx context.Context, input string, opts summarize.GenerationOptions) (string, error) {
	return guarded(o.circuitBreaker, func() (string, error) {
		return o.doSummarize(ctx, input, opts)
	})
}

func (o *OpenAI) doSummarize(ctx context.Context, input string, opts summarize.GenerationOptions) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:     o.model,
		MaxTokens: maxTokensFor(opts),
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: buildPrompt(opts, input),
		}},
	}
	if opts.Deterministic {
		// temperature 0 is dropped by omitempty
		req.Temperature = math.SmallestNonzeroFloat32
		seed := 0
		req.Seed = &seed
	}

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "openai summarization failed",
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai api returned empty response")
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	observe(ctx, o.metricsRecorder, ProviderOpenAI, opts, summary, duration)
	return summary, nil
}

// classifyOpenAIError exposes the status code so retry.IsRetryable can judge it.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if fmt.Sprint(apiErr.Code) == "context_length_exceeded" {
			return fmt.Errorf("%w: %s", summarize.ErrInputTooLong, apiErr.Message)
		}
		return fmt.Errorf("openai api error: %w", &retry.HTTPError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message})
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("openai api error: %w", &retry.HTTPError{StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error()})
	}
	return fmt.Errorf("openai api error: %w", err)
}

// Breaker exposes the circuit breaker for health reporting.
func (o *OpenAI) Breaker() *circuitbreaker.CircuitBreaker {
	return o.circuitBreaker
}
