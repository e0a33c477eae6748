// Package summarizer provides the summarization backends the aggregating
// summarizer calls once per segment: the Hugging Face inference API (the
// default, running an abstractive seq2seq model), Claude, OpenAI and a
// local extractive fallback. Remote backends run behind a circuit breaker and
// record Prometheus metrics; retry and per-call timeouts are owned by the caller.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"chunk-summarizer/internal/resilience/circuitbreaker"
	"chunk-summarizer/internal/usecase/summarize"
	"chunk-summarizer/internal/utils/text"
)

// ErrCircuitOpen is returned while a backend's circuit breaker rejects calls.
var ErrCircuitOpen = errors.New("summarization backend unavailable: circuit breaker open")

// New builds the backend named by cfg.Provider.
func New(cfg Config) (summarize.Capability, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Info("initialized summarization backend",
		slog.String("provider", cfg.Provider),
		slog.String("model", cfg.Model))

	switch cfg.Provider {
	case ProviderHuggingFace:
		return NewHuggingFace(cfg), nil
	case ProviderClaude:
		return NewClaude(cfg), nil
	case ProviderOpenAI:
		return NewOpenAI(cfg), nil
	default:
		return NewExtractive(), nil
	}
}

// newBreaker returns a breaker that ignores failures caused by the request itself.
func newBreaker(provider string) *circuitbreaker.CircuitBreaker {
	cfg := circuitbreaker.CapabilityConfig(provider)
	cfg.IsSuccessful = func(err error) bool {
		return err == nil ||
			errors.Is(err, summarize.ErrInputTooLong) ||
			errors.Is(err, context.Canceled)
	}
	return circuitbreaker.New(cfg)
}

// guarded runs fn through cb and maps an open breaker to ErrCircuitOpen.
func guarded(cb *circuitbreaker.CircuitBreaker, fn func() (string, error)) (string, error) {
	out, err := circuitbreaker.Call(cb, fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		slog.Warn("circuit breaker rejected summarization request",
			slog.String("circuit", cb.Name()),
			slog.String("state", cb.State().String()))
		return "", fmt.Errorf("%w: %s", ErrCircuitOpen, cb.Name())
	}
	return out, err
}

// buildPrompt instructs a chat model to produce one partial summary within the word bounds.
func buildPrompt(opts summarize.GenerationOptions, input string) string {
	return fmt.Sprintf("Summarize the following text in at least %d and at most %d words. "+
		"Reply with the summary only.\n\n%s", opts.MinLength, opts.MaxLength, input)
}

// maxTokensFor leaves headroom over the word budget for tokenization.
func maxTokensFor(opts summarize.GenerationOptions) int {
	return opts.MaxLength*2 + 16
}

// observe logs and records the output of one provider call.
func observe(ctx context.Context, recorder PartialMetricsRecorder, provider string,
	opts summarize.GenerationOptions, summary string, duration time.Duration) {
	words := text.CountWords(summary)
	within := words >= opts.MinLength && words <= opts.MaxLength

	slog.DebugContext(ctx, "partial summary generated",
		slog.String("provider", provider),
		slog.Int("summary_words", words),
		slog.Int("min_length", opts.MinLength),
		slog.Int("max_length", opts.MaxLength),
		slog.Bool("within_bounds", within),
		slog.Duration("duration", duration))

	recorder.RecordLength(words)
	recorder.RecordBounds(within)
	recorder.RecordDuration(duration)
}

// BreakerReporter is implemented by backends guarded by a circuit breaker.
type BreakerReporter interface {
	Breaker() *circuitbreaker.CircuitBreaker
}
