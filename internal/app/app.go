// Package app assembles the summarization pipeline from configuration. The
// summarization backend, its HTTP connections and the document fetcher are
// process-scoped: built once at startup, shared by every request and released
// by Close.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"chunk-summarizer/internal/config"
	"chunk-summarizer/internal/domain/chunk"
	"chunk-summarizer/internal/infra/fetcher"
	"chunk-summarizer/internal/infra/summarizer"
	"chunk-summarizer/internal/resilience/circuitbreaker"
	"chunk-summarizer/internal/resilience/retry"
	"chunk-summarizer/internal/usecase/summarize"
)

// App holds the shared pipeline components.
type App struct {
	Config     *config.SummarizeConfig
	Capability summarize.Capability
	Service    *summarize.Service
	Fetcher    *fetcher.Fetcher

	chunkOpts []chunk.Option
}

// New builds the pipeline described by cfg.
func New(cfg *config.SummarizeConfig) (*App, error) {
	chunkOpts, err := chunkOptions(cfg.Chunk)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", summarize.ErrInvalidConfiguration, err)
	}
	chunker, err := chunk.New(cfg.Chunk.MaxChunkSize, chunkOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", summarize.ErrInvalidConfiguration, err)
	}

	capability, err := summarizer.New(summarizer.Config{
		Provider: cfg.Provider.Name,
		Model:    cfg.Provider.Model,
		BaseURL:  cfg.Provider.BaseURL,
		APIKey:   cfg.Provider.APIKey,
		Timeout:  cfg.Provider.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", summarize.ErrInvalidConfiguration, err)
	}

	svc, err := summarize.NewService(chunker, capability, serviceConfig(cfg))
	if err != nil {
		return nil, err
	}

	fetchCfg := fetcher.DefaultConfig()
	fetchCfg.Timeout = cfg.Fetch.Timeout
	fetchCfg.MaxBodySize = cfg.Fetch.MaxBodySize
	fetchCfg.DenyPrivateIPs = cfg.Fetch.DenyPrivateIPs
	if err := fetchCfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: fetch: %w", summarize.ErrInvalidConfiguration, err)
	}

	slog.Info("summarization pipeline ready",
		slog.String("provider", cfg.Provider.Name),
		slog.Int("max_chunk_size", cfg.Chunk.MaxChunkSize),
		slog.String("length_unit", cfg.Chunk.LengthUnit),
		slog.String("oversize_policy", cfg.Chunk.OversizePolicy),
		slog.Int("concurrency", cfg.Aggregation.Concurrency))

	return &App{
		Config:     cfg,
		Capability: capability,
		Service:    svc,
		Fetcher:    fetcher.New(fetchCfg),
		chunkOpts:  chunkOpts,
	}, nil
}

// ServiceFor returns a service chunking at maxChunkSize, or the configured
// service when maxChunkSize is zero or equals the configured size.
func (a *App) ServiceFor(maxChunkSize int) (*summarize.Service, error) {
	if maxChunkSize == 0 || maxChunkSize == a.Config.Chunk.MaxChunkSize {
		return a.Service, nil
	}
	c, err := chunk.New(maxChunkSize, a.chunkOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", summarize.ErrInvalidConfiguration, err)
	}
	return a.Service.WithChunker(c), nil
}

// Circuits returns the circuit breakers guarding remote calls, backend first.
func (a *App) Circuits() []*circuitbreaker.CircuitBreaker {
	var out []*circuitbreaker.CircuitBreaker
	if r, ok := a.Capability.(summarizer.BreakerReporter); ok {
		out = append(out, r.Breaker())
	}
	if a.Fetcher != nil {
		out = append(out, a.Fetcher.Breaker())
	}
	return out
}

// Close releases the backend and fetcher connections.
func (a *App) Close() error {
	var errs []error
	if closer, ok := a.Capability.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	if a.Fetcher != nil {
		errs = append(errs, a.Fetcher.Close())
	}
	return errors.Join(errs...)
}

func chunkOptions(cfg config.ChunkConfig) ([]chunk.Option, error) {
	var splitter chunk.SentenceSplitter
	if cfg.Splitter == chunk.SplitterAbbreviation {
		splitter = chunk.NewAbbreviationSplitter(cfg.Abbreviations...)
	} else {
		s, err := chunk.NewSplitter(cfg.Splitter)
		if err != nil {
			return nil, err
		}
		splitter = s
	}

	length, err := chunk.NewLengthFunc(cfg.LengthUnit)
	if err != nil {
		return nil, err
	}

	policy, err := chunk.ParseOversizePolicy(cfg.OversizePolicy)
	if err != nil {
		return nil, err
	}

	return []chunk.Option{
		chunk.WithSplitter(splitter),
		chunk.WithLengthFunc(length),
		chunk.WithOversizePolicy(policy),
	}, nil
}

func serviceConfig(cfg *config.SummarizeConfig) summarize.Config {
	retryCfg := retry.NoRetry()
	if cfg.Aggregation.RetryAttempts > 1 {
		retryCfg = retry.CapabilityConfig(cfg.Aggregation.RetryAttempts)
	}
	return summarize.Config{
		Generation: summarize.GenerationOptions{
			MaxLength:     cfg.Generation.MaxLength,
			MinLength:     cfg.Generation.MinLength,
			Deterministic: cfg.Generation.Deterministic,
		},
		Separator:         cfg.Aggregation.Separator,
		Concurrency:       cfg.Aggregation.Concurrency,
		CallTimeout:       cfg.Aggregation.CallTimeout,
		Retry:             retryCfg,
		RequestsPerSecond: cfg.Aggregation.RequestsPerSecond,
		Provider:          cfg.Provider.Name,
		OversizePolicy:    cfg.Chunk.OversizePolicy,
	}
}

// Summarize runs the pipeline on text, chunking at maxChunkSize (0 = configured size).
func (a *App) Summarize(ctx context.Context, text string, maxChunkSize int) (*summarize.Result, error) {
	svc, err := a.ServiceFor(maxChunkSize)
	if err != nil {
		return nil, err
	}
	return svc.Summarize(ctx, text)
}
