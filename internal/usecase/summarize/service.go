package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"chunk-summarizer/internal/domain/chunk"
	"chunk-summarizer/internal/observability/logging"
	"chunk-summarizer/internal/observability/metrics"
	"chunk-summarizer/internal/observability/tracing"
	"chunk-summarizer/internal/resilience/retry"
	"chunk-summarizer/internal/utils/text"
)

// DefaultCallTimeout bounds one capability call when Config.CallTimeout is zero.
const DefaultCallTimeout = 60 * time.Second

// Chunker splits a document into segments.
type Chunker interface {
	Chunk(text string) ([]chunk.Segment, error)
}

// Config controls how segments are dispatched to the capability.
type Config struct {
	// Generation bounds every capability call.
	Generation GenerationOptions

	// Separator joins partial summaries. Empty means a single space.
	Separator string

	// Concurrency is the number of in-flight capability calls.
	// 0 or 1 summarizes segments one at a time, in order.
	Concurrency int

	// CallTimeout bounds each capability call. Expiry fails the segment.
	CallTimeout time.Duration

	// Retry is applied per segment. The zero value and retry.NoRetry() make one attempt.
	Retry retry.Config

	// RequestsPerSecond throttles capability calls across the whole service. 0 = unlimited.
	RequestsPerSecond float64

	// Provider labels metrics.
	Provider string

	// OversizePolicy labels oversized-unit metrics.
	OversizePolicy string
}

// DefaultConfig returns sequential, no-retry settings with the default generation bounds.
func DefaultConfig() Config {
	return Config{
		Generation:     DefaultGenerationOptions(),
		Separator:      " ",
		Concurrency:    1,
		CallTimeout:    DefaultCallTimeout,
		Retry:          retry.NoRetry(),
		Provider:       "unknown",
		OversizePolicy: string(chunk.OversizePassthrough),
	}
}

// Result is the outcome of summarizing one document.
type Result struct {
	Summary  string
	Segments []chunk.Segment
	// Partials[i] is the capability output for Segments[i].
	Partials []string
	Duration time.Duration
}

// Service orchestrates chunking and per-segment summarization.
// It holds no per-call state and is safe for concurrent use.
type Service struct {
	chunker    Chunker
	capability Capability
	cfg        Config
	limiter    *rate.Limiter
}

// NewService validates cfg and returns a Service.
func NewService(chunker Chunker, capability Capability, cfg Config) (*Service, error) {
	if chunker == nil {
		return nil, fmt.Errorf("%w: chunker is required", ErrInvalidConfiguration)
	}
	if capability == nil {
		return nil, fmt.Errorf("%w: capability is required", ErrInvalidConfiguration)
	}
	if err := cfg.Generation.Validate(); err != nil {
		return nil, err
	}
	if cfg.Concurrency < 0 {
		return nil, fmt.Errorf("%w: concurrency cannot be negative", ErrInvalidConfiguration)
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 1
	}
	if cfg.CallTimeout < 0 {
		return nil, fmt.Errorf("%w: call timeout cannot be negative", ErrInvalidConfiguration)
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.NoRetry()
	}
	if err := cfg.Retry.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	if cfg.RequestsPerSecond < 0 {
		return nil, fmt.Errorf("%w: requests per second cannot be negative", ErrInvalidConfiguration)
	}
	if cfg.Separator == "" {
		cfg.Separator = " "
	}

	s := &Service{
		chunker:    chunker,
		capability: capability,
		cfg:        cfg,
	}
	if cfg.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Concurrency)
	}
	return s, nil
}

// WithChunker returns a Service that splits input with c and shares everything
// else, including the rate limiter, with s.
func (s *Service) WithChunker(c Chunker) *Service {
	cp := *s
	cp.chunker = c
	return &cp
}

// Summarize chunks input, summarizes every segment and joins the partial summaries
// in segment order. Blank input returns an empty Result without calling the capability.
// Any segment failure aborts the document and is returned as *AggregationError.
func (s *Service) Summarize(ctx context.Context, input string) (*Result, error) {
	start := time.Now()
	logger := logging.FromContext(ctx)

	ctx, span := tracing.StartSpan(ctx, "summarize.document",
		attribute.Int("input.bytes", len(input)),
		attribute.Int("aggregation.concurrency", s.cfg.Concurrency))
	defer span.End()

	if text.IsBlank(input) {
		return &Result{Duration: time.Since(start)}, nil
	}

	segments, err := s.chunker.Chunk(input)
	if err != nil {
		tracing.RecordError(span, err)
		metrics.RecordAggregation(false, time.Since(start))
		return nil, fmt.Errorf("chunk input: %w", err)
	}

	metrics.RecordSegments(len(segments))
	span.SetAttributes(attribute.Int("segment.count", len(segments)))
	for _, seg := range segments {
		if seg.Oversized {
			logger.WarnContext(ctx, "segment exceeds max chunk size",
				slog.Int("segment_index", seg.Index+1),
				slog.Int("segment_length", seg.Length),
				slog.String("policy", s.cfg.OversizePolicy))
			metrics.RecordOversizedUnit(s.cfg.OversizePolicy)
		}
	}

	var partials []string
	if s.cfg.Concurrency > 1 && len(segments) > 1 {
		partials, err = s.summarizeParallel(ctx, segments)
	} else {
		partials, err = s.summarizeSequential(ctx, segments)
	}

	duration := time.Since(start)
	if err != nil {
		tracing.RecordError(span, err)
		metrics.RecordAggregation(false, duration)
		logger.ErrorContext(ctx, "summarization failed",
			slog.Int("segment_count", len(segments)),
			slog.Duration("duration", duration),
			slog.Any("error", err))
		return nil, err
	}

	summary := strings.Join(partials, s.cfg.Separator)
	metrics.RecordAggregation(true, duration)
	logger.InfoContext(ctx, "summarization completed",
		slog.Int("segment_count", len(segments)),
		slog.Int("summary_length", text.CountRunes(summary)),
		slog.Duration("duration", duration))

	return &Result{
		Summary:  summary,
		Segments: segments,
		Partials: partials,
		Duration: duration,
	}, nil
}

func (s *Service) summarizeSequential(ctx context.Context, segments []chunk.Segment) ([]string, error) {
	partials := make([]string, len(segments))
	for i, seg := range segments {
		p, err := s.summarizeSegment(ctx, seg, len(segments))
		if err != nil {
			return nil, err
		}
		partials[i] = p
	}
	return partials, nil
}

// summarizeParallel runs at most Concurrency calls at once. Results are written
// by index so completion order never affects the output.
func (s *Service) summarizeParallel(ctx context.Context, segments []chunk.Segment) ([]string, error) {
	partials := make([]string, len(segments))
	errs := make([]error, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for i, seg := range segments {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			p, err := s.summarizeSegment(gctx, seg, len(segments))
			if err != nil {
				errs[i] = err
				return err
			}
			partials[i] = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, firstFailure(errs, err)
	}
	return partials, nil
}

// firstFailure picks the lowest-indexed error that is not a side effect of the
// group cancelling its siblings.
func firstFailure(errs []error, fallback error) error {
	var firstCanceled error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if !errors.Is(err, context.Canceled) {
			return err
		}
		if firstCanceled == nil {
			firstCanceled = err
		}
	}
	if firstCanceled != nil {
		return firstCanceled
	}
	return fallback
}

func (s *Service) summarizeSegment(ctx context.Context, seg chunk.Segment, count int) (string, error) {
	index := seg.Index + 1
	fail := func(err error) error {
		return &AggregationError{SegmentIndex: index, SegmentCount: count, Segment: seg.Text, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return "", fail(err)
	}

	logger := logging.WithSegment(logging.FromContext(ctx), index, count)
	ctx, span := tracing.StartSpan(ctx, "summarize.segment",
		attribute.Int("segment.index", index),
		attribute.Int("segment.length", seg.Length),
		attribute.Bool("segment.oversized", seg.Oversized))
	defer span.End()

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			tracing.RecordError(span, err)
			return "", fail(fmt.Errorf("rate limiter: %w", err))
		}
	}

	start := time.Now()
	var partial string
	err := retry.WithBackoff(ctx, s.cfg.Retry, func() error {
		p, err := s.call(ctx, seg.Text)
		if err != nil {
			return err
		}
		partial = p
		return nil
	})
	duration := time.Since(start)

	if err != nil {
		status := metrics.StatusFailure
		if errors.Is(err, ErrCapabilityTimeout) {
			status = metrics.StatusTimeout
		}
		metrics.RecordCapabilityCall(s.cfg.Provider, status, duration)
		tracing.RecordError(span, err)
		logger.WarnContext(ctx, "segment summarization failed",
			slog.Duration("duration", duration),
			slog.Any("error", err))
		return "", fail(err)
	}

	metrics.RecordCapabilityCall(s.cfg.Provider, metrics.StatusSuccess, duration)
	logger.DebugContext(ctx, "segment summarized",
		slog.Int("segment_length", seg.Length),
		slog.Int("partial_length", text.CountRunes(partial)),
		slog.Duration("duration", duration))
	return partial, nil
}

// call performs a single bounded capability invocation.
func (s *Service) call(ctx context.Context, segment string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	out, err := s.capability.Summarize(callCtx, segment, s.cfg.Generation)
	if err != nil {
		// only the per-call deadline counts as a timeout, not the caller's
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("%w after %s: %w", ErrCapabilityTimeout, s.cfg.CallTimeout, err)
		}
		return "", err
	}
	if text.IsBlank(out) {
		return "", ErrDegenerateOutput
	}
	return strings.TrimSpace(out), nil
}

// Summarize is the single-call entry point: it chunks input with the default
// ". " splitter and rune lengths, summarizes sequentially without retry and
// returns the joined summary.
func Summarize(ctx context.Context, input string, maxChunkSize int, capability Capability) (string, error) {
	c, err := chunk.New(maxChunkSize)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	svc, err := NewService(c, capability, DefaultConfig())
	if err != nil {
		return "", err
	}
	res, err := svc.Summarize(ctx, input)
	if err != nil {
		return "", err
	}
	return res.Summary, nil
}
