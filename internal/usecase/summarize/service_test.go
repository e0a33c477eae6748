package summarize_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"chunk-summarizer/internal/domain/chunk"
	"chunk-summarizer/internal/resilience/retry"
	"chunk-summarizer/internal/usecase/summarize"
)

// fakeCapability returns "sum(<text>)" and records every call.
type fakeCapability struct {
	mu    sync.Mutex
	calls []string
	opts  []summarize.GenerationOptions

	// failOn maps segment text to the error returned for it.
	failOn map[string]error
	delay  time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakeCapability) Summarize(ctx context.Context, text string, opts summarize.GenerationOptions) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxInFlight.Load()
		if n <= cur || f.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.opts = append(f.opts, opts)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err, ok := f.failOn[text]; ok {
		return "", err
	}
	return "sum(" + text + ")", nil
}

func (f *fakeCapability) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fixedChunker returns one segment per string.
type fixedChunker []string

func (c fixedChunker) Chunk(text string) ([]chunk.Segment, error) {
	segs := make([]chunk.Segment, len(c))
	for i, s := range c {
		segs[i] = chunk.Segment{Index: i, Text: s, Length: len(s)}
	}
	return segs, nil
}

func newService(t *testing.T, c summarize.Chunker, capability summarize.Capability, mutate func(*summarize.Config)) *summarize.Service {
	t.Helper()
	cfg := summarize.DefaultConfig()
	cfg.Provider = "fake"
	if mutate != nil {
		mutate(&cfg)
	}
	svc, err := summarize.NewService(c, capability, cfg)
	require.NoError(t, err)
	return svc
}

func TestSummarize_SingleSegment(t *testing.T) {
	c, err := chunk.New(1000)
	require.NoError(t, err)
	capability := &fakeCapability{}

	res, err := newService(t, c, capability, nil).Summarize(context.Background(), "A. B. C.")
	require.NoError(t, err)

	assert.Equal(t, "sum(A. B. C.)", res.Summary)
	require.Len(t, res.Segments, 1)
	assert.Equal(t, []string{"A. B. C."}, capability.calls)
	assert.Equal(t, summarize.DefaultGenerationOptions(), capability.opts[0])
}

func TestSummarize_JoinsPartialsInOrder(t *testing.T) {
	capability := &fakeCapability{}
	svc := newService(t, fixedChunker{"one.", "two.", "three."}, capability, nil)

	res, err := svc.Summarize(context.Background(), "ignored")
	require.NoError(t, err)

	assert.Equal(t, "sum(one.) sum(two.) sum(three.)", res.Summary)
	assert.Equal(t, []string{"sum(one.)", "sum(two.)", "sum(three.)"}, res.Partials)
	assert.Equal(t, []string{"one.", "two.", "three."}, capability.calls)
}

func TestSummarize_CustomSeparator(t *testing.T) {
	svc := newService(t, fixedChunker{"a.", "b."}, &fakeCapability{}, func(c *summarize.Config) {
		c.Separator = "\n"
	})

	res, err := svc.Summarize(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "sum(a.)\nsum(b.)", res.Summary)
}

func TestSummarize_EmptyInputSkipsCapability(t *testing.T) {
	for _, input := range []string{"", "   \n\t"} {
		capability := &fakeCapability{}
		svc := newService(t, fixedChunker{"never"}, capability, nil)

		res, err := svc.Summarize(context.Background(), input)
		require.NoError(t, err)
		assert.Empty(t, res.Summary)
		assert.Empty(t, res.Segments)
		assert.Zero(t, capability.callCount())
	}
}

func TestSummarize_SegmentFailureIdentifiesSegment(t *testing.T) {
	boom := errors.New("model crashed")
	capability := &fakeCapability{failOn: map[string]error{"second.": boom}}
	svc := newService(t, fixedChunker{"first.", "second.", "third."}, capability, nil)

	res, err := svc.Summarize(context.Background(), "x")
	require.Error(t, err)
	assert.Nil(t, res)

	var aggErr *summarize.AggregationError
	require.ErrorAs(t, err, &aggErr)
	assert.Equal(t, 2, aggErr.SegmentIndex)
	assert.Equal(t, 3, aggErr.SegmentCount)
	assert.Equal(t, "second.", aggErr.Segment)
	assert.ErrorIs(t, err, summarize.ErrCapabilityFailure)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "segment 2 of 3")

	// sequential mode stops at the first failure
	assert.Equal(t, []string{"first.", "second."}, capability.calls)
}

func TestSummarize_DegenerateOutput(t *testing.T) {
	capability := summarize.CapabilityFunc(func(ctx context.Context, text string, opts summarize.GenerationOptions) (string, error) {
		return "   ", nil
	})
	svc := newService(t, fixedChunker{"only."}, capability, nil)

	_, err := svc.Summarize(context.Background(), "x")
	assert.ErrorIs(t, err, summarize.ErrDegenerateOutput)
	assert.ErrorIs(t, err, summarize.ErrCapabilityFailure)
}

func TestSummarize_TrimsPartials(t *testing.T) {
	capability := summarize.CapabilityFunc(func(ctx context.Context, text string, opts summarize.GenerationOptions) (string, error) {
		return "  " + text + " \n", nil
	})
	svc := newService(t, fixedChunker{"a.", "b."}, capability, nil)

	res, err := svc.Summarize(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "a. b.", res.Summary)
}

func TestSummarize_CallTimeout(t *testing.T) {
	capability := &fakeCapability{delay: time.Second}
	svc := newService(t, fixedChunker{"slow."}, capability, func(c *summarize.Config) {
		c.CallTimeout = 20 * time.Millisecond
	})

	_, err := svc.Summarize(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, summarize.ErrCapabilityTimeout)

	var aggErr *summarize.AggregationError
	require.ErrorAs(t, err, &aggErr)
	assert.Equal(t, 1, aggErr.SegmentIndex)
}

func TestSummarize_CallerCancellationIsNotTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := newService(t, fixedChunker{"a."}, &fakeCapability{}, nil)
	_, err := svc.Summarize(ctx, "x")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, summarize.ErrCapabilityTimeout)
}

func TestSummarize_ParallelPreservesOrder(t *testing.T) {
	segments := make(fixedChunker, 12)
	for i := range segments {
		segments[i] = strings.Repeat("x", i+1) + "."
	}
	capability := &fakeCapability{delay: 10 * time.Millisecond}
	svc := newService(t, segments, capability, func(c *summarize.Config) {
		c.Concurrency = 3
	})

	res, err := svc.Summarize(context.Background(), "x")
	require.NoError(t, err)

	want := make([]string, len(segments))
	for i, s := range segments {
		want[i] = "sum(" + s + ")"
	}
	assert.Equal(t, strings.Join(want, " "), res.Summary)
	assert.Equal(t, len(segments), capability.callCount())
	assert.LessOrEqual(t, capability.maxInFlight.Load(), int32(3))
}

func TestSummarize_ParallelReportsLowestFailingSegment(t *testing.T) {
	capability := &fakeCapability{
		failOn: map[string]error{
			"s2.": errors.New("second failed"),
			"s4.": errors.New("fourth failed"),
		},
	}
	svc := newService(t, fixedChunker{"s1.", "s2.", "s3.", "s4."}, capability, func(c *summarize.Config) {
		c.Concurrency = 4
	})

	_, err := svc.Summarize(context.Background(), "x")
	var aggErr *summarize.AggregationError
	require.ErrorAs(t, err, &aggErr)
	// s4 may or may not run before cancellation; s2 always wins when it does
	assert.Contains(t, []int{2, 4}, aggErr.SegmentIndex)
	if aggErr.SegmentIndex == 4 {
		assert.EqualError(t, aggErr.Err, "fourth failed")
	} else {
		assert.EqualError(t, aggErr.Err, "second failed")
	}
}

func TestSummarize_RetriesTransientFailures(t *testing.T) {
	var attempts atomic.Int32
	capability := summarize.CapabilityFunc(func(ctx context.Context, text string, opts summarize.GenerationOptions) (string, error) {
		if attempts.Add(1) < 3 {
			return "", &retry.HTTPError{StatusCode: 503, Message: "loading"}
		}
		return "ok", nil
	})
	svc := newService(t, fixedChunker{"a."}, capability, func(c *summarize.Config) {
		c.Retry = retry.Config{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			Multiplier:   2.0,
		}
	})

	res, err := svc.Summarize(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Summary)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestSummarize_NoRetryByDefault(t *testing.T) {
	var attempts atomic.Int32
	capability := summarize.CapabilityFunc(func(ctx context.Context, text string, opts summarize.GenerationOptions) (string, error) {
		attempts.Add(1)
		return "", &retry.HTTPError{StatusCode: 503, Message: "loading"}
	})
	svc := newService(t, fixedChunker{"a."}, capability, nil)

	_, err := svc.Summarize(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestSummarize_RejectPolicyPropagates(t *testing.T) {
	c, err := chunk.New(10, chunk.WithOversizePolicy(chunk.OversizeReject))
	require.NoError(t, err)
	capability := &fakeCapability{}

	_, err = newService(t, c, capability, nil).Summarize(context.Background(), "Short. This sentence is far too long.")
	require.Error(t, err)
	assert.ErrorIs(t, err, summarize.ErrOversizedAtomicUnit)

	var unitErr *chunk.OversizedUnitError
	require.ErrorAs(t, err, &unitErr)
	assert.Equal(t, 1, unitErr.UnitIndex)
	assert.Zero(t, capability.callCount())
}

func TestSummarize_OversizedPassthroughReachesCapability(t *testing.T) {
	c, err := chunk.New(1024)
	require.NoError(t, err)
	capability := &fakeCapability{}
	long := strings.Repeat("w", 2000) + "."

	res, err := newService(t, c, capability, nil).Summarize(context.Background(), long)
	require.NoError(t, err)
	require.Len(t, res.Segments, 1)
	assert.True(t, res.Segments[0].Oversized)
	assert.Equal(t, []string{long}, capability.calls)
}

func TestNewService_Validation(t *testing.T) {
	c := fixedChunker{"a."}
	capability := &fakeCapability{}

	tests := []struct {
		name    string
		chunker summarize.Chunker
		capab   summarize.Capability
		mutate  func(*summarize.Config)
	}{
		{name: "nil chunker", chunker: nil, capab: capability},
		{name: "nil capability", chunker: c, capab: nil},
		{name: "zero max length", chunker: c, capab: capability, mutate: func(cfg *summarize.Config) { cfg.Generation.MaxLength = 0 }},
		{name: "min above max", chunker: c, capab: capability, mutate: func(cfg *summarize.Config) { cfg.Generation.MinLength = 60 }},
		{name: "negative concurrency", chunker: c, capab: capability, mutate: func(cfg *summarize.Config) { cfg.Concurrency = -1 }},
		{name: "negative timeout", chunker: c, capab: capability, mutate: func(cfg *summarize.Config) { cfg.CallTimeout = -time.Second }},
		{name: "negative rate", chunker: c, capab: capability, mutate: func(cfg *summarize.Config) { cfg.RequestsPerSecond = -1 }},
		{name: "bad retry", chunker: c, capab: capability, mutate: func(cfg *summarize.Config) { cfg.Retry = retry.Config{MaxAttempts: 3, Multiplier: 0.5} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := summarize.DefaultConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			_, err := summarize.NewService(tt.chunker, tt.capab, cfg)
			assert.ErrorIs(t, err, summarize.ErrInvalidConfiguration)
		})
	}
}

func TestSummarizeFunc(t *testing.T) {
	capability := &fakeCapability{}

	got, err := summarize.Summarize(context.Background(), "A. B. C.", 1000, capability)
	require.NoError(t, err)
	assert.Equal(t, "sum(A. B. C.)", got)

	_, err = summarize.Summarize(context.Background(), "A.", 0, capability)
	assert.ErrorIs(t, err, summarize.ErrInvalidConfiguration)

	got, err = summarize.Summarize(context.Background(), "", 1000, capability)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, capability.callCount())
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, summarize.ValidateRequest("Hello.", 10))
	assert.ErrorIs(t, summarize.ValidateRequest("Hello.", 0), summarize.ErrInvalidConfiguration)
	assert.ErrorIs(t, summarize.ValidateRequest("  ", 10), summarize.ErrInvalidConfiguration)
}

func TestAggregationError_SegmentPreview(t *testing.T) {
	e := &summarize.AggregationError{Segment: "abcdefgh"}
	assert.Equal(t, "abc…", e.SegmentPreview(3))
	assert.Equal(t, "abcdefgh", e.SegmentPreview(20))
}

func TestSummarize_RecordsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})

	svc := newService(t, fixedChunker{"a.", "b."}, &fakeCapability{}, nil)
	_, err := svc.Summarize(context.Background(), "x")
	require.NoError(t, err)

	names := map[string]int{}
	for _, s := range exporter.GetSpans() {
		names[s.Name]++
	}
	assert.Equal(t, 1, names["summarize.document"])
	assert.Equal(t, 2, names["summarize.segment"])
}

func TestSummarize_RateLimiterHonoursDeadline(t *testing.T) {
	capability := &fakeCapability{}
	svc := newService(t, fixedChunker{"first", "second"}, capability, func(c *summarize.Config) {
		c.RequestsPerSecond = 0.001
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := svc.Summarize(ctx, "ignored")
	require.Error(t, err)

	var aggErr *summarize.AggregationError
	require.ErrorAs(t, err, &aggErr)
	assert.Equal(t, 2, aggErr.SegmentIndex)
	assert.ErrorContains(t, err, "rate limiter")
	assert.Equal(t, 1, capability.callCount())
}
