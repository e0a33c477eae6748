package summarize_test

import (
	"context"
	"strings"
	"testing"

	"chunk-summarizer/internal/domain/chunk"
	"chunk-summarizer/internal/usecase/summarize"
)

func benchmarkDocument() string {
	return strings.Repeat("The quick brown fox jumps over the lazy dog near the river bank. ", 400)
}

// BenchmarkService_Summarize_Sequential measures orchestration overhead with an instant capability.
func BenchmarkService_Summarize_Sequential(b *testing.B) {
	benchmarkSummarize(b, 1)
}

// BenchmarkService_Summarize_Parallel measures the errgroup dispatch path.
func BenchmarkService_Summarize_Parallel(b *testing.B) {
	benchmarkSummarize(b, 8)
}

func benchmarkSummarize(b *testing.B, concurrency int) {
	c, err := chunk.New(chunk.DefaultMaxChunkSize)
	if err != nil {
		b.Fatal(err)
	}
	capability := summarize.CapabilityFunc(func(ctx context.Context, text string, opts summarize.GenerationOptions) (string, error) {
		return text[:16], nil
	})
	cfg := summarize.DefaultConfig()
	cfg.Concurrency = concurrency
	svc, err := summarize.NewService(c, capability, cfg)
	if err != nil {
		b.Fatal(err)
	}
	doc := benchmarkDocument()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Summarize(ctx, doc); err != nil {
			b.Fatal(err)
		}
	}
}
