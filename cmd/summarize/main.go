// Package main provides a CLI that summarizes a document with the chunk-and-aggregate pipeline.
//
// Usage:
//
//	summarize [-file path | -url URL] [-max-chunk-size N] [-concurrency N]
//	          [-provider name] [-output text|json] [-show-segments] [-config path]
//
// With neither -file nor -url the text is read from stdin.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chunk-summarizer/internal/app"
	"chunk-summarizer/internal/config"
	"chunk-summarizer/internal/domain/chunk"
	"chunk-summarizer/internal/observability/logging"
	"chunk-summarizer/internal/usecase/summarize"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type options struct {
	file         string
	url          string
	maxChunkSize int
	concurrency  int
	provider     string
	output       string
	showSegments bool
	configPath   string
	timeout      time.Duration
}

// SummaryOutput is the JSON output format.
type SummaryOutput struct {
	Summary      string          `json:"summary"`
	SegmentCount int             `json:"segment_count"`
	DurationMS   int64           `json:"duration_ms"`
	Source       string          `json:"source"`
	Segments     []SegmentOutput `json:"segments,omitempty"`
}

// SegmentOutput describes one segment in JSON output.
type SegmentOutput struct {
	Index     int    `json:"index"`
	Length    int    `json:"length"`
	Oversized bool   `json:"oversized"`
	Partial   string `json:"partial"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	// ログは stderr に出し、stdout は要約専用にする
	logger := logging.New(stderr, cfg.Logging.Format, cfg.Logging.Level)
	slog.SetDefault(logger)

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("failed to release pipeline resources", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	text, source, err := readInput(ctx, a, opts, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	if err := summarize.ValidateRequest(text, cfg.Chunk.MaxChunkSize); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	result, err := a.Summarize(ctx, text, 0)
	if err != nil {
		reportError(stderr, err)
		return exitFailure
	}

	if err := writeResult(stdout, opts, source, result); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	return exitOK
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("summarize", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.file, "file", "", "read the document from this file")
	fs.StringVar(&opts.url, "url", "", "fetch the document from this URL")
	fs.IntVar(&opts.maxChunkSize, "max-chunk-size", 0, "segment size bound (default from config: 1024)")
	fs.IntVar(&opts.concurrency, "concurrency", 0, "in-flight backend calls; 1 is sequential (default from config)")
	fs.StringVar(&opts.provider, "provider", "", "huggingface, claude, openai or extractive (default from config)")
	fs.StringVar(&opts.output, "output", "text", "output format: text or json")
	fs.BoolVar(&opts.showSegments, "show-segments", false, "include per-segment partial summaries")
	fs.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	fs.DurationVar(&opts.timeout, "timeout", 0, "overall deadline, e.g. 5m (default none)")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.file != "" && opts.url != "" {
		return opts, errors.New("-file and -url are mutually exclusive")
	}
	if opts.output != "text" && opts.output != "json" {
		return opts, fmt.Errorf("invalid -output %q (must be text or json)", opts.output)
	}
	if opts.maxChunkSize < 0 || opts.concurrency < 0 {
		return opts, errors.New("-max-chunk-size and -concurrency must not be negative")
	}
	return opts, nil
}

// loadConfig applies flag overrides on top of the file and environment configuration.
func loadConfig(opts options) (*config.SummarizeConfig, error) {
	return config.LoadSummarizeConfig(opts.configPath, func(cfg *config.SummarizeConfig) {
		if opts.maxChunkSize > 0 {
			cfg.Chunk.MaxChunkSize = opts.maxChunkSize
		}
		if opts.concurrency > 0 {
			cfg.Aggregation.Concurrency = opts.concurrency
		}
		if opts.provider != "" {
			cfg.Provider.Name = opts.provider
		}
	})
}

func readInput(ctx context.Context, a *app.App, opts options, stdin io.Reader) (text, source string, err error) {
	switch {
	case opts.url != "":
		doc, err := a.Fetcher.Fetch(ctx, opts.url)
		if err != nil {
			return "", "", fmt.Errorf("fetch %s: %w", opts.url, err)
		}
		return doc.Text, doc.URL, nil
	case opts.file != "":
		// #nosec G304 -- path supplied by the operator on the command line
		data, err := os.ReadFile(opts.file)
		if err != nil {
			return "", "", fmt.Errorf("read input file: %w", err)
		}
		return string(data), opts.file, nil
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), "stdin", nil
	}
}

// reportError prints err with the failing segment or sentence position when known.
func reportError(w io.Writer, err error) {
	var (
		aggErr  *summarize.AggregationError
		unitErr *chunk.OversizedUnitError
	)
	switch {
	case errors.As(err, &aggErr):
		fmt.Fprintf(w, "Error: segment %d of %d failed: %v\n", aggErr.SegmentIndex, aggErr.SegmentCount, aggErr.Err)
		fmt.Fprintf(w, "  segment: %q\n", aggErr.SegmentPreview(80))
	case errors.As(err, &unitErr):
		fmt.Fprintf(w, "Error: sentence %d has length %d, above max chunk size %d\n",
			unitErr.UnitIndex+1, unitErr.Length, unitErr.MaxChunkSize)
	default:
		fmt.Fprintf(w, "Error: summarize failed: %v\n", err)
	}
}

func writeResult(w io.Writer, opts options, source string, result *summarize.Result) error {
	if opts.output == "json" {
		out := SummaryOutput{
			Summary:      result.Summary,
			SegmentCount: len(result.Segments),
			DurationMS:   result.Duration.Milliseconds(),
			Source:       source,
		}
		if opts.showSegments {
			out.Segments = make([]SegmentOutput, len(result.Segments))
			for i, seg := range result.Segments {
				out.Segments[i] = SegmentOutput{
					Index:     seg.Index + 1,
					Length:    seg.Length,
					Oversized: seg.Oversized,
					Partial:   result.Partials[i],
				}
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if opts.showSegments {
		for i, seg := range result.Segments {
			marker := ""
			if seg.Oversized {
				marker = " (oversized)"
			}
			if _, err := fmt.Fprintf(w, "[%d/%d] length %d%s\n  %s\n", seg.Index+1, len(result.Segments), seg.Length, marker, result.Partials[i]); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, result.Summary)
	return err
}
