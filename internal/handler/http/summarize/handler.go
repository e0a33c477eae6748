// Package summarize exposes the summarization pipeline over HTTP.
package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"chunk-summarizer/internal/domain/chunk"
	"chunk-summarizer/internal/handler/http/respond"
	"chunk-summarizer/internal/infra/fetcher"
	"chunk-summarizer/internal/observability/logging"
	sumUC "chunk-summarizer/internal/usecase/summarize"
)

// Pipeline summarizes text. maxChunkSize 0 selects the configured size.
type Pipeline interface {
	Summarize(ctx context.Context, text string, maxChunkSize int) (*sumUC.Result, error)
}

// DocumentFetcher downloads the text behind a URL.
type DocumentFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Document, error)
}

// Handler serves POST /summarize.
type Handler struct {
	Pipeline  Pipeline
	Documents DocumentFetcher
	Logger    *slog.Logger
}

// ServeHTTP 要約リクエストを処理する
func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.SafeError(w, http.StatusRequestEntityTooLarge,
				fmt.Errorf("request body too large (limit %d bytes)", maxErr.Limit))
			return
		}
		respond.SafeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return
	}

	hasText := strings.TrimSpace(req.Text) != ""
	hasURL := strings.TrimSpace(req.URL) != ""
	if hasText == hasURL {
		respond.SafeError(w, http.StatusBadRequest, errors.New("exactly one of text or url is required"))
		return
	}

	maxChunkSize := 0
	if req.MaxChunkSize != nil {
		maxChunkSize = *req.MaxChunkSize
		if maxChunkSize <= 0 {
			respond.SafeError(w, http.StatusBadRequest,
				fmt.Errorf("max_chunk_size must be positive, got %d", maxChunkSize))
			return
		}
	}

	ctx := r.Context()
	logger := h.logger(ctx)
	resp := Response{}

	text := req.Text
	if hasURL {
		if h.Documents == nil {
			respond.SafeError(w, http.StatusBadRequest, respond.NewAppError(http.StatusBadRequest, "url input is not enabled", nil))
			return
		}
		doc, err := h.Documents.Fetch(ctx, strings.TrimSpace(req.URL))
		if err != nil {
			writeFetchError(w, err)
			return
		}
		text = doc.Text
		resp.SourceURL = doc.URL
		resp.Title = doc.Title
	}

	result, err := h.Pipeline.Summarize(ctx, text, maxChunkSize)
	if err != nil {
		writeSummarizeError(ctx, w, logger, err)
		return
	}

	resp.Summary = result.Summary
	resp.SegmentCount = len(result.Segments)
	resp.DurationMS = result.Duration.Milliseconds()
	if req.IncludeSegments {
		resp.Segments = make([]SegmentDTO, len(result.Segments))
		for i, seg := range result.Segments {
			resp.Segments[i] = SegmentDTO{
				Index:     seg.Index + 1,
				Length:    seg.Length,
				Oversized: seg.Oversized,
				Partial:   result.Partials[i],
			}
		}
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h Handler) logger(ctx context.Context) *slog.Logger {
	if h.Logger != nil {
		return logging.WithRequestID(ctx, h.Logger)
	}
	return logging.FromContext(ctx)
}

func writeSummarizeError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		aggErr  *sumUC.AggregationError
		unitErr *chunk.OversizedUnitError
	)

	switch {
	case errors.Is(err, sumUC.ErrInvalidConfiguration):
		respond.SafeError(w, http.StatusBadRequest, err)

	case errors.As(err, &unitErr):
		respond.SafeError(w, http.StatusUnprocessableEntity, &respond.AppError{
			Code:    http.StatusUnprocessableEntity,
			UserMsg: "a sentence is longer than max_chunk_size",
			Err:     err,
			Details: map[string]any{
				"unit_index":     unitErr.UnitIndex + 1,
				"unit_length":    unitErr.Length,
				"max_chunk_size": unitErr.MaxChunkSize,
			},
		})

	case errors.As(err, &aggErr):
		code, msg := http.StatusBadGateway, "summarization backend failed"
		switch {
		case errors.Is(err, sumUC.ErrCapabilityTimeout), errors.Is(err, context.DeadlineExceeded):
			code, msg = http.StatusGatewayTimeout, "summarization backend timed out"
		case errors.Is(err, sumUC.ErrInputTooLong):
			code, msg = http.StatusUnprocessableEntity, "segment exceeds the backend input limit"
		case errors.Is(err, context.Canceled):
			code, msg = http.StatusServiceUnavailable, "request canceled"
		}
		logger.WarnContext(ctx, "summarization aborted",
			slog.Int("segment_index", aggErr.SegmentIndex),
			slog.String("segment_preview", aggErr.SegmentPreview(80)))
		respond.SafeError(w, code, &respond.AppError{
			Code:    code,
			UserMsg: msg,
			Err:     err,
			Details: map[string]any{
				"segment_index": aggErr.SegmentIndex,
				"segment_count": aggErr.SegmentCount,
			},
		})

	case errors.Is(err, context.DeadlineExceeded):
		respond.SafeError(w, http.StatusGatewayTimeout, respond.NewAppError(http.StatusGatewayTimeout, "request timeout", err))

	default:
		respond.SafeError(w, http.StatusInternalServerError, err)
	}
}

func writeFetchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fetcher.ErrInvalidURL), errors.Is(err, fetcher.ErrPrivateIP):
		respond.SafeError(w, http.StatusBadRequest, respond.NewAppError(http.StatusBadRequest, "invalid url", err))
	case errors.Is(err, fetcher.ErrBodyTooLarge), errors.Is(err, fetcher.ErrUnsupportedContentType), errors.Is(err, fetcher.ErrNoContent):
		respond.SafeError(w, http.StatusUnprocessableEntity, respond.NewAppError(http.StatusUnprocessableEntity, "document cannot be summarized", err))
	case errors.Is(err, fetcher.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		respond.SafeError(w, http.StatusGatewayTimeout, respond.NewAppError(http.StatusGatewayTimeout, "document fetch timed out", err))
	default:
		respond.SafeError(w, http.StatusBadGateway, respond.NewAppError(http.StatusBadGateway, "failed to fetch document", err))
	}
}
