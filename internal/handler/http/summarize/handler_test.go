package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chunk-summarizer/internal/domain/chunk"
	"chunk-summarizer/internal/infra/fetcher"
	sumUC "chunk-summarizer/internal/usecase/summarize"
)

type fakePipeline struct {
	gotText string
	gotMax  int
	result  *sumUC.Result
	err     error
}

func (f *fakePipeline) Summarize(_ context.Context, text string, maxChunkSize int) (*sumUC.Result, error) {
	f.gotText, f.gotMax = text, maxChunkSize
	return f.result, f.err
}

type fakeFetcher struct {
	doc *fetcher.Document
	err error
}

func (f fakeFetcher) Fetch(_ context.Context, _ string) (*fetcher.Document, error) {
	return f.doc, f.err
}

func twoSegmentResult() *sumUC.Result {
	return &sumUC.Result{
		Summary: "first partial second partial",
		Segments: []chunk.Segment{
			{Index: 0, Text: "A.", Length: 2},
			{Index: 1, Text: "B.", Length: 2},
		},
		Partials: []string{"first partial", "second partial"},
		Duration: 1500 * time.Millisecond,
	}
}

func do(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/summarize", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return rr, out
}

func TestHandler_Text(t *testing.T) {
	p := &fakePipeline{result: twoSegmentResult()}
	rr, out := do(t, Handler{Pipeline: p}, `{"text":"A. B.","max_chunk_size":3,"include_segments":true}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "A. B.", p.gotText)
	assert.Equal(t, 3, p.gotMax)
	assert.Equal(t, "first partial second partial", out["summary"])
	assert.Equal(t, float64(2), out["segment_count"])
	assert.Equal(t, float64(1500), out["duration_ms"])

	segments := out["segments"].([]any)
	require.Len(t, segments, 2)
	second := segments[1].(map[string]any)
	assert.Equal(t, float64(2), second["index"])
	assert.Equal(t, "second partial", second["partial"])
}

func TestHandler_OmitsSegmentsByDefault(t *testing.T) {
	p := &fakePipeline{result: twoSegmentResult()}
	_, out := do(t, Handler{Pipeline: p}, `{"text":"A. B."}`)

	assert.NotContains(t, out, "segments")
	assert.Equal(t, 0, p.gotMax)
}

func TestHandler_URL(t *testing.T) {
	p := &fakePipeline{result: &sumUC.Result{Summary: "s"}}
	f := fakeFetcher{doc: &fetcher.Document{URL: "https://example.com/a", Title: "A", Text: "Fetched text."}}

	rr, out := do(t, Handler{Pipeline: p, Documents: f}, `{"url":"https://example.com/a"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Fetched text.", p.gotText)
	assert.Equal(t, "https://example.com/a", out["source_url"])
	assert.Equal(t, "A", out["title"])
}

func TestHandler_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "malformed json", body: `{"text":`, want: "invalid JSON body"},
		{name: "unknown field", body: `{"txt":"a"}`, want: "invalid JSON body"},
		{name: "neither text nor url", body: `{}`, want: "exactly one of text or url is required"},
		{name: "blank text", body: `{"text":"   "}`, want: "exactly one of text or url is required"},
		{name: "both", body: `{"text":"a","url":"https://x"}`, want: "exactly one of text or url is required"},
		{name: "zero max chunk size", body: `{"text":"a","max_chunk_size":0}`, want: "max_chunk_size must be positive"},
		{name: "url disabled", body: `{"url":"https://x"}`, want: "url input is not enabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, out := do(t, Handler{Pipeline: &fakePipeline{}}, tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, out["error"], tt.want)
		})
	}
}

func TestHandler_BodyTooLarge(t *testing.T) {
	h := Handler{Pipeline: &fakePipeline{}}
	req := httptest.NewRequest(http.MethodPost, "/summarize", bytes.NewReader([]byte(`{"text":"`+strings.Repeat("a", 100)+`"}`)))
	rr := httptest.NewRecorder()
	req.Body = http.MaxBytesReader(rr, req.Body, 16)

	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestHandler_SummarizeErrors(t *testing.T) {
	aggErr := func(cause error) error {
		return &sumUC.AggregationError{SegmentIndex: 2, SegmentCount: 3, Segment: "B.", Err: cause}
	}

	tests := []struct {
		name        string
		err         error
		wantCode    int
		wantMessage string
		wantDetails map[string]any
	}{
		{
			name:        "invalid configuration",
			err:         fmt.Errorf("%w: max chunk size must be positive", sumUC.ErrInvalidConfiguration),
			wantCode:    http.StatusBadRequest,
			wantMessage: "invalid configuration: max chunk size must be positive",
		},
		{
			name:        "oversized unit rejected",
			err:         fmt.Errorf("chunk input: %w", &chunk.OversizedUnitError{UnitIndex: 0, Length: 40, MaxChunkSize: 10}),
			wantCode:    http.StatusUnprocessableEntity,
			wantMessage: "a sentence is longer than max_chunk_size",
			wantDetails: map[string]any{"unit_index": float64(1), "unit_length": float64(40), "max_chunk_size": float64(10)},
		},
		{
			name:        "capability failure",
			err:         aggErr(errors.New("HTTP 500: boom")),
			wantCode:    http.StatusBadGateway,
			wantMessage: "summarization backend failed",
			wantDetails: map[string]any{"segment_index": float64(2), "segment_count": float64(3)},
		},
		{
			name:        "capability timeout",
			err:         aggErr(fmt.Errorf("%w after 1s: %w", sumUC.ErrCapabilityTimeout, context.DeadlineExceeded)),
			wantCode:    http.StatusGatewayTimeout,
			wantMessage: "summarization backend timed out",
		},
		{
			name:        "input too long",
			err:         aggErr(sumUC.ErrInputTooLong),
			wantCode:    http.StatusUnprocessableEntity,
			wantMessage: "segment exceeds the backend input limit",
		},
		{
			name:        "unexpected",
			err:         errors.New("sk-ant-secret leaked"),
			wantCode:    http.StatusInternalServerError,
			wantMessage: "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, out := do(t, Handler{Pipeline: &fakePipeline{err: tt.err}}, `{"text":"A. B. C."}`)
			assert.Equal(t, tt.wantCode, rr.Code)
			assert.Equal(t, tt.wantMessage, out["error"])
			if tt.wantDetails != nil {
				assert.Equal(t, tt.wantDetails, out["details"])
			}
		})
	}
}

func TestHandler_FetchErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: fmt.Errorf("%w: scheme", fetcher.ErrInvalidURL), want: http.StatusBadRequest},
		{err: fetcher.ErrPrivateIP, want: http.StatusBadRequest},
		{err: fetcher.ErrNoContent, want: http.StatusUnprocessableEntity},
		{err: fetcher.ErrTimeout, want: http.StatusGatewayTimeout},
		{err: errors.New("connection refused"), want: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			h := Handler{Pipeline: &fakePipeline{}, Documents: fakeFetcher{err: tt.err}}
			rr, _ := do(t, h, `{"url":"https://example.com"}`)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}
