package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chunk-summarizer/internal/handler/http/requestid"
	"chunk-summarizer/internal/observability/tracing"
	sumUC "chunk-summarizer/internal/usecase/summarize"
)

type stubPipeline struct {
	delay time.Duration
}

func (s stubPipeline) Summarize(ctx context.Context, text string, _ int) (*sumUC.Result, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &sumUC.Result{Summary: strings.ToUpper(text)}, nil
}

func newTestRouter(cfg RouterConfig) http.Handler {
	if cfg.Pipeline == nil {
		cfg.Pipeline = stubPipeline{}
	}
	return NewRouter(cfg)
}

func TestRouter_Summarize(t *testing.T) {
	router := newTestRouter(RouterConfig{MaxRequestBytes: 1024, RequestTimeout: time.Second})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/summarize", strings.NewReader(`{"text":"hello."}`)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["summary"] != "HELLO." {
		t.Errorf("summary = %v", body["summary"])
	}
	if rr.Header().Get(requestid.RequestIDHeader) == "" {
		t.Error("missing request ID header")
	}
	if rr.Header().Get(tracing.TraceIDHeader) == "" {
		t.Error("missing trace ID header")
	}
}

func TestRouter_BodyLimit(t *testing.T) {
	router := newTestRouter(RouterConfig{MaxRequestBytes: 16})

	rr := httptest.NewRecorder()
	body := `{"text":"` + strings.Repeat("a", 64) + `"}`
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/summarize", strings.NewReader(body)))

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rr.Code)
	}
}

func TestRouter_RequestTimeout(t *testing.T) {
	router := newTestRouter(RouterConfig{
		Pipeline:       stubPipeline{delay: time.Second},
		RequestTimeout: 20 * time.Millisecond,
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/summarize", strings.NewReader(`{"text":"x"}`)))

	if rr.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", rr.Code)
	}
}

func TestRouter_RateLimitOnlyOnSummarize(t *testing.T) {
	router := newTestRouter(RouterConfig{RateLimitRPS: 0.001, RateLimitBurst: 1})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/summarize", strings.NewReader(`{"text":"x"}`)))
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("summarize codes = %v, want [200 429]", codes)
	}

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/live", nil))
		if rr.Code != http.StatusOK {
			t.Errorf("/live request %d: status = %d", i+1, rr.Code)
		}
	}
}

func TestRouter_Routes(t *testing.T) {
	router := newTestRouter(RouterConfig{Version: "test"})

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/live", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/summarize", http.StatusMethodNotAllowed},
		{http.MethodGet, "/articles", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), mw("outer"), mw("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	want := []string{"outer", "inner", "handler"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", order, want)
	}
}
