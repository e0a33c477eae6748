// Package fetcher downloads documents for URL input and extracts their readable
// text with go-readability, falling back to a goquery body scrape.
package fetcher

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"chunk-summarizer/internal/observability/metrics"
	"chunk-summarizer/internal/resilience/circuitbreaker"
	"chunk-summarizer/internal/resilience/retry"
)

// Document is the extracted text of a fetched page.
type Document struct {
	URL   string
	Title string
	Text  string
}

// Fetcher fetches documents with SSRF protection, size limits, a circuit
// breaker and retry on transient failures. It is safe for concurrent use.
type Fetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	resolver       resolver
	config         Config
}

// New creates a Fetcher. Every redirect target is validated like the original URL.
func New(cfg Config) *Fetcher {
	f := &Fetcher{
		circuitBreaker: circuitbreaker.New(circuitbreaker.FetchConfig()),
		retryConfig:    retry.FetchConfig(),
		resolver:       net.DefaultResolver,
		config:         cfg,
	}

	f.client = &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > f.config.MaxRedirects {
				return fmt.Errorf("%w: %d redirects", ErrTooManyRedirects, len(via))
			}
			if _, err := validateURL(req.Context(), f.resolver, req.URL.String(), f.config.DenyPrivateIPs); err != nil {
				return fmt.Errorf("redirect target validation failed: %w", err)
			}
			return nil
		},
	}
	return f
}

// Fetch downloads rawURL and returns its readable text.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	if _, err := validateURL(ctx, f.resolver, rawURL, f.config.DenyPrivateIPs); err != nil {
		metrics.RecordDocumentFetch(false)
		return nil, err
	}

	var doc *Document
	err := retry.WithBackoff(ctx, f.retryConfig, func() error {
		d, err := circuitbreaker.Call(f.circuitBreaker, func() (*Document, error) {
			return f.doFetch(ctx, rawURL)
		})
		if err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		metrics.RecordDocumentFetch(false)
		slog.WarnContext(ctx, "document fetch failed",
			slog.String("url", rawURL),
			slog.Any("error", err))
		return nil, err
	}

	metrics.RecordDocumentFetch(true)
	slog.InfoContext(ctx, "document fetched",
		slog.String("url", doc.URL),
		slog.Int("text_length", len(doc.Text)))
	return doc, nil
}

func (f *Fetcher) doFetch(ctx context.Context, rawURL string) (*Document, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		var netErr net.Error
		timedOut := errors.Is(reqCtx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())
		if timedOut && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: request exceeded %v", ErrTimeout, f.config.Timeout)
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) && (errors.Is(urlErr.Err, ErrTooManyRedirects) ||
			errors.Is(urlErr.Err, ErrPrivateIP) || errors.Is(urlErr.Err, ErrInvalidURL)) {
			return nil, urlErr.Err
		}
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > f.config.MaxBodySize {
		return nil, fmt.Errorf("%w: response exceeds limit %d bytes", ErrBodyTooLarge, f.config.MaxBodySize)
	}

	finalURL := resp.Request.URL
	doc := &Document{URL: finalURL.String()}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch {
	case mediaType == "text/plain":
		doc.Text = normalizeSpace(string(body))
	case mediaType == "" || mediaType == "text/html" || mediaType == "application/xhtml+xml":
		doc.Title, doc.Text, err = extract(body, finalURL)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContentType, mediaType)
	}

	if doc.Text == "" {
		return nil, ErrNoContent
	}
	return doc, nil
}

// extract runs readability and falls back to the page body when it finds nothing.
func extract(body []byte, pageURL *url.URL) (title, text string, err error) {
	article, rerr := readability.FromReader(bytes.NewReader(body), pageURL)
	if rerr == nil {
		if t := normalizeSpace(article.TextContent); t != "" {
			return article.Title, t, nil
		}
	}

	slog.Debug("readability found no content, falling back to body text",
		slog.String("url", pageURL.String()),
		slog.Any("readability_error", rerr))

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("%w: parse HTML: %v", ErrNoContent, err)
	}
	doc.Find("script, style, noscript, nav, header, footer, aside").Remove()

	sel := doc.Find("article")
	if sel.Length() == 0 {
		sel = doc.Find("main")
	}
	if sel.Length() == 0 {
		sel = doc.Find("body")
	}
	return strings.TrimSpace(doc.Find("title").First().Text()), normalizeSpace(sel.Text()), nil
}

// normalizeSpace collapses whitespace runs so sentence delimiters survive line breaks.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Close releases idle connections.
func (f *Fetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// Breaker exposes the circuit breaker for health reporting.
func (f *Fetcher) Breaker() *circuitbreaker.CircuitBreaker {
	return f.circuitBreaker
}
