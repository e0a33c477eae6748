// Package retry provides retry logic with exponential backoff and jitter
// for calls to the summarization capability.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"syscall"
	"time"
)

// Config holds the configuration for retry logic.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first one.
	// A value of 1 disables retrying.
	MaxAttempts int

	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries
	MaxDelay time.Duration

	// Multiplier is the multiplier for exponential backoff
	Multiplier float64

	// JitterFraction is the fraction of delay to add as random jitter (0.0 to 1.0)
	JitterFraction float64
}

// NoRetry returns a configuration that performs exactly one attempt.
// This is the default for per-segment capability calls.
func NoRetry() Config {
	return Config{
		MaxAttempts:    1,
		InitialDelay:   0,
		MaxDelay:       0,
		Multiplier:     1.0,
		JitterFraction: 0,
	}
}

// CapabilityConfig returns configuration for remote summarization calls when retry is enabled.
// Moderate retry: inference endpoints are shared and throttle aggressively.
func CapabilityConfig(maxAttempts int) Config {
	return Config{
		MaxAttempts:    maxAttempts,
		InitialDelay:   2 * time.Second,
		MaxDelay:       10 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// FetchConfig returns configuration for downloading source documents.
func FetchConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   1 * time.Second,
		MaxDelay:       10 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.MaxAttempts > 1 {
		if c.InitialDelay < 0 || c.MaxDelay < c.InitialDelay {
			return fmt.Errorf("retry delays invalid: initial=%s max=%s", c.InitialDelay, c.MaxDelay)
		}
		if c.Multiplier < 1.0 {
			return fmt.Errorf("retry multiplier must be >= 1.0, got %g", c.Multiplier)
		}
	}
	if c.JitterFraction < 0 || c.JitterFraction > 1 {
		return fmt.Errorf("retry jitter fraction must be within [0, 1], got %g", c.JitterFraction)
	}
	return nil
}

// WithBackoff executes fn with retry logic and exponential backoff.
// It returns nil if fn succeeds, the error itself if it is not retryable,
// or the last error wrapped once all attempts are used.
func WithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()

		if lastErr == nil {
			if attempt > 1 {
				slog.InfoContext(ctx, "operation succeeded after retry",
					slog.Int("attempt", attempt))
			}
			return nil
		}

		// single-attempt mode returns the error untouched
		if attempts == 1 {
			return lastErr
		}

		if !IsRetryable(lastErr) {
			slog.WarnContext(ctx, "non-retryable error, aborting",
				slog.Int("attempt", attempt),
				slog.Any("error", lastErr))
			return lastErr
		}

		if attempt == attempts {
			break
		}

		slog.WarnContext(ctx, "operation failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Duration("delay", delay),
			slog.Any("error", lastErr))

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}

		// jitter keeps parallel segment calls from retrying in lockstep
		delay = addJitter(delay, cfg.JitterFraction)
	}

	return fmt.Errorf("max retry attempts (%d) exceeded: %w", attempts, lastErr)
}

// IsRetryable determines if an error is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context errors are not retryable
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Temporary()
	}

	return false
}

// HTTPError represents a failed HTTP exchange with the status code the upstream returned.
type HTTPError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether the status indicates a transient condition:
// 5xx, 429 Too Many Requests, or 408 Request Timeout.
func (e *HTTPError) Temporary() bool {
	switch {
	case e.StatusCode >= 500 && e.StatusCode < 600:
		return true
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode == http.StatusRequestTimeout:
		return true
	default:
		return false
	}
}

// addJitter adds random jitter to a duration.
func addJitter(duration time.Duration, jitterFraction float64) time.Duration {
	if jitterFraction <= 0 {
		return duration
	}
	if jitterFraction > 1.0 {
		jitterFraction = 1.0
	}
	// #nosec G404 -- jitter does not need cryptographic randomness.
	jitter := time.Duration(rand.Float64() * float64(duration) * jitterFraction)
	return duration + jitter
}
