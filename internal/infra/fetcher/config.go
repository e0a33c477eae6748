package fetcher

import (
	"fmt"
	"time"
)

// Config controls document fetching for URL input.
type Config struct {
	// Timeout is the maximum duration for a single HTTP request.
	// Default: 10s
	Timeout time.Duration

	// MaxBodySize is the maximum response body size in bytes, enforced while reading.
	// Default: 10MB
	MaxBodySize int64

	// MaxRedirects is the maximum number of redirects to follow. Each target is validated.
	// Default: 5
	MaxRedirects int

	// DenyPrivateIPs rejects URLs resolving to private, loopback or link-local addresses.
	// Should always be true in production.
	DenyPrivateIPs bool

	// UserAgent is sent with every request.
	UserAgent string
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:        10 * time.Second,
		MaxBodySize:    10 * 1024 * 1024,
		MaxRedirects:   5,
		DenyPrivateIPs: true,
		UserAgent:      "ChunkSummarizerBot/1.0",
	}
}

// Validate checks the configuration.
//
// Validation rules:
//   - Timeout: > 0
//   - MaxBodySize: 1KB-100MB
//   - MaxRedirects: 0-10
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.MaxBodySize < 1024 || c.MaxBodySize > 100*1024*1024 {
		return fmt.Errorf("max body size must be between 1KB and 100MB, got %d", c.MaxBodySize)
	}
	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}
	return nil
}
