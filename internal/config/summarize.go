// Package config loads the summarizer configuration from defaults, an optional
// YAML file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	pkgconfig "chunk-summarizer/pkg/config"
)

// Provider names.
const (
	ProviderHuggingFace = "huggingface"
	ProviderClaude      = "claude"
	ProviderOpenAI      = "openai"
	ProviderExtractive  = "extractive"
)

// ConfigFileEnv names the environment variable pointing at an optional YAML file.
const ConfigFileEnv = "SUMMARIZER_CONFIG_FILE"

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// SummarizeConfig holds everything needed to build the summarization pipeline.
type SummarizeConfig struct {
	Chunk       ChunkConfig       `yaml:"chunk"`
	Generation  GenerationConfig  `yaml:"generation"`
	Aggregation AggregationConfig `yaml:"aggregation"`
	Provider    ProviderConfig    `yaml:"provider"`
	Fetch       FetchConfig       `yaml:"fetch"`
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ChunkConfig controls how input text is split into segments.
type ChunkConfig struct {
	// MaxChunkSize is the segment size bound. Default: 1024
	MaxChunkSize int `yaml:"max_chunk_size"`
	// LengthUnit is runes, bytes or tokens. Default: runes
	LengthUnit string `yaml:"length_unit"`
	// Splitter is delimiter or abbreviation. Default: delimiter
	Splitter string `yaml:"splitter"`
	// OversizePolicy is passthrough, reject or split. Default: passthrough
	OversizePolicy string `yaml:"oversize_policy"`
	// Abbreviations extends the abbreviation splitter's built-in list.
	Abbreviations []string `yaml:"abbreviations"`
}

// GenerationConfig holds the per-segment generation bounds.
type GenerationConfig struct {
	// MaxLength of a partial summary in output units. Default: 50
	MaxLength int `yaml:"max_length"`
	// MinLength of a partial summary in output units. Default: 25
	MinLength int `yaml:"min_length"`
	// Deterministic disables sampling. Default: true
	Deterministic bool `yaml:"deterministic"`
}

// AggregationConfig controls how segments are dispatched to the capability.
type AggregationConfig struct {
	// Concurrency is the number of in-flight capability calls. 1 = sequential. Default: 1
	Concurrency int `yaml:"concurrency"`
	// CallTimeout bounds each capability call. Default: 60s
	CallTimeout time.Duration `yaml:"call_timeout"`
	// RetryAttempts is the total attempts per segment. 1 = no retry. Default: 1
	RetryAttempts int `yaml:"retry_attempts"`
	// RequestsPerSecond throttles capability calls. 0 = unlimited. Default: 0
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// Separator joins partial summaries. Default: " "
	Separator string `yaml:"separator"`
}

// ProviderConfig selects and configures the summarization backend.
type ProviderConfig struct {
	// Name is huggingface, claude, openai or extractive. Default: huggingface
	Name string `yaml:"name"`
	// Model overrides the provider's default model.
	Model string `yaml:"model"`
	// BaseURL overrides the provider's API endpoint.
	BaseURL string `yaml:"base_url"`
	// APIKey is only read from the environment.
	APIKey string `yaml:"-"`
	// Timeout bounds a single HTTP exchange with the backend. Default: 60s
	Timeout time.Duration `yaml:"timeout"`
}

// FetchConfig controls URL input.
type FetchConfig struct {
	// Timeout for downloading a document. Default: 10s
	Timeout time.Duration `yaml:"timeout"`
	// MaxBodySize caps the downloaded body in bytes. Default: 10MB
	MaxBodySize int64 `yaml:"max_body_size"`
	// DenyPrivateIPs blocks loopback and private destinations. Default: true
	DenyPrivateIPs bool `yaml:"deny_private_ips"`
}

// ServerConfig configures cmd/api.
type ServerConfig struct {
	// Addr to listen on. Default: :8080
	Addr string `yaml:"addr"`
	// MaxRequestBytes caps the request body. Default: 5MB
	MaxRequestBytes int64 `yaml:"max_request_bytes"`
	// RequestTimeout bounds one summarization request. Default: 5m
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// ShutdownTimeout for graceful shutdown. Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// RateLimitRPS is the per-client request rate. 0 disables limiting. Default: 1
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
	// RateLimitBurst is the per-client burst. Default: 5
	RateLimitBurst int `yaml:"rate_limit_burst"`
	// TrustProxyHeaders keys the rate limiter on X-Forwarded-For / X-Real-IP. Default: false
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	// Level is debug, info, warn or error. Default: info
	Level string `yaml:"level"`
	// Format is json or text. Default: json
	Format string `yaml:"format"`
}

// DefaultSummarizeConfig returns the built-in defaults.
func DefaultSummarizeConfig() *SummarizeConfig {
	return &SummarizeConfig{
		Chunk: ChunkConfig{
			MaxChunkSize:   1024,
			LengthUnit:     "runes",
			Splitter:       "delimiter",
			OversizePolicy: "passthrough",
		},
		Generation: GenerationConfig{
			MaxLength:     50,
			MinLength:     25,
			Deterministic: true,
		},
		Aggregation: AggregationConfig{
			Concurrency:       1,
			CallTimeout:       60 * time.Second,
			RetryAttempts:     1,
			RequestsPerSecond: 0,
			Separator:         " ",
		},
		Provider: ProviderConfig{
			Name:    ProviderHuggingFace,
			Timeout: 60 * time.Second,
		},
		Fetch: FetchConfig{
			Timeout:        10 * time.Second,
			MaxBodySize:    10 * 1024 * 1024,
			DenyPrivateIPs: true,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			MaxRequestBytes: 5 * 1024 * 1024,
			RequestTimeout:  5 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
			RateLimitRPS:    1,
			RateLimitBurst:  5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadSummarizeConfig builds the configuration. If path is empty, SUMMARIZER_CONFIG_FILE
// is consulted; if that is empty too, no file is read.
// Overrides run after the environment is applied and before the provider's
// credentials are resolved, so a command-line provider choice picks up its own API key.
func LoadSummarizeConfig(path string, overrides ...func(*SummarizeConfig)) (*SummarizeConfig, error) {
	cfg := DefaultSummarizeConfig()

	if path == "" {
		path = os.Getenv(ConfigFileEnv)
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	for _, override := range overrides {
		override(cfg)
	}
	cfg.applyProviderEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile overlays the YAML document at path onto cfg.
// The path comes from a flag or environment variable set by the operator.
func (c *SummarizeConfig) mergeFile(path string) error {
	// #nosec G304 -- operator-supplied path
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides fields from environment variables that are set.
func (c *SummarizeConfig) applyEnv() {
	c.Chunk.MaxChunkSize = pkgconfig.GetEnvInt("SUMMARIZER_MAX_CHUNK_SIZE", c.Chunk.MaxChunkSize)
	c.Chunk.LengthUnit = pkgconfig.GetEnvString("SUMMARIZER_LENGTH_UNIT", c.Chunk.LengthUnit)
	c.Chunk.Splitter = pkgconfig.GetEnvString("SUMMARIZER_SPLITTER", c.Chunk.Splitter)
	c.Chunk.OversizePolicy = pkgconfig.GetEnvString("SUMMARIZER_OVERSIZE_POLICY", c.Chunk.OversizePolicy)
	c.Chunk.Abbreviations = pkgconfig.GetEnvStringList("SUMMARIZER_ABBREVIATIONS", c.Chunk.Abbreviations)

	c.Generation.MaxLength = pkgconfig.GetEnvInt("SUMMARIZER_MAX_LENGTH", c.Generation.MaxLength)
	c.Generation.MinLength = pkgconfig.GetEnvInt("SUMMARIZER_MIN_LENGTH", c.Generation.MinLength)
	c.Generation.Deterministic = pkgconfig.GetEnvBool("SUMMARIZER_DETERMINISTIC", c.Generation.Deterministic)

	c.Aggregation.Concurrency = pkgconfig.GetEnvInt("SUMMARIZER_CONCURRENCY", c.Aggregation.Concurrency)
	c.Aggregation.CallTimeout = pkgconfig.GetEnvDuration("SUMMARIZER_CALL_TIMEOUT", c.Aggregation.CallTimeout)
	c.Aggregation.RetryAttempts = pkgconfig.GetEnvInt("SUMMARIZER_RETRY_ATTEMPTS", c.Aggregation.RetryAttempts)
	c.Aggregation.RequestsPerSecond = pkgconfig.GetEnvFloat("SUMMARIZER_REQUESTS_PER_SECOND", c.Aggregation.RequestsPerSecond)

	c.Provider.Name = pkgconfig.GetEnvString("SUMMARIZER_PROVIDER", c.Provider.Name)
	c.Provider.Model = pkgconfig.GetEnvString("SUMMARIZER_MODEL", c.Provider.Model)
	c.Provider.Timeout = pkgconfig.GetEnvDuration("SUMMARIZER_PROVIDER_TIMEOUT", c.Provider.Timeout)

	c.Fetch.Timeout = pkgconfig.GetEnvDuration("FETCH_TIMEOUT", c.Fetch.Timeout)
	c.Fetch.DenyPrivateIPs = pkgconfig.GetEnvBool("FETCH_DENY_PRIVATE_IPS", c.Fetch.DenyPrivateIPs)

	c.Server.Addr = pkgconfig.GetEnvString("API_ADDR", c.Server.Addr)
	c.Server.RequestTimeout = pkgconfig.GetEnvDuration("API_REQUEST_TIMEOUT", c.Server.RequestTimeout)
	c.Server.RateLimitRPS = pkgconfig.GetEnvFloat("API_RATE_LIMIT_RPS", c.Server.RateLimitRPS)
	c.Server.RateLimitBurst = pkgconfig.GetEnvInt("API_RATE_LIMIT_BURST", c.Server.RateLimitBurst)
	c.Server.TrustProxyHeaders = pkgconfig.GetEnvBool("API_TRUST_PROXY_HEADERS", c.Server.TrustProxyHeaders)

	c.Logging.Level = pkgconfig.GetEnvString("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = pkgconfig.GetEnvString("LOG_FORMAT", c.Logging.Format)
}

// applyProviderEnv reads the credentials and endpoint of the selected provider.
func (c *SummarizeConfig) applyProviderEnv() {
	switch c.Provider.Name {
	case ProviderHuggingFace:
		c.Provider.APIKey = pkgconfig.GetEnvString("HF_API_TOKEN", c.Provider.APIKey)
		c.Provider.BaseURL = pkgconfig.GetEnvString("HF_API_BASE_URL", c.Provider.BaseURL)
	case ProviderClaude:
		c.Provider.APIKey = pkgconfig.GetEnvString("ANTHROPIC_API_KEY", c.Provider.APIKey)
	case ProviderOpenAI:
		c.Provider.APIKey = pkgconfig.GetEnvString("OPENAI_API_KEY", c.Provider.APIKey)
		c.Provider.BaseURL = pkgconfig.GetEnvString("OPENAI_BASE_URL", c.Provider.BaseURL)
	}
}

// Validate checks configuration correctness.
func (c *SummarizeConfig) Validate() error {
	if c.Chunk.MaxChunkSize <= 0 {
		return invalid("SUMMARIZER_MAX_CHUNK_SIZE must be positive, got %d", c.Chunk.MaxChunkSize)
	}
	if err := pkgconfig.ValidateOneOf(c.Chunk.LengthUnit, "runes", "bytes", "tokens"); err != nil {
		return invalid("SUMMARIZER_LENGTH_UNIT: %v", err)
	}
	if err := pkgconfig.ValidateOneOf(c.Chunk.Splitter, "delimiter", "abbreviation"); err != nil {
		return invalid("SUMMARIZER_SPLITTER: %v", err)
	}
	if err := pkgconfig.ValidateOneOf(c.Chunk.OversizePolicy, "passthrough", "reject", "split"); err != nil {
		return invalid("SUMMARIZER_OVERSIZE_POLICY: %v", err)
	}

	if c.Generation.MaxLength <= 0 {
		return invalid("SUMMARIZER_MAX_LENGTH must be positive, got %d", c.Generation.MaxLength)
	}
	if c.Generation.MinLength < 0 || c.Generation.MinLength > c.Generation.MaxLength {
		return invalid("SUMMARIZER_MIN_LENGTH must be between 0 and SUMMARIZER_MAX_LENGTH, got %d", c.Generation.MinLength)
	}

	if err := pkgconfig.ValidateIntRange(c.Aggregation.Concurrency, 1, 64); err != nil {
		return invalid("SUMMARIZER_CONCURRENCY: %v", err)
	}
	if err := pkgconfig.ValidatePositiveDuration(c.Aggregation.CallTimeout); err != nil {
		return invalid("SUMMARIZER_CALL_TIMEOUT: %v", err)
	}
	if err := pkgconfig.ValidateIntRange(c.Aggregation.RetryAttempts, 1, 10); err != nil {
		return invalid("SUMMARIZER_RETRY_ATTEMPTS: %v", err)
	}
	if c.Aggregation.RequestsPerSecond < 0 {
		return invalid("SUMMARIZER_REQUESTS_PER_SECOND cannot be negative")
	}

	switch c.Provider.Name {
	case ProviderClaude, ProviderOpenAI:
		if c.Provider.APIKey == "" {
			return invalid("API key is required for provider %s", c.Provider.Name)
		}
	case ProviderHuggingFace, ProviderExtractive:
	default:
		return invalid("SUMMARIZER_PROVIDER %q must be one of huggingface, claude, openai, extractive", c.Provider.Name)
	}
	if err := pkgconfig.ValidatePositiveDuration(c.Provider.Timeout); err != nil {
		return invalid("SUMMARIZER_PROVIDER_TIMEOUT: %v", err)
	}

	if err := pkgconfig.ValidatePositiveDuration(c.Fetch.Timeout); err != nil {
		return invalid("FETCH_TIMEOUT: %v", err)
	}
	if c.Fetch.MaxBodySize <= 0 {
		return invalid("fetch max_body_size must be positive")
	}

	if c.Server.Addr == "" {
		return invalid("API_ADDR cannot be empty")
	}
	if c.Server.MaxRequestBytes <= 0 {
		return invalid("server max_request_bytes must be positive")
	}
	if err := pkgconfig.ValidatePositiveDuration(c.Server.RequestTimeout); err != nil {
		return invalid("API_REQUEST_TIMEOUT: %v", err)
	}
	if err := pkgconfig.ValidatePositiveDuration(c.Server.ShutdownTimeout); err != nil {
		return invalid("server shutdown_timeout: %v", err)
	}
	if c.Server.RateLimitRPS < 0 {
		return invalid("API_RATE_LIMIT_RPS cannot be negative")
	}
	if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst < 1 {
		return invalid("API_RATE_LIMIT_BURST must be at least 1 when rate limiting is enabled")
	}

	if err := pkgconfig.ValidateOneOf(c.Logging.Format, "json", "text"); err != nil {
		return invalid("LOG_FORMAT: %v", err)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
