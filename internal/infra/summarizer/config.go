package summarizer

import (
	"fmt"
	"time"
)

// Provider names accepted by New.
const (
	ProviderHuggingFace = "huggingface"
	ProviderClaude      = "claude"
	ProviderOpenAI      = "openai"
	ProviderExtractive  = "extractive"
)

// Default models per provider.
const (
	DefaultHuggingFaceModel = "facebook/bart-large-cnn"
	DefaultClaudeModel      = "claude-3-5-haiku-latest"
	DefaultOpenAIModel      = "gpt-4o-mini"
)

// DefaultHuggingFaceBaseURL is the hosted inference endpoint.
const DefaultHuggingFaceBaseURL = "https://api-inference.huggingface.co"

const defaultTimeout = 60 * time.Second

// Config selects and configures one summarization backend.
type Config struct {
	// Provider is one of huggingface, claude, openai or extractive.
	Provider string

	// Model overrides the provider's default model.
	Model string

	// BaseURL overrides the provider endpoint (huggingface, openai, claude).
	BaseURL string

	// APIKey authenticates against the provider. Optional for huggingface.
	APIKey string

	// Timeout bounds a single HTTP exchange with the provider.
	Timeout time.Duration
}

// withDefaults fills in the provider's model, endpoint and timeout.
func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Model == "" {
		switch c.Provider {
		case ProviderHuggingFace:
			c.Model = DefaultHuggingFaceModel
		case ProviderClaude:
			c.Model = DefaultClaudeModel
		case ProviderOpenAI:
			c.Model = DefaultOpenAIModel
		}
	}
	if c.Provider == ProviderHuggingFace && c.BaseURL == "" {
		c.BaseURL = DefaultHuggingFaceBaseURL
	}
	return c
}

// Validate checks the configuration after defaults are applied.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderHuggingFace, ProviderExtractive:
	case ProviderClaude, ProviderOpenAI:
		if c.APIKey == "" {
			return fmt.Errorf("%s provider requires an API key", c.Provider)
		}
	default:
		return fmt.Errorf("unknown summarization provider %q", c.Provider)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative, got %v", c.Timeout)
	}
	return nil
}
