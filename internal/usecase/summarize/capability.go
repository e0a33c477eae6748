package summarize

import (
	"context"
	"fmt"
)

// Default generation bounds for one partial summary.
const (
	DefaultMaxLength = 50
	DefaultMinLength = 25
)

// GenerationOptions bounds the output of one capability call.
// Lengths are in the capability's output units (model tokens or words).
type GenerationOptions struct {
	MaxLength int
	MinLength int
	// Deterministic disables sampling so identical input yields identical output.
	Deterministic bool
}

// DefaultGenerationOptions returns {MaxLength: 50, MinLength: 25, Deterministic: true}.
func DefaultGenerationOptions() GenerationOptions {
	return GenerationOptions{
		MaxLength:     DefaultMaxLength,
		MinLength:     DefaultMinLength,
		Deterministic: true,
	}
}

// Validate checks the bounds.
func (o GenerationOptions) Validate() error {
	if o.MaxLength <= 0 {
		return fmt.Errorf("%w: max length must be positive, got %d", ErrInvalidConfiguration, o.MaxLength)
	}
	if o.MinLength < 0 || o.MinLength > o.MaxLength {
		return fmt.Errorf("%w: min length must be between 0 and %d, got %d", ErrInvalidConfiguration, o.MaxLength, o.MinLength)
	}
	return nil
}

// Capability summarizes one short text. Implementations must be safe for
// concurrent use when the service runs with Concurrency > 1.
type Capability interface {
	Summarize(ctx context.Context, text string, opts GenerationOptions) (string, error)
}

// CapabilityFunc adapts a function to the Capability interface.
type CapabilityFunc func(ctx context.Context, text string, opts GenerationOptions) (string, error)

// Summarize implements Capability.
func (f CapabilityFunc) Summarize(ctx context.Context, text string, opts GenerationOptions) (string, error) {
	return f(ctx, text, opts)
}
