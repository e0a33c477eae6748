// Package summarize implements the chunk-and-aggregate summarization use case:
// split a document into bounded segments, summarize each segment with an
// injected Capability, and join the partial summaries in segment order.
package summarize

import (
	"errors"
	"fmt"

	"chunk-summarizer/internal/domain/chunk"
	"chunk-summarizer/internal/utils/text"
)

// Sentinel errors for summarization.
var (
	// ErrInvalidConfiguration indicates a rejected request or service setup,
	// such as a non-positive max chunk size or whitespace-only input.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrOversizedAtomicUnit is returned when the chunker rejects a sentence unit
	// longer than the max chunk size (reject policy only).
	ErrOversizedAtomicUnit = chunk.ErrOversizedUnit

	// ErrCapabilityFailure is matched by every per-segment failure.
	ErrCapabilityFailure = errors.New("summarization capability failed")

	// ErrCapabilityTimeout indicates that a capability call exceeded its timeout.
	ErrCapabilityTimeout = errors.New("summarization capability timed out")

	// ErrDegenerateOutput indicates that the capability returned empty or whitespace-only text.
	ErrDegenerateOutput = errors.New("summarization capability returned empty output")

	// ErrInputTooLong is wrapped by capabilities that reject a segment for exceeding
	// their own input limit.
	ErrInputTooLong = errors.New("segment exceeds capability input limit")
)

// AggregationError reports which segment failed. It matches ErrCapabilityFailure
// and unwraps to the capability's own error.
type AggregationError struct {
	// SegmentIndex is the 1-based position of the failing segment.
	SegmentIndex int
	SegmentCount int
	// Segment is the text that was sent to the capability.
	Segment string
	Err     error
}

// Error returns a message naming the failing segment.
func (e *AggregationError) Error() string {
	return fmt.Sprintf("summarize segment %d of %d: %v", e.SegmentIndex, e.SegmentCount, e.Err)
}

// Unwrap exposes both ErrCapabilityFailure and the underlying cause.
func (e *AggregationError) Unwrap() []error {
	return []error{ErrCapabilityFailure, e.Err}
}

// SegmentPreview returns at most n runes of the failing segment for diagnostics.
func (e *AggregationError) SegmentPreview(n int) string {
	r := []rune(e.Segment)
	if len(r) <= n {
		return e.Segment
	}
	return string(r[:n]) + "…"
}

// ValidateRequest checks a caller-supplied request before any work is done.
// Unlike Service.Summarize, which returns an empty result for blank input,
// request-facing callers treat blank text as a client error.
func ValidateRequest(input string, maxChunkSize int) error {
	if maxChunkSize <= 0 {
		return fmt.Errorf("%w: max_chunk_size must be positive, got %d", ErrInvalidConfiguration, maxChunkSize)
	}
	if text.IsBlank(input) {
		return fmt.Errorf("%w: text is required and cannot be empty", ErrInvalidConfiguration)
	}
	return nil
}
