package chunk

import (
	"errors"
	"fmt"
)

// Sentinel errors for chunking operations.
var (
	// ErrInvalidMaxChunkSize indicates that the configured maximum segment size is not positive.
	ErrInvalidMaxChunkSize = errors.New("max chunk size must be positive")

	// ErrOversizedUnit indicates that a single sentence unit is longer than the maximum
	// segment size. It is only returned under the OversizeReject policy.
	ErrOversizedUnit = errors.New("sentence unit exceeds max chunk size")

	// ErrUnknownSplitter indicates an unsupported sentence splitter name.
	ErrUnknownSplitter = errors.New("unknown sentence splitter")

	// ErrUnknownLengthUnit indicates an unsupported length unit name.
	ErrUnknownLengthUnit = errors.New("unknown length unit")

	// ErrUnknownOversizePolicy indicates an unsupported oversize policy name.
	ErrUnknownOversizePolicy = errors.New("unknown oversize policy")
)

// OversizedUnitError describes the sentence unit that could not be placed in a segment.
type OversizedUnitError struct {
	// UnitIndex is the 0-based position of the unit in the splitter output.
	UnitIndex    int
	Length       int
	MaxChunkSize int
}

// Error returns a formatted error message for the oversized unit.
func (e *OversizedUnitError) Error() string {
	return fmt.Sprintf("sentence unit %d has length %d, exceeding max chunk size %d",
		e.UnitIndex, e.Length, e.MaxChunkSize)
}

// Unwrap allows errors.Is(err, ErrOversizedUnit).
func (e *OversizedUnitError) Unwrap() error {
	return ErrOversizedUnit
}
