package chunk

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"chunk-summarizer/internal/utils/text"
)

// LengthFunc measures a piece of text in the unit maxChunkSize is expressed in.
type LengthFunc func(string) int

// Length unit names accepted by NewLengthFunc.
const (
	UnitRunes  = "runes"
	UnitBytes  = "bytes"
	UnitTokens = "tokens"
)

// DefaultTokenEncoding is the BPE encoding used for the tokens unit.
const DefaultTokenEncoding = "cl100k_base"

// NewLengthFunc resolves a unit name. The tokens unit loads its BPE ranks on first use,
// which may require network access unless a tiktoken cache directory is configured.
func NewLengthFunc(unit string) (LengthFunc, error) {
	switch unit {
	case "", UnitRunes:
		return text.CountRunes, nil
	case UnitBytes:
		return text.CountBytes, nil
	case UnitTokens:
		return TokenLength(DefaultTokenEncoding)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLengthUnit, unit)
	}
}

// TokenLength counts tokens with the named tiktoken encoding.
func TokenLength(encoding string) (LengthFunc, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load token encoding %s: %w", encoding, err)
	}
	return func(s string) int {
		return len(enc.Encode(s, nil, nil))
	}, nil
}
