// Package chunk splits long text into ordered, size-bounded segments along sentence
// boundaries. Segments are produced by greedy bin-packing of sentence units.
package chunk

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"chunk-summarizer/internal/utils/text"
)

// DefaultMaxChunkSize matches the input window of 1024-token-class summarization models.
const DefaultMaxChunkSize = 1024

// OversizePolicy decides what happens to a sentence unit longer than the maximum size.
type OversizePolicy string

const (
	// OversizePassthrough emits the unit as its own oversized segment.
	OversizePassthrough OversizePolicy = "passthrough"
	// OversizeReject fails chunking with *OversizedUnitError.
	OversizeReject OversizePolicy = "reject"
	// OversizeSplit cuts the unit at word boundaries, or mid-word when a single word is too long.
	OversizeSplit OversizePolicy = "split"
)

// ParseOversizePolicy converts a configuration string to an OversizePolicy.
func ParseOversizePolicy(s string) (OversizePolicy, error) {
	switch p := OversizePolicy(s); p {
	case "":
		return OversizePassthrough, nil
	case OversizePassthrough, OversizeReject, OversizeSplit:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOversizePolicy, s)
	}
}

// Segment is one bounded slice of the input text.
type Segment struct {
	// Index is the 0-based position of the segment.
	Index int
	Text  string
	// Length is len(Text) measured with the chunker's LengthFunc.
	Length int
	// Oversized is set when the segment is a single unit longer than the maximum size.
	Oversized bool
}

// Chunker packs sentence units into segments of at most MaxChunkSize.
// A Chunker has no mutable state and is safe for concurrent use.
type Chunker struct {
	maxChunkSize int
	splitter     SentenceSplitter
	length       LengthFunc
	policy       OversizePolicy
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithSplitter replaces the default ". " delimiter splitter.
func WithSplitter(s SentenceSplitter) Option {
	return func(c *Chunker) {
		if s != nil {
			c.splitter = s
		}
	}
}

// WithLengthFunc replaces the default rune count.
func WithLengthFunc(fn LengthFunc) Option {
	return func(c *Chunker) {
		if fn != nil {
			c.length = fn
		}
	}
}

// WithOversizePolicy sets the oversized-unit policy. Default is OversizePassthrough.
func WithOversizePolicy(p OversizePolicy) Option {
	return func(c *Chunker) {
		if p != "" {
			c.policy = p
		}
	}
}

// New creates a Chunker. maxChunkSize must be positive.
func New(maxChunkSize int, opts ...Option) (*Chunker, error) {
	if maxChunkSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMaxChunkSize, maxChunkSize)
	}
	c := &Chunker{
		maxChunkSize: maxChunkSize,
		splitter:     DelimiterSplitter{Delimiter: DefaultDelimiter},
		length:       text.CountRunes,
		policy:       OversizePassthrough,
	}
	for _, opt := range opts {
		opt(c)
	}
	if _, err := ParseOversizePolicy(string(c.policy)); err != nil {
		return nil, err
	}
	return c, nil
}

// MaxChunkSize returns the configured maximum segment size.
func (c *Chunker) MaxChunkSize() int {
	return c.maxChunkSize
}

// Chunk splits text into segments.
//
// A unit is added to the current buffer while len(buffer)+len(unit)+1 <= MaxChunkSize;
// otherwise the buffer is closed (whitespace-trimmed) and the unit starts a new one.
// Empty input returns no segments. Only OversizeReject produces an error.
func (c *Chunker) Chunk(input string) ([]Segment, error) {
	units := c.splitter.Split(input)
	if len(units) == 0 {
		return nil, nil
	}

	var (
		segments []Segment
		buf      strings.Builder
		bufLen   int
	)

	flush := func() {
		s := strings.TrimSpace(buf.String())
		buf.Reset()
		bufLen = 0
		if s == "" {
			return
		}
		n := c.length(s)
		segments = append(segments, Segment{
			Index:     len(segments),
			Text:      s,
			Length:    n,
			Oversized: n > c.maxChunkSize,
		})
	}

	add := func(unit string) {
		unitLen := c.length(unit)
		if bufLen+unitLen+1 > c.maxChunkSize {
			flush()
		}
		buf.WriteString(unit)
		bufLen = c.length(buf.String())
	}

	for i, unit := range units {
		trimmedLen := c.length(strings.TrimSpace(unit))
		if trimmedLen <= c.maxChunkSize {
			add(unit)
			continue
		}

		switch c.policy {
		case OversizeReject:
			return nil, &OversizedUnitError{UnitIndex: i, Length: trimmedLen, MaxChunkSize: c.maxChunkSize}
		case OversizeSplit:
			for _, piece := range c.splitOversized(unit) {
				add(piece)
			}
		default:
			// the unit never fits next to anything, so it ends up alone
			add(unit)
		}
	}
	flush()

	return segments, nil
}

// splitOversized cuts unit into pieces no longer than maxChunkSize,
// preferring word boundaries.
func (c *Chunker) splitOversized(unit string) []string {
	var (
		pieces []string
		buf    string
	)
	for _, word := range strings.SplitAfter(unit, " ") {
		if c.length(buf+word) <= c.maxChunkSize {
			buf += word
			continue
		}
		if buf != "" {
			pieces = append(pieces, buf)
			buf = ""
		}
		if c.length(word) <= c.maxChunkSize {
			buf = word
			continue
		}
		cut := c.cutRunes(word)
		pieces = append(pieces, cut[:len(cut)-1]...)
		buf = cut[len(cut)-1]
	}
	if buf != "" {
		pieces = append(pieces, buf)
	}
	return pieces
}

// cutRunes cuts s into the longest rune prefixes that fit maxChunkSize.
// A prefix is always at least one rune so the loop terminates for any LengthFunc.
func (c *Chunker) cutRunes(s string) []string {
	var out []string
	for s != "" {
		end := 0
		for i, r := range s {
			next := i + utf8.RuneLen(r)
			if c.length(s[:next]) > c.maxChunkSize {
				break
			}
			end = next
		}
		if end == 0 {
			_, end = utf8.DecodeRuneInString(s)
		}
		out = append(out, s[:end])
		s = s[end:]
	}
	return out
}

// Chunk splits text with the default splitter, rune length and passthrough policy,
// returning the segment texts.
func Chunk(input string, maxChunkSize int) ([]string, error) {
	c, err := New(maxChunkSize)
	if err != nil {
		return nil, err
	}
	segments, err := c.Chunk(input)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(segments))
	for i, s := range segments {
		out[i] = s.Text
	}
	return out, nil
}
