package chunk

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultDelimiter is the sentence boundary used by DelimiterSplitter.
const DefaultDelimiter = ". "

// Splitter names accepted by NewSplitter.
const (
	SplitterDelimiter    = "delimiter"
	SplitterAbbreviation = "abbreviation"
)

// SentenceSplitter breaks text into sentence units.
// Implementations must be lossless: concatenating the returned units yields the input.
type SentenceSplitter interface {
	Split(text string) []string
}

// NewSplitter returns the splitter registered under name.
func NewSplitter(name string) (SentenceSplitter, error) {
	switch name {
	case "", SplitterDelimiter:
		return DelimiterSplitter{Delimiter: DefaultDelimiter}, nil
	case SplitterAbbreviation:
		return NewAbbreviationSplitter(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSplitter, name)
	}
}

// DelimiterSplitter splits on a literal delimiter. Every unit except the last keeps
// the delimiter it was split on, so "A. B. C." becomes ["A. ", "B. ", "C."].
//
// The heuristic knows nothing about abbreviations or decimals: "Dr. Who" is two units.
type DelimiterSplitter struct {
	Delimiter string
}

// Split implements SentenceSplitter.
func (s DelimiterSplitter) Split(text string) []string {
	if text == "" {
		return nil
	}
	delim := s.Delimiter
	if delim == "" {
		delim = DefaultDelimiter
	}

	units := strings.SplitAfter(text, delim)
	// SplitAfter leaves an empty trailing element when text ends with the delimiter.
	if units[len(units)-1] == "" {
		units = units[:len(units)-1]
	}
	return units
}

// defaultAbbreviations are lower-cased tokens that end with a period but do not end a sentence.
var defaultAbbreviations = []string{
	"mr.", "mrs.", "ms.", "dr.", "prof.", "sr.", "jr.", "st.",
	"vs.", "etc.", "e.g.", "i.e.", "cf.", "approx.", "no.", "fig.",
	"inc.", "ltd.", "co.", "corp.", "jan.", "feb.", "mar.", "apr.",
	"jun.", "jul.", "aug.", "sep.", "sept.", "oct.", "nov.", "dec.",
}

// AbbreviationSplitter ends a sentence after '.', '!' or '?' followed by whitespace,
// except after a known abbreviation or a single-letter initial such as "J.".
// Trailing whitespace stays attached to the unit it follows.
type AbbreviationSplitter struct {
	abbreviations map[string]struct{}
}

// NewAbbreviationSplitter returns a splitter using the built-in abbreviation list
// extended with extra (case-insensitive, including the final period).
func NewAbbreviationSplitter(extra ...string) *AbbreviationSplitter {
	abbrevs := make(map[string]struct{}, len(defaultAbbreviations)+len(extra))
	for _, a := range defaultAbbreviations {
		abbrevs[a] = struct{}{}
	}
	for _, a := range extra {
		abbrevs[strings.ToLower(a)] = struct{}{}
	}
	return &AbbreviationSplitter{abbreviations: abbrevs}
}

// Split implements SentenceSplitter.
func (s *AbbreviationSplitter) Split(text string) []string {
	if text == "" {
		return nil
	}

	var units []string
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		end := i + size
		if !isTerminal(r) || end >= len(text) {
			i = end
			continue
		}
		next, _ := utf8.DecodeRuneInString(text[end:])
		if !unicode.IsSpace(next) || (r == '.' && s.isAbbreviation(text[start:end])) {
			i = end
			continue
		}
		// swallow the whitespace run
		for end < len(text) {
			ws, wsSize := utf8.DecodeRuneInString(text[end:])
			if !unicode.IsSpace(ws) {
				break
			}
			end += wsSize
		}
		units = append(units, text[start:end])
		start = end
		i = end
	}
	if start < len(text) {
		units = append(units, text[start:])
	}
	return units
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// isAbbreviation reports whether the last word of sentence is a known abbreviation
// or a single-letter initial.
func (s *AbbreviationSplitter) isAbbreviation(sentence string) bool {
	word := sentence
	if idx := strings.LastIndexFunc(sentence, unicode.IsSpace); idx >= 0 {
		word = sentence[idx+1:]
	}
	word = strings.TrimLeft(word, "(\"'")
	if _, ok := s.abbreviations[strings.ToLower(word)]; ok {
		return true
	}
	// "J." or "U.S." style initials
	letters := strings.Split(strings.TrimSuffix(word, "."), ".")
	for _, l := range letters {
		if utf8.RuneCountInString(l) != 1 || !unicode.IsUpper([]rune(l)[0]) {
			return false
		}
	}
	return true
}
