package summarizer

import (
	"context"
	"strings"

	"chunk-summarizer/internal/domain/chunk"
	"chunk-summarizer/internal/usecase/summarize"
	"chunk-summarizer/internal/utils/text"
)

// Extractive is a local backend that keeps the leading sentences of a segment
// up to MaxLength words. It needs no network and is deterministic, which makes
// it useful for development and as an offline fallback.
type Extractive struct {
	splitter chunk.SentenceSplitter
}

// NewExtractive creates an Extractive backend.
func NewExtractive() *Extractive {
	return &Extractive{splitter: chunk.NewAbbreviationSplitter()}
}

// Summarize implements summarize.Capability.
func (e *Extractive) Summarize(ctx context.Context, input string, opts summarize.GenerationOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		b     strings.Builder
		words int
	)
	for _, sentence := range e.splitter.Split(input) {
		sentence = strings.TrimSpace(sentence)
		n := text.CountWords(sentence)
		if n == 0 {
			continue
		}
		if words+n > opts.MaxLength {
			// a partial sentence is only worth keeping below the minimum
			if words < opts.MinLength || words == 0 {
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(text.TruncateWords(sentence, opts.MaxLength-words))
			}
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(sentence)
		words += n
	}
	return b.String(), nil
}
