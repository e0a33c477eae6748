// Package text provides utilities for text processing and analysis.
// It holds the length measures shared by the chunker and the capability adapters.
package text

import (
	"strings"
	"unicode/utf8"
)

// CountRunes counts the number of Unicode characters (runes) in the given text.
// Multi-byte characters (CJK, emoji, accented latin) count as one each.
//
// Examples:
//
//	CountRunes("hello")     // 5
//	CountRunes("héllo")     // 5
//	CountRunes("hello世界")  // 7
//	CountRunes("")          // 0
func CountRunes(text string) int {
	return utf8.RuneCountInString(text)
}

// CountBytes returns the UTF-8 encoded length of text.
func CountBytes(text string) int {
	return len(text)
}

// CountWords counts whitespace-separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// TruncateWords returns the first n words of text joined by single spaces.
// If text has n words or fewer it is returned with whitespace normalized.
func TruncateWords(text string, n int) string {
	if n <= 0 {
		return ""
	}
	words := strings.Fields(text)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

// IsBlank reports whether text contains only whitespace.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
