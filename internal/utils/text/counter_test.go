package text_test

import (
	"testing"

	"chunk-summarizer/internal/utils/text"
)

func TestCountRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{name: "ASCII text", input: "hello", expected: 5},
		{name: "ASCII with spaces", input: "hello world", expected: 11},
		{name: "accented latin", input: "café", expected: 4},
		{name: "Japanese", input: "こんにちは世界", expected: 7},
		{name: "mixed", input: "hello世界", expected: 7},
		{name: "emoji", input: "Hello👋", expected: 6},
		{name: "empty string", input: "", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := text.CountRunes(tt.input); got != tt.expected {
				t.Errorf("CountRunes(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCountBytes(t *testing.T) {
	if got := text.CountBytes("café"); got != 5 {
		t.Errorf("CountBytes(café) = %d, want 5", got)
	}
	if got := text.CountBytes(""); got != 0 {
		t.Errorf("CountBytes(\"\") = %d, want 0", got)
	}
}

func TestCountWords(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"", 0},
		{"   ", 0},
		{"one", 1},
		{"one two  three\nfour\tfive", 5},
	}

	for _, tt := range tests {
		if got := text.CountWords(tt.input); got != tt.expected {
			t.Errorf("CountWords(%q) = %d, want %d", tt.input, got, tt.expected)
		}
	}
}

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		n        int
		expected string
	}{
		{name: "shorter than limit", input: "a b c", n: 5, expected: "a b c"},
		{name: "exact limit", input: "a b c", n: 3, expected: "a b c"},
		{name: "truncated", input: "a  b\nc d", n: 2, expected: "a b"},
		{name: "zero", input: "a b", n: 0, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := text.TruncateWords(tt.input, tt.n); got != tt.expected {
				t.Errorf("TruncateWords(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.expected)
			}
		})
	}
}

func TestIsBlank(t *testing.T) {
	if !text.IsBlank(" \n\t ") {
		t.Error("expected whitespace to be blank")
	}
	if text.IsBlank(" x ") {
		t.Error("expected non-whitespace not to be blank")
	}
}
