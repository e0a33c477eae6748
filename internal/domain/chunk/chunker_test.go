package chunk

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func segmentTexts(segments []Segment) []string {
	out := make([]string, len(segments))
	for i, s := range segments {
		out[i] = s.Text
	}
	return out
}

// randomText builds deterministic pseudo-random prose of n sentences.
func randomText(seed int64, n int) string {
	r := rand.New(rand.NewSource(seed))
	words := []string{"the", "tower", "is", "tall", "and", "square", "structure", "metres", "Paris", "viaduct", "first"}
	var sb strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(" ")
		}
		wc := 1 + r.Intn(40)
		for w := 0; w < wc; w++ {
			if w > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(words[r.Intn(len(words))])
		}
		sb.WriteString(".")
	}
	return sb.String()
}

func TestNew_InvalidMaxChunkSize(t *testing.T) {
	for _, size := range []int{0, -1, -1024} {
		c, err := New(size)
		assert.Nil(t, c)
		assert.ErrorIs(t, err, ErrInvalidMaxChunkSize)
	}
}

func TestNew_UnknownPolicy(t *testing.T) {
	_, err := New(10, WithOversizePolicy("truncate"))
	assert.ErrorIs(t, err, ErrUnknownOversizePolicy)
}

func TestChunk_AllUnitsFitInOneSegment(t *testing.T) {
	got, err := Chunk("A. B. C.", 1000)
	require.NoError(t, err)
	assert.Equal(t, []string{"A. B. C."}, got)
}

func TestChunk_TwoLongSentences(t *testing.T) {
	s1 := strings.Repeat("a", 799) + "."
	s2 := strings.Repeat("b", 799) + "."

	c, err := New(1024)
	require.NoError(t, err)

	segments, err := c.Chunk(s1 + " " + s2)
	require.NoError(t, err)
	require.Len(t, segments, 2)

	assert.Equal(t, s1, segments[0].Text)
	assert.Equal(t, s2, segments[1].Text)
	assert.Equal(t, 0, segments[0].Index)
	assert.Equal(t, 1, segments[1].Index)
	assert.False(t, segments[0].Oversized)
	assert.False(t, segments[1].Oversized)
}

func TestChunk_OversizedUnitPassesThrough(t *testing.T) {
	long := strings.Repeat("x", 2000)

	c, err := New(1024)
	require.NoError(t, err)

	segments, err := c.Chunk(long)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, long, segments[0].Text)
	assert.Equal(t, 2000, segments[0].Length)
	assert.True(t, segments[0].Oversized)
}

func TestChunk_OversizedUnitBetweenShortOnes(t *testing.T) {
	long := strings.Repeat("x", 50)
	input := "Short one. " + long + ". Short two."

	c, err := New(20)
	require.NoError(t, err)

	segments, err := c.Chunk(input)
	require.NoError(t, err)

	want := []string{"Short one.", long + ".", "Short two."}
	if diff := cmp.Diff(want, segmentTexts(segments)); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, segments[1].Oversized)
}

func TestChunk_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t"} {
		got, err := Chunk(input, 1024)
		require.NoError(t, err)
		assert.Empty(t, got, "input %q", input)
	}
}

func TestChunk_PackingBoundary(t *testing.T) {
	// "AAAA. " is 6 runes; the first two units need 6+6+1 = 13.
	tests := []struct {
		name string
		max  int
		want []string
	}{
		{name: "exactly fits", max: 13, want: []string{"AAAA. BBBB.", "CCCC."}},
		{name: "one short", max: 12, want: []string{"AAAA.", "BBBB. CCCC."}},
		{name: "every unit alone", max: 11, want: []string{"AAAA.", "BBBB.", "CCCC."}},
		{name: "all fit", max: 100, want: []string{"AAAA. BBBB. CCCC."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Chunk("AAAA. BBBB. CCCC.", tt.max)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("segments mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChunk_CoverageAndOrder(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		input := randomText(seed, 60)
		got, err := Chunk(input, 200)
		require.NoError(t, err)

		assert.Equal(t, strings.Fields(input), strings.Fields(strings.Join(got, " ")),
			"seed %d: words lost or reordered", seed)
	}
}

func TestChunk_SizeBound(t *testing.T) {
	splitter := DelimiterSplitter{}
	for seed := int64(1); seed <= 20; seed++ {
		input := randomText(seed, 80)
		for _, max := range []int{40, 100, 257, 1024} {
			c, err := New(max)
			require.NoError(t, err)
			segments, err := c.Chunk(input)
			require.NoError(t, err)

			for _, s := range segments {
				if s.Length <= max {
					assert.False(t, s.Oversized)
					continue
				}
				// only a single unit may exceed the bound
				assert.True(t, s.Oversized)
				assert.Len(t, splitter.Split(s.Text), 1, "seed %d max %d: oversized segment spans units", seed, max)
			}
		}
	}
}

func TestChunk_Deterministic(t *testing.T) {
	input := randomText(42, 100)
	first, err := Chunk(input, 300)
	require.NoError(t, err)
	second, err := Chunk(input, 300)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestChunk_MultiByteCountsRunes(t *testing.T) {
	// "ééé. " is 5 runes but 8 bytes
	input := "ééé. ééé. ééé."

	got, err := Chunk(input, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"ééé.", "ééé. ééé."}, got)

	c, err := New(10, WithLengthFunc(func(s string) int { return len(s) }))
	require.NoError(t, err)
	segments, err := c.Chunk(input)
	require.NoError(t, err)
	assert.Len(t, segments, 3)
}

func TestChunk_RejectPolicy(t *testing.T) {
	c, err := New(10, WithOversizePolicy(OversizeReject))
	require.NoError(t, err)

	segments, err := c.Chunk("Fine. " + strings.Repeat("z", 30) + ". Fine.")
	assert.Nil(t, segments)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOversizedUnit)

	var oe *OversizedUnitError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, 1, oe.UnitIndex)
	assert.Equal(t, 31, oe.Length)
	assert.Equal(t, 10, oe.MaxChunkSize)
}

func TestChunk_SplitPolicy(t *testing.T) {
	c, err := New(20, WithOversizePolicy(OversizeSplit))
	require.NoError(t, err)

	long := "one two three four five six seven eight nine ten " + strings.Repeat("w", 45)
	input := "Start. " + long + ". End."

	segments, err := c.Chunk(input)
	require.NoError(t, err)
	require.NotEmpty(t, segments)

	for _, s := range segments {
		assert.LessOrEqual(t, s.Length, 20, "segment %q", s.Text)
		assert.False(t, s.Oversized)
	}
	assert.Equal(t, "Start.", segments[0].Text)
	assert.True(t, strings.HasSuffix(segments[len(segments)-1].Text, "End."))

	squash := func(s string) string { return strings.Join(strings.Fields(s), "") }
	assert.Equal(t, squash(input), squash(strings.Join(segmentTexts(segments), " ")))
}

func TestChunk_CustomSplitter(t *testing.T) {
	c, err := New(25, WithSplitter(NewAbbreviationSplitter()))
	require.NoError(t, err)

	segments, err := c.Chunk("Dr. Smith arrived. He left early! Why?")
	require.NoError(t, err)
	assert.Equal(t, []string{"Dr. Smith arrived.", "He left early! Why?"}, segmentTexts(segments))
}

func TestParseOversizePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    OversizePolicy
		wantErr bool
	}{
		{in: "", want: OversizePassthrough},
		{in: "passthrough", want: OversizePassthrough},
		{in: "reject", want: OversizeReject},
		{in: "split", want: OversizeSplit},
		{in: "drop", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseOversizePolicy(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnknownOversizePolicy)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
