package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_EmptyInput(t *testing.T) {
	c := New(900, 150)
	assert.Empty(t, c.Split(""))
	assert.Empty(t, c.Split("   \n\t  "))
}

func TestSplit_ShortInput(t *testing.T) {
	c := New(900, 150)
	chunks := c.Split("a short text")
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short text", chunks[0])
}

func TestSplit_NormalizesWhitespace(t *testing.T) {
	c := New(900, 150)
	chunks := c.Split("  a\t\tshort\n\ntext  ")
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short text", chunks[0])
}

func TestSplit_IdempotentOnShortInput(t *testing.T) {
	c := New(900, 150)
	first := c.Split("already normalized text")
	second := c.Split(first[0])
	assert.Equal(t, first, second)
}

func TestSplit_ChunkLengthBound(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		text    string
	}{
		{name: "word boundaries", size: 20, overlap: 5, text: strings.Repeat("alpha beta gamma ", 30)},
		{name: "no spaces at all", size: 16, overlap: 4, text: strings.Repeat("x", 200)},
		{name: "single long word among short ones", size: 10, overlap: 3, text: "a " + strings.Repeat("y", 50) + " b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.size, tt.overlap)
			chunks := c.Split(tt.text)
			require.NotEmpty(t, chunks)
			for i, chunk := range chunks {
				assert.LessOrEqual(t, len(chunk), tt.size, "chunk %d exceeds chunk size", i)
				assert.NotEmpty(t, chunk)
			}
		})
	}
}

func TestSplit_Terminates_OverlapAsLargeAsWindow(t *testing.T) {
	// Misconfigured overlap >= size must still make forward progress thanks
	// to the forced-advance rule.
	c := &TextChunker{ChunkSize: 10, ChunkOverlap: 10}
	chunks := c.Split(strings.Repeat("word ", 50))
	assert.NotEmpty(t, chunks)
}

func TestSplit_CoversAllWords(t *testing.T) {
	// When spaces exist inside every window, no characters are lost: the
	// chunks concatenated with single spaces reproduce the normalized text.
	text := strings.TrimSpace(strings.Repeat("lorem ipsum dolor sit amet ", 40))
	c := New(50, 0)
	chunks := c.Split(text)
	require.NotEmpty(t, chunks)
	assert.Equal(t, text, strings.Join(chunks, " "))
}

func TestSplit_TwoThousandCharsThreeChunks(t *testing.T) {
	// 2000 normalized characters with size 900 and overlap 150 yield exactly
	// 3 chunks, each within the window.
	word := "abcd " // 5 chars per word
	text := strings.TrimSpace(strings.Repeat(word, 400))
	require.Equal(t, 1999, len(text))

	c := New(900, 150)
	chunks := c.Split(text)
	require.Len(t, chunks, 3)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 900)
	}
}

func TestSplit_RepeatedCallsDeterministic(t *testing.T) {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 60)
	c := New(120, 30)
	assert.Equal(t, c.Split(text), c.Split(text))
}
