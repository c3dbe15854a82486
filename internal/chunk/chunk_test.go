package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_ShortTextSingleChunk(t *testing.T) {
	c := New()

	chunks := c.Chunk("The Statue of Liberty stands on Liberty Island.")
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 47, chunks[0].End)
}

func TestChunk_EmptyText(t *testing.T) {
	assert.Empty(t, New().Chunk(""))
}

func TestChunk_RoundTrip(t *testing.T) {
	c := &Chunker{ChunkSize: 80, MinSize: 10}

	texts := []string{
		strings.Repeat("Central Park covers 843 acres in Manhattan. ", 20),
		"First paragraph about museums.\n\nSecond paragraph about food; it runs longer than the first one does.\n\nThird.",
		strings.Repeat("x", 500),
		"no delimiters here just one very long run " + strings.Repeat("of words ", 30),
	}

	for _, text := range texts {
		chunks := c.Chunk(text)
		assert.Equal(t, text, Reconstruct(chunks))

		for i, ch := range chunks {
			assert.Equal(t, text[ch.Start:ch.End], ch.Text)
			if i > 0 {
				assert.Equal(t, chunks[i-1].End, ch.Start)
			}
		}
		if len(chunks) > 0 {
			assert.Equal(t, 0, chunks[0].Start)
			assert.Equal(t, len(text), chunks[len(chunks)-1].End)
		}
	}
}

func TestChunk_PrefersParagraphBreaks(t *testing.T) {
	c := &Chunker{ChunkSize: 60, MinSize: 5}

	text := "Times Square is bright at night.\n\nBrooklyn Bridge opened in 1883 and still carries traffic."
	chunks := c.Chunk(text)

	require.GreaterOrEqual(t, len(chunks), 2)
	assert.True(t, strings.HasSuffix(chunks[0].Text, "\n\n"))
}

func TestChunk_SentenceFallback(t *testing.T) {
	c := &Chunker{ChunkSize: 50, MinSize: 5}

	text := "The High Line is a park. It was a rail line. It opened in 2009 to visitors."
	chunks := c.Chunk(text)

	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks[:len(chunks)-1] {
		assert.LessOrEqual(t, len(ch.Text), 50)
	}
	assert.Equal(t, text, Reconstruct(chunks))
}

func TestChunk_MaxSizeRespected(t *testing.T) {
	c := &Chunker{ChunkSize: 100, MinSize: 10}

	text := strings.Repeat("Grand Central Terminal. ", 40)
	for _, ch := range c.Chunk(text) {
		assert.LessOrEqual(t, len(ch.Text), 100)
	}
}

func TestChunk_MinSizeMergedForward(t *testing.T) {
	c := &Chunker{ChunkSize: 40, MinSize: 15}

	text := "Hi.\nThe Metropolitan Museum of Art sits on Fifth Avenue at 82nd Street in NYC."
	chunks := c.Chunk(text)

	for _, ch := range chunks[:len(chunks)-1] {
		assert.GreaterOrEqual(t, len(ch.Text), 15)
	}
	assert.Equal(t, text, Reconstruct(chunks))
}

func TestChunk_HardSplitKeepsRunesIntact(t *testing.T) {
	c := &Chunker{ChunkSize: 10, MinSize: 2}

	text := strings.Repeat("日本語テキスト", 10)
	chunks := c.Chunk(text)

	assert.Equal(t, text, Reconstruct(chunks))
	for _, ch := range chunks {
		assert.True(t, strings.ToValidUTF8(ch.Text, "") == ch.Text)
	}
}

func TestChunk_FoldedFragmentMayExceedChunkSize(t *testing.T) {
	c := &Chunker{ChunkSize: 20, MinSize: 6}

	// "Hi.\n" is undersized and folds into the first hard-split piece,
	// pushing it past ChunkSize. The soft bound trades that overflow
	// for never emitting an undersized leading chunk.
	text := "Hi.\n" + strings.Repeat("a", 40)
	chunks := c.Chunk(text)

	require.Len(t, chunks, 2)
	assert.Equal(t, "Hi.\n"+strings.Repeat("a", 20), chunks[0].Text)
	assert.Greater(t, len(chunks[0].Text), c.ChunkSize)
	assert.Equal(t, text, Reconstruct(chunks))
	for _, ch := range chunks[:len(chunks)-1] {
		assert.GreaterOrEqual(t, len(ch.Text), c.MinSize)
	}
}

func TestChunk_DefaultSizes(t *testing.T) {
	c := New()
	assert.Equal(t, 1500, c.ChunkSize)
	assert.Equal(t, 24, c.MinSize)
}
