package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRespectsSentenceBoundaries(t *testing.T) {
	text := "Paris opens at nine. It closes at six on Sunday. Admission is free for members."
	chunks := Split(text, 1000, 100)
	require.Len(t, chunks, 1, "short text should fit in a single chunk")
	assert.Equal(t, text, chunks[0])
}

func TestSplitProducesOverlappingChunks(t *testing.T) {
	var sentences []string
	for i := 0; i < 40; i++ {
		sentences = append(sentences, "This is a filler sentence about the museum hours today.")
	}
	text := strings.Join(sentences, " ")

	chunks := Split(text, 100, 20)
	require.Greater(t, len(chunks), 1, "long text should split into multiple chunks")

	for i := 1; i < len(chunks); i++ {
		firstSentenceOfPrev := strings.Split(chunks[i-1], ". ")
		lastOfPrev := firstSentenceOfPrev[len(firstSentenceOfPrev)-1]
		assert.Contains(t, chunks[i], strings.TrimSuffix(lastOfPrev, "."),
			"chunk %d should start with overlap from the tail of chunk %d", i, i-1)
	}
}

func TestSplitEmptyInput(t *testing.T) {
	assert.Nil(t, Split("", 800, 100))
	assert.Nil(t, Split("   ", 800, 100))
}
