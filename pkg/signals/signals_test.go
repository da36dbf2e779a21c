package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeHighSimilarityYieldsHighConfidence(t *testing.T) {
	s := Compute("what's your favorite color", 0.95, []float64{0.9, 0.88, 0.7}, 3)
	assert.InDelta(t, 0.05, s.Novelty, 1e-9)
	assert.Greater(t, s.Confidence, 0.8)
}

func TestComputeLowSimilarityYieldsHighNovelty(t *testing.T) {
	s := Compute("tell me something nobody has ever asked before", 0.1, nil, 5)
	assert.InDelta(t, 0.9, s.Novelty, 1e-9)
}

func TestComplexityGrowsWithQuestionMarksAndLongTokens(t *testing.T) {
	simple := Compute("hi", 0.5, nil, 3)
	complex := Compute("could you explain the epistemological ramifications of determinism? and also free will? and moral responsibility?", 0.5, nil, 3)
	assert.Less(t, simple.Complexity, complex.Complexity)
}

func TestComputeTokenCount(t *testing.T) {
	s := Compute("one two three", 0.5, nil, 3)
	assert.Equal(t, 3, s.TokenCount)
}

func TestComputeEmptyMessage(t *testing.T) {
	s := Compute("", 0.3, nil, 3)
	assert.Equal(t, 0, s.TokenCount)
	assert.Equal(t, 0.0, s.Complexity)
}

func TestRetrievalSupportScalesWithAboveFloorChunks(t *testing.T) {
	strong := Compute("question", 0.5, []float64{0.9, 0.85, 0.8}, 3)
	weak := Compute("question", 0.5, []float64{0.2, 0.1}, 3)
	assert.Greater(t, strong.Confidence, weak.Confidence)
}

func TestConfidenceIsClippedTo01(t *testing.T) {
	s := Compute("x", 1.0, []float64{1, 1, 1}, 3)
	assert.LessOrEqual(t, s.Confidence, 1.0)
	assert.GreaterOrEqual(t, s.Confidence, 0.0)
}
