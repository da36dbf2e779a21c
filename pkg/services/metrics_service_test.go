package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relaysocial/orchestrator/ent"
	entdecision "github.com/relaysocial/orchestrator/ent/orchestratordecision"
)

func TestAggregateDecisionsOnEmptySliceReturnsZeroedMetrics(t *testing.T) {
	m := aggregateDecisions(nil)
	assert.Equal(t, 0, m.TotalDecisions)
	assert.Equal(t, 0.0, m.AverageConfidence)
	assert.Equal(t, 0.0, m.CanonicalReuseRate)
	assert.Empty(t, m.PathCounts)
}

func TestAggregateDecisionsComputesPathDistributionAndAverages(t *testing.T) {
	decisions := []*ent.OrchestratorDecision{
		{Path: entdecision.PathA, Confidence: 0.9},
		{Path: entdecision.PathA, Confidence: 0.8},
		{Path: entdecision.PathC, Confidence: 0.6},
		{Path: entdecision.PathF, Confidence: 0.2},
	}

	m := aggregateDecisions(decisions)

	assert.Equal(t, 4, m.TotalDecisions)
	assert.Equal(t, 2, m.PathCounts["A"])
	assert.Equal(t, 1, m.PathCounts["C"])
	assert.Equal(t, 1, m.PathCounts["F"])
	assert.InDelta(t, 0.625, m.AverageConfidence, 0.0001)
	assert.InDelta(t, 0.25, m.CanonicalReuseRate, 0.0001)
}
