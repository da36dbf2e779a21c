package policy

import (
	"testing"
	"time"

	"github.com/relaysocial/orchestrator/pkg/config"
	"github.com/relaysocial/orchestrator/pkg/signals"
	"github.com/stretchr/testify/assert"
)

func basePolicy() AgentPolicy {
	return AgentPolicy{
		AllowedUserTiers:              []config.UserTier{config.TierFree, config.TierFollower, config.TierPaid},
		EscalationEnabled:             true,
		AutoAnswerConfidenceThreshold: 0.75,
		ClarificationEnabled:          true,
		MaxEscalationsPerDay:          10,
		MaxEscalationsPerWeek:         50,
	}
}

func baseInput() Input {
	return Input{
		Policy:                  basePolicy(),
		CallerTier:              config.TierFree,
		Message:                 "what's your favorite food",
		Now:                     time.Now(),
		CanonicalReuseThreshold: 0.85,
		Signals: signals.Signals{
			Similarity: 0.5,
			Novelty:    0.5,
			Complexity: 0.3,
			Confidence: 0.5,
			TokenCount: 4,
		},
	}
}

func TestRule1DisallowedTierRefuses(t *testing.T) {
	in := baseInput()
	in.CallerTier = "stranger"
	d := Decide(in)
	assert.Equal(t, config.PathRefuse, d.Path)
	assert.Equal(t, 1, d.RuleOrder)
}

func TestRule1EscalationDisabledWithEscalationSignalsRefuses(t *testing.T) {
	in := baseInput()
	in.Policy.EscalationEnabled = false
	in.Signals.Novelty = 0.9
	d := Decide(in)
	assert.Equal(t, config.PathRefuse, d.Path)
	assert.Equal(t, 1, d.RuleOrder)
}

func TestRule2BlockedTopicRefuses(t *testing.T) {
	in := baseInput()
	in.Policy.BlockedTopics = []string{"politics"}
	in.Message = "let's talk about politics today"
	d := Decide(in)
	assert.Equal(t, config.PathRefuse, d.Path)
	assert.Equal(t, "topic unavailable", d.RefusalReason)
	assert.Equal(t, 2, d.RuleOrder)
}

func TestRule2BlockedTopicIsWordBoundaryNotSubstring(t *testing.T) {
	in := baseInput()
	in.Policy.BlockedTopics = []string{"cat"}
	in.Message = "I love concatenation of strings"
	d := Decide(in)
	assert.NotEqual(t, config.PathRefuse, d.Path)
}

func TestRule3CanonicalReuseAboveThreshold(t *testing.T) {
	in := baseInput()
	in.CanonicalMatch = &CanonicalMatch{ID: "ca_1", Content: "blue", Similarity: 0.9}
	d := Decide(in)
	assert.Equal(t, config.PathCanonicalReuse, d.Path)
	assert.Equal(t, "ca_1", d.CanonicalAnswerID)
	assert.Equal(t, 3, d.RuleOrder)
}

func TestRule3CanonicalBelowThresholdFallsThrough(t *testing.T) {
	in := baseInput()
	in.CanonicalMatch = &CanonicalMatch{ID: "ca_1", Content: "blue", Similarity: 0.6}
	in.Signals.Confidence = 0.8
	d := Decide(in)
	assert.Equal(t, config.PathAutoAnswer, d.Path)
}

func TestRule4AutoAnswerOnHighConfidenceLowComplexity(t *testing.T) {
	in := baseInput()
	in.Signals.Confidence = 0.9
	in.Signals.Complexity = 0.2
	d := Decide(in)
	assert.Equal(t, config.PathAutoAnswer, d.Path)
	assert.Equal(t, 4, d.RuleOrder)
}

func TestRule5ClarifyOnShortSimpleMessage(t *testing.T) {
	in := baseInput()
	in.Signals.Confidence = 0.5
	in.Signals.Complexity = 0.1
	in.Signals.TokenCount = 3
	d := Decide(in)
	assert.Equal(t, config.PathClarify, d.Path)
	assert.Equal(t, 5, d.RuleOrder)
}

func TestRule6EscalateOfferOnNoveltyWithQuotaAvailable(t *testing.T) {
	in := baseInput()
	in.Signals.Confidence = 0.4
	in.Signals.Complexity = 0.5
	in.Signals.Novelty = 0.8
	in.Signals.TokenCount = 20
	d := Decide(in)
	assert.Equal(t, config.PathEscalateOffer, d.Path)
	assert.Equal(t, config.EscalationReasonNovel, d.EscalationReason)
	assert.Equal(t, 6, d.RuleOrder)
}

func TestRule6QuotaExhaustedDegradesToAutoAnswer(t *testing.T) {
	in := baseInput()
	in.Signals.Novelty = 0.9
	in.Signals.Complexity = 0.5
	in.Signals.TokenCount = 20
	in.Quota = QuotaState{Day: 10, Week: 5}
	d := Decide(in)
	assert.Equal(t, config.PathAutoAnswer, d.Path)
	assert.Equal(t, 8, d.RuleOrder)
}

func TestRule7EscalateAcceptOnExplicitAccept(t *testing.T) {
	in := baseInput()
	in.Signals.Confidence = 0.4
	in.Signals.Complexity = 0.5
	in.Signals.Novelty = 0.2
	in.Signals.TokenCount = 20
	in.EscalationAccepted = true
	d := Decide(in)
	assert.Equal(t, config.PathEscalateAccept, d.Path)
	assert.Equal(t, 7, d.RuleOrder)
}

func TestRule8FallbackToAutoAnswer(t *testing.T) {
	in := baseInput()
	in.Signals.Confidence = 0.4
	in.Signals.Complexity = 0.5
	in.Signals.Novelty = 0.2
	in.Signals.TokenCount = 20
	d := Decide(in)
	assert.Equal(t, config.PathAutoAnswer, d.Path)
	assert.Equal(t, 8, d.RuleOrder)
}

func TestEvaluationOrderGateBeatsCanonicalReuse(t *testing.T) {
	in := baseInput()
	in.CallerTier = "stranger"
	in.CanonicalMatch = &CanonicalMatch{ID: "ca_1", Content: "blue", Similarity: 0.99}
	d := Decide(in)
	assert.Equal(t, config.PathRefuse, d.Path)
	assert.Equal(t, 1, d.RuleOrder)
}

func TestExpiredEscalationsCountTowardQuota(t *testing.T) {
	in := baseInput()
	in.Signals.Novelty = 0.9
	in.Signals.TokenCount = 20
	// Day count includes expired/accepted/answered, only declined is excluded
	// by the caller when building QuotaState (see pkg/escalation).
	in.Quota = QuotaState{Day: 10, Week: 0}
	d := Decide(in)
	assert.Equal(t, config.PathAutoAnswer, d.Path, "day quota alone should exhaust and degrade")
}
