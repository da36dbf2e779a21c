package composer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaysocial/orchestrator/pkg/config"
	"github.com/relaysocial/orchestrator/pkg/llm"
)

func TestComposeIncludesBlocksInFixedOrder(t *testing.T) {
	in := Input{
		AgentHandle:  "museumbot",
		AgentPersona: "You are a friendly museum guide.",
		CallerLayer:  config.LayerPublic,
		Summary:      &Summary{Content: "Visitor asked about hours before.", MessageCountAtCreation: 10},
		Memories:     []MemoryHit{{Content: "Visitor's name is Alex", Similarity: 0.9}},
		RAG:          []RAGHit{{Content: "The museum opens at 9am.", Layer: config.LayerPublic, Score: 0.8}},
		History: []HistoryTurn{
			{Role: llm.RoleUser, Content: "hello"},
			{Role: llm.RoleAssistant, Content: "hi there"},
		},
		Query:                    "what time do you open",
		ConversationMessageCount: 12,
	}

	result := Compose(in)
	require.NotEmpty(t, result.Messages)

	system := result.Messages[0].Content
	assert.Contains(t, system, "@museumbot")
	assert.Contains(t, system, "public layer")
	assert.Contains(t, system, "Visitor asked about hours before")
	assert.Contains(t, system, "Visitor's name is Alex")
	assert.Contains(t, system, "The museum opens at 9am")

	summaryIdx := indexOfSubstring(system, "Conversation summary")
	memoriesIdx := indexOfSubstring(system, "Relevant things you remember")
	ragIdx := indexOfSubstring(system, "Relevant knowledge base")
	require.True(t, summaryIdx < memoriesIdx)
	require.True(t, memoriesIdx < ragIdx)
}

func TestComposeAlwaysIncludesLastFiveTurns(t *testing.T) {
	var history []HistoryTurn
	for i := 0; i < 8; i++ {
		history = append(history, HistoryTurn{Role: llm.RoleUser, Content: "turn content about topic A"})
	}

	result := Compose(Input{
		AgentHandle:              "bot",
		AgentPersona:             "persona",
		CallerLayer:              config.LayerPublic,
		History:                  history,
		Query:                    "topic A question",
		ConversationMessageCount: 8,
	})

	// 1 system message + up to 8 history turns (5 always-included + up to 3 older, budget permitting)
	assert.GreaterOrEqual(t, len(result.Messages), 1+alwaysIncludedTurns)
}

func TestComposeTruncatesOlderHistoryUnderTightBudget(t *testing.T) {
	var history []HistoryTurn
	longContent := ""
	for i := 0; i < 2000; i++ {
		longContent += "word "
	}
	for i := 0; i < 20; i++ {
		history = append(history, HistoryTurn{Role: llm.RoleUser, Content: longContent})
	}

	result := Compose(Input{
		AgentHandle:              "bot",
		AgentPersona:             "persona",
		CallerLayer:              config.LayerPublic,
		History:                  history,
		Query:                    "irrelevant query with no overlap",
		ConversationMessageCount: 20,
	})

	assert.True(t, result.HistoryTruncated)
}

func TestNeedsSummaryBelowThresholdIsFalse(t *testing.T) {
	assert.False(t, needsSummary(10, nil))
}

func TestNeedsSummaryAboveThresholdWithNoSummaryIsTrue(t *testing.T) {
	assert.True(t, needsSummary(50, nil))
}

func TestNeedsSummaryStaleSummaryTriggersRefresh(t *testing.T) {
	assert.True(t, needsSummary(120, &Summary{MessageCountAtCreation: 50}))
}

func TestNeedsSummaryFreshSummaryDoesNotRetrigger(t *testing.T) {
	assert.False(t, needsSummary(60, &Summary{MessageCountAtCreation: 50}))
}

func TestMemoriesBlockCapsAtFiveSortedBySimilarity(t *testing.T) {
	memories := []MemoryHit{
		{Content: "low", Similarity: 0.1},
		{Content: "high", Similarity: 0.95},
		{Content: "mid1", Similarity: 0.5},
		{Content: "mid2", Similarity: 0.51},
		{Content: "mid3", Similarity: 0.52},
		{Content: "mid4", Similarity: 0.53},
	}
	block, ok := memoriesBlock(memories)
	require.True(t, ok)
	assert.Contains(t, block, "high")
	assert.NotContains(t, block, "low")
}

func indexOfSubstring(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
