package jobs

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaysocial/orchestrator/pkg/config"
	"github.com/relaysocial/orchestrator/pkg/memory"
)

func TestRedisOptFromConfigResolvesPasswordEnvVar(t *testing.T) {
	t.Setenv("TEST_REDIS_PASSWORD", "s3cret")

	opt := RedisOptFromConfig(&config.CacheConfig{Addr: "localhost:6379", Password: "TEST_REDIS_PASSWORD", DB: 2})

	assert.Equal(t, "localhost:6379", opt.Addr)
	assert.Equal(t, "s3cret", opt.Password)
	assert.Equal(t, 2, opt.DB)
}

func TestRedisOptFromConfigLeavesPasswordEmptyWhenUnset(t *testing.T) {
	os.Unsetenv("TEST_REDIS_PASSWORD_UNSET")

	opt := RedisOptFromConfig(&config.CacheConfig{Addr: "localhost:6379"})

	assert.Empty(t, opt.Password)
}

func TestMemoryExtractPayloadRoundTripsThroughJSON(t *testing.T) {
	p := MemoryExtractPayload{
		AgentID:         "agent-1",
		SourceMessageID: "msg-1",
		History:         []memory.Turn{{Role: "user", Content: "hi"}},
		CurrentMessage:  "how are you",
	}

	b, err := json.Marshal(p)
	require.NoError(t, err)

	var got MemoryExtractPayload
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, p, got)
}

func TestQualityScorePayloadRoundTripsThroughJSON(t *testing.T) {
	p := QualityScorePayload{
		MessageID:      "msg-1",
		ConversationID: "conv-1",
		ExchangeCount:  4,
		UserMessage:    "question",
		Response:       "answer",
		RAGContext:     "context",
		Transcript:     "user: question\nassistant: answer",
	}

	b, err := json.Marshal(p)
	require.NoError(t, err)

	var got QualityScorePayload
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, p, got)
}
