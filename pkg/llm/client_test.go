package llm

import (
	"testing"

	"github.com/relaysocial/orchestrator/pkg/config"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresAPIKey(t *testing.T) {
	t.Setenv("TEST_EMPTY_KEY", "")
	provider := &config.LLMProviderConfig{
		Type:      config.LLMProviderTypeOpenAI,
		APIKeyEnv: "TEST_EMPTY_KEY",
	}

	_, err := New(provider)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEST_EMPTY_KEY")
}

func TestNewSucceedsWithAPIKey(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-test")
	provider := &config.LLMProviderConfig{
		Type:           config.LLMProviderTypeOpenAI,
		APIKeyEnv:      "TEST_API_KEY",
		ChatModel:      "gpt-4o-mini",
		EmbeddingModel: "text-embedding-3-small",
		EmbeddingDim:   1536,
	}

	c, err := New(provider)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", c.ChatModel())
	assert.Equal(t, "text-embedding-3-small", c.EmbeddingModel())
	assert.Equal(t, 1536, c.EmbeddingDim())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&openai.APIError{HTTPStatusCode: 429}))
	assert.True(t, isRetryable(&openai.APIError{HTTPStatusCode: 503}))
	assert.False(t, isRetryable(&openai.APIError{HTTPStatusCode: 400}))
	assert.False(t, isRetryable(assert.AnError))
}
