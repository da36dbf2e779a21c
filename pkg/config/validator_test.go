package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Defaults: &Defaults{
			LLMProvider:             "default",
			CanonicalReuseThreshold: 0.85,
			MemoryConfidenceFloor:   0.6,
			MemoryDedupSimilarity:   0.93,
		},
		Queue:     DefaultQueueConfig(),
		Retention: DefaultRetentionConfig(),
		Vector:    &VectorConfig{Backend: VectorBackendPgvector},
		RateLimit: &RateLimitConfig{RequestsPerMinute: 60, Burst: 20},
		LLMProviderRegistry: NewLLMProviderRegistry(map[string]*LLMProviderConfig{
			"default": {
				Type:           LLMProviderTypeOpenAI,
				ChatModel:      "gpt-4o-mini",
				EmbeddingModel: "text-embedding-3-small",
				EmbeddingDim:   1536,
			},
		}),
	}
}

func TestValidateAllAcceptsValidConfig(t *testing.T) {
	assert.NoError(t, NewValidator(validConfig()).ValidateAll())
}

func TestValidateQueueRejectsInvalidWorkerCount(t *testing.T) {
	cfg := validConfig()
	cfg.Queue.WorkerCount = 0
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker_count")
}

func TestValidateQueueRejectsJitterAtOrAbovePollInterval(t *testing.T) {
	cfg := validConfig()
	cfg.Queue.PollIntervalJitter = cfg.Queue.PollInterval
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll_interval_jitter")
}

func TestValidateDefaultsRejectsOutOfRangeThreshold(t *testing.T) {
	cfg := validConfig()
	cfg.Defaults.CanonicalReuseThreshold = 1.5
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "canonical_reuse_threshold")
}

func TestValidateVectorRequiresQdrantFieldsWhenSelected(t *testing.T) {
	cfg := validConfig()
	cfg.Vector = &VectorConfig{Backend: VectorBackendQdrant}
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qdrant_url")
}

func TestValidateVectorAcceptsQdrantWithFields(t *testing.T) {
	cfg := validConfig()
	cfg.Vector = &VectorConfig{
		Backend:          VectorBackendQdrant,
		QdrantURL:        "http://localhost:6334",
		QdrantCollection: "chunks",
	}
	assert.NoError(t, NewValidator(cfg).ValidateAll())
}

func TestValidateRateLimitRejectsZeroBurst(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.Burst = 0
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "burst")
}

func TestValidateLLMProvidersRejectsMissingDefaultProvider(t *testing.T) {
	cfg := validConfig()
	cfg.Defaults.LLMProvider = "nonexistent"
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestValidateLLMProvidersRequiresAPIKeyForDefaultProvider(t *testing.T) {
	cfg := validConfig()
	provider, _ := cfg.LLMProviderRegistry.Get("default")
	provider.APIKeyEnv = "SOME_UNSET_VAR_XYZ"
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key_env")
}

func TestValidateLLMProvidersSkipsAPIKeyCheckForUnreferencedProvider(t *testing.T) {
	cfg := validConfig()
	providers := cfg.LLMProviderRegistry.GetAll()
	providers["unused"] = &LLMProviderConfig{
		Type:           LLMProviderTypeOpenAI,
		ChatModel:      "gpt-4o-mini",
		EmbeddingModel: "text-embedding-3-small",
		EmbeddingDim:   1536,
		APIKeyEnv:      "SOME_UNSET_VAR_XYZ",
	}
	assert.NoError(t, NewValidator(cfg).ValidateAll())
}

func TestValidateQueuePositiveDurations(t *testing.T) {
	cfg := validConfig()
	cfg.Queue.TaskTimeout = -1 * time.Second
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task_timeout")
}
