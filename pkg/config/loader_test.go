package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestInitializeLoadsMinimalConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OPENAI_API_KEY", "sk-test")

	writeConfigFile(t, dir, "orchestrator.yaml", `
defaults:
  llm_provider: default
  canonical_reuse_threshold: 0.85
  memory_confidence_floor: 0.6
  memory_dedup_similarity: 0.93
vector:
  backend: pgvector
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.Defaults.LLMProvider)
	assert.Equal(t, VectorBackendPgvector, cfg.Vector.Backend)
	assert.True(t, cfg.LLMProviderRegistry.Has("default"))
	// built-in queue/retention defaults still apply when the YAML omits them
	assert.Equal(t, 5, cfg.Queue.WorkerCount)
	assert.Equal(t, 365, cfg.Retention.ConversationRetentionDays)
}

func TestInitializeMergesUserLLMProviderOverBuiltin(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OPENAI_API_KEY", "sk-test")

	writeConfigFile(t, dir, "orchestrator.yaml", `
defaults:
  llm_provider: default
  canonical_reuse_threshold: 0.85
  memory_confidence_floor: 0.6
  memory_dedup_similarity: 0.93
vector:
  backend: pgvector
`)
	writeConfigFile(t, dir, "llm-providers.yaml", `
llm_providers:
  default:
    type: openai
    api_key_env: OPENAI_API_KEY
    chat_model: gpt-4o
    embedding_model: text-embedding-3-large
    embedding_dim: 3072
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	provider, err := cfg.GetLLMProvider("default")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", provider.ChatModel)
	assert.Equal(t, 3072, provider.EmbeddingDim)
}

func TestInitializeFailsWithoutOrchestratorYAML(t *testing.T) {
	dir := t.TempDir()
	_, err := Initialize(context.Background(), dir)
	assert.Error(t, err)
}

func TestInitializeFailsOnUnresolvedDefaultProvider(t *testing.T) {
	dir := t.TempDir()

	writeConfigFile(t, dir, "orchestrator.yaml", `
defaults:
  llm_provider: nonexistent
  canonical_reuse_threshold: 0.85
  memory_confidence_floor: 0.6
  memory_dedup_similarity: 0.93
`)

	_, err := Initialize(context.Background(), dir)
	assert.Error(t, err)
}

func TestInitializeAppliesUserQueueOverridesOnTopOfDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OPENAI_API_KEY", "sk-test")

	writeConfigFile(t, dir, "orchestrator.yaml", `
defaults:
  llm_provider: default
  canonical_reuse_threshold: 0.85
  memory_confidence_floor: 0.6
  memory_dedup_similarity: 0.93
queue:
  worker_count: 12
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Queue.WorkerCount)
	// unset fields retain built-in defaults
	assert.Positive(t, cfg.Queue.TaskTimeout)
}

func TestExpandEnvAppliedDuringLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LLM_PROVIDER_NAME", "default")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	writeConfigFile(t, dir, "orchestrator.yaml", `
defaults:
  llm_provider: {{.LLM_PROVIDER_NAME}}
  canonical_reuse_threshold: 0.85
  memory_confidence_floor: 0.6
  memory_dedup_similarity: 0.93
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.Defaults.LLMProvider)
}
