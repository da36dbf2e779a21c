package config

// Shared types used across configuration structs

// LLMProviderConfig defines a named LLM provider used for chat completion, embeddings,
// and the LLM-judge reranker. Referenced by name from Defaults and from per-call overrides.
type LLMProviderConfig struct {
	Type            LLMProviderType `yaml:"type" validate:"required"`
	APIKeyEnv       string          `yaml:"api_key_env" validate:"required"`
	BaseURL         string          `yaml:"base_url,omitempty"`
	ChatModel       string          `yaml:"chat_model" validate:"required"`
	EmbeddingModel  string          `yaml:"embedding_model" validate:"required"`
	EmbeddingDim    int             `yaml:"embedding_dim" validate:"required,min=1"`
	RequestTimeoutS int             `yaml:"request_timeout_seconds,omitempty"`
}

// VectorConfig selects and configures the ANN backend used for document chunks,
// agent memories, and canonical-answer embeddings.
type VectorConfig struct {
	Backend VectorBackendType `yaml:"backend" validate:"required"`

	// Qdrant-specific settings, only consulted when Backend == VectorBackendQdrant.
	QdrantURL        string `yaml:"qdrant_url,omitempty"`
	QdrantAPIKeyEnv  string `yaml:"qdrant_api_key_env,omitempty"`
	QdrantCollection string `yaml:"qdrant_collection,omitempty"`
}

// RateLimitConfig controls the token-bucket limiter applied per (user, endpoint) pair.
type RateLimitConfig struct {
	RequestsPerMinute  int     `yaml:"requests_per_minute"`
	Burst              int     `yaml:"burst"`
	CleanupIntervalMin float64 `yaml:"cleanup_interval_minutes,omitempty"`
}

// CacheConfig points at the Redis instance backing the conversation-list cache
// and auth-token cache.
type CacheConfig struct {
	Addr     string `yaml:"addr" validate:"required"`
	Password string `yaml:"password_env,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}
