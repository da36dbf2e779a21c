package config

import (
	"fmt"
	"os"
)

// Validator validates configuration comprehensively with clear error messages
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast - stops at first error)
func (v *Validator) ValidateAll() error {
	if err := v.validateQueue(); err != nil {
		return fmt.Errorf("queue validation failed: %w", err)
	}

	if err := v.validateDefaults(); err != nil {
		return fmt.Errorf("defaults validation failed: %w", err)
	}

	if err := v.validateVector(); err != nil {
		return fmt.Errorf("vector validation failed: %w", err)
	}

	if err := v.validateRateLimit(); err != nil {
		return fmt.Errorf("rate limit validation failed: %w", err)
	}

	if err := v.validateLLMProviders(); err != nil {
		return fmt.Errorf("LLM provider validation failed: %w", err)
	}

	return nil
}

func (v *Validator) validateQueue() error {
	q := v.cfg.Queue
	if q == nil {
		return fmt.Errorf("queue configuration is nil")
	}

	if q.WorkerCount < 1 || q.WorkerCount > 50 {
		return fmt.Errorf("worker_count must be between 1 and 50, got %d", q.WorkerCount)
	}
	if q.MaxConcurrentTasks < 1 {
		return fmt.Errorf("max_concurrent_tasks must be at least 1, got %d", q.MaxConcurrentTasks)
	}
	if q.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", q.PollInterval)
	}
	if q.PollIntervalJitter < 0 {
		return fmt.Errorf("poll_interval_jitter must be non-negative, got %v", q.PollIntervalJitter)
	}
	if q.PollIntervalJitter >= q.PollInterval {
		return fmt.Errorf("poll_interval_jitter must be less than poll_interval, got jitter=%v interval=%v", q.PollIntervalJitter, q.PollInterval)
	}
	if q.TaskTimeout <= 0 {
		return fmt.Errorf("task_timeout must be positive, got %v", q.TaskTimeout)
	}
	if q.GracefulShutdownTimeout <= 0 {
		return fmt.Errorf("graceful_shutdown_timeout must be positive, got %v", q.GracefulShutdownTimeout)
	}

	return nil
}

func (v *Validator) validateDefaults() error {
	defaults := v.cfg.Defaults
	if defaults == nil {
		return fmt.Errorf("defaults configuration is nil")
	}

	if defaults.LLMProvider == "" {
		return NewValidationError("defaults", "", "llm_provider", fmt.Errorf("required"))
	}
	if defaults.CanonicalReuseThreshold < 0 || defaults.CanonicalReuseThreshold > 1 {
		return NewValidationError("defaults", "", "canonical_reuse_threshold", fmt.Errorf("must be between 0 and 1"))
	}
	if defaults.MemoryConfidenceFloor < 0 || defaults.MemoryConfidenceFloor > 1 {
		return NewValidationError("defaults", "", "memory_confidence_floor", fmt.Errorf("must be between 0 and 1"))
	}
	if defaults.MemoryDedupSimilarity < 0 || defaults.MemoryDedupSimilarity > 1 {
		return NewValidationError("defaults", "", "memory_dedup_similarity", fmt.Errorf("must be between 0 and 1"))
	}

	return nil
}

func (v *Validator) validateVector() error {
	vc := v.cfg.Vector
	if vc == nil {
		return fmt.Errorf("vector configuration is nil")
	}
	if !vc.Backend.IsValid() {
		return NewValidationError("vector", "", "backend", fmt.Errorf("invalid backend: %s", vc.Backend))
	}
	if vc.Backend == VectorBackendQdrant {
		if vc.QdrantURL == "" {
			return NewValidationError("vector", "", "qdrant_url", fmt.Errorf("required when backend is qdrant"))
		}
		if vc.QdrantCollection == "" {
			return NewValidationError("vector", "", "qdrant_collection", fmt.Errorf("required when backend is qdrant"))
		}
	}
	return nil
}

func (v *Validator) validateRateLimit() error {
	rl := v.cfg.RateLimit
	if rl == nil {
		return fmt.Errorf("rate limit configuration is nil")
	}
	if rl.RequestsPerMinute < 1 {
		return NewValidationError("rate_limit", "", "requests_per_minute", fmt.Errorf("must be at least 1"))
	}
	if rl.Burst < 1 {
		return NewValidationError("rate_limit", "", "burst", fmt.Errorf("must be at least 1"))
	}
	return nil
}

func (v *Validator) validateLLMProviders() error {
	for name, provider := range v.cfg.LLMProviderRegistry.GetAll() {
		if !provider.Type.IsValid() {
			return NewValidationError("llm_provider", name, "type", fmt.Errorf("invalid provider type: %s", provider.Type))
		}
		if provider.ChatModel == "" {
			return NewValidationError("llm_provider", name, "chat_model", fmt.Errorf("required"))
		}
		if provider.EmbeddingModel == "" {
			return NewValidationError("llm_provider", name, "embedding_model", fmt.Errorf("required"))
		}
		if provider.EmbeddingDim < 1 {
			return NewValidationError("llm_provider", name, "embedding_dim", fmt.Errorf("must be at least 1"))
		}

		// Only the provider referenced by defaults needs its API key present at
		// startup; others may be configured for future use without credentials yet.
		if name == v.cfg.Defaults.LLMProvider && provider.APIKeyEnv != "" {
			if value := os.Getenv(provider.APIKeyEnv); value == "" {
				return NewValidationError("llm_provider", name, "api_key_env", fmt.Errorf("environment variable %s is not set", provider.APIKeyEnv))
			}
		}
	}

	if !v.cfg.LLMProviderRegistry.Has(v.cfg.Defaults.LLMProvider) {
		return NewValidationError("defaults", "", "llm_provider", fmt.Errorf("provider '%s' not found", v.cfg.Defaults.LLMProvider))
	}

	return nil
}
