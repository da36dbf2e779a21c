package config

// Defaults contains system-wide default configurations applied when a
// per-agent OrchestratorConfig (loaded from the database) leaves a value unset.
type Defaults struct {
	// LLMProvider names the entry in LLMProviders used when an agent has none configured.
	LLMProvider string `yaml:"llm_provider" validate:"required"`

	// CanonicalReuseThreshold is the fixed, system-wide cosine-similarity threshold
	// for path C (canonical answer reuse). Not exposed per-agent.
	CanonicalReuseThreshold float64 `yaml:"canonical_reuse_threshold" validate:"required,min=0,max=1"`

	// MemoryConfidenceFloor is the minimum confidence an extracted memory must have
	// to be persisted.
	MemoryConfidenceFloor float64 `yaml:"memory_confidence_floor" validate:"required,min=0,max=1"`

	// MemoryDedupSimilarity is the cosine-similarity threshold above which a newly
	// extracted memory is considered a duplicate of an existing one of the same kind.
	MemoryDedupSimilarity float64 `yaml:"memory_dedup_similarity" validate:"required,min=0,max=1"`
}
