package config

// Config is the umbrella configuration object that encapsulates
// system-wide defaults, infra settings, and the LLM provider registry.
// This is the primary object returned by Initialize() and used throughout the application.
//
// Per-agent policy (OrchestratorConfig) is owner-mutable runtime data and lives in
// the database, not here — see pkg/services for its CRUD surface.
type Config struct {
	configDir string // Configuration directory path (for reference)

	Defaults       *Defaults
	Queue          *QueueConfig
	Retention      *RetentionConfig
	Vector         *VectorConfig
	RateLimit      *RateLimitConfig
	Cache          *CacheConfig
	Scheduler      *SchedulerConfig
	AutoPost       *AutoPostConfig
	Auth           *AuthConfig
	AllowedOrigins []string

	LLMProviderRegistry *LLMProviderRegistry
}

// Initialize is defined in loader.go

// ConfigStats contains statistics about loaded configuration
type ConfigStats struct {
	LLMProviders int
}

// Stats returns configuration statistics for logging/monitoring
func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		LLMProviders: len(c.LLMProviderRegistry.GetAll()),
	}
}

// ConfigDir returns the configuration directory path
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetLLMProvider retrieves an LLM provider configuration by name.
// This is a convenience method that wraps LLMProviderRegistry.Get().
func (c *Config) GetLLMProvider(name string) (*LLMProviderConfig, error) {
	return c.LLMProviderRegistry.Get(name)
}
