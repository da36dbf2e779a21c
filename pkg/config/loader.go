package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// OrchestratorYAMLConfig represents the complete orchestrator.yaml file structure.
type OrchestratorYAMLConfig struct {
	System    *SystemYAMLConfig `yaml:"system"`
	Defaults  *Defaults         `yaml:"defaults"`
	Queue     *QueueConfig      `yaml:"queue"`
	Retention *RetentionConfig  `yaml:"retention"`
	Vector    *VectorConfig     `yaml:"vector"`
	RateLimit *RateLimitConfig  `yaml:"rate_limit"`
	Cache     *CacheConfig      `yaml:"cache"`
}

// SystemYAMLConfig groups system-wide infrastructure settings.
type SystemYAMLConfig struct {
	AllowedOrigins []string             `yaml:"allowed_origins"`
	Scheduler      *SchedulerYAMLConfig `yaml:"scheduler"`
}

// SchedulerYAMLConfig holds scheduler authentication settings from YAML.
type SchedulerYAMLConfig struct {
	KeyEnv string `yaml:"key_env,omitempty"`
}

// LLMProvidersYAMLConfig represents the complete llm-providers.yaml file structure.
type LLMProvidersYAMLConfig struct {
	LLMProviders map[string]LLMProviderConfig `yaml:"llm_providers"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load YAML files from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in + user-defined LLM providers
//  5. Merge user queue/retention config on top of built-in defaults
//  6. Validate all configuration
//  7. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully", "llm_providers", stats.LLMProviders)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	orchCfg, err := loader.loadOrchestratorYAML()
	if err != nil {
		return nil, NewLoadError("orchestrator.yaml", err)
	}

	llmProviders, err := loader.loadLLMProvidersYAML()
	if err != nil {
		return nil, NewLoadError("llm-providers.yaml", err)
	}

	builtin := GetBuiltinProviders()
	llmProvidersMerged := mergeLLMProviders(builtin, llmProviders)
	llmProviderRegistry := NewLLMProviderRegistry(llmProvidersMerged)

	defaults := orchCfg.Defaults
	if defaults == nil {
		return nil, fmt.Errorf("defaults section is required")
	}

	queueCfg := DefaultQueueConfig()
	if orchCfg.Queue != nil {
		if err := mergo.Merge(queueCfg, orchCfg.Queue, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge queue config: %w", err)
		}
	}

	retentionCfg := DefaultRetentionConfig()
	if orchCfg.Retention != nil {
		if err := mergo.Merge(retentionCfg, orchCfg.Retention, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge retention config: %w", err)
		}
	}

	vectorCfg := orchCfg.Vector
	if vectorCfg == nil {
		vectorCfg = &VectorConfig{Backend: VectorBackendPgvector}
	}

	rateLimitCfg := orchCfg.RateLimit
	if rateLimitCfg == nil {
		rateLimitCfg = &RateLimitConfig{RequestsPerMinute: 60, Burst: 20, CleanupIntervalMin: 10}
	}

	schedulerCfg := resolveSchedulerConfig(orchCfg.System)
	allowedOrigins := resolveAllowedOrigins(orchCfg.System)
	autoPostCfg := resolveAutoPostConfig()
	authCfg := resolveAuthConfig()

	return &Config{
		configDir:           configDir,
		Defaults:            defaults,
		Queue:               queueCfg,
		Retention:           retentionCfg,
		Vector:              vectorCfg,
		RateLimit:           rateLimitCfg,
		Cache:               orchCfg.Cache,
		Scheduler:           schedulerCfg,
		AutoPost:            autoPostCfg,
		Auth:                authCfg,
		AllowedOrigins:      allowedOrigins,
		LLMProviderRegistry: llmProviderRegistry,
	}, nil
}

func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadOrchestratorYAML() (*OrchestratorYAMLConfig, error) {
	var config OrchestratorYAMLConfig
	if err := l.loadYAML("orchestrator.yaml", &config); err != nil {
		return nil, err
	}
	return &config, nil
}

func (l *configLoader) loadLLMProvidersYAML() (map[string]LLMProviderConfig, error) {
	var config LLMProvidersYAMLConfig
	config.LLMProviders = make(map[string]LLMProviderConfig)

	if err := l.loadYAML("llm-providers.yaml", &config); err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			return config.LLMProviders, nil
		}
		return nil, err
	}

	return config.LLMProviders, nil
}

// resolveSchedulerConfig resolves scheduler configuration from system YAML, applying defaults.
func resolveSchedulerConfig(sys *SystemYAMLConfig) *SchedulerConfig {
	cfg := &SchedulerConfig{KeyEnv: "SCHEDULER_KEY"}

	if sys != nil && sys.Scheduler != nil && sys.Scheduler.KeyEnv != "" {
		cfg.KeyEnv = sys.Scheduler.KeyEnv
	}

	return cfg
}

// resolveAllowedOrigins returns allowed CORS/WebSocket origin patterns from system YAML.
func resolveAllowedOrigins(sys *SystemYAMLConfig) []string {
	if sys != nil {
		return sys.AllowedOrigins
	}
	return nil
}
