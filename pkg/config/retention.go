package config

import "time"

// RetentionConfig controls data retention and cleanup behavior.
type RetentionConfig struct {
	// ConversationRetentionDays is how many days to keep a conversation where both
	// participants have deleted it before the rows are purged.
	// Both-deleted conversations are soft-retained (deleted_at set) until this elapses,
	// since purging immediately would destroy message history the surviving
	// participant never asked to delete.
	ConversationRetentionDays int `yaml:"conversation_retention_days"`

	// DecisionLogTTL is the maximum age of OrchestratorDecision rows before cleanup.
	DecisionLogTTL time.Duration `yaml:"decision_log_ttl"`

	// CleanupInterval is loaded from config but is not read by the job
	// scheduler; pkg/jobs runs the retention sweep on a fixed hourly schedule.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		ConversationRetentionDays: 365,
		DecisionLogTTL:            90 * 24 * time.Hour,
		CleanupInterval:           12 * time.Hour,
	}
}
