package config

import "time"

// QueueConfig contains the bounded in-process worker pool configuration used
// to cap concurrent chat-turn background processing: a bounded queue and a
// worker pool, shedding under load when it fills. Fire-and-forget jobs
// (memory extraction, quality scoring, autoposting, escalation-expiry
// sweeps) are instead dispatched through the asynq task queue and are not
// governed by this config.
type QueueConfig struct {
	// WorkerCount is the number of goroutines consuming submitted jobs.
	WorkerCount int `yaml:"worker_count"`

	// MaxConcurrentTasks bounds the submission channel's buffer, capping how
	// many jobs may be queued or in flight at once before Submit sheds load.
	MaxConcurrentTasks int `yaml:"max_concurrent_tasks"`

	// PollInterval is the base backoff between a rejected Submit and its retry.
	PollInterval time.Duration `yaml:"poll_interval"`

	// PollIntervalJitter is the random jitter added to PollInterval.
	PollIntervalJitter time.Duration `yaml:"poll_interval_jitter"`

	// TaskTimeout bounds how long a single submitted job may run before its
	// context is canceled.
	TaskTimeout time.Duration `yaml:"task_timeout"`

	// GracefulShutdownTimeout is the max time to wait for in-flight jobs to
	// complete during shutdown. Should match TaskTimeout.
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		WorkerCount:             5,
		MaxConcurrentTasks:      20,
		PollInterval:            1 * time.Second,
		PollIntervalJitter:      500 * time.Millisecond,
		TaskTimeout:             2 * time.Minute,
		GracefulShutdownTimeout: 2 * time.Minute,
	}
}
