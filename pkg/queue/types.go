// Package queue bounds concurrent chat-turn background processing: a fixed
// pool of worker goroutines consumes submitted jobs from a capacity-limited
// channel, each running under its own deadline and registered in a
// cancellation registry. Fire-and-forget jobs (memory extraction, quality
// scoring, autoposting, escalation-expiry sweeps) go through asynq instead
// (pkg/jobs) and never touch this package.
package queue

import (
	"context"
	"errors"
	"time"
)

// ErrAtCapacity indicates the pool's job channel is full and the caller
// should shed the request rather than wait further.
var ErrAtCapacity = errors.New("at capacity")

// Job is a unit of background work submitted to a Pool. Ctx is the
// submitter's own context (typically an HTTP request context) — the worker
// that picks up the job derives its execution deadline from Ctx, not from
// the pool's lifetime, so a client disconnect still cancels the job exactly
// as it would have had it run inline.
type Job struct {
	ID  string
	Ctx context.Context
	Run func(ctx context.Context) error
}

// PoolHealth contains health information for the entire worker pool.
type PoolHealth struct {
	IsHealthy     bool           `json:"is_healthy"`
	PodID         string         `json:"pod_id"`
	ActiveWorkers int            `json:"active_workers"`
	TotalWorkers  int            `json:"total_workers"`
	QueueDepth    int            `json:"queue_depth"`
	MaxConcurrent int            `json:"max_concurrent"`
	WorkerStats   []WorkerHealth `json:"worker_stats"`
}

// WorkerHealth contains health information for a single worker.
type WorkerHealth struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"` // "idle" or "working"
	CurrentJobID  string    `json:"current_job_id,omitempty"`
	JobsProcessed int       `json:"jobs_processed"`
	LastActivity  time.Time `json:"last_activity"`
}
