package queue

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"log/slog"

	"github.com/relaysocial/orchestrator/pkg/config"
)

// Pool manages a fixed set of worker goroutines consuming Jobs from a
// capacity-bounded channel. Submit sheds load (ErrAtCapacity) rather than
// blocking indefinitely: a bounded queue and a worker pool, shedding load
// when it fills rather than backing up indefinitely.
type Pool struct {
	podID  string
	config *config.QueueConfig
	jobs   chan Job

	workers  []*worker
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool

	// Cancellation registry: job ID -> cancel function, for in-flight jobs.
	active map[string]context.CancelFunc
	mu     sync.RWMutex
}

// NewPool creates a new worker pool. podID identifies this process in
// worker IDs and health reporting; it carries no other meaning since jobs
// are never persisted across processes.
func NewPool(podID string, cfg *config.QueueConfig) *Pool {
	return &Pool{
		podID:  podID,
		config: cfg,
		jobs:   make(chan Job, cfg.MaxConcurrentTasks),
		active: make(map[string]context.CancelFunc),
	}
}

// Start spawns the worker goroutines. Safe to call once; subsequent calls
// are no-ops. ctx bounds the workers' own lifetime (process shutdown), not
// any individual job's deadline.
func (p *Pool) Start(ctx context.Context) {
	if p.started {
		slog.Warn("queue pool already started, ignoring duplicate Start call", "pod_id", p.podID)
		return
	}
	p.started = true

	slog.Info("starting turn processing pool", "pod_id", p.podID, "worker_count", p.config.WorkerCount)
	for i := 0; i < p.config.WorkerCount; i++ {
		w := newWorker(fmt.Sprintf("%s-worker-%d", p.podID, i), p)
		p.workers = append(p.workers, w)
		w.start(ctx)
	}
}

// Stop closes the submission channel and waits (up to
// GracefulShutdownTimeout) for in-flight jobs to finish.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.jobs) })

	for _, w := range p.workers {
		w.stop()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("turn processing pool stopped gracefully")
	case <-time.After(p.config.GracefulShutdownTimeout):
		slog.Warn("turn processing pool shutdown timed out, some jobs may have been abandoned")
	}
}

// Submit enqueues a job for processing. It tries once immediately; if the
// pool is at capacity it waits one jittered PollInterval and retries once
// more before giving up with ErrAtCapacity. Returns ctx.Err() if ctx is
// done before a slot frees up.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	select {
	case p.jobs <- job:
		return nil
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.jitteredPollInterval()):
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrAtCapacity
	}
}

// Cancel triggers context cancellation for a job registered on this pool.
// Returns true if the job was found and canceled.
func (p *Pool) Cancel(jobID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if cancel, ok := p.active[jobID]; ok {
		cancel()
		return true
	}
	return false
}

func (p *Pool) registerJob(jobID string, cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active[jobID] = cancel
}

func (p *Pool) unregisterJob(jobID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, jobID)
}

// Health returns the current health status of the pool.
func (p *Pool) Health() *PoolHealth {
	workerStats := make([]WorkerHealth, len(p.workers))
	activeWorkers := 0
	for i, w := range p.workers {
		stats := w.health()
		workerStats[i] = stats
		if stats.Status == string(WorkerStatusWorking) {
			activeWorkers++
		}
	}

	return &PoolHealth{
		IsHealthy:     len(p.workers) > 0,
		PodID:         p.podID,
		ActiveWorkers: activeWorkers,
		TotalWorkers:  len(p.workers),
		QueueDepth:    len(p.jobs),
		MaxConcurrent: p.config.MaxConcurrentTasks,
		WorkerStats:   workerStats,
	}
}

// jitteredPollInterval returns PollInterval +/- PollIntervalJitter.
func (p *Pool) jitteredPollInterval() time.Duration {
	base := p.config.PollInterval
	jitter := p.config.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}
