package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

// Worker status constants.
const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// worker consumes jobs from its pool's channel one at a time until stopped.
type worker struct {
	id       string
	pool     *Pool
	stopCh   chan struct{}
	stopOnce sync.Once

	mu            sync.RWMutex
	status        WorkerStatus
	currentJobID  string
	jobsProcessed int
	lastActivity  time.Time
}

func newWorker(id string, pool *Pool) *worker {
	return &worker{
		id:           id,
		pool:         pool,
		stopCh:       make(chan struct{}),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// start begins the worker's consume loop in a goroutine.
func (w *worker) start(ctx context.Context) {
	w.pool.wg.Add(1)
	go w.run(ctx)
}

// stop signals the worker to stop. It is safe to call multiple times.
func (w *worker) stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

func (w *worker) health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:            w.id,
		Status:        string(w.status),
		CurrentJobID:  w.currentJobID,
		JobsProcessed: w.jobsProcessed,
		LastActivity:  w.lastActivity,
	}
}

// run is the main worker loop: pull a job, execute it, repeat.
func (w *worker) run(ctx context.Context) {
	defer w.pool.wg.Done()

	log := slog.With("worker_id", w.id)
	log.Info("worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, worker shutting down")
			return
		case job, ok := <-w.pool.jobs:
			if !ok {
				log.Info("job channel closed, worker shutting down")
				return
			}
			w.execute(job)
		}
	}
}

// execute runs one job under a TaskTimeout-bounded derivative of the job's
// own context, registering it in the pool's cancellation registry for the
// duration of the run.
func (w *worker) execute(job Job) {
	log := slog.With("worker_id", w.id, "job_id", job.ID)
	w.setStatus(WorkerStatusWorking, job.ID)
	defer w.setStatus(WorkerStatusIdle, "")

	jobCtx, cancel := context.WithTimeout(job.Ctx, w.pool.config.TaskTimeout)
	defer cancel()

	w.pool.registerJob(job.ID, cancel)
	defer w.pool.unregisterJob(job.ID)

	if err := job.Run(jobCtx); err != nil {
		log.Error("job failed", "error", err)
	}

	w.mu.Lock()
	w.jobsProcessed++
	w.mu.Unlock()

	log.Info("job complete")
}

func (w *worker) setStatus(status WorkerStatus, jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentJobID = jobID
	w.lastActivity = time.Now()
}
