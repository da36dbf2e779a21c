package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerExecuteTracksStatusAndJobsProcessed(t *testing.T) {
	pool := NewPool("pod-1", testQueueConfig())
	w := newWorker("worker-1", pool)

	assert.Equal(t, string(WorkerStatusIdle), w.health().Status)

	var sawWorking atomic.Bool
	w.execute(Job{
		ID:  "job-1",
		Ctx: context.Background(),
		Run: func(ctx context.Context) error {
			sawWorking.Store(w.health().Status == string(WorkerStatusWorking))
			return nil
		},
	})

	assert.True(t, sawWorking.Load())
	health := w.health()
	assert.Equal(t, string(WorkerStatusIdle), health.Status)
	assert.Equal(t, 1, health.JobsProcessed)
	assert.Empty(t, health.CurrentJobID)
}

func TestWorkerExecuteRegistersAndUnregistersCancelFunc(t *testing.T) {
	pool := NewPool("pod-1", testQueueConfig())
	w := newWorker("worker-1", pool)

	var registeredDuringRun bool
	w.execute(Job{
		ID:  "job-1",
		Ctx: context.Background(),
		Run: func(ctx context.Context) error {
			registeredDuringRun = pool.Cancel("job-1")
			return nil
		},
	})

	assert.True(t, registeredDuringRun)
	assert.False(t, pool.Cancel("job-1"), "cancel entry should be removed once the job finishes")
}

func TestWorkerExecuteEnforcesTaskTimeout(t *testing.T) {
	cfg := testQueueConfig()
	cfg.TaskTimeout = 20 * time.Millisecond
	pool := NewPool("pod-1", cfg)
	w := newWorker("worker-1", pool)

	var gotErr error
	w.execute(Job{
		ID:  "job-1",
		Ctx: context.Background(),
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			gotErr = ctx.Err()
			return ctx.Err()
		},
	})

	assert.ErrorIs(t, gotErr, context.DeadlineExceeded)
}

func TestWorkerExecuteHonorsJobContextCancellation(t *testing.T) {
	pool := NewPool("pod-1", testQueueConfig())
	w := newWorker("worker-1", pool)

	jobCtx, cancel := context.WithCancel(context.Background())
	cancel()

	var gotErr error
	w.execute(Job{
		ID:  "job-1",
		Ctx: jobCtx,
		Run: func(ctx context.Context) error {
			gotErr = ctx.Err()
			return ctx.Err()
		},
	})

	assert.ErrorIs(t, gotErr, context.Canceled)
}

func TestWorkerExecuteLogsJobFailureWithoutPanicking(t *testing.T) {
	pool := NewPool("pod-1", testQueueConfig())
	w := newWorker("worker-1", pool)

	require.NotPanics(t, func() {
		w.execute(Job{
			ID:  "job-1",
			Ctx: context.Background(),
			Run: func(ctx context.Context) error {
				return errors.New("boom")
			},
		})
	})
	assert.Equal(t, 1, w.health().JobsProcessed)
}
