// Package jobs wires the fire-and-forget background work onto asynq:
// memory extraction and quality scoring are enqueued by their callers
// and run out of band, and an autoposter sweep can be enqueued the same
// way (the /scheduled/trigger-autopost endpoint runs its sweep inline);
// escalation-expiry sweeps are instead registered as a recurring
// scheduled task, since nothing enqueues them per-request. None of
// these ever block the chat hot path — a failed job is logged by its
// handler and asynq's own retry policy takes it from there.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/relaysocial/orchestrator/pkg/autopost"
	"github.com/relaysocial/orchestrator/pkg/config"
	"github.com/relaysocial/orchestrator/pkg/escalation"
	"github.com/relaysocial/orchestrator/pkg/memory"
	"github.com/relaysocial/orchestrator/pkg/quality"
	"github.com/relaysocial/orchestrator/pkg/retention"
)

// Task type names, each namespaced "task:<domain>:<verb>".
const (
	TypeMemoryExtract   = "task:memory:extract"
	TypeQualityScore    = "task:quality:score"
	TypeEscalationSweep = "task:escalation:sweep"
	TypeAutoPostRun     = "task:autopost:run"
	TypeRetentionSweep  = "task:retention:sweep"
)

// escalationSweepSchedule is how often the recurring sweep task fires.
// Pending/accepted escalations expire on the order of days (see
// pkg/escalation), so a 15-minute cadence catches an expiry well within
// the window without meaningfully adding load.
const escalationSweepSchedule = "@every 15m"

// retentionSweepSchedule is how often the recurring purge task fires.
// Both conversation and decision-log retention windows are measured in
// days, so an hourly cadence is plenty.
const retentionSweepSchedule = "@every 1h"

// RedisOptFromConfig resolves a CacheConfig into the connection options
// asynq's client, server, and scheduler all take. Password holds the name
// of an environment variable, not the secret itself (the same indirection
// config.SchedulerConfig.KeyEnv uses), so the value is read here rather
// than at config-load time.
func RedisOptFromConfig(cfg *config.CacheConfig) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{Addr: cfg.Addr, DB: cfg.DB}
	if cfg.Password != "" {
		opt.Password = os.Getenv(cfg.Password)
	}
	return opt
}

// MemoryExtractPayload is the task:memory:extract task body.
type MemoryExtractPayload struct {
	AgentID         string        `json:"agent_id"`
	SourceMessageID string        `json:"source_message_id"`
	History         []memory.Turn `json:"history"`
	CurrentMessage  string        `json:"current_message"`
}

// QualityScorePayload is the task:quality:score task body.
type QualityScorePayload struct {
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
	ExchangeCount  int    `json:"exchange_count"`
	UserMessage    string `json:"user_message"`
	Response       string `json:"response"`
	RAGContext     string `json:"rag_context"`
	Transcript     string `json:"transcript"`
}

// Client enqueues fire-and-forget jobs. The chat pipeline holds one of
// these and calls it after a turn's messages are committed.
type Client struct {
	asynq *asynq.Client
}

// NewClient opens an asynq client against the given Redis connection.
// Callers are responsible for calling Close when done.
func NewClient(redisOpt asynq.RedisClientOpt) *Client {
	return &Client{asynq: asynq.NewClient(redisOpt)}
}

// Close releases the underlying Redis connection pool.
func (c *Client) Close() error {
	return c.asynq.Close()
}

// EnqueueMemoryExtract schedules memory extraction for a just-persisted turn.
func (c *Client) EnqueueMemoryExtract(ctx context.Context, p MemoryExtractPayload) error {
	return c.enqueue(ctx, TypeMemoryExtract, p)
}

// EnqueueQualityScore schedules quality scoring for a just-persisted turn.
func (c *Client) EnqueueQualityScore(ctx context.Context, p QualityScorePayload) error {
	return c.enqueue(ctx, TypeQualityScore, p)
}

// EnqueueAutoPostRun schedules one autoposter sweep to run on a worker.
// The scheduler-authenticated HTTP endpoint does not call it; that
// handler runs the sweep inline.
func (c *Client) EnqueueAutoPostRun(ctx context.Context) error {
	return c.enqueue(ctx, TypeAutoPostRun, struct{}{})
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("jobs: marshal %s payload: %w", taskType, err)
	}
	if _, err := c.asynq.EnqueueContext(ctx, asynq.NewTask(taskType, b)); err != nil {
		return fmt.Errorf("jobs: enqueue %s: %w", taskType, err)
	}
	return nil
}

// Handlers holds the domain stores each task type dispatches into.
type Handlers struct {
	Memory     *memory.Extractor
	Quality    *quality.Scorer
	Escalation *escalation.Store
	AutoPost   *autopost.Poster
	Retention  *retention.Sweeper
}

// NewMux builds an asynq handler mux with one route per task type.
func NewMux(h *Handlers) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeMemoryExtract, h.handleMemoryExtract)
	mux.HandleFunc(TypeQualityScore, h.handleQualityScore)
	mux.HandleFunc(TypeEscalationSweep, h.handleEscalationSweep)
	mux.HandleFunc(TypeAutoPostRun, h.handleAutoPostRun)
	mux.HandleFunc(TypeRetentionSweep, h.handleRetentionSweep)
	return mux
}

// RegisterPeriodic registers the recurring escalation and retention sweeps
// on a scheduler. Call Run on the returned scheduler to start it.
func RegisterPeriodic(redisOpt asynq.RedisClientOpt) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt, nil)
	if _, err := scheduler.Register(escalationSweepSchedule, asynq.NewTask(TypeEscalationSweep, nil)); err != nil {
		return nil, fmt.Errorf("jobs: register escalation sweep: %w", err)
	}
	if _, err := scheduler.Register(retentionSweepSchedule, asynq.NewTask(TypeRetentionSweep, nil)); err != nil {
		return nil, fmt.Errorf("jobs: register retention sweep: %w", err)
	}
	return scheduler, nil
}

func (h *Handlers) handleMemoryExtract(ctx context.Context, t *asynq.Task) error {
	var p MemoryExtractPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("jobs: unmarshal %s: %w", TypeMemoryExtract, err)
	}

	n, err := h.Memory.Run(ctx, p.AgentID, p.SourceMessageID, p.History, p.CurrentMessage)
	if err != nil {
		slog.Warn("jobs: memory extraction failed", "agent_id", p.AgentID, "error", err)
		return err
	}
	slog.Info("jobs: memory extraction complete", "agent_id", p.AgentID, "saved", n)
	return nil
}

func (h *Handlers) handleQualityScore(ctx context.Context, t *asynq.Task) error {
	var p QualityScorePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("jobs: unmarshal %s: %w", TypeQualityScore, err)
	}

	if _, err := h.Quality.Score(ctx, p.MessageID, p.UserMessage, p.Response, p.RAGContext); err != nil {
		slog.Warn("jobs: quality scoring failed", "message_id", p.MessageID, "error", err)
		return err
	}

	if p.ConversationID != "" {
		if _, err := h.Quality.MaybeSynthesizeTitle(ctx, p.ConversationID, p.ExchangeCount, p.Transcript); err != nil {
			slog.Warn("jobs: title synthesis failed", "conversation_id", p.ConversationID, "error", err)
		}
	}

	return nil
}

func (h *Handlers) handleEscalationSweep(ctx context.Context, t *asynq.Task) error {
	pending, accepted, err := h.Escalation.SweepExpired(ctx, time.Now())
	if err != nil {
		slog.Warn("jobs: escalation sweep failed", "error", err)
		return err
	}
	slog.Info("jobs: escalation sweep complete", "expired_pending", pending, "expired_accepted", accepted)
	return nil
}

func (h *Handlers) handleAutoPostRun(ctx context.Context, t *asynq.Task) error {
	res, err := h.AutoPost.Run(ctx)
	if err != nil {
		slog.Warn("jobs: autopost sweep failed", "error", err)
		return err
	}
	slog.Info("jobs: autopost sweep complete", "eligible", res.Eligible, "posted", res.Posted, "skipped", res.Skipped, "failed", res.Failed)
	return nil
}

func (h *Handlers) handleRetentionSweep(ctx context.Context, t *asynq.Task) error {
	conversations, decisions, err := h.Retention.Run(ctx, time.Now())
	if err != nil {
		slog.Warn("jobs: retention sweep failed", "error", err)
		return err
	}
	slog.Info("jobs: retention sweep complete", "purged_conversations", conversations, "purged_decisions", decisions)
	return nil
}
