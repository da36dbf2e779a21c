package services

import (
	"context"
	"fmt"
	"time"

	"github.com/relaysocial/orchestrator/ent"
	entescalation "github.com/relaysocial/orchestrator/ent/escalation"
	entdecision "github.com/relaysocial/orchestrator/ent/orchestratordecision"
	"github.com/relaysocial/orchestrator/pkg/config"
	"github.com/relaysocial/orchestrator/pkg/database"
)

// defaultMetricsWindow is how far back Metrics looks when the caller doesn't
// specify one; wide enough to smooth out a single slow day, narrow enough
// that a config change shows up within a reasonable response window.
const defaultMetricsWindow = 7 * 24 * time.Hour

// MetricsService aggregates the append-only OrchestratorDecision log into
// the per-agent analytics a creator's dashboard shows: how often the
// orchestrator answers on its own vs. clarifies, escalates, or refuses, and
// how well the canonical-answer and escalation mechanisms are working.
type MetricsService struct {
	client *ent.Client
}

// NewMetricsService builds a MetricsService.
func NewMetricsService(db *database.Client) *MetricsService {
	return &MetricsService{client: db.Client}
}

// PathCounts maps each decision path to how many times it fired in the window.
type PathCounts map[config.DecisionPath]int

// Metrics is the aggregated view for one agent over one rolling window.
type Metrics struct {
	AgentID                  string
	WindowStart              time.Time
	WindowEnd                time.Time
	TotalDecisions           int
	PathCounts               PathCounts
	AverageConfidence        float64
	EscalationAcceptanceRate float64 // accepted+answered / (accepted+answered+declined+expired)
	CanonicalReuseRate       float64 // path C decisions / total decisions
}

// Metrics computes the rolling-window analytics for one agent. callerProfileID
// must own the agent or ErrForbidden is returned. A zero window falls back
// to defaultMetricsWindow.
func (s *MetricsService) Metrics(ctx context.Context, agentID, callerProfileID string, window time.Duration, now time.Time) (*Metrics, error) {
	a, err := s.client.Agent.Get(ctx, agentID)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("services: get agent for metrics: %w", err)
	}
	if a.OwnerProfileID != callerProfileID {
		return nil, ErrForbidden
	}

	if window <= 0 {
		window = defaultMetricsWindow
	}
	windowStart := now.Add(-window)

	decisions, err := s.client.OrchestratorDecision.Query().
		Where(
			entdecision.AgentIDEQ(agentID),
			entdecision.CreatedAtGTE(windowStart),
		).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("services: query decisions for metrics: %w", err)
	}

	m := aggregateDecisions(decisions)
	m.AgentID = agentID
	m.WindowStart = windowStart
	m.WindowEnd = now

	rate, err := s.escalationAcceptanceRate(ctx, agentID, windowStart)
	if err != nil {
		return nil, err
	}
	m.EscalationAcceptanceRate = rate

	return m, nil
}

// aggregateDecisions computes path distribution, average confidence, and
// canonical reuse rate from a window's worth of decision rows. Pure and
// database-independent so it can be exercised directly in tests.
func aggregateDecisions(decisions []*ent.OrchestratorDecision) *Metrics {
	m := &Metrics{PathCounts: PathCounts{}}

	var confidenceSum float64
	for _, d := range decisions {
		path := config.DecisionPath(d.Path)
		m.PathCounts[path]++
		confidenceSum += d.Confidence
	}
	m.TotalDecisions = len(decisions)
	if m.TotalDecisions > 0 {
		m.AverageConfidence = confidenceSum / float64(m.TotalDecisions)
		m.CanonicalReuseRate = float64(m.PathCounts[config.PathCanonicalReuse]) / float64(m.TotalDecisions)
	}
	return m
}

// escalationAcceptanceRate counts escalations offered in the window that
// have left pending (accepted, answered, declined, or expired) and returns
// the fraction that the
// end-user actually accepted or the creator answered.
func (s *MetricsService) escalationAcceptanceRate(ctx context.Context, agentID string, windowStart time.Time) (float64, error) {
	resolved, err := s.client.Escalation.Query().
		Where(
			entescalation.AgentIDEQ(agentID),
			entescalation.OfferedAtGTE(windowStart),
			entescalation.StatusNEQ(entescalation.StatusPending),
		).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("services: count resolved escalations: %w", err)
	}
	if resolved == 0 {
		return 0, nil
	}

	accepted, err := s.client.Escalation.Query().
		Where(
			entescalation.AgentIDEQ(agentID),
			entescalation.OfferedAtGTE(windowStart),
			entescalation.StatusIn(entescalation.StatusAccepted, entescalation.StatusAnswered),
		).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("services: count accepted escalations: %w", err)
	}

	return float64(accepted) / float64(resolved), nil
}
