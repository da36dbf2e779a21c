package services

import (
	"context"
	"fmt"
	"time"

	"github.com/relaysocial/orchestrator/ent"
	"github.com/relaysocial/orchestrator/ent/event"

	"github.com/relaysocial/orchestrator/pkg/database"
)

// EventService backs the WebSocket catchup mechanism in pkg/events: it
// queries the append-only event log a connection fell behind on, and
// reaps old rows so the table doesn't grow unbounded.
type EventService struct {
	client *ent.Client
}

// NewEventService creates a new EventService.
func NewEventService(db *database.Client) *EventService {
	return &EventService{client: db.Client}
}

// GetEventsSince retrieves events on a channel after sinceID, oldest first,
// capped at limit. Implements the eventQuerier interface pkg/events.
// EventServiceAdapter wraps.
func (s *EventService) GetEventsSince(ctx context.Context, channel string, sinceID, limit int) ([]*ent.Event, error) {
	events, err := s.client.Event.Query().
		Where(
			event.ChannelEQ(channel),
			event.IDGT(sinceID),
		).
		Order(ent.Asc(event.FieldID)).
		Limit(limit).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}

	return events, nil
}

// CleanupAgentEvents removes all logged events for an agent, used when an
// agent is deleted so its channel's history doesn't outlive it.
func (s *EventService) CleanupAgentEvents(ctx context.Context, agentID string) (int, error) {
	writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := s.client.Event.Delete().
		Where(event.AgentIDEQ(agentID)).
		Exec(writeCtx)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup agent events: %w", err)
	}

	return count, nil
}

// CleanupOrphanedEvents removes events older than ttlDays, bounding the
// catchup log's retention independent of any agent's lifecycle.
func (s *EventService) CleanupOrphanedEvents(ctx context.Context, ttlDays int) (int, error) {
	cutoff := time.Now().Add(-time.Duration(ttlDays) * 24 * time.Hour)

	writeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := s.client.Event.Delete().
		Where(event.CreatedAtLT(cutoff)).
		Exec(writeCtx)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup orphaned events: %w", err)
	}

	return count, nil
}
