package services

import (
	"context"
	"fmt"
	"time"

	"github.com/relaysocial/orchestrator/ent"
	entescalation "github.com/relaysocial/orchestrator/ent/escalation"
	"github.com/relaysocial/orchestrator/pkg/config"
	"github.com/relaysocial/orchestrator/pkg/database"
	"github.com/relaysocial/orchestrator/pkg/embedding"
	"github.com/relaysocial/orchestrator/pkg/escalation"
)

// EscalationService is the agent creator's side of the escalation queue:
// listing pending offers and resolving them with decline/answer. The
// end-user's accept action (path E) is handled directly by
// pkg/orchestrator.dispatchEscalateAccept, since it happens inline in a
// chat turn rather than through a creator-facing queue screen.
type EscalationService struct {
	client    *ent.Client
	store     *escalation.Store
	embedding *embedding.Service
}

// NewEscalationService builds an EscalationService.
func NewEscalationService(db *database.Client, store *escalation.Store, emb *embedding.Service) *EscalationService {
	return &EscalationService{client: db.Client, store: store, embedding: emb}
}

// ListPending returns an agent's pending escalations, oldest first, so a
// creator working through the queue naturally clears the backlog in offer
// order.
func (s *EscalationService) ListPending(ctx context.Context, agentID, callerProfileID string) ([]*ent.Escalation, error) {
	a, err := s.client.Agent.Get(ctx, agentID)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("services: get agent for escalation queue: %w", err)
	}
	if a.OwnerProfileID != callerProfileID {
		return nil, ErrForbidden
	}

	rows, err := s.client.Escalation.Query().
		Where(
			entescalation.AgentIDEQ(agentID),
			entescalation.StatusIn(entescalation.StatusPending, entescalation.StatusAccepted),
		).
		Order(ent.Asc(entescalation.FieldOfferedAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("services: list pending escalations: %w", err)
	}
	return rows, nil
}

// Decline resolves an escalation without answering it.
func (s *EscalationService) Decline(ctx context.Context, escalationID, callerProfileID string) error {
	e, err := s.ownedEscalation(ctx, escalationID, callerProfileID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.store.Decline(ctx, e.ID); err != nil {
		return fmt.Errorf("services: decline escalation: %w", err)
	}
	return nil
}

// AnswerRequest is the input to Answer.
type AnswerRequest struct {
	Content string
	Layer   config.Layer
}

// Answer resolves an accepted escalation with a creator-authored answer,
// which atomically becomes a CanonicalAnswer for future path-C reuse
// (pkg/escalation.Store.Answer). The embedding call happens here, outside
// the state machine's guarded transition, keeping I/O out of the
// state-transition call itself.
func (s *EscalationService) Answer(ctx context.Context, escalationID, callerProfileID string, req AnswerRequest) (*ent.Escalation, *ent.CanonicalAnswer, error) {
	if req.Content == "" {
		return nil, nil, NewValidationError("content", "required")
	}
	if !req.Layer.IsValid() {
		return nil, nil, NewValidationError("layer", fmt.Sprintf("unknown layer %q", req.Layer))
	}

	e, err := s.ownedEscalation(ctx, escalationID, callerProfileID)
	if err != nil {
		return nil, nil, err
	}

	vectors, err := s.embedding.Embed(ctx, []string{e.OriginalMessage})
	if err != nil {
		return nil, nil, fmt.Errorf("services: embed escalation question pattern: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	updated, ca, err := s.store.Answer(ctx, e.ID, req.Content, req.Layer, vectors[0])
	if err != nil {
		return nil, nil, fmt.Errorf("services: answer escalation: %w", err)
	}
	return updated, ca, nil
}

func (s *EscalationService) ownedEscalation(ctx context.Context, escalationID, callerProfileID string) (*ent.Escalation, error) {
	e, err := s.client.Escalation.Get(ctx, escalationID)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("services: get escalation: %w", err)
	}

	a, err := s.client.Agent.Get(ctx, e.AgentID)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("services: get escalation's agent: %w", err)
	}
	if a.OwnerProfileID != callerProfileID {
		return nil, ErrForbidden
	}

	return e, nil
}
