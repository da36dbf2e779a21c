package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/relaysocial/orchestrator/ent"
	entagent "github.com/relaysocial/orchestrator/ent/agent"
	"github.com/relaysocial/orchestrator/pkg/database"
)

// AgentService manages agent creation and profile-scoped lookups. Every
// Agent requires exactly one OrchestratorConfig row, created atomically with
// the agent itself so the policy engine never has to special-case a missing
// config (see ent/schema/orchestratorconfig.go).
type AgentService struct {
	client *ent.Client
}

// NewAgentService builds an AgentService.
func NewAgentService(db *database.Client) *AgentService {
	return &AgentService{client: db.Client}
}

// CreateAgentRequest is the input to CreateAgent.
type CreateAgentRequest struct {
	OwnerProfileID string
	Handle         string
	DisplayName    string
	Persona        string
	// AllowMultiple bypasses the one-agent-per-owner cap for admin-created
	// agents; regular onboarding always leaves this false.
	AllowMultiple bool
}

// CreateAgent creates a new agent and its default orchestrator config in a
// single transaction. Regular owners are capped at one agent
// (ent/schema/agent.go's comment: enforced here, not at the schema level,
// since ent has no cross-row uniqueness predicate).
func (s *AgentService) CreateAgent(ctx context.Context, req CreateAgentRequest) (*ent.Agent, error) {
	if req.OwnerProfileID == "" {
		return nil, NewValidationError("owner_profile_id", "required")
	}
	if !handlePattern.MatchString(req.Handle) {
		return nil, NewValidationError("handle", "must be 3-20 chars of [a-z0-9_]")
	}
	if req.DisplayName == "" {
		return nil, NewValidationError("display_name", "required")
	}
	if req.Persona == "" {
		return nil, NewValidationError("persona", "required")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if !req.AllowMultiple {
		existing, err := s.client.Agent.Query().
			Where(entagent.OwnerProfileIDEQ(req.OwnerProfileID)).
			Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("services: count owner agents: %w", err)
		}
		if existing > 0 {
			return nil, ErrAgentLimitReached
		}
	}

	tx, err := s.client.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("services: start transaction: %w", err)
	}
	defer tx.Rollback()

	agentID := uuid.NewString()
	a, err := tx.Agent.Create().
		SetID(agentID).
		SetOwnerProfileID(req.OwnerProfileID).
		SetHandle(req.Handle).
		SetDisplayName(req.DisplayName).
		SetPersona(req.Persona).
		Save(ctx)
	if err != nil {
		if ent.IsConstraintError(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("services: create agent: %w", err)
	}

	_, err = tx.OrchestratorConfig.Create().
		SetID(uuid.NewString()).
		SetAgentID(agentID).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("services: create default orchestrator config: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("services: commit create agent: %w", err)
	}

	return a, nil
}

// GetAgent loads an agent by ID.
func (s *AgentService) GetAgent(ctx context.Context, id string) (*ent.Agent, error) {
	a, err := s.client.Agent.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("services: get agent: %w", err)
	}
	return a, nil
}

// ListAgentsByOwner lists every agent a profile owns.
func (s *AgentService) ListAgentsByOwner(ctx context.Context, ownerProfileID string) ([]*ent.Agent, error) {
	agents, err := s.client.Agent.Query().
		Where(entagent.OwnerProfileIDEQ(ownerProfileID)).
		Order(ent.Asc(entagent.FieldCreatedAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("services: list agents by owner: %w", err)
	}
	return agents, nil
}

// UpdateAgentRequest is the input to UpdateAgent. Empty fields are left
// unchanged.
type UpdateAgentRequest struct {
	DisplayName     string
	Persona         string
	AutoPostEnabled *bool
}

// UpdateAgent applies an owner-initiated edit. callerProfileID must match
// the agent's owner or ErrForbidden is returned.
func (s *AgentService) UpdateAgent(ctx context.Context, id, callerProfileID string, req UpdateAgentRequest) (*ent.Agent, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	a, err := s.client.Agent.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("services: get agent for update: %w", err)
	}
	if a.OwnerProfileID != callerProfileID {
		return nil, ErrForbidden
	}

	update := s.client.Agent.UpdateOneID(id)
	if req.DisplayName != "" {
		update = update.SetDisplayName(req.DisplayName)
	}
	if req.Persona != "" {
		update = update.SetPersona(req.Persona)
	}
	if req.AutoPostEnabled != nil {
		update = update.SetAutoPostEnabled(*req.AutoPostEnabled)
	}

	a, err = update.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("services: update agent: %w", err)
	}
	return a, nil
}
