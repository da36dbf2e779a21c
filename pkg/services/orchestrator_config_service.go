package services

import (
	"context"
	"fmt"
	"time"

	"github.com/relaysocial/orchestrator/ent"
	entorchconfig "github.com/relaysocial/orchestrator/ent/orchestratorconfig"
	"github.com/relaysocial/orchestrator/pkg/config"
	"github.com/relaysocial/orchestrator/pkg/database"
)

// OrchestratorConfigService lets an agent's creator read and tune the
// per-agent policy knobs pkg/policy reads on every turn.
type OrchestratorConfigService struct {
	client *ent.Client
}

// NewOrchestratorConfigService builds an OrchestratorConfigService.
func NewOrchestratorConfigService(db *database.Client) *OrchestratorConfigService {
	return &OrchestratorConfigService{client: db.Client}
}

// GetConfig loads the config row for an agent. callerProfileID must own the
// agent or ErrForbidden is returned.
func (s *OrchestratorConfigService) GetConfig(ctx context.Context, agentID, callerProfileID string) (*ent.OrchestratorConfig, error) {
	a, err := s.client.Agent.Get(ctx, agentID)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("services: get agent for config: %w", err)
	}
	if a.OwnerProfileID != callerProfileID {
		return nil, ErrForbidden
	}

	cfg, err := s.client.OrchestratorConfig.Query().Where(entorchconfig.AgentIDEQ(agentID)).Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("services: get orchestrator config: %w", err)
	}
	return cfg, nil
}

// UpdateConfigRequest is the input to UpdateConfig. Pointer/nil-slice fields
// are left unchanged when not provided.
type UpdateConfigRequest struct {
	MaxEscalationsPerDay          *int
	MaxEscalationsPerWeek         *int
	EscalationEnabled             *bool
	AutoAnswerConfidenceThreshold *float64
	ClarificationEnabled          *bool
	BlockedTopics                 []string
	AllowedUserTiers              []config.UserTier
}

// UpdateConfig applies an owner-initiated edit to an agent's orchestrator
// config. Thresholds and tier lists are validated against the same enums
// pkg/policy and pkg/config use, so a bad write here can never produce a
// config the policy engine can't evaluate.
func (s *OrchestratorConfigService) UpdateConfig(ctx context.Context, agentID, callerProfileID string, req UpdateConfigRequest) (*ent.OrchestratorConfig, error) {
	tierStrs, err := validateUpdateConfigRequest(req)
	if err != nil {
		return nil, err
	}

	a, err := s.client.Agent.Get(ctx, agentID)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("services: get agent for config update: %w", err)
	}
	if a.OwnerProfileID != callerProfileID {
		return nil, ErrForbidden
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := s.client.OrchestratorConfig.Update().Where(entorchconfig.AgentIDEQ(agentID))
	if req.MaxEscalationsPerDay != nil {
		update = update.SetMaxEscalationsPerDay(*req.MaxEscalationsPerDay)
	}
	if req.MaxEscalationsPerWeek != nil {
		update = update.SetMaxEscalationsPerWeek(*req.MaxEscalationsPerWeek)
	}
	if req.EscalationEnabled != nil {
		update = update.SetEscalationEnabled(*req.EscalationEnabled)
	}
	if req.AutoAnswerConfidenceThreshold != nil {
		update = update.SetAutoAnswerConfidenceThreshold(*req.AutoAnswerConfidenceThreshold)
	}
	if req.ClarificationEnabled != nil {
		update = update.SetClarificationEnabled(*req.ClarificationEnabled)
	}
	if req.BlockedTopics != nil {
		update = update.SetBlockedTopics(req.BlockedTopics)
	}
	if len(tierStrs) > 0 {
		update = update.SetAllowedUserTiers(tierStrs)
	}

	if _, err := update.Save(ctx); err != nil {
		return nil, fmt.Errorf("services: update orchestrator config: %w", err)
	}

	return s.client.OrchestratorConfig.Query().Where(entorchconfig.AgentIDEQ(agentID)).Only(ctx)
}

// validateUpdateConfigRequest checks the request shape against pkg/config's
// and pkg/policy's own enums and ranges, independent of any database state,
// and returns the tier list as plain strings for the ent builder.
func validateUpdateConfigRequest(req UpdateConfigRequest) ([]string, error) {
	if req.AutoAnswerConfidenceThreshold != nil {
		t := *req.AutoAnswerConfidenceThreshold
		if t < 0 || t > 1 {
			return nil, NewValidationError("auto_answer_confidence_threshold", "must be between 0 and 1")
		}
	}
	if req.MaxEscalationsPerDay != nil && *req.MaxEscalationsPerDay < 0 {
		return nil, NewValidationError("max_escalations_per_day", "must be non-negative")
	}
	if req.MaxEscalationsPerWeek != nil && *req.MaxEscalationsPerWeek < 0 {
		return nil, NewValidationError("max_escalations_per_week", "must be non-negative")
	}

	tierStrs := make([]string, 0, len(req.AllowedUserTiers))
	for _, t := range req.AllowedUserTiers {
		if !t.IsValid() {
			return nil, NewValidationError("allowed_user_tiers", fmt.Sprintf("unknown tier %q", t))
		}
		tierStrs = append(tierStrs, string(t))
	}
	return tierStrs, nil
}
