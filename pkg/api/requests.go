package api

// MessageRequest is the body of POST /orchestrator/message. ConversationID is
// optional: when empty, the server resolves (or creates) the caller's direct
// conversation with the agent's owner. CallerTier self-reports the caller's
// relationship to the agent (the free/follower/paid split) — this module
// has no follower/subscription ledger of its own to resolve it from,
// so it is trusted the same way the rest of the caller's identity is (see
// DESIGN.md's pkg/api entry).
type MessageRequest struct {
	AgentID            string `json:"agent_id"`
	ConversationID     string `json:"conversation_id,omitempty"`
	Message            string `json:"message"`
	CallerTier         string `json:"caller_tier,omitempty"`
	AcceptEscalationID string `json:"accept_escalation_id,omitempty"`
}

// SendMessageRequest is the body of the conversation-scoped send/stream
// endpoints, where the conversation (and therefore the agent) is already
// named by the path.
type SendMessageRequest struct {
	Message            string `json:"message"`
	CallerTier         string `json:"caller_tier,omitempty"`
	AcceptEscalationID string `json:"accept_escalation_id,omitempty"`
}

// AnswerEscalationRequest is the body of POST /orchestrator/queue/:id/answer.
type AnswerEscalationRequest struct {
	Content string `json:"content"`
	Layer   string `json:"layer"`
}

// UpdateConfigRequest is the body of PUT /orchestrator/config/:agent_id.
// Pointer/nil-slice fields are left unchanged when omitted, mirroring
// services.UpdateConfigRequest exactly.
type UpdateConfigRequest struct {
	MaxEscalationsPerDay          *int     `json:"max_escalations_per_day,omitempty"`
	MaxEscalationsPerWeek         *int     `json:"max_escalations_per_week,omitempty"`
	EscalationEnabled             *bool    `json:"escalation_enabled,omitempty"`
	AutoAnswerConfidenceThreshold *float64 `json:"auto_answer_confidence_threshold,omitempty"`
	ClarificationEnabled          *bool    `json:"clarification_enabled,omitempty"`
	BlockedTopics                 []string `json:"blocked_topics,omitempty"`
	AllowedUserTiers              []string `json:"allowed_user_tiers,omitempty"`
}
