package events

// DecisionCreatedPayload is the payload for orchestrator.decision events.
// Published once per chat turn after the policy engine's decision is final.
type DecisionCreatedPayload struct {
	Type           string  `json:"type"` // always EventTypeDecisionCreated
	DecisionID     string  `json:"decision_id"`
	AgentID        string  `json:"agent_id"`
	ConversationID string  `json:"conversation_id"`
	Path           string  `json:"path"` // A-F, see config.DecisionPath
	Confidence     float64 `json:"confidence"`
	Timestamp      string  `json:"timestamp"` // RFC3339Nano
}

// EscalationEventPayload is the payload for every escalation.* event. The
// Type field (one of EventTypeEscalationOffered/Accepted/Answered/
// Declined/Expired) is the only discriminator clients need — Status always
// mirrors it and is included for clients that only watch status strings.
type EscalationEventPayload struct {
	Type         string `json:"type"`
	EscalationID string `json:"escalation_id"`
	AgentID      string `json:"agent_id"`
	UserID       string `json:"user_id"`
	Status       string `json:"status"`
	Timestamp    string `json:"timestamp"` // RFC3339Nano
}

// StreamChunkPayload is the payload for stream.chunk transient events.
// Published for each reply token as pkg/streaming emits it.
type StreamChunkPayload struct {
	Type           string `json:"type"` // always EventTypeStreamChunk
	AgentID        string `json:"agent_id"`
	ConversationID string `json:"conversation_id"`
	Delta          string `json:"delta"`
	Timestamp      string `json:"timestamp"` // RFC3339Nano
}
