// Package events provides real-time event delivery via WebSocket and
// PostgreSQL NOTIFY/LISTEN for cross-pod distribution.
//
// ════════════════════════════════════════════════════════════════
// Orchestrator Event Channels
// ════════════════════════════════════════════════════════════════
//
// Every event is scoped to one agent's channel ("agent:{agent_id}"), which
// a creator console subscribes to for a live view of its agent:
//
//	orchestrator.decision   {path, confidence, ...}  — one per turn, always
//	                        terminal; there is no streaming counterpart,
//	                        the policy decision is made atomically.
//	escalation.offered      {escalation_id, status: "pending"}
//	escalation.accepted     {escalation_id, status: "accepted"}
//	escalation.answered     {escalation_id, status: "answered"}
//	escalation.declined     {escalation_id, status: "declined"}
//	escalation.expired      {escalation_id, status: "expired"}
//
//	stream.chunk            {delta: "..."}  (repeated, not persisted —
//	                        reply tokens as pkg/streaming produces them;
//	                        lost on reconnect, the eventual chat message
//	                        is what's durable)
//
// ════════════════════════════════════════════════════════════════
package events

// Persistent event types (stored in DB + NOTIFY).
const (
	EventTypeDecisionCreated = "orchestrator.decision"

	EventTypeEscalationOffered  = "escalation.offered"
	EventTypeEscalationAccepted = "escalation.accepted"
	EventTypeEscalationAnswered = "escalation.answered"
	EventTypeEscalationDeclined = "escalation.declined"
	EventTypeEscalationExpired  = "escalation.expired"
)

// Transient event types (NOTIFY only, no DB persistence).
const (
	// Reply-token streaming — high-frequency, ephemeral.
	EventTypeStreamChunk = "stream.chunk"
)

// AgentChannel returns the channel name for a specific agent's events.
// Format: "agent:{agent_id}"
func AgentChannel(agentID string) string {
	return "agent:" + agentID
}

// ClientMessage is the JSON structure for client → server WebSocket messages.
type ClientMessage struct {
	Action      string `json:"action"`                  // "subscribe", "unsubscribe", "catchup", "ping"
	Channel     string `json:"channel,omitempty"`       // Channel name (e.g., "agent:abc-123")
	LastEventID *int   `json:"last_event_id,omitempty"` // For catchup
}
