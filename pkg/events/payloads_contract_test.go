package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAgentChannelPayloads_ContainAgentID is a contract test between the Go
// backend and any dashboard WebSocket client.
//
// A dashboard routes incoming WS events by inspecting `data.agent_id` to
// know which agent's console to update. ANY payload broadcast on an agent
// channel (agent:{id}) MUST include a non-empty agent_id field, or a client
// watching multiple agents can't tell who an event belongs to.
func TestAgentChannelPayloads_ContainAgentID(t *testing.T) {
	const testAgentID = "agent-contract-test"

	tests := []struct {
		name    string
		payload any
	}{
		{
			name: "DecisionCreatedPayload",
			payload: DecisionCreatedPayload{
				Type:           EventTypeDecisionCreated,
				DecisionID:     "dec-1",
				AgentID:        testAgentID,
				ConversationID: "conv-1",
				Path:           "C",
				Confidence:     0.8,
				Timestamp:      "2026-01-01T00:00:00Z",
			},
		},
		{
			name: "EscalationEventPayload",
			payload: EscalationEventPayload{
				Type:         EventTypeEscalationOffered,
				EscalationID: "esc-1",
				AgentID:      testAgentID,
				UserID:       "user-1",
				Status:       "pending",
				Timestamp:    "2026-01-01T00:00:00Z",
			},
		},
		{
			name: "StreamChunkPayload",
			payload: StreamChunkPayload{
				Type:           EventTypeStreamChunk,
				AgentID:        testAgentID,
				ConversationID: "conv-1",
				Delta:          "token",
				Timestamp:      "2026-01-01T00:00:00Z",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.payload)
			require.NoError(t, err, "failed to marshal %s", tt.name)

			var parsed map[string]any
			require.NoError(t, json.Unmarshal(data, &parsed), "failed to unmarshal %s", tt.name)

			aid, ok := parsed["agent_id"]
			assert.True(t, ok,
				"%s JSON is missing \"agent_id\" field — dashboard WS routing will silently drop this event", tt.name)
			assert.Equal(t, testAgentID, aid,
				"%s agent_id has wrong value", tt.name)
		})
	}
}
