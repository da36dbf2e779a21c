package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgentChannel(t *testing.T) {
	tests := []struct {
		name    string
		agentID string
		want    string
	}{
		{
			name:    "formats agent channel correctly",
			agentID: "abc-123",
			want:    "agent:abc-123",
		},
		{
			name:    "handles UUID format",
			agentID: "550e8400-e29b-41d4-a716-446655440000",
			want:    "agent:550e8400-e29b-41d4-a716-446655440000",
		},
		{
			name:    "handles empty string",
			agentID: "",
			want:    "agent:",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AgentChannel(tt.agentID)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEventTypeConstants(t *testing.T) {
	// Verify event types are non-empty and distinct
	types := []string{
		EventTypeDecisionCreated,
		EventTypeEscalationOffered,
		EventTypeEscalationAccepted,
		EventTypeEscalationAnswered,
		EventTypeEscalationDeclined,
		EventTypeEscalationExpired,
		EventTypeStreamChunk,
	}

	seen := make(map[string]bool)
	for _, typ := range types {
		assert.NotEmpty(t, typ, "event type should not be empty")
		assert.False(t, seen[typ], "duplicate event type: %s", typ)
		seen[typ] = true
	}
}
