package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateAgentRejectsMissingOwner(t *testing.T) {
	s := &AgentService{}
	_, err := s.CreateAgent(context.Background(), CreateAgentRequest{
		Handle: "valid_handle", DisplayName: "A", Persona: "helpful",
	})
	assert.True(t, IsValidationError(err))
}

func TestCreateAgentRejectsBadHandle(t *testing.T) {
	s := &AgentService{}
	_, err := s.CreateAgent(context.Background(), CreateAgentRequest{
		OwnerProfileID: "profile_1", Handle: "x", DisplayName: "A", Persona: "helpful",
	})
	assert.True(t, IsValidationError(err))
}

func TestCreateAgentRejectsMissingPersona(t *testing.T) {
	s := &AgentService{}
	_, err := s.CreateAgent(context.Background(), CreateAgentRequest{
		OwnerProfileID: "profile_1", Handle: "valid_handle", DisplayName: "A",
	})
	assert.True(t, IsValidationError(err))
}

func TestCreateAgentRejectsMissingDisplayName(t *testing.T) {
	s := &AgentService{}
	_, err := s.CreateAgent(context.Background(), CreateAgentRequest{
		OwnerProfileID: "profile_1", Handle: "valid_handle", Persona: "helpful",
	})
	assert.True(t, IsValidationError(err))
}
