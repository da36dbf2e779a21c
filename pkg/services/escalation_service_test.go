package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relaysocial/orchestrator/pkg/config"
)

func TestAnswerRejectsEmptyContent(t *testing.T) {
	s := &EscalationService{}
	_, _, err := s.Answer(context.Background(), "esc_1", "profile_1", AnswerRequest{Layer: config.LayerPublic})
	assert.True(t, IsValidationError(err))
}

func TestAnswerRejectsUnknownLayer(t *testing.T) {
	s := &EscalationService{}
	_, _, err := s.Answer(context.Background(), "esc_1", "profile_1", AnswerRequest{Content: "hello", Layer: config.Layer("bogus")})
	assert.True(t, IsValidationError(err))
}
