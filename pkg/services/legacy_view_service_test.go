package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounterpartyOfReturnsParticipant2WhenSelfIsParticipant1(t *testing.T) {
	assert.Equal(t, "p2", counterpartyOf("p1", "p2", "p1"))
}

func TestCounterpartyOfReturnsParticipant1WhenSelfIsParticipant2(t *testing.T) {
	assert.Equal(t, "p1", counterpartyOf("p1", "p2", "p2"))
}
