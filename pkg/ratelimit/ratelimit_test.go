package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relaysocial/orchestrator/pkg/config"
)

func TestLimiterAllowsUpToBurstThenBlocks(t *testing.T) {
	l := New(config.RateLimitConfig{RequestsPerMinute: 60, Burst: 2})

	assert.True(t, l.Allow("user-1", "chat"))
	assert.True(t, l.Allow("user-1", "chat"))
	assert.False(t, l.Allow("user-1", "chat"), "third call within the same instant should exceed burst")
}

func TestLimiterIsScopedPerUserAndEndpoint(t *testing.T) {
	l := New(config.RateLimitConfig{RequestsPerMinute: 60, Burst: 1})

	assert.True(t, l.Allow("user-1", "chat"))
	assert.False(t, l.Allow("user-1", "chat"))

	assert.True(t, l.Allow("user-2", "chat"), "a different user must have its own bucket")
	assert.True(t, l.Allow("user-1", "escalation"), "a different endpoint must have its own bucket")
}
