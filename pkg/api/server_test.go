package api

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaysocial/orchestrator/pkg/autopost"
	"github.com/relaysocial/orchestrator/pkg/config"
	"github.com/relaysocial/orchestrator/pkg/events"
	"github.com/relaysocial/orchestrator/pkg/messaging"
	"github.com/relaysocial/orchestrator/pkg/orchestrator"
	"github.com/relaysocial/orchestrator/pkg/services"
)

func TestServer_ValidateWiring(t *testing.T) {
	t.Run("all services wired", func(t *testing.T) {
		s := &Server{
			orch:          &orchestrator.Orchestrator{},
			messagingSvc:  &messaging.Store{},
			escalationSvc: &services.EscalationService{},
			agentSvc:      &services.AgentService{},
			configSvc:     &services.OrchestratorConfigService{},
			metricsSvc:    &services.MetricsService{},
			legacyViewSvc: &services.LegacyConversationViewService{},
			autoposter:    &autopost.Poster{},
			connManager:   &events.ConnectionManager{},
		}
		assert.NoError(t, s.ValidateWiring())
	})

	t.Run("no services wired", func(t *testing.T) {
		s := &Server{}
		err := s.ValidateWiring()
		require.Error(t, err)

		msg := err.Error()
		assert.Contains(t, msg, "server wiring incomplete")
		assert.Contains(t, msg, "orchestrator")
		assert.Contains(t, msg, "messagingSvc")
		assert.Contains(t, msg, "escalationSvc")
		assert.Contains(t, msg, "agentSvc")
		assert.Contains(t, msg, "configSvc")
		assert.Contains(t, msg, "metricsSvc")
		assert.Contains(t, msg, "legacyViewSvc")
		assert.Contains(t, msg, "autoposter")
		assert.Contains(t, msg, "connManager")

		assert.Equal(t, 9, strings.Count(msg, "not set"))
	})

	t.Run("partial wiring reports only missing", func(t *testing.T) {
		s := &Server{
			orch:          &orchestrator.Orchestrator{},
			messagingSvc:  &messaging.Store{},
			escalationSvc: &services.EscalationService{},
			agentSvc:      &services.AgentService{},
			// configSvc, metricsSvc, legacyViewSvc, autoposter, connManager intentionally omitted
		}
		err := s.ValidateWiring()
		require.Error(t, err)

		msg := err.Error()
		assert.Contains(t, msg, "configSvc")
		assert.Contains(t, msg, "metricsSvc")
		assert.Contains(t, msg, "legacyViewSvc")
		assert.Contains(t, msg, "autoposter")
		assert.Contains(t, msg, "connManager")
		assert.NotContains(t, msg, "orchestrator not set")
		assert.NotContains(t, msg, "messagingSvc not set")
		assert.NotContains(t, msg, "escalationSvc not set")
		assert.NotContains(t, msg, "agentSvc not set")
	})
}

func TestServer_resolveWSOriginPatterns(t *testing.T) {
	tests := []struct {
		name           string
		allowedOrigins []string
		wantContains   []string
		wantLen        int
	}{
		{
			name:         "no configured origins still includes localhost",
			wantContains: []string{"localhost:*", "127.0.0.1:*"},
			wantLen:      2,
		},
		{
			name:           "configured origins appended",
			allowedOrigins: []string{"https://relay.example.com", "*.internal.corp:*"},
			wantContains:   []string{"localhost:*", "127.0.0.1:*", "https://relay.example.com", "*.internal.corp:*"},
			wantLen:        4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Server{cfg: &config.Config{AllowedOrigins: tt.allowedOrigins}}
			patterns := s.resolveWSOriginPatterns()
			assert.Len(t, patterns, tt.wantLen)
			for _, want := range tt.wantContains {
				assert.Contains(t, patterns, want)
			}
		})
	}
}
