package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaysocial/orchestrator/pkg/auth"
	"github.com/relaysocial/orchestrator/pkg/config"
	"github.com/relaysocial/orchestrator/pkg/orchestrator"
	"github.com/relaysocial/orchestrator/pkg/streaming"
)

func TestCallerTierDefaultsToFreeOnInvalidInput(t *testing.T) {
	assert.Equal(t, config.TierFree, callerTier(""))
	assert.Equal(t, config.TierFree, callerTier("not-a-real-tier"))
	assert.Equal(t, config.TierFollower, callerTier(string(config.TierFollower)))
	assert.Equal(t, config.TierPaid, callerTier(string(config.TierPaid)))
}

func TestCallerIDReadsVerifiedUser(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithUserID(req.Context(), "user-123"))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	assert.Equal(t, "user-123", callerID(c))
}

func TestCallerIDEmptyWhenUnset(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	assert.Equal(t, "", callerID(c))
}

func TestDrainTurnAccumulatesTokensAndCapturesCompletion(t *testing.T) {
	events := make(chan streaming.Event, 4)
	events <- streaming.Event{Type: streaming.EventToken, Text: "hel"}
	events <- streaming.Event{Type: streaming.EventToken, Text: "lo"}
	events <- streaming.Event{Type: streaming.EventComplete, MessageID: "msg-1", TokensUsed: 42}
	close(events)

	result := &orchestrator.TurnResult{DecisionID: "d-1", Path: "A", Events: events}
	resp := drainTurn(result)

	assert.Equal(t, "d-1", resp.DecisionID)
	assert.Equal(t, "A", resp.Path)
	assert.Equal(t, "hello", resp.Text)
	assert.Equal(t, "msg-1", resp.MessageID)
	assert.Equal(t, 42, resp.TokensUsed)
	assert.False(t, resp.Truncated)
}

func TestDrainTurnFlagsTruncatedOnError(t *testing.T) {
	events := make(chan streaming.Event, 2)
	events <- streaming.Event{Type: streaming.EventSystem, Text: "sorry, I can't help with that"}
	events <- streaming.Event{Type: streaming.EventError, Text: "upstream unavailable"}
	close(events)

	resp := drainTurn(&orchestrator.TurnResult{DecisionID: "d-2", Path: "F", Events: events})

	assert.Equal(t, "sorry, I can't help with that", resp.Text)
	assert.True(t, resp.Truncated)
}

func TestPostMessageHandlerRejectsMissingFields(t *testing.T) {
	s := &Server{}
	e := echo.New()

	tests := []struct {
		name string
		body string
	}{
		{name: "missing agent_id", body: `{"message":"hi"}`},
		{name: "missing message", body: `{"agent_id":"agent-1"}`},
		{name: "invalid json", body: `not-json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := s.postMessageHandler(c)
			require.Error(t, err)

			var he *echo.HTTPError
			require.ErrorAs(t, err, &he)
			assert.Equal(t, http.StatusBadRequest, he.Code)
		})
	}
}
