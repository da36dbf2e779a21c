package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/relaysocial/orchestrator/pkg/auth"
	"github.com/relaysocial/orchestrator/pkg/config"
	"github.com/relaysocial/orchestrator/pkg/messaging"
	"github.com/relaysocial/orchestrator/pkg/orchestrator"
	"github.com/relaysocial/orchestrator/pkg/services"
	"github.com/relaysocial/orchestrator/pkg/streaming"
)

// callerID reads the verified user_id auth.RequireUser stashed on the
// request context. Routes this handles are always behind RequireUser, so a
// missing value indicates a wiring bug, not an unauthenticated caller.
func callerID(c *echo.Context) string {
	userID, _ := auth.UserIDFromContext(c.Request().Context())
	return userID
}

// callerTier parses an optional self-reported tier, defaulting to free.
func callerTier(raw string) config.UserTier {
	t := config.UserTier(raw)
	if t.IsValid() {
		return t
	}
	return config.TierFree
}

// drainTurn fully consumes a TurnResult's event stream and assembles the
// non-streaming JSON response. Safe for every decision path: path A's
// channel carries EventToken chunks followed by EventComplete; every other
// path's channel is the one-shot streaming.System stream carrying a single
// EventSystem frame.
func drainTurn(result *orchestrator.TurnResult) *TurnResponse {
	resp := &TurnResponse{DecisionID: result.DecisionID, Path: string(result.Path)}
	for ev := range result.Events {
		switch ev.Type {
		case streaming.EventToken:
			resp.Text += ev.Text
		case streaming.EventSystem:
			resp.Text += ev.Text
		case streaming.EventComplete:
			resp.MessageID = ev.MessageID
			resp.TokensUsed = ev.TokensUsed
		case streaming.EventError:
			resp.Truncated = true
		}
	}
	return resp
}

// postMessageHandler handles POST /api/v1/orchestrator/message: the
// general-purpose entry point that resolves (or creates) the caller's
// conversation with the named agent and routes the message through the
// orchestrator, always returning the drained JSON result; the SSE variant
// is served separately by streamConversationHandler.
func (s *Server) postMessageHandler(c *echo.Context) error {
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.AgentID == "" || req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "agent_id and message are required")
	}

	userID := callerID(c)
	if !s.limiter.Allow(userID, "orchestrator.message") {
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	agent, err := s.agentSvc.GetAgent(ctx, req.AgentID)
	if err != nil {
		return mapServiceError(err)
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conv, err := s.messagingSvc.GetOrCreateConversation(ctx, userID, agent.OwnerProfileID, messaging.ChatTypeAgent, &agent.ID)
		if err != nil {
			return mapServiceError(err)
		}
		conversationID = conv.ID
	}

	if _, err := s.messagingSvc.SendMessage(ctx, conversationID, userID, messaging.SenderKindUser, nil, req.Message, false); err != nil {
		return mapServiceError(err)
	}

	isOwner := userID == agent.OwnerProfileID
	result, err := s.orch.Handle(ctx, orchestrator.TurnInput{
		ConversationID:     conversationID,
		AgentID:            agent.ID,
		CallerProfileID:    userID,
		CallerTier:         callerTier(req.CallerTier),
		IsOwner:            isOwner,
		Message:            req.Message,
		AcceptEscalationID: req.AcceptEscalationID,
	})
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, drainTurn(result))
}

// listQueueHandler handles GET /api/v1/orchestrator/queue?agent_id=... —
// the creator's pending escalation queue.
func (s *Server) listQueueHandler(c *echo.Context) error {
	agentID := c.QueryParam("agent_id")
	if agentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "agent_id is required")
	}

	rows, err := s.escalationSvc.ListPending(c.Request().Context(), agentID, callerID(c))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, rows)
}

// acceptQueueHandler handles POST /api/v1/orchestrator/queue/:id/accept —
// the end user's acceptance of a standing path-D offer (decision rule 7).
// Unlike answer/decline this is not a creator action: it runs through the
// orchestrator like any other turn, since accepting also re-evaluates
// policy and forces path E (pkg/orchestrator.dispatchEscalateAccept).
func (s *Server) acceptQueueHandler(c *echo.Context) error {
	escalationID := c.Param("id")
	userID := callerID(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	esc, err := s.db.Escalation.Get(ctx, escalationID)
	if err != nil {
		return mapServiceError(err)
	}
	if esc.UserID != userID {
		return mapServiceError(services.ErrForbidden)
	}

	result, err := s.orch.Handle(ctx, orchestrator.TurnInput{
		ConversationID:     esc.ConversationID,
		AgentID:            esc.AgentID,
		CallerProfileID:    userID,
		CallerTier:         config.TierFree,
		IsOwner:            false,
		Message:            esc.OriginalMessage,
		AcceptEscalationID: esc.ID,
	})
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, drainTurn(result))
}

// answerQueueHandler handles POST /api/v1/orchestrator/queue/:id/answer.
func (s *Server) answerQueueHandler(c *echo.Context) error {
	var req AnswerEscalationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	esc, ca, err := s.escalationSvc.Answer(c.Request().Context(), c.Param("id"), callerID(c), services.AnswerRequest{
		Content: req.Content,
		Layer:   config.Layer(req.Layer),
	})
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{"escalation": esc, "canonical_answer": ca})
}

// declineQueueHandler handles POST /api/v1/orchestrator/queue/:id/decline.
func (s *Server) declineQueueHandler(c *echo.Context) error {
	if err := s.escalationSvc.Decline(c.Request().Context(), c.Param("id"), callerID(c)); err != nil {
		return mapServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// getConfigHandler handles GET /api/v1/orchestrator/config/:agent_id.
func (s *Server) getConfigHandler(c *echo.Context) error {
	cfg, err := s.configSvc.GetConfig(c.Request().Context(), c.Param("agent_id"), callerID(c))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, cfg)
}

// putConfigHandler handles PUT /api/v1/orchestrator/config/:agent_id.
func (s *Server) putConfigHandler(c *echo.Context) error {
	var req UpdateConfigRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	tiers := make([]config.UserTier, 0, len(req.AllowedUserTiers))
	for _, t := range req.AllowedUserTiers {
		tiers = append(tiers, config.UserTier(t))
	}

	cfg, err := s.configSvc.UpdateConfig(c.Request().Context(), c.Param("agent_id"), callerID(c), services.UpdateConfigRequest{
		MaxEscalationsPerDay:          req.MaxEscalationsPerDay,
		MaxEscalationsPerWeek:         req.MaxEscalationsPerWeek,
		EscalationEnabled:             req.EscalationEnabled,
		AutoAnswerConfidenceThreshold: req.AutoAnswerConfidenceThreshold,
		ClarificationEnabled:          req.ClarificationEnabled,
		BlockedTopics:                 req.BlockedTopics,
		AllowedUserTiers:              tiers,
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, cfg)
}

// getMetricsHandler handles GET /api/v1/orchestrator/metrics/:agent_id, with
// an optional ?window_hours= overriding the service's default 7-day window.
func (s *Server) getMetricsHandler(c *echo.Context) error {
	var window time.Duration
	if raw := c.QueryParam("window_hours"); raw != "" {
		if hours, err := strconv.Atoi(raw); err == nil && hours > 0 {
			window = time.Duration(hours) * time.Hour
		}
	}

	m, err := s.metricsSvc.Metrics(c.Request().Context(), c.Param("agent_id"), callerID(c), window, time.Now())
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, m)
}
