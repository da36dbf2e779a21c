package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/relaysocial/orchestrator/pkg/messaging"
	"github.com/relaysocial/orchestrator/pkg/orchestrator"
	"github.com/relaysocial/orchestrator/pkg/streaming"
)

// listConversationsHandler handles GET /api/v1/messaging/conversations.
func (s *Server) listConversationsHandler(c *echo.Context) error {
	items, err := s.messagingSvc.ListConversations(c.Request().Context(), callerID(c))
	if err != nil {
		return mapServiceError(err)
	}

	out := make([]messagingConversation, len(items))
	for i, it := range items {
		out[i] = messagingConversation{
			ID:                      it.ID,
			ChatType:                string(it.ChatType),
			TargetAgentID:           it.TargetAgentID,
			TargetAgentHandle:       it.TargetAgentHandle,
			TargetAgentDisplayName:  it.TargetAgentDisplayName,
			CounterpartyProfileID:   it.CounterpartyProfileID,
			CounterpartyHandle:      it.CounterpartyHandle,
			CounterpartyDisplayName: it.CounterpartyDisplayName,
			CounterpartyAvatarURL:   it.CounterpartyAvatarURL,
			LastMessageAt:           it.LastMessageAt,
			LastMessagePreview:      it.LastMessagePreview,
			UnreadCount:             it.UnreadCount,
			Legacy:                  it.Legacy,
		}
	}
	return c.JSON(http.StatusOK, ConversationsResponse{Conversations: out})
}

// legacyConversationsHandler handles GET
// /api/v1/messaging/conversations/legacy-view: one row per counterparty,
// collapsing a live conversation and a frozen legacy thread to whichever is
// more recent. Distinct from listConversationsHandler, which returns every
// thread (including legacy-only ones with no live successor).
func (s *Server) legacyConversationsHandler(c *echo.Context) error {
	rows, err := s.legacyViewSvc.LatestPerCounterparty(c.Request().Context(), callerID(c))
	if err != nil {
		return mapServiceError(err)
	}

	out := make([]counterpartyThread, len(rows))
	for i, r := range rows {
		out[i] = counterpartyThread{
			CounterpartyProfileID: r.CounterpartyProfileID,
			ThreadID:              r.ThreadID,
			Legacy:                r.Legacy,
			LastMessagePreview:    r.LastMessagePreview,
			LastMessageAt:         r.LastMessageAt,
		}
	}
	return c.JSON(http.StatusOK, LegacyConversationsResponse{Conversations: out})
}

// loadConversationForTurn resolves the conversation named by the :id path
// param, verifies the caller participates in it, and returns the agent on
// the other end plus whether the caller owns that agent.
func (s *Server) loadConversationForTurn(c *echo.Context) (conv *struct {
	ID      string
	AgentID string
	IsOwner bool
}, err error) {
	ctx := c.Request().Context()
	userID := callerID(c)

	row, err := s.db.DirectConversation.Get(ctx, c.Param("id"))
	if err != nil {
		return nil, mapServiceError(err)
	}
	if row.Participant1ID != userID && row.Participant2ID != userID {
		return nil, echo.NewHTTPError(http.StatusForbidden, "not a participant in this conversation")
	}
	if row.TargetAgentID == nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "conversation has no associated agent")
	}

	agent, err := s.agentSvc.GetAgent(ctx, *row.TargetAgentID)
	if err != nil {
		return nil, mapServiceError(err)
	}

	return &struct {
		ID      string
		AgentID string
		IsOwner bool
	}{ID: row.ID, AgentID: agent.ID, IsOwner: userID == agent.OwnerProfileID}, nil
}

// sendMessageHandler handles POST /api/v1/messaging/conversations/:id/messages
// — the non-streaming send-and-route path.
func (s *Server) sendMessageHandler(c *echo.Context) error {
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	userID := callerID(c)
	if !s.limiter.Allow(userID, "messaging.send") {
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
	}

	conv, err := s.loadConversationForTurn(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	sent, err := s.messagingSvc.SendMessage(ctx, conv.ID, userID, messaging.SenderKindUser, nil, req.Message, false)
	if err != nil {
		return mapServiceError(err)
	}

	result, err := s.orch.Handle(ctx, orchestrator.TurnInput{
		ConversationID:     conv.ID,
		AgentID:            conv.AgentID,
		CallerProfileID:    userID,
		CallerTier:         callerTier(req.CallerTier),
		IsOwner:            conv.IsOwner,
		Message:            req.Message,
		AcceptEscalationID: req.AcceptEscalationID,
	})
	if err != nil {
		return mapServiceError(err)
	}
	// Drain in the background within the request's own lifetime: the caller
	// of this non-streaming endpoint only wants confirmation their own
	// message was recorded, the same contract as teacher send endpoints that
	// persist and return immediately while delivery continues elsewhere.
	go func() {
		for range result.Events {
		}
	}()

	return c.JSON(http.StatusOK, MessageSentResponse{MessageID: sent.ID, SentAt: sent.CreatedAt})
}

// streamConversationHandler handles POST
// /api/v1/messaging/conversations/:id/stream — SSE framing over the
// orchestrator's token stream.
func (s *Server) streamConversationHandler(c *echo.Context) error {
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	userID := callerID(c)
	if !s.limiter.Allow(userID, "messaging.stream") {
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
	}

	conv, err := s.loadConversationForTurn(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := s.messagingSvc.SendMessage(ctx, conv.ID, userID, messaging.SenderKindUser, nil, req.Message, false); err != nil {
		return mapServiceError(err)
	}

	result, err := s.orch.Handle(ctx, orchestrator.TurnInput{
		ConversationID:     conv.ID,
		AgentID:            conv.AgentID,
		CallerProfileID:    userID,
		CallerTier:         callerTier(req.CallerTier),
		IsOwner:            conv.IsOwner,
		Message:            req.Message,
		AcceptEscalationID: req.AcceptEscalationID,
	})
	if err != nil {
		return mapServiceError(err)
	}

	w := c.Response()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// *echo.Response implements both http.ResponseWriter and http.Flusher
	// (Flush delegates to the underlying writer), so it serves as both args.
	return streaming.Relay(ctx, w, w, result.Events)
}
