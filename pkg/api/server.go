// Package api provides the HTTP surface for the orchestrator: routing a
// caller's message through pkg/orchestrator, the creator-facing escalation
// queue and config endpoints, conversation listing, the scheduled autopost
// trigger, and the WebSocket event feed.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/relaysocial/orchestrator/pkg/auth"
	"github.com/relaysocial/orchestrator/pkg/autopost"
	"github.com/relaysocial/orchestrator/pkg/config"
	"github.com/relaysocial/orchestrator/pkg/database"
	"github.com/relaysocial/orchestrator/pkg/events"
	"github.com/relaysocial/orchestrator/pkg/messaging"
	"github.com/relaysocial/orchestrator/pkg/orchestrator"
	"github.com/relaysocial/orchestrator/pkg/queue"
	"github.com/relaysocial/orchestrator/pkg/ratelimit"
	"github.com/relaysocial/orchestrator/pkg/services"
)

// Server is the HTTP API server.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	cfg        *config.Config

	db        *database.Client
	queuePool *queue.Pool
	limiter   *ratelimit.Limiter
	verifier  auth.Verifier

	orch          *orchestrator.Orchestrator
	messagingSvc  *messaging.Store
	escalationSvc *services.EscalationService
	agentSvc      *services.AgentService
	configSvc     *services.OrchestratorConfigService
	metricsSvc    *services.MetricsService
	legacyViewSvc *services.LegacyConversationViewService
	autoposter    *autopost.Poster

	connManager *events.ConnectionManager
}

// NewServer creates a new API server with Echo v5, registering every route
// up front. Optional collaborators (connManager, autoposter) may be left nil
// and are surfaced as 503s at request time rather than failing Start.
func NewServer(
	cfg *config.Config,
	db *database.Client,
	queuePool *queue.Pool,
	limiter *ratelimit.Limiter,
	verifier auth.Verifier,
	orch *orchestrator.Orchestrator,
	messagingSvc *messaging.Store,
	escalationSvc *services.EscalationService,
	agentSvc *services.AgentService,
	configSvc *services.OrchestratorConfigService,
	metricsSvc *services.MetricsService,
	legacyViewSvc *services.LegacyConversationViewService,
) *Server {
	e := echo.New()

	s := &Server{
		echo:          e,
		cfg:           cfg,
		db:            db,
		queuePool:     queuePool,
		limiter:       limiter,
		verifier:      verifier,
		orch:          orch,
		messagingSvc:  messagingSvc,
		escalationSvc: escalationSvc,
		agentSvc:      agentSvc,
		configSvc:     configSvc,
		metricsSvc:    metricsSvc,
		legacyViewSvc: legacyViewSvc,
	}

	s.setupRoutes()
	return s
}

// SetAutoposter wires the scheduled autoposter for the cron-invoked trigger
// endpoint. Left nil, the endpoint answers 503.
func (s *Server) SetAutoposter(p *autopost.Poster) {
	s.autoposter = p
}

// SetConnectionManager wires the WebSocket connection manager for GET
// /events. Left nil, the endpoint answers 503.
func (s *Server) SetConnectionManager(m *events.ConnectionManager) {
	s.connManager = m
}

// ValidateWiring checks that every service the route table depends on was
// supplied to NewServer, and that the optional Set* collaborators a
// production deployment always wires (autoposter, connManager) were too.
// Call before Start so a wiring gap is a startup failure, not a 503 an
// operator discovers from a client report.
func (s *Server) ValidateWiring() error {
	var errs []error
	if s.orch == nil {
		errs = append(errs, fmt.Errorf("orchestrator not set"))
	}
	if s.messagingSvc == nil {
		errs = append(errs, fmt.Errorf("messagingSvc not set"))
	}
	if s.escalationSvc == nil {
		errs = append(errs, fmt.Errorf("escalationSvc not set"))
	}
	if s.agentSvc == nil {
		errs = append(errs, fmt.Errorf("agentSvc not set"))
	}
	if s.configSvc == nil {
		errs = append(errs, fmt.Errorf("configSvc not set"))
	}
	if s.metricsSvc == nil {
		errs = append(errs, fmt.Errorf("metricsSvc not set"))
	}
	if s.legacyViewSvc == nil {
		errs = append(errs, fmt.Errorf("legacyViewSvc not set"))
	}
	if s.autoposter == nil {
		errs = append(errs, fmt.Errorf("autoposter not set (call SetAutoposter)"))
	}
	if s.connManager == nil {
		errs = append(errs, fmt.Errorf("connManager not set (call SetConnectionManager)"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("server wiring incomplete: %w", errors.Join(errs...))
	}
	return nil
}

// setupRoutes registers all API routes.
func (s *Server) setupRoutes() {
	s.echo.Use(middleware.BodyLimit(2 * 1024 * 1024))
	s.echo.Use(securityHeaders())

	s.echo.GET("/health", s.healthHandler)

	v1 := s.echo.Group("/api/v1", auth.RequireUser(s.verifier))

	v1.POST("/orchestrator/message", s.postMessageHandler)
	v1.GET("/orchestrator/queue", s.listQueueHandler)
	v1.POST("/orchestrator/queue/:id/accept", s.acceptQueueHandler)
	v1.POST("/orchestrator/queue/:id/answer", s.answerQueueHandler)
	v1.POST("/orchestrator/queue/:id/decline", s.declineQueueHandler)
	v1.GET("/orchestrator/config/:agent_id", s.getConfigHandler)
	v1.PUT("/orchestrator/config/:agent_id", s.putConfigHandler)
	v1.GET("/orchestrator/metrics/:agent_id", s.getMetricsHandler)

	v1.GET("/messaging/conversations", s.listConversationsHandler)
	v1.GET("/messaging/conversations/legacy-view", s.legacyConversationsHandler)
	v1.POST("/messaging/conversations/:id/messages", s.sendMessageHandler)
	v1.POST("/messaging/conversations/:id/stream", s.streamConversationHandler)

	v1.GET("/events", s.eventsHandler)

	scheduled := s.echo.Group("/scheduled", auth.RequireSchedulerKey(s.cfg.Scheduler))
	scheduled.POST("/trigger-autopost", s.triggerAutopostHandler)
}

// resolveWSOriginPatterns returns the origin host patterns GET /events
// accepts an Upgrade from: the configured CORS/WS allowlist plus local dev
// hosts, never a bare allow-all — an open WS upgrade is a security gap,
// not a convenience.
func (s *Server) resolveWSOriginPatterns() []string {
	patterns := append([]string{"localhost:*", "127.0.0.1:*"}, s.cfg.AllowedOrigins...)
	return patterns
}

// Start starts the HTTP server on the given address (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener. Used
// by tests to serve on a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// eventsHandler handles GET /api/v1/events: upgrades to a WebSocket and
// delegates to the connection manager. Blocks until the socket closes.
func (s *Server) eventsHandler(c *echo.Context) error {
	if s.connManager == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "event feed not available")
	}

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		OriginPatterns: s.resolveWSOriginPatterns(),
	})
	if err != nil {
		return err
	}

	s.connManager.HandleConnection(c.Request().Context(), conn)
	return nil
}

// requestTimeout bounds the synchronous (non-streaming) handlers below —
// long enough for an auto-answer LLM call to finish inline, short enough
// that a stuck upstream doesn't pin a connection forever.
const requestTimeout = 90 * time.Second
