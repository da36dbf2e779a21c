package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/relaysocial/orchestrator/ent"
	"github.com/relaysocial/orchestrator/pkg/escalation"
	"github.com/relaysocial/orchestrator/pkg/queue"
	"github.com/relaysocial/orchestrator/pkg/services"
)

// mapServiceError maps errors from pkg/services and pkg/orchestrator to HTTP
// error responses: validation errors become 400, not-found 404, forbidden 403,
// the already-exists/agent-limit/concurrent-modification/already-answered/
// not-in-expected-state conflicts 409, and queue.ErrAtCapacity 503;
// everything else becomes a 500.
func mapServiceError(err error) *echo.HTTPError {
	var validErr *services.ValidationError
	if errors.As(err, &validErr) {
		return echo.NewHTTPError(http.StatusBadRequest, validErr.Error())
	}
	if errors.Is(err, services.ErrNotFound) || ent.IsNotFound(err) {
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	}
	if errors.Is(err, services.ErrForbidden) {
		return echo.NewHTTPError(http.StatusForbidden, "not permitted")
	}
	if errors.Is(err, services.ErrAlreadyExists) {
		return echo.NewHTTPError(http.StatusConflict, "resource already exists")
	}
	if errors.Is(err, services.ErrAgentLimitReached) {
		return echo.NewHTTPError(http.StatusConflict, "agent limit reached")
	}
	if errors.Is(err, services.ErrConcurrentModification) {
		return echo.NewHTTPError(http.StatusConflict, "concurrent modification detected")
	}
	if errors.Is(err, escalation.ErrAlreadyAnswered) {
		return echo.NewHTTPError(http.StatusConflict, "escalation already answered")
	}
	if errors.Is(err, escalation.ErrNotInExpectedState) {
		return echo.NewHTTPError(http.StatusConflict, "escalation is not in a state that allows this action")
	}
	if errors.Is(err, queue.ErrAtCapacity) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "server is at capacity, try again shortly")
	}

	slog.Error("unexpected service error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
