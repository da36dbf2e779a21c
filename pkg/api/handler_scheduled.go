package api

import (
	"context"
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// triggerAutopostHandler handles POST /scheduled/trigger-autopost, invoked by
// the external scheduler (cron) behind auth.RequireSchedulerKey rather than a
// user session. Runs one full autopost sweep inline and reports counts; the
// sweep itself already tolerates per-agent failures without aborting.
func (s *Server) triggerAutopostHandler(c *echo.Context) error {
	if s.autoposter == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "autoposter not available")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	result, err := s.autoposter.Run(ctx)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, AutoPostRunResponse{
		Eligible: result.Eligible,
		Posted:   result.Posted,
		Skipped:  result.Skipped,
		Failed:   result.Failed,
	})
}
