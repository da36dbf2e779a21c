package auth

import (
	"context"
	"net/http"
	"os"
	"strings"

	echo "github.com/labstack/echo/v5"

	"github.com/relaysocial/orchestrator/pkg/config"
)

type contextKey int

const userIDContextKey contextKey = iota

// WithUserID returns a context carrying the resolved caller user_id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// UserIDFromContext returns the user_id stashed by RequireUser, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	return userID, ok
}

// RequireUser returns middleware that extracts the bearer token, resolves it
// through verifier, and stashes the resulting user_id on the request's
// context for handlers and services to read via UserIDFromContext.
func RequireUser(verifier Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			userID, err := verifier.VerifyToken(c.Request().Context(), token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			c.SetRequest(c.Request().WithContext(WithUserID(c.Request().Context(), userID)))
			return next(c)
		}
	}
}

// RequireSchedulerKey returns middleware for admin/cron-invoked endpoints
// (the /scheduled route group): the caller must present the
// shared secret named by cfg.KeyEnv in the X-Scheduler-Key header.
func RequireSchedulerKey(cfg *config.SchedulerConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			want := os.Getenv(cfg.KeyEnv)
			got := c.Request().Header.Get("X-Scheduler-Key")
			if want == "" || got == "" || got != want {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid scheduler key")
			}
			return next(c)
		}
	}
}
