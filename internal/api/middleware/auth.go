package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/AppChainLabs/authd/internal/core/ports"
)

// Context keys set by Auth for downstream middleware and handlers.
const (
	ContextUser    = "auth_user"
	ContextSession = "auth_session"
)

// Auth validates the bearer token against its live session record and injects
// the resolved user and session into context. Any validation failure is an
// opaque 401.
func Auth(validator ports.TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			user, session, err := validator.Validate(c.Request().Context(), parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
			}

			c.Set(ContextUser, user)
			c.Set(ContextSession, session)

			return next(c)
		}
	}
}
