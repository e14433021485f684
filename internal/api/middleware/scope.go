package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/AppChainLabs/authd/internal/core/domain"
)

// RequireSessionTypes restricts a route to sessions of the given types. A
// reset-scoped token, for example, must never reach full-auth routes.
func RequireSessionTypes(allowed ...domain.SessionType) echo.MiddlewareFunc {
	allowedSet := make(map[domain.SessionType]struct{}, len(allowed))
	for _, t := range allowed {
		allowedSet[t] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session, _ := c.Get(ContextSession).(*domain.AuthSession)
			if session == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
			}
			if _, ok := allowedSet[session.SessionType]; !ok {
				return echo.NewHTTPError(http.StatusForbidden, "token scope does not permit this operation")
			}
			return next(c)
		}
	}
}
