package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apimiddleware "github.com/AppChainLabs/authd/internal/api/middleware"
	"github.com/AppChainLabs/authd/internal/core/domain"
)

// ctxIdentity extracts the user and session injected by the Auth middleware.
// Presence of both proves the middleware ran; handlers mounted behind Auth
// fast-fail with 401 otherwise instead of dereferencing nil.
func ctxIdentity(c echo.Context) (*domain.User, *domain.AuthSession, error) {
	user, _ := c.Get(apimiddleware.ContextUser).(*domain.User)
	session, _ := c.Get(apimiddleware.ContextSession).(*domain.AuthSession)
	if user == nil || session == nil {
		return nil, nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return user, session, nil
}
