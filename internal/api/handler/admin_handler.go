package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/AppChainLabs/authd/internal/core/ports"
)

// AdminHandler handles the administrator surface. Role enforcement lives in
// the router middleware; handlers here assume a SystemAdmin caller.
type AdminHandler struct {
	broker ports.AdminBroker
}

func NewAdminHandler(broker ports.AdminBroker) *AdminHandler {
	return &AdminHandler{broker: broker}
}

// Login authenticates an administrator with a password.
//
// @Summary      Administrator login
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  tokenResponse
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /api/admin/login [post]
func (h *AdminHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	issued, err := h.broker.AdminLogin(c.Request().Context(), req.Audience, req.Identifier, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tokenResponse{AccessToken: issued.AccessToken, User: issued.User})
}

// CreateCredential attaches a credential to the target user. Wallet
// possession is asserted by the administrator, so no challenge is needed.
//
// @Summary      Create a credential for a user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        userID  path      string             true  "User ID"
// @Param        body    body      credentialRequest  true  "Credential payload"
// @Success      201     {object}  domain.AuthEntity
// @Failure      409     {object}  map[string]string
// @Router       /api/admin/users/{userID}/auth-entities [post]
func (h *AdminHandler) CreateCredential(c echo.Context) error {
	var req credentialRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	entity, err := h.broker.AdminCreateCredential(c.Request().Context(), c.Param("userID"), req.toInput())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, entity)
}

// DeleteCredential removes a user's credential under the same invariants as
// the owner-facing delete.
//
// @Summary      Delete a user's credential
// @Tags         admin
// @Security     BearerAuth
// @Param        userID  path  string  true  "User ID"
// @Param        authID  path  string  true  "Auth entity ID"
// @Success      204
// @Failure      422  {object}  map[string]string
// @Router       /api/admin/users/{userID}/auth-entities/{authID} [delete]
func (h *AdminHandler) DeleteCredential(c echo.Context) error {
	if err := h.broker.AdminDeleteCredential(c.Request().Context(), c.Param("userID"), c.Param("authID")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// RemoveUser deletes the user with all credentials and sessions.
//
// @Summary      Remove a user
// @Tags         admin
// @Security     BearerAuth
// @Param        userID  path  string  true  "User ID"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /api/admin/users/{userID} [delete]
func (h *AdminHandler) RemoveUser(c echo.Context) error {
	if err := h.broker.AdminRemoveUser(c.Request().Context(), c.Param("userID")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
