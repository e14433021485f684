package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/AppChainLabs/authd/internal/core/ports"
)

// UserHandler handles the authenticated user's credential management routes.
type UserHandler struct {
	broker ports.Broker
}

func NewUserHandler(broker ports.Broker) *UserHandler {
	return &UserHandler{broker: broker}
}

// ValidateUsername reports whether an email or username is free to claim.
// Public so registration forms can check before submitting.
//
// @Summary      Check email or username availability
// @Tags         user
// @Param        query  path  string  true  "Email or username"
// @Success      200
// @Failure      409  {object}  map[string]string
// @Router       /api/user/validate/username/{query} [post]
func (h *UserHandler) ValidateUsername(c echo.Context) error {
	if err := h.broker.CheckIdentifierAvailable(c.Request().Context(), c.Param("query")); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

// ValidateWalletAddress reports whether a wallet address is unclaimed.
//
// @Summary      Check wallet address availability
// @Tags         user
// @Param        query  path  string  true  "Wallet address"
// @Success      200
// @Failure      409  {object}  map[string]string
// @Router       /api/user/validate/wallet-address/{query} [post]
func (h *UserHandler) ValidateWalletAddress(c echo.Context) error {
	if err := h.broker.CheckWalletAvailable(c.Request().Context(), c.Param("query")); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

// ListCredentials returns the caller's auth entities.
//
// @Summary      List the caller's credentials
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  domain.AuthEntity
// @Router       /api/user/auth-entities [get]
func (h *UserHandler) ListCredentials(c echo.Context) error {
	user, _, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	entities, err := h.broker.ListCredentials(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, entities)
}

// SetPrimary promotes one of the caller's credentials to primary.
//
// @Summary      Set the primary credential
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Param        authID  path      string  true  "Auth entity ID"
// @Success      200     {object}  domain.AuthEntity
// @Failure      403     {object}  map[string]string
// @Router       /api/user/auth-entities/{authID}/primary [post]
func (h *UserHandler) SetPrimary(c echo.Context) error {
	user, _, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	entity, err := h.broker.SetPrimaryCredential(c.Request().Context(), user.ID, c.Param("authID"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, entity)
}
