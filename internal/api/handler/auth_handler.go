package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/AppChainLabs/authd/internal/core/domain"
	"github.com/AppChainLabs/authd/internal/core/ports"
)

// AuthHandler handles the public authentication surface: sign-up, the login
// flows, challenges, credential reset, and email verification.
type AuthHandler struct {
	broker ports.Broker
}

func NewAuthHandler(broker ports.Broker) *AuthHandler {
	return &AuthHandler{broker: broker}
}

// --- Request / Response types ---

type credentialRequest struct {
	Type            string `json:"type" validate:"required,oneof=password evm_wallet solana_wallet"`
	Password        string `json:"password,omitempty"`
	WalletAddress   string `json:"wallet_address,omitempty"`
	SignedData      string `json:"signed_data,omitempty"`
	AuthChallengeID string `json:"auth_challenge_id,omitempty"`
}

type signUpRequest struct {
	Username    string            `json:"username,omitempty"`
	Email       string            `json:"email,omitempty" validate:"omitempty,email"`
	DisplayName string            `json:"display_name,omitempty"`
	Avatar      string            `json:"avatar,omitempty"`
	Credential  credentialRequest `json:"credential" validate:"required"`
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
	Audience   string `json:"audience,omitempty"`
}

type walletLoginRequest struct {
	Type            string `json:"type" validate:"required,oneof=evm_wallet solana_wallet"`
	WalletAddress   string `json:"wallet_address" validate:"required"`
	AuthChallengeID string `json:"auth_challenge_id" validate:"required"`
	SignedData      string `json:"signed_data" validate:"required"`
	Audience        string `json:"audience,omitempty"`
}

type resetRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Audience string `json:"audience,omitempty"`
}

type verifyOTPRequest struct {
	Code string `json:"code" validate:"required,len=6"`
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	User        *domain.User `json:"user"`
}

type profileResponse struct {
	User         *domain.User        `json:"user"`
	AuthEntities []domain.AuthEntity `json:"auth_entities"`
}

func (r credentialRequest) toInput() ports.CredentialInput {
	return ports.CredentialInput{
		Type:            domain.AuthType(r.Type),
		Password:        r.Password,
		WalletAddress:   r.WalletAddress,
		SignedData:      r.SignedData,
		AuthChallengeID: r.AuthChallengeID,
	}
}

// SignUp creates a new user with its initial credential.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signUpRequest  true  "Registration payload"
// @Success      201   {object}  domain.User
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/auth/sign-up [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.broker.SignUp(c.Request().Context(), ports.RegistrationInput{
		Username:    req.Username,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Avatar:      req.Avatar,
		Credential:  req.Credential.toInput(),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, user)
}

// Login authenticates with email or username plus password.
//
// @Summary      Password login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  tokenResponse
// @Failure      401   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	issued, err := h.broker.Login(c.Request().Context(), req.Audience, req.Identifier, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tokenResponse{AccessToken: issued.AccessToken, User: issued.User})
}

// LoginWithWallet authenticates by consuming a signed challenge.
//
// @Summary      Wallet login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      walletLoginRequest  true  "Signed challenge"
// @Success      200   {object}  tokenResponse
// @Failure      401   {object}  map[string]string
// @Router       /api/auth/login-wallet [post]
func (h *AuthHandler) LoginWithWallet(c echo.Context) error {
	var req walletLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	issued, err := h.broker.LoginWithWallet(
		c.Request().Context(),
		req.Audience,
		domain.AuthType(req.Type),
		req.WalletAddress,
		req.AuthChallengeID,
		req.SignedData,
	)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tokenResponse{AccessToken: issued.AccessToken, User: issued.User})
}

// IssueChallenge hands out a challenge for the wallet address in the path.
//
// @Summary      Issue a signing challenge
// @Tags         auth
// @Produce      json
// @Param        target  path      string  true  "Wallet address to challenge"
// @Success      201     {object}  domain.AuthChallenge
// @Router       /api/auth/challenge/{target} [post]
func (h *AuthHandler) IssueChallenge(c echo.Context) error {
	target := c.Param("target")
	if target == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "target is required")
	}

	challenge, err := h.broker.IssueChallenge(c.Request().Context(), target)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, challenge)
}

// Profile returns the authenticated user and their credentials.
//
// @Summary      Current user profile
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  profileResponse
// @Router       /api/auth/profile [get]
func (h *AuthHandler) Profile(c echo.Context) error {
	user, _, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	entities, err := h.broker.ListCredentials(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, profileResponse{User: user, AuthEntities: entities})
}

// ConnectCredential attaches an additional credential to the caller. Mounted
// on both Auth and ResetCredential scopes; a reset token's only power is to
// reach this endpoint.
//
// @Summary      Connect a credential
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      credentialRequest  true  "Credential payload"
// @Success      201   {object}  domain.AuthEntity
// @Failure      409   {object}  map[string]string
// @Router       /api/auth/connect-wallet [post]
func (h *AuthHandler) ConnectCredential(c echo.Context) error {
	user, _, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req credentialRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	entity, err := h.broker.ConnectCredential(c.Request().Context(), user.ID, req.toInput())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, entity)
}

// DeleteCredential removes one of the caller's credentials. The path userID
// must match the authenticated user; callers cannot touch other accounts.
//
// @Summary      Delete a credential
// @Tags         auth
// @Security     BearerAuth
// @Param        userID  path  string  true  "User ID"
// @Param        authID  path  string  true  "Auth entity ID"
// @Success      204
// @Failure      403  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /api/auth/{userID}/{authID} [delete]
func (h *AuthHandler) DeleteCredential(c echo.Context) error {
	user, _, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	if c.Param("userID") != user.ID {
		return echo.NewHTTPError(http.StatusForbidden, "cannot modify another user's credentials")
	}

	if err := h.broker.DeleteCredential(c.Request().Context(), user.ID, c.Param("authID")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// InitiateReset mails a credential-reset magic link. Always answers 202 so
// the endpoint cannot be used to probe which addresses have accounts.
//
// @Summary      Request a credential reset link
// @Tags         auth
// @Accept       json
// @Param        body  body  resetRequest  true  "Account email"
// @Success      202
// @Router       /api/auth/reset-credential [post]
func (h *AuthHandler) InitiateReset(c echo.Context) error {
	var req resetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.broker.InitiateCredentialReset(c.Request().Context(), req.Audience, req.Email); err != nil {
		return err
	}

	return c.NoContent(http.StatusAccepted)
}

// RequestEmailOTP mails the caller a verification code.
//
// @Summary      Request an email verification code
// @Tags         auth
// @Security     BearerAuth
// @Success      202
// @Failure      422  {object}  map[string]string
// @Router       /api/auth/email/request-otp [post]
func (h *AuthHandler) RequestEmailOTP(c echo.Context) error {
	user, _, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	if err := h.broker.RequestEmailOTP(c.Request().Context(), user.ID); err != nil {
		return err
	}

	return c.NoContent(http.StatusAccepted)
}

// VerifyEmailOTP checks the submitted code and marks the email verified.
//
// @Summary      Verify the email code
// @Tags         auth
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  verifyOTPRequest  true  "Verification code"
// @Success      204
// @Failure      401  {object}  map[string]string
// @Router       /api/auth/email/verify-otp [post]
func (h *AuthHandler) VerifyEmailOTP(c echo.Context) error {
	user, _, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req verifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.broker.VerifyEmailOTP(c.Request().Context(), user.ID, req.Code); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
