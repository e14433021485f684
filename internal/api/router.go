package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/AppChainLabs/authd/internal/api/handler"
	"github.com/AppChainLabs/authd/internal/api/middleware"
	"github.com/AppChainLabs/authd/internal/core/domain"
	"github.com/AppChainLabs/authd/internal/core/ports"
	"github.com/AppChainLabs/authd/internal/core/service"
	mongostore "github.com/AppChainLabs/authd/internal/infrastructure/db/mongo"
	redisstore "github.com/AppChainLabs/authd/internal/infrastructure/db/redis"
)

// RouterConfig carries everything NewRouter needs to assemble the service
// graph. The mail sender is built and started by the caller so its worker
// lifecycle is tied to the process, not the router.
type RouterConfig struct {
	MongoClient     *mongo.Client
	Mongo           *mongo.Database
	Redis           *redis.Client
	TokenConfig     service.TokenServiceConfig
	ChallengeTTL    time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration
	ResetBaseURL    string
	Mail            ports.MailSender
	Log             zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(rc RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(rc.Log)
	e.Validator = handler.NewValidator()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("authd"))

	// --- Stores ---
	users := mongostore.NewUserRepository(rc.Mongo)
	creds := mongostore.NewCredentialRepository(rc.Mongo)
	challenges := mongostore.NewChallengeRepository(rc.Mongo)
	sessions := mongostore.NewSessionRepository(rc.Mongo)
	tx := mongostore.NewTransactor(rc.MongoClient)
	limiter := redisstore.NewLoginLimiter(rc.Redis, rc.RateLimitMax, rc.RateLimitWindow)

	// --- Services ---
	hasher := service.NewBCryptHasher()
	challengeService := service.NewChallengeService(challenges, rc.ChallengeTTL, rc.Log)
	tokenService := service.NewTokenService(users, creds, sessions, rc.TokenConfig, rc.Log)
	credentialService := service.NewCredentialService(creds, sessions, challengeService, hasher, tx, rc.Log)
	broker := service.NewBrokerService(service.BrokerDeps{
		Users:       users,
		Creds:       creds,
		Sessions:    sessions,
		Credentials: credentialService,
		Challenges:  challengeService,
		Tokens:      tokenService,
		Hasher:      hasher,
		OTP:         service.NewOTPProvider(),
		Mail:        rc.Mail,
		Limiter:     limiter,
		Tx:          tx,
		ResetURL:    rc.ResetBaseURL,
	}, rc.Log)

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(broker)
	userHandler := handler.NewUserHandler(broker)
	adminHandler := handler.NewAdminHandler(broker)

	authn := middleware.Auth(tokenService)
	authScope := middleware.RequireSessionTypes(domain.SessionTypeAuth)
	anyScope := middleware.RequireSessionTypes(domain.SessionTypeAuth, domain.SessionTypeResetCredential)
	adminOnly := middleware.RequireRoles(domain.RoleSystemAdmin)

	// --- Public auth routes ---
	auth := e.Group("/api/auth")
	auth.POST("/sign-up", authHandler.SignUp)
	auth.POST("/login", authHandler.Login)
	auth.POST("/login-wallet", authHandler.LoginWithWallet)
	auth.POST("/challenge/:target", authHandler.IssueChallenge)
	auth.POST("/reset-credential", authHandler.InitiateReset)

	// --- Authenticated auth routes ---
	auth.GET("/profile", authHandler.Profile, authn, authScope)
	auth.DELETE("/:userID/:authID", authHandler.DeleteCredential, authn, authScope)
	auth.POST("/email/request-otp", authHandler.RequestEmailOTP, authn, authScope)
	auth.POST("/email/verify-otp", authHandler.VerifyEmailOTP, authn, authScope)

	// connect-wallet is the one route a reset-scoped token may reach.
	auth.POST("/connect-wallet", authHandler.ConnectCredential, authn, anyScope)

	// --- User routes ---
	// The availability checks are public; registration forms call them before
	// the user has any token.
	e.POST("/api/user/validate/username/:query", userHandler.ValidateUsername)
	e.POST("/api/user/validate/wallet-address/:query", userHandler.ValidateWalletAddress)

	user := e.Group("/api/user", authn, authScope)
	user.GET("/auth-entities", userHandler.ListCredentials)
	user.POST("/auth-entities/:authID/primary", userHandler.SetPrimary)

	// --- Admin routes ---
	e.POST("/api/admin/login", adminHandler.Login)
	admin := e.Group("/api/admin", authn, authScope, adminOnly)
	admin.POST("/users/:userID/auth-entities", adminHandler.CreateCredential)
	admin.DELETE("/users/:userID/auth-entities/:authID", adminHandler.DeleteCredential)
	admin.DELETE("/users/:userID", adminHandler.RemoveUser)

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(rc.Mongo, rc.Redis)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
