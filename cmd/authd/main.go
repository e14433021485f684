package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AppChainLabs/authd/internal/api"
	"github.com/AppChainLabs/authd/internal/core/service"
	"github.com/AppChainLabs/authd/internal/infrastructure/config"
	mongostore "github.com/AppChainLabs/authd/internal/infrastructure/db/mongo"
	redisstore "github.com/AppChainLabs/authd/internal/infrastructure/db/redis"
	"github.com/AppChainLabs/authd/internal/infrastructure/email"
	"github.com/AppChainLabs/authd/internal/infrastructure/queue"
	"github.com/AppChainLabs/authd/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Service: "authd",
		Pretty:  cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	signingKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.JWT.PrivateKeyPEM))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse JWT private key")
	}
	verifyKey, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.JWT.PublicKeyPEM))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse JWT public key")
	}
	if cfg.JWT.ChecksumSecret == "" {
		log.Fatal().Msg("JWT_CHECKSUM_SECRET is required")
	}

	client, db, err := mongostore.Connect(ctx, mongostore.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("mongo disconnect failed")
		}
	}()

	if err := mongostore.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to create indexes")
	}

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("redis close failed")
		}
	}()

	mailDispatcher := queue.NewMailDispatcher(cfg.Mail.Workers, email.NewLogMailer(log), log)
	mailDispatcher.Start(ctx)

	e := api.NewRouter(api.RouterConfig{
		MongoClient: client,
		Mongo:       db,
		Redis:       rdb,
		TokenConfig: service.TokenServiceConfig{
			SigningKey:      signingKey,
			VerifyKey:       verifyKey,
			ChecksumSecret:  []byte(cfg.JWT.ChecksumSecret),
			Issuer:          cfg.JWT.Issuer,
			DefaultAudience: cfg.JWT.DefaultAudience,
			AuthTTL:         cfg.JWT.AuthTTL,
			ResetTTL:        cfg.JWT.ResetTTL,
		},
		ChallengeTTL:    cfg.JWT.ChallengeTTL,
		RateLimitMax:    cfg.RateLimit.MaxAttempts,
		RateLimitWindow: cfg.RateLimit.Window,
		ResetBaseURL:    cfg.Mail.ResetBaseURL,
		Mail:            mailDispatcher,
		Log:             log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
