package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,     default=8080"`
	Env      string `env:"ENV,      default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	JWT       JWTConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Mail      MailConfig
}

type JWTConfig struct {
	// PrivateKeyPEM / PublicKeyPEM hold the PKCS#1 or PKCS#8 encoded RSA
	// signing key pair. Verifiers only need the public half.
	PrivateKeyPEM   string        `env:"JWT_PRIVATE_KEY"`
	PublicKeyPEM    string        `env:"JWT_PUBLIC_KEY"`
	ChecksumSecret  string        `env:"JWT_CHECKSUM_SECRET"`
	Issuer          string        `env:"JWT_ISSUER,  default=authd"`
	DefaultAudience string        `env:"JWT_DEFAULT_AUDIENCE, default=authd"`
	AuthTTL         time.Duration `env:"SESSION_TTL, default=24h"`
	ResetTTL        time.Duration `env:"RESET_SESSION_TTL, default=5m"`
	ChallengeTTL    time.Duration `env:"CHALLENGE_TTL, default=60s"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=authd"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

type RateLimitConfig struct {
	MaxAttempts int           `env:"LOGIN_MAX_ATTEMPTS, default=10"`
	Window      time.Duration `env:"LOGIN_ATTEMPT_WINDOW, default=1m"`
}

type MailConfig struct {
	// ResetBaseURL is the frontend page the credential-reset magic link
	// points at; the token is appended as a query parameter.
	ResetBaseURL string `env:"MAIL_RESET_BASE_URL, default=http://localhost:3000/reset"`
	Workers      int    `env:"MAIL_WORKERS, default=4"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
