package service

import (
	"context"
	"crypto/hmac"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/AppChainLabs/authd/internal/core/domain"
	"github.com/AppChainLabs/authd/internal/core/ports"
	"github.com/AppChainLabs/authd/internal/metrics"
)

const (
	// DefaultAuthSessionTTL is the lifetime of a general-purpose session.
	DefaultAuthSessionTTL = 24 * time.Hour
	// DefaultResetSessionTTL is the lifetime of a credential-reset session.
	DefaultResetSessionTTL = 5 * time.Minute

	tokenTypeBearer = "Bearer"
)

// Claims is the bearer token payload. The registered Subject carries the
// claims checksum, so the token is self-describing but never self-sufficient:
// validation always rechecks the live session record.
type Claims struct {
	jwt.RegisteredClaims
	UID           string   `json:"uid"`
	Email         string   `json:"em,omitempty"`
	Username      string   `json:"un,omitempty"`
	Roles         []string `json:"scope"`
	EmailVerified bool     `json:"verified"`
	Enabled       bool     `json:"enabled"`
	AuthType      string   `json:"acr,omitempty"`
	SessionType   string   `json:"st"`
	TokenType     string   `json:"typ"`
	AuthorizerID  string   `json:"azp"`
	SessionID     string   `json:"sid"`
}

// TokenServiceConfig carries the signing material and issuance policy.
type TokenServiceConfig struct {
	SigningKey      *rsa.PrivateKey
	VerifyKey       *rsa.PublicKey
	ChecksumSecret  []byte
	Issuer          string
	DefaultAudience string
	AuthTTL         time.Duration
	ResetTTL        time.Duration
}

// TokenService mints bearer tokens anchored to AuthSession records and
// validates presented tokens against them.
type TokenService struct {
	users    ports.UserRepository
	creds    ports.CredentialRepository
	sessions ports.SessionRepository
	cfg      TokenServiceConfig
	now      func() time.Time
	log      zerolog.Logger
}

func NewTokenService(
	users ports.UserRepository,
	creds ports.CredentialRepository,
	sessions ports.SessionRepository,
	cfg TokenServiceConfig,
	log zerolog.Logger,
) *TokenService {
	if cfg.AuthTTL <= 0 {
		cfg.AuthTTL = DefaultAuthSessionTTL
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = DefaultResetSessionTTL
	}
	return &TokenService{
		users:    users,
		creds:    creds,
		sessions: sessions,
		cfg:      cfg,
		now:      time.Now,
		log:      log,
	}
}

// Issue mints a token for the user authenticated by entity. entity is nil for
// credential-reset sessions, which have no backing AuthEntity; the session
// then records the placeholder authorizer.
func (s *TokenService) Issue(
	ctx context.Context,
	audience string,
	user *domain.User,
	entity *domain.AuthEntity,
	sessionType domain.SessionType,
) (*ports.IssuedToken, error) {
	if audience == "" {
		audience = s.cfg.DefaultAudience
	}

	authID := domain.PlaceholderAuthorizerID
	authType := ""
	if entity != nil {
		authID = entity.ID
		authType = string(entity.Type)
	}

	now := s.now().UTC()
	ttl := s.cfg.AuthTTL
	if sessionType == domain.SessionTypeResetCredential {
		ttl = s.cfg.ResetTTL
	}

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		UID:           user.ID,
		Email:         user.Email,
		Username:      user.Username,
		Roles:         rolesToStrings(user.Roles),
		EmailVerified: user.IsEmailVerified,
		Enabled:       user.IsEnabled,
		AuthType:      authType,
		SessionType:   string(sessionType),
		TokenType:     tokenTypeBearer,
		AuthorizerID:  authID,
	}

	checksum := s.checksum(claims)
	session, err := s.sessions.Create(ctx, &domain.AuthSession{
		UserID:       user.ID,
		AuthID:       authID,
		AuthorizerID: authID,
		GrantType:    domain.GrantSelf,
		SessionType:  sessionType,
		Checksum:     checksum,
		ExpiresAt:    now.Add(ttl),
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	claims.Subject = checksum
	claims.SessionID = session.ID

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.cfg.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	metrics.SessionsIssuedTotal.WithLabelValues(string(sessionType)).Inc()
	s.log.Info().
		Str("user_id", user.ID).
		Str("session_id", session.ID).
		Str("session_type", string(sessionType)).
		Msg("session issued")

	return &ports.IssuedToken{AccessToken: signed, Session: session, User: user}, nil
}

// Validate checks the token's signature and expiry, then anchors it to the
// live session: the referenced user (and entity, for non-reset sessions) must
// exist and be enabled, the session must be live and owned by the claimed
// user, and the checksum recomputed over the presented claims must equal the
// one recorded at issuance. Any mismatch is ErrUnauthorized.
func (s *TokenService) Validate(ctx context.Context, tokenString string) (*domain.User, *domain.AuthSession, error) {
	start := s.now()
	user, session, err := s.validate(ctx, tokenString)
	result := "ok"
	if err != nil {
		result = "unauthorized"
	}
	metrics.TokenValidationDuration.WithLabelValues(result).Observe(s.now().Sub(start).Seconds())
	return user, session, err
}

func (s *TokenService) validate(ctx context.Context, tokenString string) (*domain.User, *domain.AuthSession, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.cfg.VerifyKey, nil
	})
	if err != nil || !token.Valid {
		return nil, nil, domain.ErrUnauthorized
	}

	session, err := s.sessions.FindByID(ctx, claims.SessionID)
	if err != nil {
		// A concurrently revoked session must fail closed; the token alone
		// is never trusted.
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrUnauthorized
		}
		return nil, nil, fmt.Errorf("find session: %w", err)
	}

	now := s.now().UTC()
	if session.Expired(now) || session.UserID != claims.UID {
		return nil, nil, domain.ErrUnauthorized
	}

	// The checksum binds the presented claims to the ones recorded at
	// issuance. This catches claim tampering independently of the outer
	// signature check.
	if !hmac.Equal([]byte(s.checksum(claims)), []byte(session.Checksum)) {
		return nil, nil, domain.ErrUnauthorized
	}

	user, err := s.users.FindByID(ctx, claims.UID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrUnauthorized
		}
		return nil, nil, fmt.Errorf("find user: %w", err)
	}
	if !user.IsEnabled {
		return nil, nil, domain.ErrUnauthorized
	}

	if session.AuthID != domain.PlaceholderAuthorizerID {
		if _, err := s.creds.FindByID(ctx, session.AuthID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, nil, domain.ErrUnauthorized
			}
			return nil, nil, fmt.Errorf("find auth entity: %w", err)
		}
	}

	return user, session, nil
}

// checksum is a keyed MAC over a canonical serialization of the
// authorization-relevant claims. HMAC-SHA256 is deliberate: claims integrity
// needs a fast keyed MAC, not a slow salted password hash. The jti is part of
// the input so every issuance produces a distinct checksum; the session store
// indexes checksums uniquely and would otherwise refuse a user's second login.
func (s *TokenService) checksum(c *Claims) string {
	mac := hmac.New(sha256.New, s.cfg.ChecksumSecret)
	_, _ = io.WriteString(mac, strings.Join([]string{
		c.ID,
		c.UID,
		c.Email,
		c.Username,
		strings.Join(c.Roles, ","),
		strconv.FormatBool(c.EmailVerified),
		strconv.FormatBool(c.Enabled),
		c.AuthType,
		c.SessionType,
	}, "\n"))
	return hex.EncodeToString(mac.Sum(nil))
}

func rolesToStrings(roles []domain.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
