package ports

import (
	"context"

	"github.com/AppChainLabs/authd/internal/core/domain"
)

// CredentialInput is the tagged credential payload accepted on the wire.
// Password is set for AuthTypePassword; the wallet triplet for wallet types.
type CredentialInput struct {
	Type            domain.AuthType
	Password        string
	WalletAddress   string
	SignedData      string
	AuthChallengeID string
}

// RegistrationInput is the sign-up payload.
type RegistrationInput struct {
	Username    string
	Email       string
	DisplayName string
	Avatar      string
	Credential  CredentialInput
}

// IssuedToken is the result of a successful authentication event.
type IssuedToken struct {
	AccessToken string
	Session     *domain.AuthSession
	User        *domain.User
}

// TokenValidator checks a bearer token against its live session record.
// Every failure mode is domain.ErrUnauthorized.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*domain.User, *domain.AuthSession, error)
}

// Broker orchestrates sign-up, login, and credential management. Scope and
// role enforcement happen in the HTTP layer; the broker enforces ownership
// and credential invariants.
type Broker interface {
	SignUp(ctx context.Context, reg RegistrationInput) (*domain.User, error)
	Login(ctx context.Context, audience, identifier, password string) (*IssuedToken, error)
	LoginWithWallet(ctx context.Context, audience string, t domain.AuthType, walletAddress, challengeID, signedData string) (*IssuedToken, error)
	IssueChallenge(ctx context.Context, target string) (*domain.AuthChallenge, error)
	ConnectCredential(ctx context.Context, userID string, in CredentialInput) (*domain.AuthEntity, error)
	ListCredentials(ctx context.Context, userID string) ([]domain.AuthEntity, error)
	SetPrimaryCredential(ctx context.Context, userID, authID string) (*domain.AuthEntity, error)
	DeleteCredential(ctx context.Context, userID, authID string) error
	InitiateCredentialReset(ctx context.Context, audience, email string) error
	RequestEmailOTP(ctx context.Context, userID string) error
	VerifyEmailOTP(ctx context.Context, userID, code string) error
	CheckIdentifierAvailable(ctx context.Context, query string) error
	CheckWalletAvailable(ctx context.Context, address string) error
}

// AdminBroker is the administrator-facing surface.
type AdminBroker interface {
	AdminLogin(ctx context.Context, audience, identifier, password string) (*IssuedToken, error)
	AdminCreateCredential(ctx context.Context, userID string, in CredentialInput) (*domain.AuthEntity, error)
	AdminDeleteCredential(ctx context.Context, userID, authID string) error
	AdminRemoveUser(ctx context.Context, userID string) error
}

// LoginLimiter throttles authentication attempts per identifier.
type LoginLimiter interface {
	// Allow records one attempt for key and reports whether it is within the
	// configured window budget.
	Allow(ctx context.Context, key string) (bool, error)
}
