package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/AppChainLabs/authd/internal/core/domain"
	"github.com/AppChainLabs/authd/internal/core/ports"
	"github.com/AppChainLabs/authd/internal/metrics"
)

// BrokerService orchestrates sign-up, the login flows, credential management,
// and the credential-reset email flow. It owns the cross-entity transactional
// boundaries; single-entity invariants live in CredentialService.
type BrokerService struct {
	users       ports.UserRepository
	creds       ports.CredentialRepository
	sessions    ports.SessionRepository
	credentials *CredentialService
	challenges  *ChallengeService
	tokens      *TokenService
	hasher      Hasher
	otp         *OTPProvider
	mail        ports.MailSender
	limiter     ports.LoginLimiter
	tx          ports.Transactor
	resetURL    string
	log         zerolog.Logger
}

// BrokerDeps bundles the collaborators of BrokerService; all fields are
// required except Limiter, which defaults to unlimited.
type BrokerDeps struct {
	Users       ports.UserRepository
	Creds       ports.CredentialRepository
	Sessions    ports.SessionRepository
	Credentials *CredentialService
	Challenges  *ChallengeService
	Tokens      *TokenService
	Hasher      Hasher
	OTP         *OTPProvider
	Mail        ports.MailSender
	Limiter     ports.LoginLimiter
	Tx          ports.Transactor
	// ResetURL is the frontend base the credential-reset magic link points at.
	ResetURL string
}

func NewBrokerService(deps BrokerDeps, log zerolog.Logger) *BrokerService {
	return &BrokerService{
		users:       deps.Users,
		creds:       deps.Creds,
		sessions:    deps.Sessions,
		credentials: deps.Credentials,
		challenges:  deps.Challenges,
		tokens:      deps.Tokens,
		hasher:      deps.Hasher,
		otp:         deps.OTP,
		mail:        deps.Mail,
		limiter:     deps.Limiter,
		tx:          deps.Tx,
		resetURL:    deps.ResetURL,
		log:         log,
	}
}

// SignUp creates the user and its initial primary credential atomically. A
// half-created user without a credential is never observable.
func (s *BrokerService) SignUp(ctx context.Context, reg ports.RegistrationInput) (*domain.User, error) {
	if !reg.Credential.Type.Valid() {
		return nil, domain.ErrInvalidCredential
	}
	if reg.Credential.Type == domain.AuthTypePassword && reg.Email == "" && reg.Username == "" {
		return nil, domain.ErrIdentifierMissing
	}

	for _, identifier := range []string{reg.Email, reg.Username} {
		if identifier == "" {
			continue
		}
		if _, err := s.users.FindByEmailOrUsername(ctx, identifier); err == nil {
			return nil, domain.ErrIdentifierTaken
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("lookup identifier: %w", err)
		}
	}

	otpSecret, err := s.otp.GenerateSecret()
	if err != nil {
		return nil, err
	}

	var user *domain.User
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		created, cerr := s.users.Create(ctx, &domain.User{
			Username:        reg.Username,
			Email:           reg.Email,
			DisplayName:     reg.DisplayName,
			Avatar:          reg.Avatar,
			Roles:           []domain.Role{domain.RoleUser},
			IsEnabled:       true,
			IsEmailVerified: false,
			OTPSecret:       otpSecret,
		})
		if cerr != nil {
			return cerr
		}
		user = created
		_, cerr = s.createCredential(ctx, created.ID, reg.Credential)
		return cerr
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Str("type", string(reg.Credential.Type)).Msg("user signed up")
	return user, nil
}

// Login authenticates with a password against the user's password entity and
// mints an Auth-scoped session. All failure modes surface as the same
// ErrUnauthorized.
func (s *BrokerService) Login(ctx context.Context, audience, identifier, password string) (*ports.IssuedToken, error) {
	return s.passwordLogin(ctx, "password", audience, identifier, password, nil)
}

// AdminLogin is Login plus a SystemAdmin role requirement.
func (s *BrokerService) AdminLogin(ctx context.Context, audience, identifier, password string) (*ports.IssuedToken, error) {
	return s.passwordLogin(ctx, "admin", audience, identifier, password, func(user *domain.User) error {
		if !user.HasRole(domain.RoleSystemAdmin) {
			return domain.ErrForbidden
		}
		return nil
	})
}

func (s *BrokerService) passwordLogin(
	ctx context.Context,
	method, audience, identifier, password string,
	gate func(*domain.User) error,
) (*ports.IssuedToken, error) {
	if err := s.allowAttempt(ctx, method, identifier); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmailOrUsername(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return s.unauthorized(method)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsEnabled {
		return s.unauthorized(method)
	}

	entity, err := s.creds.FindByUserAndType(ctx, user.ID, domain.AuthTypePassword)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return s.unauthorized(method)
		}
		return nil, fmt.Errorf("lookup password entity: %w", err)
	}

	if err := s.hasher.Verify(password, entity.Password); err != nil {
		return s.unauthorized(method)
	}

	if gate != nil {
		if err := gate(user); err != nil {
			return nil, err
		}
	}

	issued, err := s.tokens.Issue(ctx, audience, user, entity, domain.SessionTypeAuth)
	if err != nil {
		return nil, err
	}
	metrics.LoginAttemptsTotal.WithLabelValues(method, "ok").Inc()
	return issued, nil
}

// LoginWithWallet authenticates by consuming a challenge signed with the
// wallet's private key and mints an Auth-scoped session.
func (s *BrokerService) LoginWithWallet(
	ctx context.Context,
	audience string,
	t domain.AuthType,
	walletAddress, challengeID, signedData string,
) (*ports.IssuedToken, error) {
	method := string(t)
	if !t.IsWallet() {
		return nil, domain.ErrInvalidCredential
	}
	if err := s.allowAttempt(ctx, method, walletAddress); err != nil {
		return nil, err
	}

	entity, err := s.creds.FindByWalletAddress(ctx, walletAddress)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return s.unauthorized(method)
		}
		return nil, fmt.Errorf("lookup wallet entity: %w", err)
	}
	if entity.Type != t {
		return s.unauthorized(method)
	}

	user, err := s.users.FindByID(ctx, entity.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return s.unauthorized(method)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsEnabled {
		return s.unauthorized(method)
	}

	ok, err := s.challenges.Consume(ctx, challengeID, walletAddress, func(message string) bool {
		verified, verr := VerifyWalletSignature(t, message, signedData, walletAddress)
		return verr == nil && verified
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return s.unauthorized(method)
	}

	issued, err := s.tokens.Issue(ctx, audience, user, entity, domain.SessionTypeAuth)
	if err != nil {
		return nil, err
	}
	metrics.LoginAttemptsTotal.WithLabelValues(method, "ok").Inc()
	return issued, nil
}

// IssueChallenge hands out a proof-of-possession challenge for the target.
func (s *BrokerService) IssueChallenge(ctx context.Context, target string) (*domain.AuthChallenge, error) {
	return s.challenges.Issue(ctx, target)
}

// ConnectCredential attaches an additional credential to an existing user.
// The new entity never becomes primary here: a user with entities always has
// one already.
func (s *BrokerService) ConnectCredential(ctx context.Context, userID string, in ports.CredentialInput) (*domain.AuthEntity, error) {
	return s.createCredential(ctx, userID, in)
}

// ListCredentials returns the user's entities for profile display.
func (s *BrokerService) ListCredentials(ctx context.Context, userID string) ([]domain.AuthEntity, error) {
	return s.credentials.ListForUser(ctx, userID)
}

// SetPrimaryCredential promotes one of the user's entities to primary.
func (s *BrokerService) SetPrimaryCredential(ctx context.Context, userID, authID string) (*domain.AuthEntity, error) {
	return s.credentials.SetPrimary(ctx, userID, authID)
}

// DeleteCredential removes one of the user's entities, cascading sessions.
func (s *BrokerService) DeleteCredential(ctx context.Context, userID, authID string) error {
	return s.credentials.Delete(ctx, userID, authID)
}

// InitiateCredentialReset mints a ResetCredential-scoped token with no
// backing entity and mails it to the address as a magic link. Unknown
// addresses are silently ignored so the endpoint cannot be used to enumerate
// accounts.
func (s *BrokerService) InitiateCredentialReset(ctx context.Context, audience, email string) error {
	user, err := s.users.FindByEmailOrUsername(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.log.Debug().Str("email", email).Msg("credential reset requested for unknown address")
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	issued, err := s.tokens.Issue(ctx, audience, user, nil, domain.SessionTypeResetCredential)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s?token=%s", s.resetURL, url.QueryEscape(issued.AccessToken))
	s.mail.Enqueue(ports.Mail{
		To:      email,
		Subject: "Reconnect your account",
		Body:    fmt.Sprintf("Use this link to connect a new credential to your account: %s", link),
	})

	s.log.Info().Str("user_id", user.ID).Msg("credential reset initiated")
	return nil
}

// CheckIdentifierAvailable reports whether an email or username is still free
// to claim. A taken identifier is a Conflict, matching what sign-up would
// return for it.
func (s *BrokerService) CheckIdentifierAvailable(ctx context.Context, query string) error {
	if _, err := s.users.FindByEmailOrUsername(ctx, query); err == nil {
		return domain.ErrIdentifierTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("lookup identifier: %w", err)
	}
	return nil
}

// CheckWalletAvailable reports whether a wallet address is still unclaimed.
func (s *BrokerService) CheckWalletAvailable(ctx context.Context, address string) error {
	if _, err := s.creds.FindByWalletAddress(ctx, address); err == nil {
		return domain.ErrWalletTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("lookup wallet address: %w", err)
	}
	return nil
}

// RequestEmailOTP mails the user a short-lived verification code.
func (s *BrokerService) RequestEmailOTP(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Email == "" {
		return domain.ErrEmailNotSet
	}

	code, err := s.otp.Code(user.OTPSecret)
	if err != nil {
		return err
	}

	s.mail.Enqueue(ports.Mail{
		To:      user.Email,
		Subject: "Your verification code",
		Body:    fmt.Sprintf("Your email verification code is %s. It expires shortly.", code),
	})
	return nil
}

// VerifyEmailOTP checks the code and marks the user's email verified.
func (s *BrokerService) VerifyEmailOTP(ctx context.Context, userID, code string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Email == "" {
		return domain.ErrEmailNotSet
	}
	if !s.otp.Verify(code, user.OTPSecret) {
		return domain.ErrUnauthorized
	}
	return s.users.SetEmailVerified(ctx, userID, true)
}

// AdminCreateCredential attaches a credential on behalf of a user. Wallet
// possession is asserted by the administrator, so no challenge is consumed;
// every other invariant still holds.
func (s *BrokerService) AdminCreateCredential(ctx context.Context, userID string, in ports.CredentialInput) (*domain.AuthEntity, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	switch in.Type {
	case domain.AuthTypePassword:
		if user.Email == "" && user.Username == "" {
			return nil, domain.ErrIdentifierMissing
		}
		return s.credentials.CreatePassword(ctx, userID, in.Password)
	case domain.AuthTypeEVMWallet, domain.AuthTypeSolanaWallet:
		return s.credentials.CreateWalletTrusted(ctx, userID, in.Type, in.WalletAddress)
	default:
		return nil, domain.ErrInvalidCredential
	}
}

// AdminDeleteCredential removes a user's entity under the same invariants as
// the owner-facing delete.
func (s *BrokerService) AdminDeleteCredential(ctx context.Context, userID, authID string) error {
	return s.credentials.Delete(ctx, userID, authID)
}

// AdminRemoveUser deletes the user and cascades its credentials and sessions
// in one transaction.
func (s *BrokerService) AdminRemoveUser(ctx context.Context, userID string) error {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return err
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
			return err
		}
		if err := s.creds.DeleteAllForUser(ctx, userID); err != nil {
			return err
		}
		return s.users.Delete(ctx, userID)
	})
	if err != nil {
		return fmt.Errorf("remove user: %w", err)
	}

	s.log.Info().Str("user_id", userID).Msg("user removed")
	return nil
}

// createCredential dispatches over the tagged credential payload. The default
// arm rejects; it never creates.
func (s *BrokerService) createCredential(ctx context.Context, userID string, in ports.CredentialInput) (*domain.AuthEntity, error) {
	switch in.Type {
	case domain.AuthTypePassword:
		return s.credentials.CreatePassword(ctx, userID, in.Password)
	case domain.AuthTypeEVMWallet, domain.AuthTypeSolanaWallet:
		return s.credentials.CreateWallet(ctx, userID, in.Type, in.WalletAddress, in.AuthChallengeID, in.SignedData)
	default:
		return nil, domain.ErrInvalidCredential
	}
}

// allowAttempt consults the login limiter. Limiter infrastructure failures
// let the attempt through: throttling is protection, not a gate the whole
// login path depends on.
func (s *BrokerService) allowAttempt(ctx context.Context, method, key string) error {
	if s.limiter == nil {
		return nil
	}
	allowed, err := s.limiter.Allow(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Msg("login limiter unavailable, allowing attempt")
		return nil
	}
	if !allowed {
		metrics.LoginAttemptsTotal.WithLabelValues(method, "rate_limited").Inc()
		return domain.ErrRateLimited
	}
	return nil
}

func (s *BrokerService) unauthorized(method string) (*ports.IssuedToken, error) {
	metrics.LoginAttemptsTotal.WithLabelValues(method, "unauthorized").Inc()
	return nil, domain.ErrUnauthorized
}
