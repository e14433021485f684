package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/AppChainLabs/authd/internal/core/domain"
	"github.com/AppChainLabs/authd/internal/core/ports"
)

// CredentialService owns AuthEntity lifecycle and its invariants: one
// password entity per user, globally unique wallet addresses, exactly one
// primary entity per user with entities, and at least one entity per user.
type CredentialService struct {
	creds      ports.CredentialRepository
	sessions   ports.SessionRepository
	challenges *ChallengeService
	hasher     Hasher
	tx         ports.Transactor
	log        zerolog.Logger
}

func NewCredentialService(
	creds ports.CredentialRepository,
	sessions ports.SessionRepository,
	challenges *ChallengeService,
	hasher Hasher,
	tx ports.Transactor,
	log zerolog.Logger,
) *CredentialService {
	return &CredentialService{
		creds:      creds,
		sessions:   sessions,
		challenges: challenges,
		hasher:     hasher,
		tx:         tx,
		log:        log,
	}
}

// CreatePassword stores a new password credential for the user. The entity
// becomes primary iff the user has no primary yet, which covers sign-up
// (first entity is primary) and connect (never steals primary).
func (s *CredentialService) CreatePassword(ctx context.Context, userID, rawPassword string) (*domain.AuthEntity, error) {
	if rawPassword == "" {
		return nil, domain.ErrPasswordRequired
	}

	existing, err := s.creds.FindByUserAndType(ctx, userID, domain.AuthTypePassword)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lookup password entity: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrDuplicatePassword
	}

	cred, err := s.hasher.Hash(rawPassword)
	if err != nil {
		return nil, err
	}

	return s.create(ctx, &domain.AuthEntity{
		UserID:   userID,
		Type:     domain.AuthTypePassword,
		Password: cred,
	})
}

// CreateWallet stores a new wallet credential after the caller proves
// possession of the address by signing a live challenge. The global address
// uniqueness check runs before signature verification: a taken address is a
// Conflict regardless of how valid the signature is.
func (s *CredentialService) CreateWallet(ctx context.Context, userID string, t domain.AuthType, walletAddress, challengeID, signedData string) (*domain.AuthEntity, error) {
	if !t.IsWallet() || walletAddress == "" {
		return nil, domain.ErrInvalidCredential
	}

	if err := s.requireWalletFree(ctx, walletAddress); err != nil {
		return nil, err
	}

	ok, err := s.challenges.Consume(ctx, challengeID, walletAddress, func(message string) bool {
		verified, verr := VerifyWalletSignature(t, message, signedData, walletAddress)
		if verr != nil {
			s.log.Warn().Err(verr).Str("auth_type", string(t)).Msg("wallet signature dispatch failed")
			return false
		}
		return verified
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	return s.create(ctx, &domain.AuthEntity{
		UserID: userID,
		Type:   t,
		Wallet: &domain.WalletCredential{WalletAddress: walletAddress},
	})
}

// CreateWalletTrusted stores a wallet credential without challenge
// verification. Administrators attach wallets on behalf of users; possession
// was asserted out of band. Global uniqueness still applies.
func (s *CredentialService) CreateWalletTrusted(ctx context.Context, userID string, t domain.AuthType, walletAddress string) (*domain.AuthEntity, error) {
	if !t.IsWallet() || walletAddress == "" {
		return nil, domain.ErrInvalidCredential
	}
	if err := s.requireWalletFree(ctx, walletAddress); err != nil {
		return nil, err
	}
	return s.create(ctx, &domain.AuthEntity{
		UserID: userID,
		Type:   t,
		Wallet: &domain.WalletCredential{WalletAddress: walletAddress},
	})
}

// SetPrimary promotes the given entity to primary. Clearing the old primary
// and setting the new one run inside one transaction; replaying the sequence
// after a crash between the two steps still converges on exactly one primary.
func (s *CredentialService) SetPrimary(ctx context.Context, userID, authID string) (*domain.AuthEntity, error) {
	if _, err := s.findOwned(ctx, userID, authID); err != nil {
		return nil, err
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.creds.ClearPrimary(ctx, userID); err != nil {
			return err
		}
		return s.creds.SetPrimary(ctx, userID, authID)
	})
	if err != nil {
		return nil, fmt.Errorf("set primary: %w", err)
	}

	s.log.Info().Str("user_id", userID).Str("auth_id", authID).Msg("primary auth entity changed")
	return s.creds.FindByID(ctx, authID)
}

// Delete removes a non-primary entity and, in the same transaction, every
// session that was authorized by it, so tokens minted from the deleted
// credential die before their timestamp expiry. The primary entity and the
// last remaining entity cannot be deleted.
func (s *CredentialService) Delete(ctx context.Context, userID, authID string) error {
	entity, err := s.findOwned(ctx, userID, authID)
	if err != nil {
		return err
	}
	if entity.IsPrimary {
		return domain.ErrPrimaryUndeletable
	}

	count, err := s.creds.CountForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("count entities: %w", err)
	}
	if count <= 1 {
		return domain.ErrLastCredential
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.creds.Delete(ctx, userID, authID); err != nil {
			return err
		}
		return s.sessions.DeleteByAuthID(ctx, authID)
	})
	if err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}

	s.log.Info().Str("user_id", userID).Str("auth_id", authID).Msg("auth entity deleted, sessions cascaded")
	return nil
}

// ListForUser returns all entities owned by the user.
func (s *CredentialService) ListForUser(ctx context.Context, userID string) ([]domain.AuthEntity, error) {
	return s.creds.ListForUser(ctx, userID)
}

func (s *CredentialService) findOwned(ctx context.Context, userID, authID string) (*domain.AuthEntity, error) {
	entity, err := s.creds.FindByUserAndID(ctx, userID, authID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrEntityNotOwned
		}
		return nil, fmt.Errorf("lookup entity: %w", err)
	}
	return entity, nil
}

func (s *CredentialService) requireWalletFree(ctx context.Context, walletAddress string) error {
	existing, err := s.creds.FindByWalletAddress(ctx, walletAddress)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("lookup wallet: %w", err)
	}
	if existing != nil {
		return domain.ErrWalletTaken
	}
	return nil
}

// create persists the entity, marking it primary iff the user has no primary
// yet. The unique wallet index backstops the pre-check against races.
func (s *CredentialService) create(ctx context.Context, entity *domain.AuthEntity) (*domain.AuthEntity, error) {
	hasPrimary, err := s.creds.HasPrimary(ctx, entity.UserID)
	if err != nil {
		return nil, fmt.Errorf("check primary: %w", err)
	}
	entity.IsPrimary = !hasPrimary

	created, err := s.creds.Create(ctx, entity)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", created.UserID).
		Str("auth_id", created.ID).
		Str("type", string(created.Type)).
		Bool("is_primary", created.IsPrimary).
		Msg("auth entity created")
	return created, nil
}
