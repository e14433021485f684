package service

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/AppChainLabs/authd/internal/core/domain"
)

// Hasher produces and verifies algorithm-tagged password digests. The tag
// stored next to the digest makes future algorithm migrations detectable;
// verification fails closed when it meets a tag it does not recognize.
type Hasher interface {
	Hash(secret string) (*domain.PasswordCredential, error)
	Verify(secret string, cred *domain.PasswordCredential) error
}

// BCryptHasher is the current production Hasher. bcrypt salts internally, so
// no salt is stored alongside the digest.
type BCryptHasher struct {
	cost int
}

func NewBCryptHasher() *BCryptHasher {
	return &BCryptHasher{cost: bcrypt.DefaultCost}
}

func (h *BCryptHasher) Hash(secret string) (*domain.PasswordCredential, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &domain.PasswordCredential{
		Digest:    string(digest),
		Algorithm: domain.HashBCrypt,
	}, nil
}

// Verify compares secret against the stored digest. An unknown algorithm tag
// or a non-matching secret both surface as ErrUnauthorized; the caller cannot
// distinguish them.
func (h *BCryptHasher) Verify(secret string, cred *domain.PasswordCredential) error {
	if cred == nil || cred.Algorithm != domain.HashBCrypt {
		return domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.Digest), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return domain.ErrUnauthorized
		}
		// Malformed digest: still a refusal, not an internal error.
		return domain.ErrUnauthorized
	}
	return nil
}
