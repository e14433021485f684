package ports

import (
	"context"
	"time"

	"github.com/AppChainLabs/authd/internal/core/domain"
)

// UserRepository persists identity records.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindByEmailOrUsername resolves a login identifier against either field.
	FindByEmailOrUsername(ctx context.Context, query string) (*domain.User, error)
	SetEmailVerified(ctx context.Context, id string, verified bool) error
	Delete(ctx context.Context, id string) error
}

// CredentialRepository persists AuthEntity records and the invariants their
// indexes enforce (globally unique wallet address, one password per user).
type CredentialRepository interface {
	Create(ctx context.Context, entity *domain.AuthEntity) (*domain.AuthEntity, error)
	FindByID(ctx context.Context, id string) (*domain.AuthEntity, error)
	FindByUserAndID(ctx context.Context, userID, id string) (*domain.AuthEntity, error)
	FindByUserAndType(ctx context.Context, userID string, t domain.AuthType) (*domain.AuthEntity, error)
	FindByWalletAddress(ctx context.Context, address string) (*domain.AuthEntity, error)
	ListForUser(ctx context.Context, userID string) ([]domain.AuthEntity, error)
	CountForUser(ctx context.Context, userID string) (int64, error)
	HasPrimary(ctx context.Context, userID string) (bool, error)
	// ClearPrimary unsets the current primary flag for the user, if any.
	ClearPrimary(ctx context.Context, userID string) error
	// SetPrimary marks the given entity primary. Callers pair it with
	// ClearPrimary inside one transaction.
	SetPrimary(ctx context.Context, userID, id string) error
	Delete(ctx context.Context, userID, id string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

// ChallengeRepository persists proof-of-possession challenges.
type ChallengeRepository interface {
	Create(ctx context.Context, challenge *domain.AuthChallenge) (*domain.AuthChallenge, error)
	FindByID(ctx context.Context, id string) (*domain.AuthChallenge, error)
	// Resolve flips is_resolved false to true iff the challenge is still
	// unresolved and unexpired at now, in one conditional update. It reports
	// whether this caller performed the flip; under concurrent consumption
	// exactly one caller observes true.
	Resolve(ctx context.Context, id string, now time.Time) (bool, error)
}

// SessionRepository persists the server-side anchors of bearer tokens.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.AuthSession) (*domain.AuthSession, error)
	FindByID(ctx context.Context, id string) (*domain.AuthSession, error)
	// DeleteByAuthID removes every session authorized by the given entity
	// (the cascade that revokes tokens of a deleted credential).
	DeleteByAuthID(ctx context.Context, authID string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

// Transactor runs fn under commit-or-rollback semantics: either every write
// made through ctx commits, or none does. The session is released on all exit
// paths, including panics.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
