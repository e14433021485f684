package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/AppChainLabs/authd/internal/core/domain"
	"github.com/AppChainLabs/authd/internal/core/ports"
	"github.com/AppChainLabs/authd/internal/metrics"
)

// DefaultChallengeTTL is how long an issued challenge stays signable.
const DefaultChallengeTTL = 60 * time.Second

// ChallengeService issues and consumes single-use proof-of-possession
// challenges.
type ChallengeService struct {
	repo ports.ChallengeRepository
	ttl  time.Duration
	now  func() time.Time
	log  zerolog.Logger
}

func NewChallengeService(repo ports.ChallengeRepository, ttl time.Duration, log zerolog.Logger) *ChallengeService {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &ChallengeService{repo: repo, ttl: ttl, now: time.Now, log: log}
}

// Issue creates a challenge for the given target (wallet address or email).
// The message embeds a hash of the target so the signed text is bound to the
// requester without leaking any server state.
func (s *ChallengeService) Issue(ctx context.Context, target string) (*domain.AuthChallenge, error) {
	if target == "" {
		return nil, domain.ErrInvalidCredential
	}

	now := s.now().UTC()
	sum := sha256.Sum256([]byte(target))
	challenge := &domain.AuthChallenge{
		Target: target,
		Message: fmt.Sprintf(
			"Sign in with %s.\nChallenge hash: %s.\nDate: %s.",
			target, hex.EncodeToString(sum[:]), now.Format(time.RFC3339),
		),
		ExpiredAt:  now.Add(s.ttl),
		IsResolved: false,
	}

	created, err := s.repo.Create(ctx, challenge)
	if err != nil {
		return nil, fmt.Errorf("issue challenge: %w", err)
	}

	metrics.ChallengesIssuedTotal.Inc()
	s.log.Debug().Str("challenge_id", created.ID).Str("target", target).Msg("challenge issued")
	return created, nil
}

// Consume verifies a signed response against the challenge and burns it.
// It reports false, without error, when the challenge is missing, already
// resolved, expired, bound to another target, or the signature check fails.
// The resolved flip is a conditional update in the store, so when N callers
// race on the same challenge exactly one of them gets true.
func (s *ChallengeService) Consume(ctx context.Context, challengeID, claimedTarget string, verify func(message string) bool) (bool, error) {
	challenge, err := s.repo.FindByID(ctx, challengeID)
	if err != nil {
		if isNotFound(err) {
			metrics.ChallengeConsumeTotal.WithLabelValues("rejected").Inc()
			return false, nil
		}
		return false, fmt.Errorf("consume challenge: %w", err)
	}

	now := s.now().UTC()
	if challenge.IsResolved || challenge.Expired(now) || challenge.Target != claimedTarget {
		metrics.ChallengeConsumeTotal.WithLabelValues("rejected").Inc()
		return false, nil
	}

	if !verify(challenge.Message) {
		metrics.ChallengeConsumeTotal.WithLabelValues("rejected").Inc()
		return false, nil
	}

	won, err := s.repo.Resolve(ctx, challengeID, now)
	if err != nil {
		return false, fmt.Errorf("resolve challenge: %w", err)
	}
	if !won {
		// A concurrent consumer burned it between our read and the update.
		metrics.ChallengeConsumeTotal.WithLabelValues("lost_race").Inc()
		s.log.Warn().Str("challenge_id", challengeID).Msg("challenge lost consumption race")
		return false, nil
	}

	metrics.ChallengeConsumeTotal.WithLabelValues("ok").Inc()
	return true, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
