package domain

import "time"

// AuthChallenge is an ephemeral proof-of-possession record. The holder of the
// target (a wallet address or an email) signs Message and submits the result
// together with the challenge id. A challenge is consumed at most once:
// IsResolved only ever transitions false to true.
type AuthChallenge struct {
	ID         string    `json:"id"`
	Target     string    `json:"target"`
	Message    string    `json:"message"`
	ExpiredAt  time.Time `json:"expired_at"`
	IsResolved bool      `json:"is_resolved"`
	CreatedAt  time.Time `json:"created_at"`
}

// Expired reports whether the challenge is past its TTL at the given instant.
func (c *AuthChallenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiredAt)
}
