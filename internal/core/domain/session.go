package domain

import "time"

// SessionType scopes what a bearer token minted against the session may do.
type SessionType string

const (
	// SessionTypeAuth is a general-purpose authenticated session.
	SessionTypeAuth SessionType = "auth"
	// SessionTypeResetCredential is the narrow scope minted by the
	// credential-reset email flow; it can only connect a new credential.
	SessionTypeResetCredential SessionType = "reset_credential"
)

// GrantType records on whose behalf the session was granted. ServiceClient is
// reserved for future delegated access and is never minted today.
type GrantType string

const (
	GrantSelf          GrantType = "self"
	GrantServiceClient GrantType = "service_client"
)

// PlaceholderAuthorizerID is stored as the authorizing entity of sessions
// that have no backing AuthEntity (the credential-reset flow). It is the
// zero-value Mongo ObjectID and can never collide with a real entity id.
const PlaceholderAuthorizerID = "000000000000000000000000"

// AuthSession is the server-side anchor of a bearer token: liveness, scope,
// and the checksum of the claims the token was issued with. Sessions are
// never updated; they become unusable by expiry, deletion, or checksum
// mismatch.
type AuthSession struct {
	ID           string      `json:"id"`
	UserID       string      `json:"user_id"`
	AuthID       string      `json:"auth_id"`
	AuthorizerID string      `json:"authorizer_id"`
	GrantType    GrantType   `json:"grant_type"`
	SessionType  SessionType `json:"session_type"`
	Checksum     string      `json:"-"`
	ExpiresAt    time.Time   `json:"expires_at"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Expired reports whether the session is past its expiry at the given instant.
func (s *AuthSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
