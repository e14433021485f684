package domain

import "time"

// Role is a coarse-grained authorization role attached to a user.
type Role string

const (
	RoleUser        Role = "user"
	RoleSystemAdmin Role = "system_admin"
)

// User models an identity that may own one or more credentials.
// Username and email are both optional, but a password credential requires at
// least one of them so the user remains addressable at login.
type User struct {
	ID              string    `json:"id"`
	Username        string    `json:"username,omitempty"`
	Email           string    `json:"email,omitempty"`
	DisplayName     string    `json:"display_name,omitempty"`
	Avatar          string    `json:"avatar,omitempty"`
	Roles           []Role    `json:"roles"`
	IsEmailVerified bool      `json:"is_email_verified"`
	IsEnabled       bool      `json:"is_enabled"`
	OTPSecret       string    `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HasRole reports whether the user carries the given role.
func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
