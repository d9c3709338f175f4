package models

import (
	"time"
)

type User struct {
	ID           string
	Email        string // unique, stored lowercase and trimmed
	Name         string
	PasswordHash string // bcrypt digest, never the plaintext
	Is2FAEnabled bool

	// At most one live refresh token per user. Both fields are nil when the
	// user has no active session.
	RefreshToken         *string
	RefreshTokenLastUsed *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasActiveSession reports whether a refresh token is currently stored.
func (u *User) HasActiveSession() bool {
	return u.RefreshToken != nil
}
