package domain

import "time"

// RefreshToken is the persisted record anchoring one issued refresh token.
type RefreshToken struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the record is past its expiry at now.
func (r *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// TokenClaims is the decoded identity carried by access and refresh tokens.
// Access tokens leave TokenID empty.
type TokenClaims struct {
	Subject string
	Role    Role
	TokenID string
}

// TokenPair is what register, login and refresh hand to the transport.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
