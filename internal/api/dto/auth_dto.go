package dto

import (
	"time"

	"github.com/spec-kit/auth-service/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// IDResponse is returned by register, login and refresh. Tokens travel in cookies.
type IDResponse struct {
	ID string `json:"id"`
}

// SelfResponse describes the authenticated caller.
type SelfResponse struct {
	ID        string      `json:"id"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

// NewSelfResponse maps a user without its password hash.
func NewSelfResponse(user *domain.User) SelfResponse {
	return SelfResponse{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

// SessionResponse describes one live refresh token of the caller.
type SessionResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewSessionsResponse maps refresh records.
func NewSessionsResponse(records []domain.RefreshToken) []SessionResponse {
	out := make([]SessionResponse, 0, len(records))
	for _, record := range records {
		out = append(out, SessionResponse{ID: record.ID, CreatedAt: record.CreatedAt, ExpiresAt: record.ExpiresAt})
	}
	return out
}
