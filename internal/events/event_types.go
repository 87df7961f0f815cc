package events

import (
	"time"

	"github.com/spec-kit/auth-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered EventType = "user_registered"
	EventUserLoggedIn   EventType = "user_logged_in"
	EventRefreshRotated EventType = "refresh_rotated"
	EventUserLoggedOut  EventType = "user_logged_out"
)

// AuthEventTypes lists every event the auth service publishes.
var AuthEventTypes = []EventType{
	EventUserRegistered,
	EventUserLoggedIn,
	EventRefreshRotated,
	EventUserLoggedOut,
}

// Event represents an auth event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Role      domain.Role `json:"role,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload,omitempty"`
}

// SessionPayload links an event to the refresh record of the session.
type SessionPayload struct {
	RefreshTokenID         string `json:"refresh_token_id"`
	PreviousRefreshTokenID string `json:"previous_refresh_token_id,omitempty"`
}
