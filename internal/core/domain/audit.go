package domain

import "time"

// AuthEventType classifies an entry in the authentication audit trail.
type AuthEventType string

const (
	EventRegistered   AuthEventType = "registered"
	EventLoginSuccess AuthEventType = "login_success"
	EventLoginFailure AuthEventType = "login_failure"
	EventLoginBlocked AuthEventType = "login_blocked"
	EventPasswordSet  AuthEventType = "password_changed"
)

// AuthEvent is one audit record. It never carries credentials.
type AuthEvent struct {
	Type       AuthEventType
	UserID     string // empty when the email matched no account
	Email      string
	IP         string
	UserAgent  string
	OccurredAt time.Time
}
