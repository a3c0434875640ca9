// Package gateway defines the backend client surface the rest of the
// application talks to for authentication: session retrieval and refresh,
// sign in/up/out, password reset and session-change notifications.  The
// auth resolver and health monitor are written against these interfaces so
// tests can substitute fakes for the real backend.
package gateway

import (
	"context"
	"errors"
	"time"
)

// EventKind identifies why a session-change notification fired.
type EventKind string

const (
	EventInitialLoad    EventKind = "INITIAL_LOAD"
	EventSignedIn       EventKind = "SIGNED_IN"
	EventSignedOut      EventKind = "SIGNED_OUT"
	EventTokenRefreshed EventKind = "TOKEN_REFRESHED"
	EventManualRefresh  EventKind = "MANUAL_REFRESH"
)

// Session is the backend-issued proof of authentication. It is serialized
// into the durable session slot and handed to session-change subscribers.
type Session struct {
	UserID      uint64    `json:"user_id"`
	Email       string    `json:"email"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the session's credential has lapsed.
func (s *Session) Expired() bool {
	return time.Now().UTC().After(s.ExpiresAt)
}

// Subscription is a handle to an active session-change or table-change
// registration. Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

// Auth is the full authentication surface of the backend client.
type Auth interface {
	GetSession(ctx context.Context) (*Session, error)
	RefreshSession(ctx context.Context) (*Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password, redirectURL string) (*Session, error)
	SignOut(ctx context.Context) error
	ResetPasswordForEmail(ctx context.Context, email, redirectURL string) error
	OnSessionChange(fn func(EventKind, *Session)) Subscription
}

// ErrInvalidCredentials is returned by SignInWithPassword when the email is
// unknown or the password does not match. The two cases are deliberately
// indistinguishable.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrAccountDisabled is returned when the account exists but is inactive.
var ErrAccountDisabled = errors.New("account disabled")
