// Package session manages authenticated sessions and upstream token lifecycle.
package session

import (
	"time"

	"github.com/estoque-gate/estoquegate/internal/domain/auth"
)

// Status is the derived authentication state of a request.
// The zero value is StatusLoading: a session whose state has not been
// resolved yet must never be treated as authenticated or as signed out.
type Status int

const (
	// StatusLoading means the session state has not been derived yet.
	StatusLoading Status = iota
	// StatusUnauthenticated means there is no live session.
	StatusUnauthenticated
	// StatusAuthenticated means the session holds a usable access token.
	StatusAuthenticated
	// StatusRefreshFailed means the session's refresh token was rejected.
	// This state is terminal: the user must sign in again.
	StatusRefreshFailed
)

// String returns the status name for logging.
func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticated:
		return "authenticated"
	case StatusRefreshFailed:
		return "refresh_failed"
	default:
		return "unknown"
	}
}

// TokenState holds the upstream token pair and the identity it belongs to.
type TokenState struct {
	// User is the identity returned by the credential exchange.
	User auth.User
	// AccessToken is the upstream bearer token. Treated as opaque.
	AccessToken string
	// RefreshToken is the upstream refresh token. Treated as opaque.
	RefreshToken string
	// AccessTokenExpiresAt is when the access token stops being usable,
	// tracked locally from the moment of issuance.
	AccessTokenExpiresAt time.Time
	// RefreshFailed marks the token pair as permanently unusable.
	RefreshFailed bool
}

// AccessTokenExpired checks whether the access token needs refreshing.
func (t *TokenState) AccessTokenExpired() bool {
	return time.Now().UTC().After(t.AccessTokenExpiresAt)
}

// Session is the server-side session record.
type Session struct {
	// ID is a cryptographically random identifier, 32 bytes hex-encoded.
	ID string
	// Token is the authoritative token state for this session.
	Token TokenState
	// Persistent records whether the user asked to stay logged in.
	Persistent bool
	// CreatedAt is when the session was created (UTC).
	CreatedAt time.Time
	// ExpiresAt is when the session record itself expires (UTC).
	ExpiresAt time.Time
	// LastAccess is the last time the session was used (UTC).
	LastAccess time.Time
}

// IsExpired checks if the session record has exceeded its lifetime.
func (s *Session) IsExpired() bool {
	return time.Now().UTC().After(s.ExpiresAt)
}

// Touch updates LastAccess and extends ExpiresAt by the given duration.
func (s *Session) Touch(timeout time.Duration) {
	now := time.Now().UTC()
	s.LastAccess = now
	s.ExpiresAt = now.Add(timeout)
}

// View is the derived, request-facing state of a session. Handlers and the
// authorization gate consume views, never raw session records.
type View struct {
	// Status is the derived authentication state.
	Status Status
	// User is set when Status is StatusAuthenticated or StatusRefreshFailed.
	User auth.User
	// AccessToken is set when Status is StatusAuthenticated. It is the
	// bearer value the proxy injects on upstream requests.
	AccessToken string
	// Persistent mirrors the session's stay-logged-in flag.
	Persistent bool
}
