package session

import "context"

// TokenPair is the result of a token refresh. RefreshToken may be empty
// when the upstream rotates only the access token; callers keep the
// previous refresh token in that case.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenRefresher exchanges a refresh token for a new token pair.
// A refresh is attempted at most once per expiry: any error is terminal
// for the session, never retried.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
}

// PreferenceClearer removes a user's stay-logged-in preference. The session
// service clears it on every terminal path so a dead session is never
// resumed at next boot.
type PreferenceClearer interface {
	Clear(ctx context.Context, matricula string) error
}
