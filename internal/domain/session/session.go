package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/estoque-gate/estoquegate/internal/domain/auth"
)

// DefaultTimeout is the default session record lifetime.
const DefaultTimeout = 30 * 24 * time.Hour

// DefaultAccessTokenTTL matches the upstream's one hour token expiry.
const DefaultAccessTokenTTL = time.Hour

// Config holds session service configuration.
type Config struct {
	// Timeout is the session record lifetime. Default: 30 days.
	Timeout time.Duration
	// AccessTokenTTL is how long an issued access token is trusted before
	// a refresh is attempted. Default: 1 hour.
	AccessTokenTTL time.Duration
}

// SessionService manages session lifecycle: creation on login, lazy state
// derivation with at-most-one refresh in flight per session, and teardown.
type SessionService struct {
	store     SessionStore
	refresher TokenRefresher
	prefs     PreferenceClearer
	logger    *slog.Logger

	timeout   time.Duration
	accessTTL time.Duration

	// flight deduplicates concurrent refresh attempts per session ID.
	flight singleflight.Group
}

// Option configures a SessionService.
type Option func(*SessionService)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *SessionService) {
		s.logger = logger
	}
}

// WithPreferenceClearer wires the store whose stay-logged-in entries are
// cleared on terminal session paths.
func WithPreferenceClearer(prefs PreferenceClearer) Option {
	return func(s *SessionService) {
		s.prefs = prefs
	}
}

// NewSessionService creates a new SessionService.
func NewSessionService(store SessionStore, refresher TokenRefresher, cfg Config, opts ...Option) *SessionService {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	accessTTL := cfg.AccessTokenTTL
	if accessTTL == 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	s := &SessionService{
		store:     store,
		refresher: refresher,
		logger:    slog.Default(),
		timeout:   timeout,
		accessTTL: accessTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens a session for a user after a successful credential exchange.
func (s *SessionService) Create(ctx context.Context, user auth.User, pair TokenPair, persistent bool) (*Session, error) {
	id, err := GenerateSessionID()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &Session{
		ID: id,
		Token: TokenState{
			User:                 user,
			AccessToken:          pair.AccessToken,
			RefreshToken:         pair.RefreshToken,
			AccessTokenExpiresAt: now.Add(s.accessTTL),
		},
		Persistent: persistent,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.timeout),
		LastAccess: now,
	}

	if err := s.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// Derive resolves the current state of a session. It is the only path by
// which a token refresh happens: refresh is lazy, triggered by use, and at
// most one refresh per session is in flight at a time. Concurrent callers
// share the outcome of the single attempt.
func (s *SessionService) Derive(ctx context.Context, id string) (View, error) {
	if id == "" {
		return View{Status: StatusUnauthenticated}, nil
	}

	sess, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return View{Status: StatusUnauthenticated}, nil
	}
	if err != nil {
		return View{}, fmt.Errorf("failed to load session: %w", err)
	}

	if sess.IsExpired() {
		_ = s.store.Delete(ctx, id)
		return View{Status: StatusUnauthenticated}, nil
	}

	if !sess.Token.RefreshFailed && !sess.Token.AccessTokenExpired() {
		return s.view(sess), nil
	}

	if sess.Token.RefreshFailed {
		return s.view(sess), nil
	}

	// No refresh token means no refresh attempt. The state is returned
	// as-is; the expired access token simply stops working upstream.
	if sess.Token.RefreshToken == "" {
		return s.view(sess), nil
	}

	refreshed, err, _ := s.flight.Do(sess.ID, func() (any, error) {
		return s.refreshLocked(ctx, sess.ID)
	})
	if err != nil {
		return View{}, err
	}

	return s.view(refreshed.(*Session)), nil
}

// refreshLocked runs inside the single-flight group. It re-reads the session
// so callers that piled up behind a completed refresh observe the fresh
// token instead of refreshing again.
func (s *SessionService) refreshLocked(ctx context.Context, id string) (*Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if sess.Token.RefreshFailed || !sess.Token.AccessTokenExpired() {
		return sess, nil
	}
	if sess.Token.RefreshToken == "" {
		return sess, nil
	}

	pair, err := s.refresher.Refresh(ctx, sess.Token.RefreshToken)
	if err != nil {
		// Terminal. The session keeps its identity for the error surface
		// but will never be usable again.
		s.logger.Warn("token refresh failed",
			"session_id", sess.ID,
			"matricula", sess.Token.User.Matricula,
			"error", err)
		sess.Token.RefreshFailed = true
		sess.Token.AccessToken = ""
		sess.Token.RefreshToken = ""
		if updateErr := s.store.Update(ctx, sess); updateErr != nil {
			s.logger.Error("failed to persist terminal session state",
				"session_id", sess.ID, "error", updateErr)
		}
		s.clearPreference(ctx, sess.Token.User.Matricula)
		return sess, nil
	}

	sess.Token.AccessToken = pair.AccessToken
	if pair.RefreshToken != "" {
		sess.Token.RefreshToken = pair.RefreshToken
	}
	sess.Token.AccessTokenExpiresAt = time.Now().UTC().Add(s.accessTTL)
	sess.Touch(s.timeout)

	if err := s.store.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed session: %w", err)
	}

	s.logger.Debug("token refreshed", "session_id", sess.ID)
	return sess, nil
}

// SignOut terminates a session and clears the user's stay-logged-in
// preference. A missing session is not an error.
func (s *SessionService) SignOut(ctx context.Context, id string) error {
	sess, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.clearPreference(ctx, sess.Token.User.Matricula)
	return nil
}

// Revoke removes a session by ID without touching preferences. Used by the
// admin surface.
func (s *SessionService) Revoke(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// List returns all live sessions.
func (s *SessionService) List(ctx context.Context) ([]*Session, error) {
	return s.store.List(ctx)
}

func (s *SessionService) view(sess *Session) View {
	if sess.Token.RefreshFailed {
		return View{
			Status:     StatusRefreshFailed,
			User:       sess.Token.User,
			Persistent: sess.Persistent,
		}
	}
	return View{
		Status:      StatusAuthenticated,
		User:        sess.Token.User,
		AccessToken: sess.Token.AccessToken,
		Persistent:  sess.Persistent,
	}
}

func (s *SessionService) clearPreference(ctx context.Context, matricula string) {
	if s.prefs == nil || matricula == "" {
		return
	}
	if err := s.prefs.Clear(ctx, matricula); err != nil {
		s.logger.Error("failed to clear stay-logged-in preference",
			"matricula", matricula, "error", err)
	}
}

// GenerateSessionID creates a cryptographically random session ID.
// Returns 64 hex characters (32 bytes).
func GenerateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}
