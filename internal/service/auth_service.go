// Package service wires the domain to the gateway's inbound and outbound
// adapters.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/estoque-gate/estoquegate/internal/domain/auth"
	"github.com/estoque-gate/estoquegate/internal/domain/prefs"
	"github.com/estoque-gate/estoquegate/internal/domain/session"
	"github.com/estoque-gate/estoquegate/internal/port/outbound"
)

// AuthService runs the credential exchange and session teardown flows.
type AuthService struct {
	api      outbound.InventoryAPI
	sessions *session.SessionService
	prefs    prefs.Store
	validate *validator.Validate
	logger   *slog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(api outbound.InventoryAPI, sessions *session.SessionService, prefStore prefs.Store, logger *slog.Logger) *AuthService {
	return &AuthService{
		api:      api,
		sessions: sessions,
		prefs:    prefStore,
		validate: validator.New(),
		logger:   logger,
	}
}

// Login exchanges credentials for a session.
//
// The stay-logged-in preference is written before the exchange goes out, so
// the user's choice is durable even if the process dies mid-login. Every
// failure surfaces as auth.ErrInvalidCredentials: validation errors, wrong
// credentials, upstream outages and malformed responses are all
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, creds auth.Credentials) (*session.Session, error) {
	if err := s.validate.Struct(creds); err != nil {
		return nil, auth.ErrInvalidCredentials
	}

	if err := s.prefs.Set(ctx, creds.Matricula, creds.ManterLogado); err != nil {
		// The preference is not worth failing a login over, but without it
		// stay-logged-in silently breaks, so it is logged loudly.
		s.logger.Error("failed to persist stay-logged-in preference",
			"matricula", creds.Matricula, "error", err)
	}

	user, pair, err := s.api.Login(ctx, creds.Matricula, creds.Senha)
	if err != nil {
		s.logger.Info("login rejected", "matricula", creds.Matricula, "error", err)
		return nil, auth.ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(ctx, user, pair, creds.ManterLogado)
	if err != nil {
		s.logger.Error("failed to create session", "matricula", creds.Matricula, "error", err)
		return nil, auth.ErrInvalidCredentials
	}

	s.logger.Info("login succeeded",
		"matricula", user.Matricula,
		"role", string(user.Role),
		"persistent", creds.ManterLogado)
	return sess, nil
}

// Bootstrap resolves the session state for a browser that just loaded the
// app. For persistent sessions it additionally checks that the
// stay-logged-in preference is still present and true; a missing or false
// entry means the session must not be resumed, so it is torn down.
func (s *AuthService) Bootstrap(ctx context.Context, sessionID string) (session.View, error) {
	view, err := s.sessions.Derive(ctx, sessionID)
	if err != nil {
		return session.View{}, err
	}

	if view.Status != session.StatusAuthenticated || !view.Persistent {
		return view, nil
	}

	pref, err := s.prefs.Get(ctx, view.User.Matricula)
	if errors.Is(err, prefs.ErrNotFound) || (err == nil && !pref.StayLoggedIn) {
		s.logger.Info("resume denied, preference absent or false",
			"matricula", view.User.Matricula)
		if err := s.sessions.SignOut(ctx, sessionID); err != nil {
			s.logger.Error("failed to tear down non-resumable session",
				"session_id", sessionID, "error", err)
		}
		return session.View{Status: session.StatusUnauthenticated}, nil
	}
	if err != nil {
		return session.View{}, err
	}

	return view, nil
}

// SignOut terminates the session and clears the preference.
func (s *AuthService) SignOut(ctx context.Context, sessionID string) error {
	return s.sessions.SignOut(ctx, sessionID)
}
