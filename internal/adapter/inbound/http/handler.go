package http

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/estoque-gate/estoquegate/internal/domain/auth"
	"github.com/estoque-gate/estoquegate/internal/domain/authz"
	"github.com/estoque-gate/estoquegate/internal/domain/session"
	"github.com/estoque-gate/estoquegate/internal/service"
)

// maxLoginBody caps the login request body. Credentials are tiny.
const maxLoginBody = 16 * 1024

// AuthHandler serves the login, logout, session bootstrap and dashboard
// summary endpoints.
type AuthHandler struct {
	auth       *service.AuthService
	reports    *service.ReportService
	codec      *session.Codec
	cookieName string
	cookieTTL  time.Duration
	secure     bool
	metrics    *Metrics
}

// AuthHandlerConfig carries the cookie settings for the handler.
type AuthHandlerConfig struct {
	CookieName string
	CookieTTL  time.Duration
	Secure     bool
}

// NewAuthHandler creates the handler for the auth endpoints.
func NewAuthHandler(authSvc *service.AuthService, reports *service.ReportService, codec *session.Codec, cfg AuthHandlerConfig, metrics *Metrics) *AuthHandler {
	return &AuthHandler{
		auth:       authSvc,
		reports:    reports,
		codec:      codec,
		cookieName: cfg.CookieName,
		cookieTTL:  cfg.CookieTTL,
		secure:     cfg.Secure,
		metrics:    metrics,
	}
}

// userPayload is the user shape the front end consumes.
type userPayload struct {
	ID          string `json:"id"`
	NomeUsuario string `json:"nome_usuario"`
	Email       string `json:"email"`
	Matricula   string `json:"matricula"`
	Perfil      string `json:"perfil"`
}

func toUserPayload(u auth.User) userPayload {
	return userPayload{
		ID:          u.ID,
		NomeUsuario: u.Name,
		Email:       u.Email,
		Matricula:   u.Matricula,
		Perfil:      string(u.Role),
	}
}

type loginRequest struct {
	Matricula    string `json:"matricula"`
	Senha        string `json:"senha"`
	ManterLogado bool   `json:"manter_logado"`
}

type loginResponse struct {
	Usuario    userPayload `json:"usuario"`
	Permissoes []string    `json:"permissoes"`
}

// Login handles POST /login. Every failure, from a malformed body to an
// upstream outage, comes back as the same generic 401 so the endpoint
// leaks nothing about which part was wrong.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	body := io.LimitReader(r.Body, maxLoginBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		h.metrics.LoginsTotal.WithLabelValues("rejected").Inc()
		writeJSONError(w, http.StatusUnauthorized, "Credenciais inválidas")
		return
	}

	sess, err := h.auth.Login(r.Context(), auth.Credentials{
		Matricula:    req.Matricula,
		Senha:        req.Senha,
		ManterLogado: req.ManterLogado,
	})
	if err != nil {
		h.metrics.LoginsTotal.WithLabelValues("rejected").Inc()
		writeJSONError(w, http.StatusUnauthorized, "Credenciais inválidas")
		return
	}

	cookieValue, err := h.codec.Encode(sess)
	if err != nil {
		LoggerFromContext(r.Context()).Error("failed to encode session cookie", "error", err)
		h.metrics.LoginsTotal.WithLabelValues("rejected").Inc()
		writeJSONError(w, http.StatusUnauthorized, "Credenciais inválidas")
		return
	}

	h.setSessionCookie(w, cookieValue, sess.Persistent)
	h.metrics.LoginsTotal.WithLabelValues("ok").Inc()
	h.metrics.ActiveSessions.Inc()

	writeJSON(w, http.StatusOK, loginResponse{
		Usuario:    toUserPayload(sess.Token.User),
		Permissoes: routeNames(authz.PermissionsFor(sess.Token.User.Role)),
	})
}

// Logout handles POST /logout. Always clears the cookie, even when the
// server-side record is already gone.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionIDFromContext(r.Context())
	if sessionID != "" {
		if err := h.auth.SignOut(r.Context(), sessionID); err != nil {
			LoggerFromContext(r.Context()).Error("failed to sign out session", "error", err)
		} else {
			h.metrics.ActiveSessions.Dec()
		}
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

type sessionResponse struct {
	Status         string       `json:"status"`
	Usuario        *userPayload `json:"usuario,omitempty"`
	Permissoes     []string     `json:"permissoes,omitempty"`
	SessaoExpirada bool         `json:"sessao_expirada"`
}

// Session handles GET /api/sessao, the front end's bootstrap call. It is
// the one place where the stay-logged-in preference gates resuming a
// persistent session.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionIDFromContext(r.Context())

	view, err := h.auth.Bootstrap(r.Context(), sessionID)
	if err != nil {
		LoggerFromContext(r.Context()).Error("failed to bootstrap session", "error", err)
		writeJSONError(w, http.StatusServiceUnavailable, "Estado da sessão indisponível")
		return
	}

	resp := sessionResponse{Status: view.Status.String()}
	switch view.Status {
	case session.StatusAuthenticated:
		user := toUserPayload(view.User)
		resp.Usuario = &user
		resp.Permissoes = routeNames(authz.PermissionsFor(view.User.Role))
	case session.StatusRefreshFailed:
		resp.SessaoExpirada = true
	case session.StatusUnauthenticated:
		// The cookie no longer maps to anything useful; drop it so the
		// browser stops sending it.
		h.clearSessionCookie(w)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Summary handles GET /api/dashboard/resumo. The gate has already verified
// the caller, so the view's access token is usable as-is.
func (h *AuthHandler) Summary(w http.ResponseWriter, r *http.Request) {
	view := ViewFromContext(r.Context())

	summary, err := h.reports.Summary(r.Context(), view.AccessToken)
	if err != nil {
		LoggerFromContext(r.Context()).Error("failed to build dashboard summary", "error", err)
		writeJSONError(w, http.StatusBadGateway, "Falha ao consultar o estoque")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, value string, persistent bool) {
	cookie := &http.Cookie{
		Name:     h.cookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	}
	// Persistent sessions survive a browser restart, session cookies don't.
	if persistent {
		cookie.MaxAge = int(h.cookieTTL.Seconds())
	}
	http.SetCookie(w, cookie)
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func routeNames(routes []authz.RouteKey) []string {
	names := make([]string, 0, len(routes))
	for _, r := range routes {
		names = append(names, string(r))
	}
	return names
}

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}
