package http

import (
	"net"
	"net/http"
	"time"

	"github.com/estoque-gate/estoquegate/internal/domain/auth"
	"github.com/estoque-gate/estoquegate/internal/domain/session"
)

// operatorKeyHeader carries the operator's raw admin key.
const operatorKeyHeader = "X-Operator-Key"

// AdminHandler serves the operator endpoints for inspecting and revoking
// sessions. It is not part of the browser-facing surface.
type AdminHandler struct {
	sessions *session.SessionService
	verifier *auth.OperatorKeyVerifier
	metrics  *Metrics
}

// NewAdminHandler creates the operator API handler.
func NewAdminHandler(sessions *session.SessionService, verifier *auth.OperatorKeyVerifier, metrics *Metrics) *AdminHandler {
	return &AdminHandler{
		sessions: sessions,
		verifier: verifier,
		metrics:  metrics,
	}
}

// guard enforces operator access: loopback requests pass, everything else
// must present a valid operator key. X-Forwarded-For is intentionally not
// trusted here.
func (h *AdminHandler) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if isLoopback(r) {
			next(w, r)
			return
		}
		if err := h.verifier.Verify(r.Header.Get(operatorKeyHeader)); err != nil {
			writeJSONError(w, http.StatusForbidden, "Acesso negado")
			return
		}
		next(w, r)
	}
}

func isLoopback(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return host == "127.0.0.1" || host == "::1" || host == "localhost"
}

// sessionSummary is the operator-facing view of a session. Tokens are never
// included.
type sessionSummary struct {
	ID         string    `json:"id"`
	Matricula  string    `json:"matricula"`
	Role       string    `json:"perfil"`
	Persistent bool      `json:"persistente"`
	Terminal   bool      `json:"renovacao_falhou"`
	CreatedAt  time.Time `json:"criada_em"`
	ExpiresAt  time.Time `json:"expira_em"`
	LastAccess time.Time `json:"ultimo_acesso"`
}

// ListSessions handles GET /admin/api/sessions.
func (h *AdminHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.List(r.Context())
	if err != nil {
		LoggerFromContext(r.Context()).Error("failed to list sessions", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Falha ao listar sessões")
		return
	}

	summaries := make([]sessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		summaries = append(summaries, sessionSummary{
			ID:         sess.ID,
			Matricula:  sess.Token.User.Matricula,
			Role:       string(sess.Token.User.Role),
			Persistent: sess.Persistent,
			Terminal:   sess.Token.RefreshFailed,
			CreatedAt:  sess.CreatedAt,
			ExpiresAt:  sess.ExpiresAt,
			LastAccess: sess.LastAccess,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"sessions": summaries})
}

// RevokeSession handles DELETE /admin/api/sessions/{id}.
func (h *AdminHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "ID de sessão ausente")
		return
	}

	if err := h.sessions.Revoke(r.Context(), id); err != nil {
		LoggerFromContext(r.Context()).Error("failed to revoke session", "session_id", id, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Falha ao revogar sessão")
		return
	}

	h.metrics.ActiveSessions.Dec()
	LoggerFromContext(r.Context()).Info("session revoked by operator", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// Routes registers the operator endpoints on the mux.
func (h *AdminHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin/api/sessions", h.guard(h.ListSessions))
	mux.HandleFunc("DELETE /admin/api/sessions/{id}", h.guard(h.RevokeSession))
}
