package http

import (
	"net/http"
	"strings"

	"github.com/estoque-gate/estoquegate/internal/domain/authz"
)

// loginPath is where browsers are sent when the gate turns them away.
const loginPath = "/login"

// Gate enforces the authorization verdict for one protected route.
// Browsers get redirects so the front end can show the right screen;
// API callers get JSON with the proper status code. Nothing passes
// through on an unresolved session state.
func Gate(metrics *Metrics, route authz.RouteKey) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			view := ViewFromContext(r.Context())
			decision := authz.Evaluate(view, route)

			if metrics != nil {
				metrics.GateDecisions.WithLabelValues(string(route), decision.Outcome.String()).Inc()
			}

			switch decision.Outcome {
			case authz.OutcomeAllow:
				next.ServeHTTP(w, r)

			case authz.OutcomeLogin:
				if wantsHTML(r) {
					target := loginPath
					if decision.SessionExpired {
						target += "?sessao_expirada=1"
					}
					http.Redirect(w, r, target, http.StatusFound)
					return
				}
				if decision.SessionExpired {
					writeJSONError(w, http.StatusUnauthorized, "Sessão expirada")
					return
				}
				writeJSONError(w, http.StatusUnauthorized, "Não autenticado")

			case authz.OutcomeForbidden:
				LoggerFromContext(r.Context()).Warn("route denied",
					"route", string(route),
					"matricula", view.User.Matricula,
					"role", string(view.User.Role))
				if wantsHTML(r) {
					// The front end renders its own denied placeholder at
					// the dashboard; never a blank screen.
					http.Redirect(w, r, "/", http.StatusFound)
					return
				}
				writeJSONError(w, http.StatusForbidden, "Acesso negado")

			case authz.OutcomeUnavailable:
				// Never a redirect here. The caller likely has a valid
				// session the store could not resolve; sending them to
				// login would tear down real state over a transient fault.
				writeJSONError(w, http.StatusServiceUnavailable, "Estado da sessão indisponível")
			}
		})
	}
}

// wantsHTML reports whether the client is a browser navigation rather than
// an API call.
func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
