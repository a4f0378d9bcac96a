// Package http is the browser-facing transport of the gateway.
//
// It owns the session cookie, runs the credential exchange and sign-out
// flows, gates every protected route by role, and reverse-proxies the
// inventory REST surface to the upstream with the session's bearer token
// injected.
//
// # Endpoints
//
//	POST /login                - credential exchange, sets the session cookie
//	POST /logout               - tears the session down, clears the cookie
//	GET  /api/sessao           - session bootstrap for the front end
//	GET  /api/dashboard/resumo - aggregated dashboard summary
//	/api/produtos, /api/movimentacoes, /api/fornecedores, /api/funcionarios
//	                           - gated reverse proxy to the upstream
//	/admin/api/sessions        - operator surface (optional)
//	GET  /health, GET /metrics - operational endpoints
//
// # Middleware Chain
//
// Requests pass through middleware in this order:
//
//  1. MetricsMiddleware - records duration and status
//  2. RequestIDMiddleware - request ID plus enriched logger in context
//  3. SessionMiddleware - cookie decode and session state derivation
//  4. Gate - per-route authorization (protected routes only)
package http
