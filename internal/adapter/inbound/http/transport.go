package http

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/estoque-gate/estoquegate/internal/adapter/outbound/estoque"
	"github.com/estoque-gate/estoquegate/internal/domain/auth"
	"github.com/estoque-gate/estoquegate/internal/domain/authz"
	"github.com/estoque-gate/estoquegate/internal/domain/session"
	"github.com/estoque-gate/estoquegate/internal/service"
)

// apiRoutes maps gated /api path prefixes to the route each one belongs to.
var apiRoutes = map[string]authz.RouteKey{
	"/api/produtos":      authz.RouteProducts,
	"/api/movimentacoes": authz.RouteMovements,
	"/api/fornecedores":  authz.RouteSuppliers,
	"/api/funcionarios":  authz.RouteEmployees,
}

// Transport is the inbound adapter that connects browsers to the gateway.
type Transport struct {
	auth     *service.AuthService
	reports  *service.ReportService
	sessions *session.SessionService
	codec    *session.Codec
	upstream *estoque.Client

	server        *http.Server
	addr          string
	certFile      string
	keyFile       string
	cookie        AuthHandlerConfig
	verifier      *auth.OperatorKeyVerifier
	healthChecker *HealthChecker
	logger        *slog.Logger
	metrics       *Metrics
}

// Option is a functional option for configuring the Transport.
type Option func(*Transport)

// WithAddr sets the listen address for the HTTP server.
// Default is "127.0.0.1:8080" (localhost only).
func WithAddr(addr string) Option {
	return func(t *Transport) {
		t.addr = addr
	}
}

// WithTLS enables TLS with the provided certificate and key files.
// If not set, the server runs without TLS (plain HTTP).
func WithTLS(certFile, keyFile string) Option {
	return func(t *Transport) {
		t.certFile = certFile
		t.keyFile = keyFile
	}
}

// WithCookie overrides the session cookie settings.
func WithCookie(cfg AuthHandlerConfig) Option {
	return func(t *Transport) {
		t.cookie = cfg
	}
}

// WithOperatorKeys enables the operator API, guarded by the given verifier.
func WithOperatorKeys(verifier *auth.OperatorKeyVerifier) Option {
	return func(t *Transport) {
		t.verifier = verifier
	}
}

// WithHealthChecker sets the health checker for the /health endpoint.
func WithHealthChecker(hc *HealthChecker) Option {
	return func(t *Transport) {
		t.healthChecker = hc
	}
}

// WithLogger sets the logger for the HTTP transport.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// NewTransport creates the HTTP transport wrapping the given services.
func NewTransport(authSvc *service.AuthService, reports *service.ReportService, sessions *session.SessionService, codec *session.Codec, upstream *estoque.Client, opts ...Option) *Transport {
	t := &Transport{
		auth:     authSvc,
		reports:  reports,
		sessions: sessions,
		codec:    codec,
		upstream: upstream,
		addr:     "127.0.0.1:8080",
		cookie: AuthHandlerConfig{
			CookieName: "estoque_sessao",
			CookieTTL:  30 * 24 * time.Hour,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Start begins accepting HTTP connections. It blocks until the context is
// cancelled or an error occurs.
func (t *Transport) Start(ctx context.Context) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	handler, err := t.buildHandler(reg)
	if err != nil {
		return err
	}

	t.server = &http.Server{
		Addr:    t.addr,
		Handler: handler,
	}

	if t.certFile != "" && t.keyFile != "" {
		t.server.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	errCh := make(chan error, 1)

	go func() {
		var err error
		if t.certFile != "" && t.keyFile != "" {
			t.logger.Info("starting HTTPS server", "addr", t.addr)
			err = t.server.ListenAndServeTLS(t.certFile, t.keyFile)
		} else {
			t.logger.Info("starting HTTP server", "addr", t.addr)
			err = t.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		t.logger.Info("context cancelled, shutting down HTTP server")
		return t.shutdown()
	case err := <-errCh:
		return err
	}
}

// buildHandler assembles the route table and middleware chain.
//
// Middleware order (outermost first):
//  1. MetricsMiddleware - record duration and status for every request
//  2. RequestIDMiddleware - extract/generate request ID and enrich logger
//  3. SessionMiddleware - decode the cookie and derive the session state
//  4. Gate - per-route authorization, applied only to gated routes
func (t *Transport) buildHandler(reg *prometheus.Registry) (http.Handler, error) {
	t.metrics = NewMetrics(reg)

	authHandler := NewAuthHandler(t.auth, t.reports, t.codec, t.cookie, t.metrics)

	proxy, err := NewAPIProxy(t.upstream, t.logger)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /login", authHandler.Login)
	mux.HandleFunc("POST /logout", authHandler.Logout)
	mux.HandleFunc("GET /api/sessao", authHandler.Session)

	summaryGate := Gate(t.metrics, authz.RouteDashboard)
	mux.Handle("GET /api/dashboard/resumo", summaryGate(http.HandlerFunc(authHandler.Summary)))

	for prefix, route := range apiRoutes {
		gated := Gate(t.metrics, route)(proxy)
		mux.Handle(prefix, gated)
		mux.Handle(prefix+"/", gated)
	}

	if t.verifier != nil {
		admin := NewAdminHandler(t.sessions, t.verifier, t.metrics)
		admin.Routes(mux)
	}

	if t.healthChecker != nil {
		mux.Handle("/health", t.healthChecker.Handler())
	} else {
		mux.Handle("/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
		}))
	}
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		Registry: reg,
	}))
	// Favicon handler to prevent browser 500 errors
	mux.Handle("/favicon.ico", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	var handler http.Handler = mux
	handler = SessionMiddleware(t.codec, t.sessions, t.cookie.CookieName)(handler)
	handler = RequestIDMiddleware(t.logger)(handler)
	handler = MetricsMiddleware(t.metrics)(handler)

	return handler, nil
}

// shutdown performs graceful shutdown of the HTTP server.
func (t *Transport) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := t.server.Shutdown(ctx); err != nil {
		t.logger.Error("error during server shutdown", "error", err)
		return err
	}

	t.logger.Info("HTTP server shutdown complete")
	return nil
}

// Close gracefully shuts down the transport.
func (t *Transport) Close() error {
	if t.server == nil {
		return nil
	}
	return t.shutdown()
}
