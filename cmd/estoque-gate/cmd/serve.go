package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	inbound "github.com/estoque-gate/estoquegate/internal/adapter/inbound/http"
	"github.com/estoque-gate/estoquegate/internal/adapter/outbound/estoque"
	"github.com/estoque-gate/estoquegate/internal/adapter/outbound/memory"
	"github.com/estoque-gate/estoquegate/internal/adapter/outbound/sqlite"
	"github.com/estoque-gate/estoquegate/internal/config"
	"github.com/estoque-gate/estoquegate/internal/domain/auth"
	"github.com/estoque-gate/estoquegate/internal/domain/prefs"
	"github.com/estoque-gate/estoquegate/internal/domain/session"
	"github.com/estoque-gate/estoquegate/internal/observability"
	"github.com/estoque-gate/estoquegate/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway server",
	Long: `Start the Estoque Gate server.

The gateway fronts the remote inventory API: it runs the credential
exchange, keeps upstream tokens server-side, refreshes them as they age,
and gates every /api route by the signed-in user's profile.

Examples:
  # Start with config file settings
  estoque-gate serve

  # Start with a specific config file
  estoque-gate --config /path/to/config.yaml serve

  # Start in dev mode against a local inventory API
  ESTOQUE_GATE_UPSTREAM_BASE_URL=http://localhost:3000 estoque-gate serve --dev`,
	RunE: runServe,
}

var devMode bool

func init() {
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (verbose logging, relaxed validation)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration (without validation, so CLI flags can override first)
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if devMode {
		cfg.DevMode = true
	}

	cfg.SetDevDefaults()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// Create signal context for graceful shutdown.
	// stop() restores default signal handling so a second Ctrl+C does a hard kill.
	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	go func() {
		<-ctx.Done()
		stop()
	}()

	logLevel := parseLogLevel(cfg.Server.LogLevel)
	if cfg.DevMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	// Write PID file so "estoque-gate stop" can find us.
	pidPath := pidFilePath()
	if err := writePIDFile(pidPath); err != nil {
		logger.Warn("failed to write PID file", "path", pidPath, "error", err)
	} else {
		defer os.Remove(pidPath)
	}

	if err := run(ctx, cfg, logger); err != nil {
		return err
	}

	logger.Info("estoque-gate stopped")
	return nil
}

// run wires all components together and serves until the context ends.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.DevMode {
		logger.Warn("dev mode is enabled; do not use this configuration in production")
	}

	shutdownTracing, err := observability.SetupTracing(cfg.Telemetry.TracingEnabled, "estoque-gate", Version)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("failed to shut down tracing", "error", err)
		}
	}()

	// Storage backend: durable SQLite or process-local memory.
	var (
		sessionStore session.SessionStore
		prefStore    prefs.Store
	)
	switch cfg.Store.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("failed to open session database: %w", err)
		}
		db.StartCleanup(ctx, cfg.Session.CleanupInterval)
		defer func() {
			db.Stop()
			if err := db.Close(); err != nil {
				logger.Error("failed to close session database", "error", err)
			}
		}()
		sessionStore = db.Sessions()
		prefStore = db.Preferences()
		logger.Info("using sqlite session store", "path", cfg.Store.Path)
	default:
		mem := memory.NewSessionStoreWithConfig(cfg.Session.CleanupInterval)
		mem.StartCleanup(ctx)
		defer mem.Stop()
		sessionStore = mem
		prefStore = memory.NewPrefStore()
		logger.Info("using in-memory session store")
	}

	upstream := estoque.NewClient(cfg.Upstream.BaseURL,
		estoque.WithTimeout(cfg.Upstream.Timeout),
		estoque.WithAuthTimeout(cfg.Upstream.AuthTimeout),
	)

	sessions := session.NewSessionService(sessionStore, upstream, session.Config{
		Timeout:        cfg.Session.Timeout,
		AccessTokenTTL: cfg.Session.AccessTokenTTL,
	},
		session.WithLogger(logger),
		session.WithPreferenceClearer(prefStore),
	)

	codec := session.NewCodec([]byte(cfg.Session.SigningSecret))
	authSvc := service.NewAuthService(upstream, sessions, prefStore, logger)
	reports := service.NewReportService(upstream, logger)

	opts := []inbound.Option{
		inbound.WithAddr(cfg.Server.Addr),
		inbound.WithLogger(logger),
		inbound.WithCookie(inbound.AuthHandlerConfig{
			CookieName: cfg.Session.CookieName,
			CookieTTL:  cfg.Session.Timeout,
			Secure:     cfg.Session.CookieSecure,
		}),
		inbound.WithHealthChecker(inbound.NewHealthChecker(sessionStore, Version)),
	}
	if cfg.Server.TLSCert != "" && cfg.Server.TLSKey != "" {
		opts = append(opts, inbound.WithTLS(cfg.Server.TLSCert, cfg.Server.TLSKey))
	}
	if cfg.Admin.Enabled {
		opts = append(opts, inbound.WithOperatorKeys(auth.NewOperatorKeyVerifier(cfg.Admin.APIKeys)))
	}

	transport := inbound.NewTransport(authSvc, reports, sessions, codec, upstream, opts...)

	logger.Info("estoque-gate starting",
		"version", Version,
		"addr", cfg.Server.Addr,
		"upstream", cfg.Upstream.BaseURL,
		"store", cfg.Store.Driver,
	)
	return transport.Start(ctx)
}

// parseLogLevel maps a config string to a slog level. Unknown values fall
// back to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// pidFilePath returns the path of the server PID file.
func pidFilePath() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".estoque-gate", "server.pid")
	}
	return filepath.Join(os.TempDir(), "estoque-gate-server.pid")
}

// writePIDFile writes the current process PID to the given path.
func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}
