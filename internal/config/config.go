// Package config provides configuration types for Estoque Gate.
package config

import (
	"time"
)

// Config is the top-level configuration for the gateway.
type Config struct {
	// Server configures the HTTP server listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Upstream configures the remote inventory API.
	Upstream UpstreamConfig `yaml:"upstream" mapstructure:"upstream"`

	// Session configures cookies and token lifetimes.
	Session SessionConfig `yaml:"session" mapstructure:"session"`

	// Store selects where session records and preferences live.
	Store StoreConfig `yaml:"store" mapstructure:"store"`

	// Admin configures the operator API.
	// Optional: when disabled, the operator endpoints are not registered.
	Admin AdminConfig `yaml:"admin" mapstructure:"admin"`

	// Telemetry configures tracing output.
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`

	// DevMode enables development features (verbose logging, relaxed secrets).
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Addr is the listen address. Default: "127.0.0.1:8080".
	Addr string `yaml:"addr" mapstructure:"addr" validate:"omitempty,hostname_port"`
	// LogLevel is one of debug, info, warn, error. Default: "info".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	// TLSCert and TLSKey enable TLS when both are set.
	TLSCert string `yaml:"tls_cert" mapstructure:"tls_cert"`
	TLSKey  string `yaml:"tls_key" mapstructure:"tls_key"`
}

// UpstreamConfig configures the remote inventory API client.
type UpstreamConfig struct {
	// BaseURL is the inventory API root, e.g. "https://estoque.example.com".
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	// Timeout bounds data requests. Default: 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// AuthTimeout bounds login and refresh calls. Default: 10s.
	AuthTimeout time.Duration `yaml:"auth_timeout" mapstructure:"auth_timeout"`
}

// SessionConfig configures session records and the browser cookie.
type SessionConfig struct {
	// SigningSecret signs the session cookie. Must be at least 32 bytes
	// outside dev mode.
	SigningSecret string `yaml:"signing_secret" mapstructure:"signing_secret"`
	// AccessTokenTTL is how long an upstream access token is trusted
	// before a refresh is attempted. Default: 1h.
	AccessTokenTTL time.Duration `yaml:"access_token_ttl" mapstructure:"access_token_ttl"`
	// Timeout is the session record lifetime. Default: 720h (30 days).
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// CookieName is the session cookie name. Default: "estoque_sessao".
	CookieName string `yaml:"cookie_name" mapstructure:"cookie_name"`
	// CookieSecure marks the cookie Secure. Enable behind HTTPS.
	CookieSecure bool `yaml:"cookie_secure" mapstructure:"cookie_secure"`
	// CleanupInterval is how often expired records are purged. Default: 5m.
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
}

// StoreConfig selects the session storage backend.
type StoreConfig struct {
	// Driver is "memory" or "sqlite". Default: "memory".
	Driver string `yaml:"driver" mapstructure:"driver" validate:"omitempty,oneof=memory sqlite"`
	// Path is the SQLite database file. Required for the sqlite driver.
	Path string `yaml:"path" mapstructure:"path"`
}

// AdminConfig configures the operator API.
type AdminConfig struct {
	// Enabled registers the operator endpoints. Default: false.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// APIKeys holds hashed operator keys. Use `estoque-gate hash-key`
	// to generate entries.
	APIKeys []string `yaml:"api_keys" mapstructure:"api_keys"`
}

// TelemetryConfig configures tracing.
type TelemetryConfig struct {
	// TracingEnabled turns on the stdout span exporter. Default: false.
	TracingEnabled bool `yaml:"tracing_enabled" mapstructure:"tracing_enabled"`
}

// SetDefaults applies default values for optional fields.
func (c *Config) SetDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = 30 * time.Second
	}
	if c.Upstream.AuthTimeout == 0 {
		c.Upstream.AuthTimeout = 10 * time.Second
	}
	if c.Session.AccessTokenTTL == 0 {
		c.Session.AccessTokenTTL = time.Hour
	}
	if c.Session.Timeout == 0 {
		c.Session.Timeout = 30 * 24 * time.Hour
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "estoque_sessao"
	}
	if c.Session.CleanupInterval == 0 {
		c.Session.CleanupInterval = 5 * time.Minute
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
}

// SetDevDefaults applies permissive defaults for dev mode. No-op unless
// DevMode is set.
func (c *Config) SetDevDefaults() {
	if !c.DevMode {
		return
	}
	if c.Server.LogLevel == "info" {
		c.Server.LogLevel = "debug"
	}
	if c.Session.SigningSecret == "" {
		c.Session.SigningSecret = "dev-only-secret-do-not-use-in-prod"
	}
}
