// Package ctxkey defines shared context key types used across multiple packages.
// This package should have no dependencies on other internal packages to avoid import cycles.
package ctxkey

// LoggerKey is the context key type for the enriched logger.
// Used by HTTP middleware to store and retrieve the logger with request_id fields.
type LoggerKey struct{}

// SessionViewKey is the context key type for the derived session view.
// Set by the session middleware, read by the gate and handlers.
type SessionViewKey struct{}

// SessionIDKey is the context key type for the raw session ID extracted from
// the cookie. Handlers that tear sessions down need the ID, not the view.
type SessionIDKey struct{}
