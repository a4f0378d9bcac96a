package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/estoque-gate/estoquegate/internal/ctxkey"
	"github.com/estoque-gate/estoquegate/internal/domain/session"
)

// RequestIDKey is the context key for the request ID.
var RequestIDKey = requestIDContextKey{}

type requestIDContextKey struct{}

// LoggerKey is the context key for the enriched logger.
// Uses shared key type from ctxkey package to allow cross-package access without import cycles.
var LoggerKey = ctxkey.LoggerKey{}

// RequestIDMiddleware extracts or generates a request ID and enriches the logger.
// The request ID is stored in context using RequestIDKey.
// An enriched logger with request_id field is stored using LoggerKey.
func RequestIDMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}

			// Enrich logger with request_id
			enrichedLogger := logger.With("request_id", requestID)

			// Store in context
			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
			ctx = context.WithValue(ctx, LoggerKey, enrichedLogger)

			// Set response header for correlation
			w.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggerFromContext retrieves the enriched logger from context.
// Returns slog.Default() if no logger is in context.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// SessionMiddleware decodes the session cookie and derives the session state
// for the request. The derived view and the raw session ID are stored in
// context. A missing or invalid cookie is not an error: the view is simply
// unauthenticated and the gate decides what that means per route.
func SessionMiddleware(codec *session.Codec, sessions *session.SessionService, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sessionID string
			if cookie, err := r.Cookie(cookieName); err == nil {
				id, err := codec.Decode(cookie.Value)
				if err != nil {
					LoggerFromContext(r.Context()).Debug("rejected session cookie", "error", err)
				} else {
					sessionID = id
				}
			}

			view, err := sessions.Derive(r.Context(), sessionID)
			if err != nil {
				// Store failure. Treat as unresolved rather than signed out so
				// the gate never falls through to a wrong allow.
				LoggerFromContext(r.Context()).Error("failed to derive session", "error", err)
				view = session.View{Status: session.StatusLoading}
			}

			ctx := context.WithValue(r.Context(), ctxkey.SessionViewKey{}, view)
			ctx = context.WithValue(ctx, ctxkey.SessionIDKey{}, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ViewFromContext retrieves the derived session view from context.
// Returns an unresolved view when the middleware did not run.
func ViewFromContext(ctx context.Context) session.View {
	if view, ok := ctx.Value(ctxkey.SessionViewKey{}).(session.View); ok {
		return view
	}
	return session.View{Status: session.StatusLoading}
}

// SessionIDFromContext retrieves the raw session ID from context.
func SessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxkey.SessionIDKey{}).(string); ok {
		return id
	}
	return ""
}
