// Package prefs stores the per-user stay-logged-in preference.
//
// The preference is the only thing that survives a gateway restart on the
// login path: at boot, a session is resumed only for users whose preference
// is present and true. Absence means no resume, so every terminal session
// path must clear the entry.
package prefs

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no preference is recorded for a matricula.
var ErrNotFound = errors.New("preference not found")

// Preference is one recorded stay-logged-in choice.
type Preference struct {
	Matricula    string
	StayLoggedIn bool
	UpdatedAt    time.Time
}

// Store persists stay-logged-in preferences.
// Implementations: SQLite (durable), in-memory.
type Store interface {
	// Set records the user's choice. The login flow calls this before the
	// credential exchange goes out, so the value is durable even if the
	// process dies mid-login.
	Set(ctx context.Context, matricula string, stayLoggedIn bool) error

	// Get returns the recorded choice.
	// Returns ErrNotFound when nothing is recorded.
	Get(ctx context.Context, matricula string) (Preference, error)

	// Clear removes the entry. Clearing an absent entry is not an error.
	Clear(ctx context.Context, matricula string) error
}
