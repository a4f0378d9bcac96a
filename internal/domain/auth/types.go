// Package auth contains the domain types and logic for authentication.
package auth

import (
	"errors"
	"strings"
)

// Role represents a user role for authorization purposes.
// The set of roles is closed: any perfil string the upstream returns that is
// not a known role maps to RoleUnknown, which carries no permissions.
type Role string

const (
	// RoleAdmin has full access to all screens.
	RoleAdmin Role = "admin"
	// RoleManager has full access to all screens.
	RoleManager Role = "gerente"
	// RoleStockClerk operates stock but cannot manage employees.
	RoleStockClerk Role = "almoxarife"
	// RoleUnknown is the explicit variant for unrecognized perfil values.
	RoleUnknown Role = ""
)

// ParseRole maps an upstream perfil string to a Role.
// Unrecognized values map to RoleUnknown rather than passing through,
// so authorization never indexes the permission table by a raw string.
func ParseRole(perfil string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(perfil))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleManager:
		return RoleManager
	case RoleStockClerk:
		return RoleStockClerk
	default:
		return RoleUnknown
	}
}

// IsValid returns true if the role is a known valid role.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleStockClerk:
		return true
	default:
		return false
	}
}

// User represents an authenticated inventory-system user.
type User struct {
	// ID is the upstream user identifier.
	ID string
	// Name is the display name (nome_usuario upstream).
	Name string
	// Email is the user's email address.
	Email string
	// Matricula is the registration number used as the login identifier.
	Matricula string
	// Role is the parsed perfil.
	Role Role
}

// Credentials are the ephemeral login form values. They exist only for the
// duration of a credential exchange and are never persisted.
type Credentials struct {
	Matricula    string `json:"matricula" validate:"required"`
	Senha        string `json:"senha" validate:"required"`
	ManterLogado bool   `json:"manter_logado"`
}

// ErrInvalidCredentials is the single failure surfaced for any login outcome
// that is not a success. Wrong password, unknown matricula, and malformed
// upstream responses are deliberately indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("credenciais inválidas")
