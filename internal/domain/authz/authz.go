// Package authz decides which inventory screens a session may reach.
package authz

import (
	"github.com/estoque-gate/estoquegate/internal/domain/auth"
	"github.com/estoque-gate/estoquegate/internal/domain/session"
)

// RouteKey names a protected area of the inventory system.
type RouteKey string

const (
	RouteProducts  RouteKey = "produtos"
	RouteMovements RouteKey = "movimentacoes"
	RouteSuppliers RouteKey = "fornecedores"
	RouteEmployees RouteKey = "funcionarios"
	RouteDashboard RouteKey = "dashboard"
)

// AllRoutes lists every protected route key in stable order.
var AllRoutes = []RouteKey{
	RouteDashboard,
	RouteProducts,
	RouteMovements,
	RouteSuppliers,
	RouteEmployees,
}

// permissions is the single authority for role access. Roles and routes
// absent from this table are denied; there is no wildcard and no
// pass-through for unrecognized values.
var permissions = map[auth.Role]map[RouteKey]bool{
	auth.RoleAdmin: {
		RouteDashboard: true,
		RouteProducts:  true,
		RouteMovements: true,
		RouteSuppliers: true,
		RouteEmployees: true,
	},
	auth.RoleManager: {
		RouteDashboard: true,
		RouteProducts:  true,
		RouteMovements: true,
		RouteSuppliers: true,
		RouteEmployees: true,
	},
	auth.RoleStockClerk: {
		RouteDashboard: true,
		RouteProducts:  true,
		RouteMovements: true,
		RouteSuppliers: true,
		// no RouteEmployees
	},
}

// Allowed reports whether a role may access a route. Deny by default:
// unknown roles and unknown routes are always false.
func Allowed(role auth.Role, route RouteKey) bool {
	return permissions[role][route]
}

// PermissionsFor returns the routes a role may access, in stable order.
// It is total over all role values: unknown roles get an empty slice.
func PermissionsFor(role auth.Role) []RouteKey {
	routes := make([]RouteKey, 0, len(AllRoutes))
	for _, route := range AllRoutes {
		if Allowed(role, route) {
			routes = append(routes, route)
		}
	}
	return routes
}

// Outcome is what the gate tells the transport layer to do.
type Outcome int

const (
	// OutcomeAllow lets the request through to the upstream.
	OutcomeAllow Outcome = iota
	// OutcomeLogin sends the caller to sign in. Also used for sessions
	// whose refresh failed terminally.
	OutcomeLogin
	// OutcomeForbidden means authenticated but not permitted.
	OutcomeForbidden
	// OutcomeUnavailable means the session state could not be resolved.
	// The caller may well hold a valid session, so this is surfaced as a
	// temporary failure rather than a sign-out.
	OutcomeUnavailable
)

// String returns the outcome name for logging and metrics labels.
func (o Outcome) String() string {
	switch o {
	case OutcomeAllow:
		return "allow"
	case OutcomeLogin:
		return "login"
	case OutcomeForbidden:
		return "forbidden"
	case OutcomeUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Decision is the gate's verdict for one request.
type Decision struct {
	Outcome Outcome
	// SessionExpired is set when the caller had a session whose refresh
	// failed, so the login surface can explain why they were sent back.
	SessionExpired bool
}

// Evaluate gates one request. Authenticated sessions are checked against
// the permission table, unauthenticated ones go to login, and an unresolved
// state is reported unavailable: the caller may hold a perfectly valid
// session the store could not load, so it must not be treated as signed out.
func Evaluate(view session.View, route RouteKey) Decision {
	switch view.Status {
	case session.StatusAuthenticated:
		if Allowed(view.User.Role, route) {
			return Decision{Outcome: OutcomeAllow}
		}
		return Decision{Outcome: OutcomeForbidden}
	case session.StatusRefreshFailed:
		return Decision{Outcome: OutcomeLogin, SessionExpired: true}
	case session.StatusLoading:
		return Decision{Outcome: OutcomeUnavailable}
	default:
		return Decision{Outcome: OutcomeLogin}
	}
}
