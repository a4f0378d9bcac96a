// Package outbound defines the outbound port interfaces for talking to the
// remote inventory API.
package outbound

import (
	"context"

	"github.com/estoque-gate/estoquegate/internal/domain/auth"
	"github.com/estoque-gate/estoquegate/internal/domain/inventory"
	"github.com/estoque-gate/estoquegate/internal/domain/session"
)

// InventoryAPI is the outbound port for the remote inventory system.
// Adapters implement this over its REST surface.
type InventoryAPI interface {
	// Login exchanges credentials for an identity and a token pair.
	// Any upstream rejection surfaces as an error; callers must not
	// distinguish rejection reasons.
	Login(ctx context.Context, matricula, senha string) (auth.User, session.TokenPair, error)

	// Refresh exchanges a refresh token for a new token pair. The returned
	// pair's RefreshToken is empty when the upstream did not rotate it.
	Refresh(ctx context.Context, refreshToken string) (session.TokenPair, error)

	// ListProducts fetches all products using the given bearer token.
	ListProducts(ctx context.Context, accessToken string) ([]inventory.Product, error)

	// ListMovements fetches all stock movements using the given bearer token.
	ListMovements(ctx context.Context, accessToken string) ([]inventory.Movement, error)
}
