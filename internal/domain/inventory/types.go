// Package inventory holds the read models the gateway consumes from the
// remote inventory API.
package inventory

import "time"

// Product is one inventory item as reported by the upstream.
type Product struct {
	ID          string
	Name        string
	Quantity    int
	MinQuantity int
}

// LowStock reports whether the product is at or below its minimum level.
func (p Product) LowStock() bool {
	return p.Quantity <= p.MinQuantity
}

// MovementEntry and MovementExit are the two upstream movement types.
const (
	MovementEntry = "entrada"
	MovementExit  = "saida"
)

// Movement is one stock movement as reported by the upstream.
type Movement struct {
	ID        string
	ProductID string
	Type      string
	Quantity  int
	CreatedAt time.Time
}

// Summary is the aggregated dashboard view computed by the gateway.
type Summary struct {
	TotalProducts int `json:"total_produtos"`
	LowStock      int `json:"estoque_baixo"`
	Entries       int `json:"entradas"`
	Exits         int `json:"saidas"`
}
