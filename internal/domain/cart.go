package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartEntry pairs a product with a quantity of at least one.
type CartEntry struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// LineTotal is price times quantity.
func (e CartEntry) LineTotal() decimal.Decimal {
	return e.Product.Price.Mul(decimal.NewFromInt(int64(e.Quantity)))
}

// PersistedEntry is the stored projection of a cart entry. Only the product
// id is kept so catalog changes show up on the next restore.
type PersistedEntry struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Selected  bool   `json:"selected"`
}

// Order is the local result of checking out the selected entries.
type Order struct {
	ID        string          `json:"id"`
	Items     []CartEntry     `json:"items"`
	ItemCount int             `json:"itemCount"`
	Total     decimal.Decimal `json:"total"`
	PlacedAt  time.Time       `json:"placedAt"`
}
