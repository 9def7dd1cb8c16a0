package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog record. Products are never mutated once loaded.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image,omitempty"`
	CreatedAt   time.Time       `json:"-"`
}
