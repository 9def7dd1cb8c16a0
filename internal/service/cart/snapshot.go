package cart

import (
	"github.com/shopspring/decimal"

	"glow-storefront/internal/domain"
)

// Snapshot is a point-in-time copy of the cart. Derived values are
// computed on demand and never stored.
type Snapshot struct {
	Entries []domain.CartEntry
	Ready   bool

	selected map[string]struct{}
}

func (s Snapshot) IsSelected(productID string) bool {
	_, ok := s.selected[productID]
	return ok
}

// SelectedIDs lists selected product ids in cart order.
func (s Snapshot) SelectedIDs() []string {
	ids := make([]string, 0, len(s.selected))
	for _, e := range s.Entries {
		if s.IsSelected(e.Product.ID) {
			ids = append(ids, e.Product.ID)
		}
	}
	return ids
}

func (s Snapshot) SelectedEntries() []domain.CartEntry {
	out := make([]domain.CartEntry, 0, len(s.selected))
	for _, e := range s.Entries {
		if s.IsSelected(e.Product.ID) {
			out = append(out, e)
		}
	}
	return out
}

// TotalItems sums quantities across all entries.
func (s Snapshot) TotalItems() int {
	return CountItems(s.Entries)
}

func (s Snapshot) SelectedItems() int {
	return CountItems(s.SelectedEntries())
}

func (s Snapshot) Subtotal() decimal.Decimal {
	return SumLines(s.Entries)
}

// Total equals Subtotal; no tax or shipping is applied.
func (s Snapshot) Total() decimal.Decimal {
	return s.Subtotal()
}

func (s Snapshot) SelectedSubtotal() decimal.Decimal {
	return SumLines(s.SelectedEntries())
}

// SelectedTotal equals SelectedSubtotal.
func (s Snapshot) SelectedTotal() decimal.Decimal {
	return s.SelectedSubtotal()
}

// CountItems adds quantities over entries.
func CountItems(entries []domain.CartEntry) int {
	n := 0
	for _, e := range entries {
		n += e.Quantity
	}
	return n
}

// SumLines adds price times quantity over entries.
func SumLines(entries []domain.CartEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.LineTotal())
	}
	return total
}
