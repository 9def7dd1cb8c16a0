package httpserver

import (
	"time"

	"github.com/shopspring/decimal"

	"glow-storefront/internal/domain"
	"glow-storefront/internal/money"
	cartsvc "glow-storefront/internal/service/cart"
)

type moneyView struct {
	Amount    string `json:"amount"`
	Formatted string `json:"formatted"`
}

type productView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Price       moneyView `json:"price"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image,omitempty"`
}

type cartLineView struct {
	Product   productView `json:"product"`
	Quantity  int         `json:"quantity"`
	Selected  bool        `json:"selected"`
	LineTotal moneyView   `json:"lineTotal"`
}

type cartView struct {
	Ready            bool           `json:"ready"`
	Items            []cartLineView `json:"items"`
	SelectedIDs      []string       `json:"selectedIds"`
	TotalItems       int            `json:"totalItems"`
	SelectedItems    int            `json:"selectedItems"`
	Subtotal         moneyView      `json:"subtotal"`
	Total            moneyView      `json:"total"`
	SelectedSubtotal moneyView      `json:"selectedSubtotal"`
	SelectedTotal    moneyView      `json:"selectedTotal"`
}

type orderView struct {
	ID        string         `json:"id"`
	Items     []cartLineView `json:"items"`
	ItemCount int            `json:"itemCount"`
	Total     moneyView      `json:"total"`
	PlacedAt  time.Time      `json:"placedAt"`
}

func toMoney(d decimal.Decimal) moneyView {
	return moneyView{Amount: d.StringFixed(2), Formatted: money.Format(d)}
}

func toProductView(p domain.Product) productView {
	return productView{
		ID:          p.ID,
		Name:        p.Name,
		Price:       toMoney(p.Price),
		Category:    p.Category,
		Description: p.Description,
		Image:       p.Image,
	}
}

func toProductViews(products []domain.Product) []productView {
	out := make([]productView, 0, len(products))
	for _, p := range products {
		out = append(out, toProductView(p))
	}
	return out
}

func toLineView(e domain.CartEntry, selected bool) cartLineView {
	return cartLineView{
		Product:   toProductView(e.Product),
		Quantity:  e.Quantity,
		Selected:  selected,
		LineTotal: toMoney(e.LineTotal()),
	}
}

func toCartView(s cartsvc.Snapshot) cartView {
	items := make([]cartLineView, 0, len(s.Entries))
	for _, e := range s.Entries {
		items = append(items, toLineView(e, s.IsSelected(e.Product.ID)))
	}
	return cartView{
		Ready:            s.Ready,
		Items:            items,
		SelectedIDs:      s.SelectedIDs(),
		TotalItems:       s.TotalItems(),
		SelectedItems:    s.SelectedItems(),
		Subtotal:         toMoney(s.Subtotal()),
		Total:            toMoney(s.Total()),
		SelectedSubtotal: toMoney(s.SelectedSubtotal()),
		SelectedTotal:    toMoney(s.SelectedTotal()),
	}
}

func toOrderView(o domain.Order) orderView {
	items := make([]cartLineView, 0, len(o.Items))
	for _, e := range o.Items {
		items = append(items, toLineView(e, true))
	}
	return orderView{
		ID:        o.ID,
		Items:     items,
		ItemCount: o.ItemCount,
		Total:     toMoney(o.Total),
		PlacedAt:  o.PlacedAt,
	}
}
