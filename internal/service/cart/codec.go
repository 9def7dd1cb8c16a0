package cart

import (
	"encoding/json"
	"fmt"

	"glow-storefront/internal/domain"
)

// encode projects the state onto the stored form, in entry order.
func encode(entries []domain.CartEntry, selected map[string]struct{}) (string, error) {
	records := make([]domain.PersistedEntry, 0, len(entries))
	for _, e := range entries {
		_, sel := selected[e.Product.ID]
		records = append(records, domain.PersistedEntry{
			ProductID: e.Product.ID,
			Quantity:  e.Quantity,
			Selected:  sel,
		})
	}
	b, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("encode cart: %w", err)
	}
	return string(b), nil
}

func decode(blob string) ([]domain.PersistedEntry, error) {
	var records []domain.PersistedEntry
	if err := json.Unmarshal([]byte(blob), &records); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return records, nil
}

type rehydrated struct {
	entries  []domain.CartEntry
	selected map[string]struct{}
	missing  int
	invalid  int
}

// rehydrate resolves records against the live catalog. Unknown products,
// quantities below one and repeated product ids are dropped.
func rehydrate(records []domain.PersistedEntry, catalog Catalog) rehydrated {
	out := rehydrated{
		entries:  make([]domain.CartEntry, 0, len(records)),
		selected: make(map[string]struct{}),
	}
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, dup := seen[r.ProductID]; dup || r.Quantity < 1 {
			out.invalid++
			continue
		}
		product, ok := catalog.Lookup(r.ProductID)
		if !ok {
			out.missing++
			continue
		}
		seen[r.ProductID] = struct{}{}
		out.entries = append(out.entries, domain.CartEntry{Product: product, Quantity: r.Quantity})
		if r.Selected {
			out.selected[r.ProductID] = struct{}{}
		}
	}
	return out
}
