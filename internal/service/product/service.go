package product

import (
	"context"
	"fmt"

	"glow-storefront/internal/domain"
	productrepo "glow-storefront/internal/repository/product"
)

// AllCategories is the pseudo-category that matches every product.
const AllCategories = "All"

// Catalog is an immutable, ordered set of products. It is safe for
// concurrent use because nothing mutates it after construction.
type Catalog struct {
	products []domain.Product
	byID     map[string]int
}

// NewCatalog keeps input order. Later duplicates of an id are ignored.
func NewCatalog(products []domain.Product) *Catalog {
	c := &Catalog{
		products: make([]domain.Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	for _, p := range products {
		if _, dup := c.byID[p.ID]; dup {
			continue
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c
}

// Load builds a catalog from the product repository.
func Load(ctx context.Context, repo productrepo.Repository) (*Catalog, error) {
	products, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return NewCatalog(products), nil
}

func (c *Catalog) Lookup(id string) (domain.Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Product{}, false
	}
	return c.products[i], true
}

// Get is Lookup with domain.ErrNotFound on a miss.
func (c *Catalog) Get(id string) (*domain.Product, error) {
	p, ok := c.Lookup(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (c *Catalog) List() []domain.Product {
	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out
}

// ByCategory filters by exact category. Empty or AllCategories returns everything.
func (c *Catalog) ByCategory(category string) []domain.Product {
	if category == "" || category == AllCategories {
		return c.List()
	}
	out := []domain.Product{}
	for _, p := range c.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Categories lists AllCategories then each distinct category in first-seen order.
func (c *Catalog) Categories() []string {
	out := []string{AllCategories}
	seen := map[string]bool{}
	for _, p := range c.products {
		if seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	return out
}

func (c *Catalog) Len() int {
	return len(c.products)
}
