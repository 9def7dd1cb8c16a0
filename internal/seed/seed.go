package seed

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"glow-storefront/internal/domain"
)

type productSeed struct {
	ID          string
	Name        string
	Price       string
	Category    string
	Description string
	Image       string
}

var defaults = []productSeed{
	{"glow-serum", "Radiance Glow Serum", "1299.00", "Skincare", "Vitamin C and niacinamide serum for an even, luminous complexion.", "glow-serum.png"},
	{"hydra-cream", "Hydra Dew Moisturizer", "899.00", "Skincare", "Lightweight gel cream with hyaluronic acid for all-day hydration.", "hydra-cream.png"},
	{"sun-shield", "Daily Sun Shield SPF 50", "749.00", "Skincare", "Invisible sunscreen with no white cast, safe under makeup.", "sun-shield.png"},
	{"velvet-tint", "Velvet Lip Tint", "349.00", "Lips", "Buildable matte tint that stays comfortable for hours.", "velvet-tint.png"},
	{"lip-oil", "Cherry Lip Oil", "399.00", "Lips", "Glossy, non-sticky oil that softens and adds a sheer wash of color.", "lip-oil.png"},
	{"skin-tint", "Second Skin Tint", "1099.00", "Face", "Sheer, breathable coverage with a natural dewy finish.", "skin-tint.png"},
	{"blush-stick", "Cloud Blush Stick", "549.00", "Face", "Creamy blush that melts into skin for a soft flush.", "blush-stick.png"},
	{"brow-gel", "Fluffy Brow Gel", "429.00", "Eyes", "Tinted gel that sets brows in place with a brushed-up look.", "brow-gel.png"},
	{"lash-lift", "Lash Lift Mascara", "599.00", "Eyes", "Smudge-proof mascara that curls and lengthens.", "lash-lift.png"},
}

// Products returns the default catalog in display order.
func Products() []domain.Product {
	out := make([]domain.Product, 0, len(defaults))
	for _, s := range defaults {
		out = append(out, domain.Product{
			ID:          s.ID,
			Name:        s.Name,
			Price:       decimal.RequireFromString(s.Price),
			Category:    s.Category,
			Description: s.Description,
			Image:       s.Image,
		})
	}
	return out
}

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// Apply upserts the default catalog. It is idempotent.
func Apply(ctx context.Context, repo ProductWriter) (int, error) {
	n := 0
	for _, p := range Products() {
		if _, err := repo.Upsert(ctx, p); err != nil {
			return n, fmt.Errorf("upsert product %s: %w", p.ID, err)
		}
		n++
	}
	return n, nil
}
