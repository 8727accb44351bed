// Package seed loads demo catalog data for manual testing.
package seed

import (
	"context"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/store"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
)

type productSeed struct {
	Title       string
	Description string
	Price       int64
	SalePrice   int64
	Stock       int
}

var products = []productSeed{
	{Title: "Demo T-Shirt", Description: "Soft cotton tee", Price: 2980, Stock: 50},
	{Title: "Demo Mug", Description: "Ceramic mug with logo", Price: 1500, SalePrice: 1200, Stock: 30},
	{Title: "Demo Tote Bag", Description: "Canvas tote", Price: 2200, Stock: 0},
}

// Apply upserts the demo products and the SAVE10 coupon in one transaction.
// Running it again updates the same rows.
func Apply(ctx context.Context, st store.Store, currency string) error {
	return st.InTx(ctx, func(r store.Repos) error {
		for _, p := range products {
			product := domain.Product{
				Title:         p.Title,
				Slug:          slug.Make(p.Title),
				Description:   p.Description,
				Price:         p.Price,
				Currency:      currency,
				StockQuantity: p.Stock,
				IsActive:      true,
			}
			if p.SalePrice > 0 {
				sale := p.SalePrice
				product.SalePrice = &sale
			}
			if _, err := r.Products.Upsert(ctx, product); err != nil {
				return fmt.Errorf("upsert product %s: %w", product.Slug, err)
			}
		}

		percent := decimal.NewFromInt(10)
		if _, err := r.Coupons.Upsert(ctx, domain.Coupon{
			Code:       "SAVE10",
			PercentOff: &percent,
			Currency:   currency,
			Active:     true,
		}); err != nil {
			return fmt.Errorf("upsert coupon SAVE10: %w", err)
		}
		return nil
	})
}
