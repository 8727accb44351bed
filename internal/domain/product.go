package domain

import "time"

// Product is the catalog read model consumed by the cart and checkout.
// Values are treated as immutable snapshots.
type Product struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description,omitempty"`
	Price         int64     `json:"price"`
	SalePrice     *int64    `json:"salePrice,omitempty"`
	Currency      string    `json:"currency"`
	StockQuantity int       `json:"stockQuantity"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
}

// EffectivePrice is the sale price when present, otherwise the base price.
func (p Product) EffectivePrice() int64 {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}

func (p Product) InStock() bool {
	return p.StockQuantity > 0
}

// Purchasable reports whether the catalog currently allows selling the product.
func (p Product) Purchasable() bool {
	return p.IsActive && p.InStock()
}
