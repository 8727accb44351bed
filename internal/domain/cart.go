package domain

import (
	"math"
	"time"
)

// CartStatus is the lifecycle state of a cart. Only CartActive carts are mutable.
type CartStatus string

const (
	CartActive    CartStatus = "active"
	CartConverted CartStatus = "converted"
	CartAbandoned CartStatus = "abandoned"
)

// MaxLineQuantity is the largest quantity a cart line may hold. It matches the
// INTEGER column the line is stored in.
const MaxLineQuantity = math.MaxInt32

type Cart struct {
	ID         string     `json:"id"`
	UserID     *string    `json:"userId,omitempty"`
	SessionKey *string    `json:"-"`
	Status     CartStatus `json:"status"`
	Currency   string     `json:"currency"`
	CouponCode string     `json:"couponCode,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	Items      []CartItem `json:"items"`
}

// IsActive reports whether the cart can still be mutated.
func (c Cart) IsActive() bool {
	return c.Status == CartActive
}

// Subtotal sums the snapshotted line prices of the loaded items.
func (c Cart) Subtotal() int64 {
	var total int64
	for _, it := range c.Items {
		total += it.LineTotal()
	}
	return total
}

type CartItem struct {
	ID           string    `json:"id"`
	CartID       string    `json:"cartId"`
	ProductID    string    `json:"productId"`
	ProductTitle string    `json:"productTitle"`
	ProductSlug  string    `json:"productSlug"`
	Quantity     int       `json:"quantity"`
	UnitPrice    int64     `json:"unitPrice"`
	Currency     string    `json:"currency"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (i CartItem) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// Totals is the provisional price breakdown shown before checkout.
type Totals struct {
	Subtotal         int64  `json:"subtotal"`
	Discount         int64  `json:"discount"`
	ShippingEstimate int64  `json:"shippingEstimate"`
	TaxEstimate      int64  `json:"taxEstimate"`
	Total            int64  `json:"total"`
	CouponCode       string `json:"couponCode,omitempty"`
	Currency         string `json:"currency"`
}
