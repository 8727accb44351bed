package domain

import "time"

type OrderStatus string

const (
	OrderDraft             OrderStatus = "draft"
	OrderPendingPayment    OrderStatus = "pending_payment"
	OrderPaid              OrderStatus = "paid"
	OrderPartiallyRefunded OrderStatus = "partially_refunded"
	OrderRefunded          OrderStatus = "refunded"
	OrderCanceled          OrderStatus = "canceled"
)

type FulfillmentStatus string

const (
	FulfillmentUnfulfilled FulfillmentStatus = "unfulfilled"
	FulfillmentPartial     FulfillmentStatus = "partial"
	FulfillmentFulfilled   FulfillmentStatus = "fulfilled"
	FulfillmentReturned    FulfillmentStatus = "returned"
)

// AddressSnapshot is a normalized address stored verbatim on an order.
type AddressSnapshot map[string]string

// Order is the immutable record produced by converting a cart.
type Order struct {
	ID                string            `json:"id"`
	Number            string            `json:"number"`
	UserID            *string           `json:"userId,omitempty"`
	Email             string            `json:"email"`
	Status            OrderStatus       `json:"status"`
	FulfillmentStatus FulfillmentStatus `json:"fulfillmentStatus"`
	Currency          string            `json:"currency"`
	ShippingAddress   AddressSnapshot   `json:"shippingAddress"`
	BillingAddress    AddressSnapshot   `json:"billingAddress"`
	Subtotal          int64             `json:"subtotal"`
	Discount          int64             `json:"discount"`
	Shipping          int64             `json:"shipping"`
	Tax               int64             `json:"tax"`
	Total             int64             `json:"total"`
	CouponCode        string            `json:"couponCode"`
	PlacedAt          *time.Time        `json:"placedAt,omitempty"`
	CanceledAt        *time.Time        `json:"canceledAt,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	Items             []OrderItem       `json:"items"`
}

// Cancelable reports whether the order may still be canceled.
func (o Order) Cancelable() bool {
	return o.Status == OrderPendingPayment || o.Status == OrderPaid
}

type OrderItem struct {
	ID           string  `json:"id"`
	OrderID      string  `json:"orderId"`
	ProductID    *string `json:"productId,omitempty"`
	ProductTitle string  `json:"productTitle"`
	ProductSlug  string  `json:"productSlug"`
	Quantity     int     `json:"quantity"`
	UnitPrice    int64   `json:"unitPrice"`
	Currency     string  `json:"currency"`
}

// OrderCoupon records the discount a coupon contributed to an order.
type OrderCoupon struct {
	ID               string `json:"id"`
	OrderID          string `json:"orderId"`
	CouponID         string `json:"couponId"`
	DiscountedAmount int64  `json:"discountedAmount"`
}
