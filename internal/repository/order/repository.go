package order

import (
	"context"
	"time"

	"storefront/internal/domain"
)

type Repository interface {
	// Create inserts the order header. A number collision returns
	// domain.ErrAlreadyExists without aborting the surrounding transaction.
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	InsertItems(ctx context.Context, orderID string, items []domain.OrderItem) error
	InsertCoupon(ctx context.Context, oc domain.OrderCoupon) error
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	LockByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]domain.Order, error)
	SetStatus(ctx context.Context, id string, status domain.OrderStatus, canceledAt *time.Time) error
}
