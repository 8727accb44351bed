package coupon

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	// GetActiveByCode returns the active coupon with the given normalized code.
	GetActiveByCode(ctx context.Context, code string) (*domain.Coupon, error)
	Upsert(ctx context.Context, c domain.Coupon) (*domain.Coupon, error)
}
