package product

import (
	"context"

	"storefront/internal/domain"
)

// Repository is the catalog read model plus the stock primitives checkout and
// order cancellation depend on.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	ListActive(ctx context.Context, limit, offset int) ([]domain.Product, error)
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
	// DecrementStock subtracts qty only when enough stock remains and reports
	// the number of rows changed (0 or 1).
	DecrementStock(ctx context.Context, id string, qty int) (int64, error)
	IncrementStock(ctx context.Context, id string, qty int) error
}
