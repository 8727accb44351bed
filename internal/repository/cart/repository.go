package cart

import (
	"context"
	"time"

	"storefront/internal/domain"
)

type CreateCartInput struct {
	UserID     *string
	SessionKey *string
	Currency   string
	ExpiresAt  *time.Time
}

// NewLine is the snapshot written when a product is first added to a cart.
type NewLine struct {
	CartID       string
	ProductID    string
	ProductTitle string
	ProductSlug  string
	Quantity     int
	UnitPrice    int64
	Currency     string
}

// Repository persists carts and their lines. Methods prefixed with Lock take
// a row lock and are only meaningful inside a transaction.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	LockByID(ctx context.Context, id string) (*domain.Cart, error)
	// FindActive returns the active cart for the identity. The user id wins
	// when both parts are set.
	FindActive(ctx context.Context, identity domain.Identity, lock bool) (*domain.Cart, error)
	// LockMergeCandidate locks the most recently updated anonymous active cart,
	// matched by cartID when given, otherwise by any of sessionKeys.
	LockMergeCandidate(ctx context.Context, cartID string, sessionKeys []string) (*domain.Cart, error)
	Create(ctx context.Context, in CreateCartInput) (*domain.Cart, error)
	Touch(ctx context.Context, id string, expiresAt *time.Time) error
	SetCoupon(ctx context.Context, id, code string) error
	SetOwner(ctx context.Context, id, userID string) error
	SetStatus(ctx context.Context, id string, status domain.CartStatus) error

	Lines(ctx context.Context, cartID string) ([]domain.CartItem, error)
	LockLines(ctx context.Context, cartID string) ([]domain.CartItem, error)
	LockLine(ctx context.Context, cartID, productID string) (*domain.CartItem, error)
	InsertLine(ctx context.Context, in NewLine) (*domain.CartItem, error)
	UpdateLineQuantity(ctx context.Context, lineID string, quantity int) (*domain.CartItem, error)
	MoveLine(ctx context.Context, lineID, targetCartID string) error
	DeleteLine(ctx context.Context, lineID string) error
	DeleteLines(ctx context.Context, cartID string) (int64, error)
	DeleteLinesNotInCurrency(ctx context.Context, cartID, currency string) (int64, error)
}
