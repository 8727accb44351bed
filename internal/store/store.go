// Package store groups the repositories and runs units of work against them.
package store

import (
	"context"

	cartrepo "storefront/internal/repository/cart"
	couponrepo "storefront/internal/repository/coupon"
	customerrepo "storefront/internal/repository/customer"
	orderrepo "storefront/internal/repository/order"
	productrepo "storefront/internal/repository/product"
	sessionrepo "storefront/internal/repository/session"
	tokenrepo "storefront/internal/repository/token"
)

// Repos is one consistent view of every repository. Inside InTx all of them
// share the same transaction.
type Repos struct {
	Carts     cartrepo.Repository
	Products  productrepo.Repository
	Coupons   couponrepo.Repository
	Orders    orderrepo.Repository
	Customers customerrepo.Repository
	Tokens    tokenrepo.Repository
	Sessions  sessionrepo.Repository
}

type Store interface {
	// Repos returns repositories that run each statement on its own.
	Repos() Repos
	// InTx runs fn in a single transaction, committing when fn returns nil and
	// rolling back otherwise.
	InTx(ctx context.Context, fn func(Repos) error) error
	Ping(ctx context.Context) error
}
