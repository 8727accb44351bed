package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"storefront/internal/address"
	"storefront/internal/db/dbtest"
	"storefront/internal/domain"
	cartsvc "storefront/internal/service/cart"
	couponsvc "storefront/internal/service/coupon"
	"storefront/internal/store"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pgFixture struct {
	pool     *pgxpool.Pool
	st       store.Store
	carts    *cartsvc.Service
	checkout *Service
}

func newPostgresFixture(t *testing.T) pgFixture {
	t.Helper()
	pool := dbtest.Pool(context.Background(), t)
	st := store.NewPostgres(pool, nil)
	v := couponsvc.NewValidator(nil).WithClock(clock)
	return pgFixture{
		pool:     pool,
		st:       st,
		carts:    cartsvc.New(st, v, cartsvc.Config{DefaultCurrency: "JPY"}, nil, cartsvc.WithClock(clock)),
		checkout: New(st, v, address.NewJPNormalizer(), nil, WithClock(clock)),
	}
}

func (f pgFixture) cartWith(t *testing.T, session, productID string, qty int) *domain.Cart {
	t.Helper()
	ctx := context.Background()
	c, err := f.carts.ResolveActiveCart(ctx, domain.Identity{SessionKey: session})
	require.NoError(t, err)
	_, err = f.carts.SetLineQuantity(ctx, c.ID, productID, qty)
	require.NoError(t, err)
	return c
}

func (f pgFixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.st.Repos().Products.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.StockQuantity
}

func TestPostgresConvertStockRace(t *testing.T) {
	f := newPostgresFixture(t)
	ctx := context.Background()
	p := dbtest.InsertProduct(ctx, t, f.pool, "last-one", 1000, "JPY", 1)
	carts := []*domain.Cart{f.cartWith(t, "s1", p, 1), f.cartWith(t, "s2", p, 1)}

	errs := make([]error, len(carts))
	var wg sync.WaitGroup
	for i, c := range carts {
		wg.Add(1)
		go func(i int, cartID string) {
			defer wg.Done()
			_, errs[i] = f.checkout.ConvertCartToOrder(ctx, cartID, ConvertInput{Email: "a@example.com"})
		}(i, c.ID)
	}
	wg.Wait()

	var ok, short int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientStock):
			short++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, short)
	assert.Equal(t, 0, f.stock(t, p))

	var orders int
	require.NoError(t, f.pool.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&orders))
	assert.Equal(t, 1, orders)
}

func TestPostgresConvertRollsBackOnFailure(t *testing.T) {
	f := newPostgresFixture(t)
	ctx := context.Background()
	first := dbtest.InsertProduct(ctx, t, f.pool, "first", 100, "JPY", 5)
	second := dbtest.InsertProduct(ctx, t, f.pool, "second", 100, "JPY", 1)

	c := f.cartWith(t, "s1", first, 2)
	_, err := f.carts.SetLineQuantity(ctx, c.ID, second, 3)
	require.NoError(t, err)

	_, err = f.checkout.ConvertCartToOrder(ctx, c.ID, ConvertInput{Email: "a@example.com"})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.Equal(t, 5, f.stock(t, first))
	assert.Equal(t, 1, f.stock(t, second))
	cart, err := f.carts.GetCart(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CartActive, cart.Status)

	var orders int
	require.NoError(t, f.pool.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&orders))
	assert.Zero(t, orders)
}
