package memory

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/domain"
	cartrepo "storefront/internal/repository/cart"
	"storefront/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	p, err := s.Repos().Products.Upsert(ctx, domain.Product{Title: "Cup", Slug: "cup", Price: 100, Currency: "JPY", StockQuantity: 3, IsActive: true})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.InTx(ctx, func(r store.Repos) error {
		n, err := r.Products.DecrementStock(ctx, p.ID, 2)
		require.NoError(t, err)
		require.Equal(t, int64(1), n)
		_, err = r.Carts.Create(ctx, cartrepo.CreateCartInput{SessionKey: strPtr("s1"), Currency: "JPY"})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Repos().Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.StockQuantity)
	_, err = s.Repos().Carts.FindActive(ctx, domain.Identity{SessionKey: "s1"}, false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInTxCommits(t *testing.T) {
	ctx := context.Background()
	s := New()
	err := s.InTx(ctx, func(r store.Repos) error {
		_, err := r.Carts.Create(ctx, cartrepo.CreateCartInput{SessionKey: strPtr("s1"), Currency: "JPY"})
		return err
	})
	require.NoError(t, err)
	_, err = s.Repos().Carts.FindActive(ctx, domain.Identity{SessionKey: "s1"}, false)
	assert.NoError(t, err)
}

func TestActiveCartUniqueness(t *testing.T) {
	ctx := context.Background()
	carts := New().Repos().Carts

	a, err := carts.Create(ctx, cartrepo.CreateCartInput{SessionKey: strPtr("k"), Currency: "JPY"})
	require.NoError(t, err)
	_, err = carts.Create(ctx, cartrepo.CreateCartInput{SessionKey: strPtr("k"), Currency: "JPY"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	require.NoError(t, carts.SetStatus(ctx, a.ID, domain.CartAbandoned))
	_, err = carts.Create(ctx, cartrepo.CreateCartInput{SessionKey: strPtr("k"), Currency: "JPY"})
	assert.NoError(t, err)

	u, err := carts.Create(ctx, cartrepo.CreateCartInput{UserID: strPtr("u1"), Currency: "JPY"})
	require.NoError(t, err)
	other, err := carts.Create(ctx, cartrepo.CreateCartInput{SessionKey: strPtr("k2"), Currency: "JPY"})
	require.NoError(t, err)
	assert.ErrorIs(t, carts.SetOwner(ctx, other.ID, "u1"), domain.ErrAlreadyExists)
	assert.NotEmpty(t, u.ID)
}

func TestLinesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	carts := New().Repos().Carts
	c, err := carts.Create(ctx, cartrepo.CreateCartInput{SessionKey: strPtr("k"), Currency: "JPY"})
	require.NoError(t, err)

	for _, pid := range []string{"p3", "p1", "p2"} {
		_, err := carts.InsertLine(ctx, cartrepo.NewLine{CartID: c.ID, ProductID: pid, Quantity: 1, UnitPrice: 10, Currency: "JPY"})
		require.NoError(t, err)
	}
	_, err = carts.InsertLine(ctx, cartrepo.NewLine{CartID: c.ID, ProductID: "p1", Quantity: 1, UnitPrice: 10, Currency: "JPY"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	lines, err := carts.Lines(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"p3", "p1", "p2"}, []string{lines[0].ProductID, lines[1].ProductID, lines[2].ProductID})
}

func TestCouponUpsertEnforcesDiscountType(t *testing.T) {
	ctx := context.Background()
	s := New()
	pct := decimal.NewFromInt(10)
	amount := int64(100)

	_, err := s.Repos().Coupons.Upsert(ctx, domain.Coupon{Code: "both", PercentOff: &pct, AmountOff: &amount, Active: true})
	assert.Error(t, err)

	_, err = s.Repos().Coupons.Upsert(ctx, domain.Coupon{Code: " save10 ", PercentOff: &pct, Active: true})
	require.NoError(t, err)
	got, err := s.Repos().Coupons.GetActiveByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", got.Code)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New().InTx(ctx, func(store.Repos) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
