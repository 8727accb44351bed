package cart

import (
	"context"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeOnLoginSumsAndMoves(t *testing.T) {
	st := memory.New()
	svc := newTestService(t, st)
	ctx := context.Background()
	x := seedProduct(t, st, "x", 100, "JPY", 50)
	y := seedProduct(t, st, "y", 200, "JPY", 50)

	anon, err := svc.ResolveActiveCart(ctx, domain.Identity{SessionKey: "s1"})
	require.NoError(t, err)
	_, err = svc.SetLineQuantity(ctx, anon.ID, x.ID, 2)
	require.NoError(t, err)

	user, err := svc.ResolveActiveCart(ctx, domain.Identity{UserID: "u1"})
	require.NoError(t, err)
	_, err = svc.SetLineQuantity(ctx, user.ID, x.ID, 3)
	require.NoError(t, err)
	_, err = svc.SetLineQuantity(ctx, user.ID, y.ID, 1)
	require.NoError(t, err)

	require.NoError(t, svc.MergeOnLogin(ctx, "u1", domain.PreLogin{CookieSessionKey: "s1"}))

	assert.Equal(t, map[string]int{"x": 5, "y": 1}, lineQuantities(t, svc, user.ID))
	source, err := svc.GetCart(ctx, anon.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CartAbandoned, source.Status)
	assert.Empty(t, source.Items)
}

func TestMergeOnLoginMovesMissingLinesAndAdoptsCoupon(t *testing.T) {
	st := memory.New()
	svc := newTestService(t, st)
	ctx := context.Background()
	x := seedProduct(t, st, "x", 100, "JPY", 50)
	z := seedProduct(t, st, "z", 300, "JPY", 50)
	amount := int64(50)
	_, err := st.Repos().Coupons.Upsert(ctx, domain.Coupon{Code: "FIFTY", AmountOff: &amount, Active: true})
	require.NoError(t, err)

	anon, err := svc.ResolveActiveCart(ctx, domain.Identity{SessionKey: "s1"})
	require.NoError(t, err)
	_, err = svc.SetLineQuantity(ctx, anon.ID, z.ID, 4)
	require.NoError(t, err)
	_, err = svc.ApplyCoupon(ctx, anon.ID, "FIFTY")
	require.NoError(t, err)

	user, err := svc.ResolveActiveCart(ctx, domain.Identity{UserID: "u1"})
	require.NoError(t, err)
	_, err = svc.SetLineQuantity(ctx, user.ID, x.ID, 1)
	require.NoError(t, err)

	require.NoError(t, svc.MergeOnLogin(ctx, "u1", domain.PreLogin{CartID: anon.ID}))

	target, err := svc.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "FIFTY", target.CouponCode)
	assert.Equal(t, map[string]int{"x": 1, "z": 4}, lineQuantities(t, svc, user.ID))
}

func TestMergeOnLoginKeepsTargetCoupon(t *testing.T) {
	st := memory.New()
	svc := newTestService(t, st)
	ctx := context.Background()
	a, b := int64(10), int64(20)
	_, err := st.Repos().Coupons.Upsert(ctx, domain.Coupon{Code: "ANON", AmountOff: &a, Active: true})
	require.NoError(t, err)
	_, err = st.Repos().Coupons.Upsert(ctx, domain.Coupon{Code: "MINE", AmountOff: &b, Active: true})
	require.NoError(t, err)

	anon, err := svc.ResolveActiveCart(ctx, domain.Identity{SessionKey: "s1"})
	require.NoError(t, err)
	_, err = svc.ApplyCoupon(ctx, anon.ID, "ANON")
	require.NoError(t, err)
	user, err := svc.ResolveActiveCart(ctx, domain.Identity{UserID: "u1"})
	require.NoError(t, err)
	_, err = svc.ApplyCoupon(ctx, user.ID, "MINE")
	require.NoError(t, err)

	require.NoError(t, svc.MergeOnLogin(ctx, "u1", domain.PreLogin{CookieSessionKey: "s1"}))

	target, err := svc.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "MINE", target.CouponCode)
}

func TestMergeOnLoginDropsForeignCurrencyLines(t *testing.T) {
	st := memory.New()
	svc := newTestService(t, st)
	ctx := context.Background()
	usd := seedProduct(t, st, "usd", 100, "USD", 5)
	jpy := seedProduct(t, st, "jpy", 100, "JPY", 5)

	usdSvc := New(st, nil, Config{DefaultCurrency: "USD"}, nil, WithClock(clock))
	anon, err := usdSvc.ResolveActiveCart(ctx, domain.Identity{SessionKey: "s1"})
	require.NoError(t, err)
	_, err = usdSvc.SetLineQuantity(ctx, anon.ID, usd.ID, 2)
	require.NoError(t, err)

	user, err := svc.ResolveActiveCart(ctx, domain.Identity{UserID: "u1"})
	require.NoError(t, err)
	_, err = svc.SetLineQuantity(ctx, user.ID, jpy.ID, 1)
	require.NoError(t, err)

	require.NoError(t, svc.MergeOnLogin(ctx, "u1", domain.PreLogin{CookieSessionKey: "s1"}))
	assert.Equal(t, map[string]int{"jpy": 1}, lineQuantities(t, svc, user.ID))
}

func TestMergeOnLoginAdoptsWhenUserHasNoCart(t *testing.T) {
	st := memory.New()
	svc := newTestService(t, st)
	ctx := context.Background()
	x := seedProduct(t, st, "x", 100, "JPY", 5)

	anon, err := svc.ResolveActiveCart(ctx, domain.Identity{SessionKey: "old"})
	require.NoError(t, err)
	_, err = svc.SetLineQuantity(ctx, anon.ID, x.ID, 2)
	require.NoError(t, err)

	pre := domain.PreLogin{CookieSessionKey: "old", CurrentSessionKey: "rotated"}
	require.NoError(t, svc.MergeOnLogin(ctx, "u1", pre))

	adopted, err := svc.ResolveActiveCart(ctx, domain.Identity{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, anon.ID, adopted.ID)
	assert.Nil(t, adopted.SessionKey)
	assert.Equal(t, map[string]int{"x": 2}, lineQuantities(t, svc, adopted.ID))
}

func TestMergeOnLoginNoop(t *testing.T) {
	st := memory.New()
	svc := newTestService(t, st)
	ctx := context.Background()

	require.NoError(t, svc.MergeOnLogin(ctx, "u1", domain.PreLogin{}))
	require.NoError(t, svc.MergeOnLogin(ctx, "u1", domain.PreLogin{CookieSessionKey: "unknown"}))

	_, err := st.Repos().Carts.FindActive(ctx, domain.Identity{UserID: "u1"}, false)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = svc.MergeOnLogin(ctx, " ", domain.PreLogin{CookieSessionKey: "s1"})
	assert.ErrorIs(t, err, domain.ErrIdentityRequired)
}

func TestMergeOnLoginIgnoresOwnedCarts(t *testing.T) {
	st := memory.New()
	svc := newTestService(t, st)
	ctx := context.Background()

	user, err := svc.ResolveActiveCart(ctx, domain.Identity{UserID: "u1"})
	require.NoError(t, err)
	require.NoError(t, svc.MergeOnLogin(ctx, "u1", domain.PreLogin{CartID: user.ID}))

	got, err := svc.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CartActive, got.Status)
}

func TestMergeOnLoginCapsSummedQuantity(t *testing.T) {
	st := memory.New()
	svc := newTestService(t, st)
	ctx := context.Background()
	x := seedProduct(t, st, "x", 1, "JPY", 50)

	anon, err := svc.ResolveActiveCart(ctx, domain.Identity{SessionKey: "s1"})
	require.NoError(t, err)
	_, err = svc.SetLineQuantity(ctx, anon.ID, x.ID, domain.MaxLineQuantity)
	require.NoError(t, err)
	user, err := svc.ResolveActiveCart(ctx, domain.Identity{UserID: "u1"})
	require.NoError(t, err)
	_, err = svc.SetLineQuantity(ctx, user.ID, x.ID, 10)
	require.NoError(t, err)

	require.NoError(t, svc.MergeOnLogin(ctx, "u1", domain.PreLogin{CookieSessionKey: "s1"}))
	assert.Equal(t, map[string]int{"x": domain.MaxLineQuantity}, lineQuantities(t, svc, user.ID))
}
