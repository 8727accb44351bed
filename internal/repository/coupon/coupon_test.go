package coupon

import (
	"context"
	"testing"

	"storefront/internal/db/dbtest"
	"storefront/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres_UpsertAndLookup(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(ctx, t)
	repo := NewPostgres(pool, nil)

	pct := decimal.RequireFromString("12.5")
	created, err := repo.Upsert(ctx, domain.Coupon{Code: " save10 ", PercentOff: &pct, Currency: "JPY", Active: true})
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", created.Code)

	got, err := repo.GetActiveByCode(ctx, "save10")
	require.NoError(t, err)
	require.NotNil(t, got.PercentOff)
	assert.True(t, got.PercentOff.Equal(pct))
	assert.Nil(t, got.AmountOff)
	assert.True(t, got.WellFormed())
}

func TestPostgres_InactiveCouponIsNotFound(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(ctx, t)
	repo := NewPostgres(pool, nil)

	amount := int64(500)
	_, err := repo.Upsert(ctx, domain.Coupon{Code: "OFF500", AmountOff: &amount, Currency: "JPY", Active: false})
	require.NoError(t, err)

	_, err = repo.GetActiveByCode(ctx, "OFF500")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgres_RejectsBothDiscountTypes(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(ctx, t)
	repo := NewPostgres(pool, nil)

	pct := decimal.NewFromInt(10)
	amount := int64(100)
	_, err := repo.Upsert(ctx, domain.Coupon{Code: "BOTH", PercentOff: &pct, AmountOff: &amount, Currency: "JPY", Active: true})
	assert.Error(t, err)
}
