package coupon

import (
	"context"
	"fmt"

	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/logging"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const couponColumns = `id::text, code, percent_off::text, amount_off, currency, starts_at, ends_at, active, max_redemptions, times_redeemed, per_user_limit, created_at`

type postgresRepo struct {
	q      db.DBTX
	logger *zap.Logger
}

func NewPostgres(q db.DBTX, logger *zap.Logger) Repository {
	return &postgresRepo{q: q, logger: logging.OrNop(logger)}
}

func (r *postgresRepo) GetActiveByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	const q = `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1 AND active`
	return scanCoupon(r.q.QueryRow(ctx, q, domain.NormalizeCouponCode(code)))
}

func (r *postgresRepo) Upsert(ctx context.Context, c domain.Coupon) (*domain.Coupon, error) {
	const q = `
INSERT INTO coupons (code, percent_off, amount_off, currency, starts_at, ends_at, active, max_redemptions, per_user_limit)
VALUES ($1, $2::numeric, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (code) DO UPDATE SET
    percent_off = EXCLUDED.percent_off,
    amount_off = EXCLUDED.amount_off,
    currency = EXCLUDED.currency,
    starts_at = EXCLUDED.starts_at,
    ends_at = EXCLUDED.ends_at,
    active = EXCLUDED.active,
    max_redemptions = EXCLUDED.max_redemptions,
    per_user_limit = EXCLUDED.per_user_limit
RETURNING ` + couponColumns
	var percent *string
	if c.PercentOff != nil {
		s := c.PercentOff.StringFixed(2)
		percent = &s
	}
	res, err := scanCoupon(r.q.QueryRow(ctx, q,
		domain.NormalizeCouponCode(c.Code),
		percent,
		c.AmountOff,
		c.Currency,
		c.StartsAt,
		c.EndsAt,
		c.Active,
		c.MaxRedemptions,
		c.PerUserLimit,
	))
	if err != nil {
		r.logger.Error("coupon repo: upsert", zap.String("code", c.Code), zap.Error(err))
		return nil, err
	}
	return res, nil
}

func scanCoupon(row pgx.Row) (*domain.Coupon, error) {
	var (
		c       domain.Coupon
		percent *string
	)
	err := row.Scan(
		&c.ID,
		&c.Code,
		&percent,
		&c.AmountOff,
		&c.Currency,
		&c.StartsAt,
		&c.EndsAt,
		&c.Active,
		&c.MaxRedemptions,
		&c.TimesRedeemed,
		&c.PerUserLimit,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, db.MapError(err)
	}
	if percent != nil {
		d, err := decimal.NewFromString(*percent)
		if err != nil {
			return nil, fmt.Errorf("coupon repo: parse percent_off %q: %w", *percent, err)
		}
		c.PercentOff = &d
	}
	return &c, nil
}
