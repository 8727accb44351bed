package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/logging"
	"storefront/internal/money"

	"go.uber.org/zap"
)

// Lookup finds active coupons by normalized code.
type Lookup interface {
	GetActiveByCode(ctx context.Context, code string) (*domain.Coupon, error)
}

// Validator checks coupon codes against a cart.
type Validator struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewValidator(logger *zap.Logger) *Validator {
	return &Validator{logger: logging.OrNop(logger), now: time.Now}
}

// WithClock returns a copy of v that reads the current time from now.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	cp := *v
	cp.now = now
	return &cp
}

// ValidateForCart returns the coupon for code when it may be applied to cart.
// Failures are checkout errors naming the reason.
func (v *Validator) ValidateForCart(ctx context.Context, lookup Lookup, cart *domain.Cart, code string) (*domain.Coupon, error) {
	code = domain.NormalizeCouponCode(code)
	if code == "" {
		return nil, domain.ErrCouponInvalid
	}
	c, err := lookup.GetActiveByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Wrapf(domain.ErrCouponInvalid, "coupon.validate", "Invalid or inactive coupon code %q", code)
		}
		return nil, fmt.Errorf("coupon: lookup %q: %w", code, err)
	}

	now := v.now()
	if c.StartsAt != nil && c.StartsAt.After(now) {
		return nil, domain.ErrCouponNotStarted
	}
	if c.EndsAt != nil && c.EndsAt.Before(now) {
		return nil, domain.ErrCouponExpired
	}
	if c.Currency != "" && !money.SameCurrency(c.Currency, cart.Currency) {
		return nil, domain.ErrCouponCurrency
	}
	if !c.WellFormed() {
		v.logger.Error("coupon misconfigured: exactly one of percent_off or amount_off must be set",
			zap.String("coupon_id", c.ID),
			zap.String("code", c.Code),
		)
		return nil, domain.ErrCouponMisconfigured
	}
	return c, nil
}

// Applied is the outcome of resolving a cart's stored coupon code.
type Applied struct {
	Coupon   *domain.Coupon
	Code     string
	Discount int64
}

// Resolve revalidates the cart's coupon code and computes its discount for
// subtotal. Any validation failure yields no discount.
func (v *Validator) Resolve(ctx context.Context, lookup Lookup, cart *domain.Cart, subtotal int64) Applied {
	if cart == nil || cart.CouponCode == "" {
		return Applied{}
	}
	c, err := v.ValidateForCart(ctx, lookup, cart, cart.CouponCode)
	if err != nil {
		v.logger.Debug("coupon dropped from totals",
			zap.String("cart_id", cart.ID),
			zap.String("code", cart.CouponCode),
			zap.Error(err),
		)
		return Applied{}
	}
	return Applied{
		Coupon:   c,
		Code:     c.Code,
		Discount: money.Discount(subtotal, c.PercentOff, c.AmountOff),
	}
}
