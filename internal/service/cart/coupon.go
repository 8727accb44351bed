package cart

import (
	"context"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/money"
	"storefront/internal/store"

	"go.uber.org/zap"
)

// ApplyCoupon validates code against the cart and stores it normalized.
func (s *Service) ApplyCoupon(ctx context.Context, cartID, code string) (*domain.Coupon, error) {
	var applied *domain.Coupon
	err := s.store.InTx(ctx, func(r store.Repos) error {
		cart, err := lockActive(ctx, r, cartID)
		if err != nil {
			return err
		}
		c, err := s.coupons.ValidateForCart(ctx, r.Coupons, cart, code)
		if err != nil {
			return err
		}
		if err := r.Carts.SetCoupon(ctx, cartID, c.Code); err != nil {
			return fmt.Errorf("cart: set coupon: %w", err)
		}
		applied = c
		return s.touch(ctx, r, cart)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("coupon applied", zap.String("cart_id", cartID), zap.String("code", applied.Code))
	return applied, nil
}

func (s *Service) ClearCoupon(ctx context.Context, cartID string) error {
	return s.store.InTx(ctx, func(r store.Repos) error {
		cart, err := lockActive(ctx, r, cartID)
		if err != nil {
			return err
		}
		if err := r.Carts.SetCoupon(ctx, cartID, ""); err != nil {
			return fmt.Errorf("cart: clear coupon: %w", err)
		}
		return s.touch(ctx, r, cart)
	})
}

// ProvisionalTotals prices the cart from its line snapshots. The stored coupon
// is revalidated; an invalid one contributes no discount.
func (s *Service) ProvisionalTotals(ctx context.Context, cartID string, shippingEstimate, taxEstimate int64) (domain.Totals, error) {
	cart, err := s.GetCart(ctx, cartID)
	if err != nil {
		return domain.Totals{}, err
	}
	subtotal := cart.Subtotal()
	applied := s.coupons.Resolve(ctx, s.store.Repos().Coupons, cart, subtotal)
	shipping := money.NonNegative(shippingEstimate)
	tax := money.NonNegative(taxEstimate)

	return domain.Totals{
		Subtotal:         subtotal,
		Discount:         applied.Discount,
		ShippingEstimate: shipping,
		TaxEstimate:      tax,
		Total:            money.Total(subtotal, applied.Discount, shipping, tax),
		CouponCode:       applied.Code,
		Currency:         cart.Currency,
	}, nil
}
