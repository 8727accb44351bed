package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/money"
	"storefront/internal/store"
	"storefront/internal/telemetry"

	"go.uber.org/zap"
)

// MergeOnLogin folds the anonymous cart observed before login into the
// user's active cart. The anonymous cart is adopted when the user has none.
func (s *Service) MergeOnLogin(ctx context.Context, userID string, pre domain.PreLogin) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ErrIdentityRequired
	}
	if pre.IsZero() {
		s.metrics.CartMerged(telemetry.MergeNoop)
		return nil
	}

	outcome := telemetry.MergeNoop
	var sourceID, targetID string
	err := s.store.InTx(ctx, func(r store.Repos) error {
		source, err := r.Carts.LockMergeCandidate(ctx, pre.CartID, pre.SessionKeys())
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("cart: merge candidate: %w", err)
		}
		sourceID = source.ID

		target, err := r.Carts.FindActive(ctx, domain.Identity{UserID: userID}, true)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			if err := r.Carts.SetOwner(ctx, source.ID, userID); err != nil {
				return fmt.Errorf("cart: adopt: %w", err)
			}
			outcome = telemetry.MergeAdopted
			targetID = source.ID
			return s.touch(ctx, r, source)
		case err != nil:
			return fmt.Errorf("cart: merge target: %w", err)
		}
		targetID = target.ID

		if target.ID == source.ID {
			outcome = telemetry.MergeSame
			return s.touch(ctx, r, target)
		}
		if err := s.mergeInto(ctx, r, source, target); err != nil {
			return err
		}
		outcome = telemetry.MergeMerged
		return s.touch(ctx, r, target)
	})
	if err != nil {
		return err
	}

	s.metrics.CartMerged(outcome)
	if outcome != telemetry.MergeNoop {
		s.logger.Info("cart merged on login",
			zap.String("user_id", userID),
			zap.String("outcome", outcome),
			zap.String("source_cart_id", sourceID),
			zap.String("target_cart_id", targetID),
		)
	}
	return nil
}

func (s *Service) mergeInto(ctx context.Context, r store.Repos, source, target *domain.Cart) error {
	dropped, err := r.Carts.DeleteLinesNotInCurrency(ctx, source.ID, target.Currency)
	if err != nil {
		return fmt.Errorf("cart: drop foreign lines: %w", err)
	}
	if dropped > 0 {
		s.logger.Warn("dropped lines in a foreign currency during merge",
			zap.String("source_cart_id", source.ID),
			zap.String("currency", target.Currency),
			zap.Int64("lines", dropped),
		)
	}

	sourceLines, err := r.Carts.LockLines(ctx, source.ID)
	if err != nil {
		return err
	}
	targetLines, err := r.Carts.LockLines(ctx, target.ID)
	if err != nil {
		return err
	}
	byProduct := make(map[string]domain.CartItem, len(targetLines))
	for _, l := range targetLines {
		byProduct[l.ProductID] = l
	}

	for _, l := range sourceLines {
		if !money.SameCurrency(l.Currency, target.Currency) {
			continue
		}
		existing, ok := byProduct[l.ProductID]
		if !ok {
			if err := r.Carts.MoveLine(ctx, l.ID, target.ID); err != nil {
				return fmt.Errorf("cart: move line: %w", err)
			}
			continue
		}
		sum := domain.MaxLineQuantity
		if l.Quantity <= domain.MaxLineQuantity-existing.Quantity {
			sum = existing.Quantity + l.Quantity
		} else {
			s.logger.Warn("merged quantity capped",
				zap.String("target_cart_id", target.ID),
				zap.String("product_id", l.ProductID),
				zap.Int("target_quantity", existing.Quantity),
				zap.Int("source_quantity", l.Quantity),
			)
		}
		updated, err := r.Carts.UpdateLineQuantity(ctx, existing.ID, sum)
		if err != nil {
			return fmt.Errorf("cart: sum line: %w", err)
		}
		byProduct[l.ProductID] = *updated
		if err := r.Carts.DeleteLine(ctx, l.ID); err != nil {
			return fmt.Errorf("cart: delete merged line: %w", err)
		}
	}

	if target.CouponCode == "" && source.CouponCode != "" {
		if err := r.Carts.SetCoupon(ctx, target.ID, source.CouponCode); err != nil {
			return fmt.Errorf("cart: adopt coupon: %w", err)
		}
	}
	if err := r.Carts.SetStatus(ctx, source.ID, domain.CartAbandoned); err != nil {
		return fmt.Errorf("cart: abandon source: %w", err)
	}
	return nil
}
