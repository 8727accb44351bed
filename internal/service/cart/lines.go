package cart

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/money"
	cartrepo "storefront/internal/repository/cart"
	"storefront/internal/store"

	"go.uber.org/zap"
)

// SetLineQuantity makes quantity the authoritative amount of productID in the
// cart. A quantity of zero or less removes the line and returns nil.
func (s *Service) SetLineQuantity(ctx context.Context, cartID, productID string, quantity int) (*domain.CartItem, error) {
	var line *domain.CartItem
	err := s.store.InTx(ctx, func(r store.Repos) error {
		var err error
		line, err = s.setLine(ctx, r, cartID, productID, quantity)
		return err
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// UpdateCartQuantity adjusts the line by delta. A zero delta returns the
// current line without writing.
func (s *Service) UpdateCartQuantity(ctx context.Context, cartID, productID string, delta int) (*domain.CartItem, error) {
	var line *domain.CartItem
	err := s.store.InTx(ctx, func(r store.Repos) error {
		if delta == 0 {
			current, err := r.Carts.LockLine(ctx, cartID, productID)
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			line = current
			return err
		}

		current := 0
		existing, err := r.Carts.LockLine(ctx, cartID, productID)
		switch {
		case err == nil:
			current = existing.Quantity
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
		if delta > domain.MaxLineQuantity-current {
			return quantityTooLarge("cart.update_quantity")
		}
		line, err = s.setLine(ctx, r, cartID, productID, current+delta)
		return err
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// AddItem increases the quantity of productID by qty.
func (s *Service) AddItem(ctx context.Context, cartID, productID string, qty int) (*domain.CartItem, error) {
	if qty <= 0 {
		return nil, domain.NewValidationError("cart.add_item", map[string]string{
			"quantity": "must be at least 1",
		})
	}
	return s.UpdateCartQuantity(ctx, cartID, productID, qty)
}

// RemoveItem deletes the line for productID if present.
func (s *Service) RemoveItem(ctx context.Context, cartID, productID string) error {
	_, err := s.SetLineQuantity(ctx, cartID, productID, 0)
	return err
}

// ClearCart removes every line from an active cart.
func (s *Service) ClearCart(ctx context.Context, cartID string) error {
	return s.store.InTx(ctx, func(r store.Repos) error {
		cart, err := lockActive(ctx, r, cartID)
		if err != nil {
			return err
		}
		n, err := r.Carts.DeleteLines(ctx, cartID)
		if err != nil {
			return fmt.Errorf("cart: clear: %w", err)
		}
		s.metrics.LineMutated("clear")
		s.logger.Debug("cart cleared", zap.String("cart_id", cartID), zap.Int64("lines", n))
		return s.touch(ctx, r, cart)
	})
}

func (s *Service) setLine(ctx context.Context, r store.Repos, cartID, productID string, quantity int) (*domain.CartItem, error) {
	if quantity > domain.MaxLineQuantity {
		return nil, quantityTooLarge("cart.set_line")
	}
	cart, err := r.Carts.LockByID(ctx, cartID)
	if err != nil {
		return nil, cartErr(err)
	}
	product, err := r.Products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	if !money.SameCurrency(product.Currency, cart.Currency) {
		return nil, domain.Wrapf(domain.ErrCurrencyMismatch, "cart.set_line",
			"Product %s is priced in %s but the cart uses %s", product.Slug, product.Currency, cart.Currency)
	}
	if !cart.IsActive() {
		return nil, domain.Wrapf(domain.ErrCartNotActive, "cart.set_line", "Cart is %s", cart.Status)
	}

	existing, err := r.Carts.LockLine(ctx, cartID, productID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if errors.Is(err, domain.ErrNotFound) {
		existing = nil
	}

	var line *domain.CartItem
	switch {
	case quantity <= 0:
		if existing == nil {
			return nil, nil
		}
		if err := r.Carts.DeleteLine(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("cart: delete line: %w", err)
		}
		s.metrics.LineMutated("remove")
	case existing == nil:
		line, err = r.Carts.InsertLine(ctx, cartrepo.NewLine{
			CartID:       cartID,
			ProductID:    product.ID,
			ProductTitle: product.Title,
			ProductSlug:  product.Slug,
			Quantity:     quantity,
			UnitPrice:    product.EffectivePrice(),
			Currency:     cart.Currency,
		})
		if err != nil {
			return nil, fmt.Errorf("cart: insert line: %w", err)
		}
		s.metrics.LineMutated("add")
	default:
		line, err = r.Carts.UpdateLineQuantity(ctx, existing.ID, quantity)
		if err != nil {
			return nil, fmt.Errorf("cart: update line: %w", err)
		}
		s.metrics.LineMutated("update")
	}

	if err := s.touch(ctx, r, cart); err != nil {
		return nil, err
	}
	return line, nil
}

func quantityTooLarge(op string) error {
	return domain.NewValidationError(op, map[string]string{
		"quantity": fmt.Sprintf("must be at most %d", domain.MaxLineQuantity),
	})
}
