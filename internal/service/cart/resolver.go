package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/domain"
	cartrepo "storefront/internal/repository/cart"
	"storefront/internal/store"

	"go.uber.org/zap"
)

// resolveAttempts bounds the lock-read-or-create loop. A second attempt is
// enough to observe the row a concurrent request committed.
const resolveAttempts = 2

// ResolveActiveCart returns the single active cart for identity, creating it
// when none exists. Concurrent calls for the same identity converge on one row.
func (s *Service) ResolveActiveCart(ctx context.Context, identity domain.Identity) (*domain.Cart, error) {
	identity = domain.Identity{
		UserID:     strings.TrimSpace(identity.UserID),
		SessionKey: strings.TrimSpace(identity.SessionKey),
	}
	if identity.IsZero() {
		return nil, domain.ErrIdentityRequired
	}

	for attempt := 1; attempt <= resolveAttempts; attempt++ {
		cart, created, err := s.lockOrCreate(ctx, identity)
		if err == nil {
			if created {
				s.metrics.CartCreated(identityLabel(identity))
				s.logger.Info("cart created",
					zap.String("cart_id", cart.ID),
					zap.String("identity", identityLabel(identity)),
				)
			}
			return cart, nil
		}
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return nil, fmt.Errorf("cart: resolve: %w", err)
		}
		s.logger.Debug("active cart created concurrently, retrying", zap.Int("attempt", attempt))
	}

	repos := s.store.Repos()
	cart, err := repos.Carts.FindActive(ctx, identity, false)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("could not obtain active cart", zap.String("identity", identityLabel(identity)))
			return nil, domain.ErrCartUnavailable
		}
		return nil, fmt.Errorf("cart: resolve: %w", err)
	}
	exp := s.expiry()
	if err := repos.Carts.Touch(ctx, cart.ID, &exp); err != nil {
		return nil, fmt.Errorf("cart: refresh expiry: %w", err)
	}
	cart.ExpiresAt = &exp
	return cart, nil
}

func (s *Service) lockOrCreate(ctx context.Context, identity domain.Identity) (*domain.Cart, bool, error) {
	var (
		cart    *domain.Cart
		created bool
	)
	err := s.store.InTx(ctx, func(r store.Repos) error {
		existing, err := r.Carts.FindActive(ctx, identity, true)
		if err == nil {
			cart = existing
			return s.touch(ctx, r, cart)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		exp := s.expiry()
		in := cartrepo.CreateCartInput{Currency: s.currency, ExpiresAt: &exp}
		if identity.Authenticated() {
			uid := identity.UserID
			in.UserID = &uid
		} else {
			key := identity.SessionKey
			in.SessionKey = &key
		}
		cart, err = r.Carts.Create(ctx, in)
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return cart, created, nil
}

func identityLabel(identity domain.Identity) string {
	if identity.Authenticated() {
		return "user"
	}
	return "session"
}
