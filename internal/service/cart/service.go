package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/logging"
	"storefront/internal/money"
	couponsvc "storefront/internal/service/coupon"
	"storefront/internal/store"
	"storefront/internal/telemetry"

	"go.uber.org/zap"
)

const (
	defaultCurrency = "JPY"
	defaultTTL      = 14 * 24 * time.Hour
)

// Config controls cart creation defaults.
type Config struct {
	DefaultCurrency string
	TTL             time.Duration
}

// Service owns the active-cart lifecycle: identity resolution, line
// mutation, coupons, totals and the login merge.
type Service struct {
	store    store.Store
	coupons  *couponsvc.Validator
	logger   *zap.Logger
	metrics  *telemetry.Metrics
	currency string
	ttl      time.Duration
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(st store.Store, coupons *couponsvc.Validator, cfg Config, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:    st,
		coupons:  coupons,
		logger:   logging.OrNop(logger),
		currency: money.NormalizeCurrency(cfg.DefaultCurrency),
		ttl:      cfg.TTL,
		now:      time.Now,
	}
	if !money.ValidCurrency(s.currency) {
		s.currency = defaultCurrency
	}
	if s.ttl <= 0 {
		s.ttl = defaultTTL
	}
	if s.coupons == nil {
		s.coupons = couponsvc.NewValidator(logger)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetCart returns the cart with its lines in insertion order.
func (s *Service) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	repos := s.store.Repos()
	cart, err := repos.Carts.GetByID(ctx, cartID)
	if err != nil {
		return nil, cartErr(err)
	}
	lines, err := repos.Carts.Lines(ctx, cartID)
	if err != nil {
		return nil, err
	}
	cart.Items = lines
	return cart, nil
}

func (s *Service) expiry() time.Time {
	return s.now().Add(s.ttl)
}

// touch slides the cart expiry forward.
func (s *Service) touch(ctx context.Context, r store.Repos, cart *domain.Cart) error {
	exp := s.expiry()
	if err := r.Carts.Touch(ctx, cart.ID, &exp); err != nil {
		return fmt.Errorf("cart: refresh expiry: %w", err)
	}
	cart.ExpiresAt = &exp
	return nil
}

// lockActive locks the cart row and rejects carts that are no longer active.
func lockActive(ctx context.Context, r store.Repos, cartID string) (*domain.Cart, error) {
	cart, err := r.Carts.LockByID(ctx, cartID)
	if err != nil {
		return nil, cartErr(err)
	}
	if !cart.IsActive() {
		return nil, domain.Wrapf(domain.ErrCartNotActive, "cart.lock", "Cart is %s", cart.Status)
	}
	return cart, nil
}

func cartErr(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrCartNotFound
	}
	return err
}
