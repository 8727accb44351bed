package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/logging"
	"storefront/internal/store"
	"storefront/internal/telemetry"

	"go.uber.org/zap"
)

const defaultListLimit = 20

// Service exposes placed orders to their owners.
type Service struct {
	store   store.Store
	logger  *zap.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(st store.Store, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{store: st, logger: logging.OrNop(logger), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the order when it belongs to userID.
func (s *Service) Get(ctx context.Context, number, userID string) (*domain.Order, error) {
	o, err := s.store.Repos().Orders.GetByNumber(ctx, number)
	if err != nil {
		return nil, orderErr(err)
	}
	if !ownedBy(o, userID) {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	if userID == "" {
		return nil, domain.ErrIdentityRequired
	}
	if limit <= 0 || limit > 100 {
		limit = defaultListLimit
	}
	return s.store.Repos().Orders.ListForUser(ctx, userID, limit)
}

// Cancel cancels a pending or paid order and puts its items back in stock.
// Items whose product has since been deleted are skipped.
func (s *Service) Cancel(ctx context.Context, number, userID string) (*domain.Order, error) {
	var canceled *domain.Order
	err := s.store.InTx(ctx, func(r store.Repos) error {
		o, err := r.Orders.LockByNumber(ctx, number)
		if err != nil {
			return orderErr(err)
		}
		if !ownedBy(o, userID) {
			return domain.ErrOrderNotFound
		}
		if !o.Cancelable() {
			return domain.Wrapf(domain.ErrOrderNotCancelable, "order.cancel", "Order %s is %s and can no longer be canceled", o.Number, o.Status)
		}

		for _, it := range o.Items {
			if it.ProductID == nil {
				continue
			}
			err := r.Products.IncrementStock(ctx, *it.ProductID, it.Quantity)
			if errors.Is(err, domain.ErrNotFound) {
				s.logger.Warn("product gone, stock not restored",
					zap.String("order_number", o.Number),
					zap.String("product_id", *it.ProductID),
				)
				continue
			}
			if err != nil {
				return fmt.Errorf("order: restore stock: %w", err)
			}
		}

		at := s.now()
		if err := r.Orders.SetStatus(ctx, o.ID, domain.OrderCanceled, &at); err != nil {
			return fmt.Errorf("order: cancel: %w", err)
		}
		o.Status = domain.OrderCanceled
		o.CanceledAt = &at
		canceled = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderCanceled()
	s.logger.Info("order canceled", zap.String("order_number", canceled.Number))
	return canceled, nil
}

func ownedBy(o *domain.Order, userID string) bool {
	return userID != "" && o.UserID != nil && *o.UserID == userID
}

func orderErr(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrOrderNotFound
	}
	return err
}
