// Package checkout converts an active cart into an order in a single
// transaction: stock is reserved, totals are fixed and the cart is closed.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/address"
	"storefront/internal/domain"
	"storefront/internal/logging"
	"storefront/internal/money"
	couponsvc "storefront/internal/service/coupon"
	"storefront/internal/store"
	"storefront/internal/telemetry"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const orderNumberAttempts = 5

// ConvertInput carries the already normalized checkout details.
type ConvertInput struct {
	Email           string
	ShippingAddress domain.AddressSnapshot
	// BillingAddress defaults to the shipping address when nil.
	BillingAddress domain.AddressSnapshot
	ShippingAmount int64
	TaxAmount      int64
}

// FinalizeInput is a checkout request with addresses as submitted by the client.
type FinalizeInput struct {
	Email           string
	ShippingAddress address.Raw
	BillingAddress  *address.Raw
	ShippingAmount  int64
	TaxAmount       int64
}

type Service struct {
	store      store.Store
	coupons    *couponsvc.Validator
	normalizer address.Normalizer
	logger     *zap.Logger
	metrics    *telemetry.Metrics
	now        func() time.Time
	newNumber  func(time.Time) string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithOrderNumbers replaces the order number generator.
func WithOrderNumbers(gen func(time.Time) string) Option {
	return func(s *Service) { s.newNumber = gen }
}

func New(st store.Store, coupons *couponsvc.Validator, normalizer address.Normalizer, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:      st,
		coupons:    coupons,
		normalizer: normalizer,
		logger:     logging.OrNop(logger),
		now:        time.Now,
		newNumber:  OrderNumber,
	}
	if s.coupons == nil {
		s.coupons = couponsvc.NewValidator(logger)
	}
	if s.normalizer == nil {
		s.normalizer = address.NewJPNormalizer()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OrderNumber returns a human readable order number such as ODR-20250301-4F1A2B3C4D5E.
func OrderNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
	return fmt.Sprintf("ODR-%s-%s", at.UTC().Format("20060102"), suffix)
}

// Finalize normalizes the submitted addresses and converts the cart.
func (s *Service) Finalize(ctx context.Context, cartID string, in FinalizeInput) (*domain.Order, error) {
	shipping, err := s.normalizer.Normalize(ctx, in.ShippingAddress)
	if err != nil {
		return nil, err
	}
	var billing domain.AddressSnapshot
	if in.BillingAddress != nil {
		raw := *in.BillingAddress
		if raw.Type == "" {
			raw.Type = "billing"
		}
		billing, err = s.normalizer.Normalize(ctx, raw)
		if err != nil {
			return nil, err
		}
	}
	return s.ConvertCartToOrder(ctx, cartID, ConvertInput{
		Email:           in.Email,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		ShippingAmount:  in.ShippingAmount,
		TaxAmount:       in.TaxAmount,
	})
}

// ConvertCartToOrder reserves stock for every line and records the order.
// Any failure leaves the cart, stock and orders untouched.
func (s *Service) ConvertCartToOrder(ctx context.Context, cartID string, in ConvertInput) (*domain.Order, error) {
	var order *domain.Order
	err := s.store.InTx(ctx, func(r store.Repos) error {
		var err error
		order, err = s.convert(ctx, r, cartID, in)
		return err
	})
	if err != nil {
		outcome := telemetry.CheckoutFailed
		if domain.IsCheckoutError(err) {
			outcome = telemetry.CheckoutRejected
		}
		s.metrics.CheckoutFinished(outcome, reason(err), "", 0)
		s.logger.Info("checkout failed",
			zap.String("cart_id", cartID),
			zap.String("outcome", outcome),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.CheckoutFinished(telemetry.CheckoutSucceeded, "", order.Currency, order.Total)
	s.logger.Info("order placed",
		zap.String("cart_id", cartID),
		zap.String("order_number", order.Number),
		zap.Int64("total", order.Total),
		zap.String("currency", order.Currency),
	)
	return order, nil
}

func (s *Service) convert(ctx context.Context, r store.Repos, cartID string, in ConvertInput) (*domain.Order, error) {
	cart, err := r.Carts.LockByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrCartNotFound
		}
		return nil, err
	}
	if !cart.IsActive() {
		return nil, domain.Wrapf(domain.ErrCartNotActive, "checkout.convert", "Cart is %s", cart.Status)
	}
	lines, err := r.Carts.LockLines(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, domain.ErrCartEmpty
	}
	for _, l := range lines {
		if !money.SameCurrency(l.Currency, cart.Currency) {
			return nil, domain.Wrapf(domain.ErrMixedCurrency, "checkout.convert",
				"Item %s is priced in %s but the cart uses %s", l.ProductSlug, l.Currency, cart.Currency)
		}
	}

	email, err := s.resolveEmail(ctx, r, cart, in.Email)
	if err != nil {
		return nil, err
	}
	shipping := money.NonNegative(in.ShippingAmount)
	tax := money.NonNegative(in.TaxAmount)

	var subtotal int64
	items := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		if err := reserve(ctx, r, l); err != nil {
			return nil, err
		}
		subtotal += l.LineTotal()
		productID := l.ProductID
		items = append(items, domain.OrderItem{
			ProductID:    &productID,
			ProductTitle: l.ProductTitle,
			ProductSlug:  l.ProductSlug,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			Currency:     l.Currency,
		})
	}

	cart.Items = lines
	applied := s.coupons.Resolve(ctx, r.Coupons, cart, subtotal)
	billing := in.BillingAddress
	if billing == nil {
		billing = in.ShippingAddress
	}
	placedAt := s.now()

	header := domain.Order{
		UserID:            cart.UserID,
		Email:             email,
		Status:            domain.OrderPendingPayment,
		FulfillmentStatus: domain.FulfillmentUnfulfilled,
		Currency:          cart.Currency,
		ShippingAddress:   in.ShippingAddress,
		BillingAddress:    billing,
		Subtotal:          subtotal,
		Discount:          applied.Discount,
		Shipping:          shipping,
		Tax:               tax,
		Total:             money.Total(subtotal, applied.Discount, shipping, tax),
		CouponCode:        applied.Code,
		PlacedAt:          &placedAt,
	}
	order, err := s.createOrder(ctx, r, header)
	if err != nil {
		return nil, err
	}

	if err := r.Orders.InsertItems(ctx, order.ID, items); err != nil {
		return nil, fmt.Errorf("checkout: insert items: %w", err)
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	order.Items = items

	if applied.Discount > 0 && applied.Coupon != nil {
		err := r.Orders.InsertCoupon(ctx, domain.OrderCoupon{
			OrderID:          order.ID,
			CouponID:         applied.Coupon.ID,
			DiscountedAmount: applied.Discount,
		})
		if err != nil {
			return nil, fmt.Errorf("checkout: record coupon: %w", err)
		}
	}

	if err := r.Carts.Touch(ctx, cart.ID, nil); err != nil {
		return nil, fmt.Errorf("checkout: clear cart expiry: %w", err)
	}
	if err := r.Carts.SetStatus(ctx, cart.ID, domain.CartConverted); err != nil {
		return nil, fmt.Errorf("checkout: close cart: %w", err)
	}
	return order, nil
}

// reserve checks the product is sellable and takes the line quantity from stock.
func reserve(ctx context.Context, r store.Repos, l domain.CartItem) error {
	product, err := r.Products.GetByID(ctx, l.ProductID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Wrapf(domain.ErrProductUnavailable, "checkout.reserve", "Product unavailable: %s", l.ProductTitle)
	}
	if err != nil {
		return err
	}
	if !product.Purchasable() {
		return domain.Wrapf(domain.ErrProductUnavailable, "checkout.reserve", "Product unavailable: %s", product.Title)
	}
	n, err := r.Products.DecrementStock(ctx, product.ID, l.Quantity)
	if err != nil {
		return fmt.Errorf("checkout: decrement stock: %w", err)
	}
	if n == 0 {
		return domain.Wrapf(domain.ErrInsufficientStock, "checkout.reserve", "Insufficient stock for %s", product.Title)
	}
	return nil
}

func (s *Service) createOrder(ctx context.Context, r store.Repos, header domain.Order) (*domain.Order, error) {
	for attempt := 1; attempt <= orderNumberAttempts; attempt++ {
		header.Number = s.newNumber(s.now())
		order, err := r.Orders.Create(ctx, header)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return nil, fmt.Errorf("checkout: create order: %w", err)
		}
		s.logger.Warn("order number collision", zap.String("number", header.Number), zap.Int("attempt", attempt))
	}
	return nil, fmt.Errorf("checkout: could not allocate an order number after %d attempts", orderNumberAttempts)
}

func (s *Service) resolveEmail(ctx context.Context, r store.Repos, cart *domain.Cart, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" && cart.UserID != nil {
		c, err := r.Customers.GetByID(ctx, *cart.UserID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return "", err
		}
		if c != nil {
			email = c.Email
		}
	}
	if email == "" || !strings.Contains(email, "@") {
		return "", domain.NewValidationError("checkout.convert", map[string]string{
			"email": "a valid email address is required",
		})
	}
	return email, nil
}

var reasons = []struct {
	err   error
	label string
}{
	{domain.ErrCartNotActive, "cart_not_active"},
	{domain.ErrCartEmpty, "cart_empty"},
	{domain.ErrMixedCurrency, "mixed_currency"},
	{domain.ErrProductUnavailable, "product_unavailable"},
	{domain.ErrInsufficientStock, "insufficient_stock"},
	{domain.ErrCartNotFound, "cart_not_found"},
}

func reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.label
		}
	}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return "validation"
	}
	return "error"
}
