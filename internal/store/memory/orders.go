package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"time"

	"storefront/internal/domain"
)

type orderRepo struct{ h handle }

func (r *orderRepo) Create(_ context.Context, o domain.Order) (*domain.Order, error) {
	defer r.h.lock()()
	st := r.h.state()
	for _, rec := range st.orders {
		if rec.order.Number == o.Number {
			return nil, domain.ErrAlreadyExists
		}
	}
	if o.Subtotal < 0 || o.Discount < 0 || o.Shipping < 0 || o.Tax < 0 || o.Total < 0 {
		return nil, fmt.Errorf("memory: order %s violates non-negative amount checks", o.Number)
	}
	o.ID = newID()
	o.CreatedAt = r.h.now()
	o.ShippingAddress = cloneAddress(o.ShippingAddress)
	o.BillingAddress = cloneAddress(o.BillingAddress)
	o.Items = nil
	st.orders[o.ID] = orderRec{order: o, seq: st.next()}
	return &o, nil
}

func (r *orderRepo) InsertItems(_ context.Context, orderID string, items []domain.OrderItem) error {
	defer r.h.lock()()
	st := r.h.state()
	if _, ok := st.orders[orderID]; !ok {
		return fmt.Errorf("memory: order %s does not exist", orderID)
	}
	stored := append([]domain.OrderItem(nil), st.orderItems[orderID]...)
	for _, it := range items {
		it.ID = newID()
		it.OrderID = orderID
		stored = append(stored, it)
	}
	st.orderItems[orderID] = stored
	return nil
}

func (r *orderRepo) InsertCoupon(_ context.Context, oc domain.OrderCoupon) error {
	defer r.h.lock()()
	st := r.h.state()
	if oc.DiscountedAmount < 1 {
		return fmt.Errorf("memory: order coupon discount must be >= 1, got %d", oc.DiscountedAmount)
	}
	for _, existing := range st.orderCoupons {
		if existing.OrderID == oc.OrderID && existing.CouponID == oc.CouponID {
			return domain.ErrAlreadyExists
		}
	}
	oc.ID = newID()
	st.orderCoupons[oc.ID] = oc
	return nil
}

func (r *orderRepo) GetByNumber(_ context.Context, number string) (*domain.Order, error) {
	defer r.h.lock()()
	st := r.h.state()
	for _, rec := range st.orders {
		if rec.order.Number == number {
			o := rec.order
			o.ShippingAddress = cloneAddress(o.ShippingAddress)
			o.BillingAddress = cloneAddress(o.BillingAddress)
			o.Items = append([]domain.OrderItem(nil), st.orderItems[o.ID]...)
			return &o, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *orderRepo) LockByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return r.GetByNumber(ctx, number)
}

func (r *orderRepo) ListForUser(_ context.Context, userID string, limit int) ([]domain.Order, error) {
	defer r.h.lock()()
	if limit <= 0 {
		limit = 20
	}
	var recs []orderRec
	for _, rec := range r.h.state().orders {
		if rec.order.UserID != nil && *rec.order.UserID == userID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq > recs[j].seq })
	if len(recs) > limit {
		recs = recs[:limit]
	}
	out := make([]domain.Order, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.order)
	}
	return out, nil
}

func (r *orderRepo) SetStatus(_ context.Context, id string, status domain.OrderStatus, canceledAt *time.Time) error {
	defer r.h.lock()()
	st := r.h.state()
	rec, ok := st.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	rec.order.Status = status
	if canceledAt != nil {
		rec.order.CanceledAt = copyTime(canceledAt)
	}
	st.orders[id] = rec
	return nil
}

// OrderCoupons returns the coupon rows recorded for an order.
func (s *Store) OrderCoupons(orderID string) []domain.OrderCoupon {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.OrderCoupon
	for _, oc := range s.st.orderCoupons {
		if oc.OrderID == orderID {
			out = append(out, oc)
		}
	}
	return out
}

func cloneAddress(a domain.AddressSnapshot) domain.AddressSnapshot {
	if a == nil {
		return domain.AddressSnapshot{}
	}
	return maps.Clone(a)
}
