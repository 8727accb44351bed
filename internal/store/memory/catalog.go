package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"storefront/internal/domain"
	"storefront/internal/money"
)

type productRepo struct{ h handle }

func (r *productRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	defer r.h.lock()()
	rec, ok := r.h.state().products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec.product, nil
}

func (r *productRepo) ListActive(_ context.Context, limit, offset int) ([]domain.Product, error) {
	defer r.h.lock()()
	if limit <= 0 {
		limit = 50
	}
	var recs []productRec
	for _, rec := range r.h.state().products {
		if rec.product.IsActive {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq > recs[j].seq })
	if offset >= len(recs) {
		return nil, nil
	}
	recs = recs[offset:]
	if len(recs) > limit {
		recs = recs[:limit]
	}
	out := make([]domain.Product, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.product)
	}
	return out, nil
}

func (r *productRepo) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	defer r.h.lock()()
	st := r.h.state()
	if p.StockQuantity < 0 || p.Price < 0 {
		return nil, fmt.Errorf("memory: product %q violates non-negative checks", p.Slug)
	}
	for id, rec := range st.products {
		if rec.product.Slug != p.Slug {
			continue
		}
		if p.ID != "" && p.ID != id {
			return nil, fmt.Errorf("memory: id mismatch for slug=%s existing_id=%s import_id=%s", p.Slug, id, p.ID)
		}
		p.ID = id
		p.CreatedAt = rec.product.CreatedAt
		rec.product = p
		st.products[id] = rec
		return &p, nil
	}
	if p.ID == "" {
		p.ID = newID()
	} else if _, taken := st.products[p.ID]; taken {
		return nil, domain.ErrAlreadyExists
	}
	p.CreatedAt = r.h.now()
	st.products[p.ID] = productRec{product: p, seq: st.next()}
	return &p, nil
}

func (r *productRepo) DecrementStock(_ context.Context, id string, qty int) (int64, error) {
	defer r.h.lock()()
	st := r.h.state()
	rec, ok := st.products[id]
	if !ok || rec.product.StockQuantity < qty {
		return 0, nil
	}
	rec.product.StockQuantity -= qty
	st.products[id] = rec
	return 1, nil
}

func (r *productRepo) IncrementStock(_ context.Context, id string, qty int) error {
	defer r.h.lock()()
	st := r.h.state()
	rec, ok := st.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	rec.product.StockQuantity += qty
	st.products[id] = rec
	return nil
}

type couponRepo struct{ h handle }

var errCouponDiscountType = errors.New("memory: coupon must set exactly one of percent_off or amount_off")

func (r *couponRepo) GetActiveByCode(_ context.Context, code string) (*domain.Coupon, error) {
	defer r.h.lock()()
	c, ok := r.h.state().coupons[domain.NormalizeCouponCode(code)]
	if !ok || !c.Active {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r *couponRepo) Upsert(_ context.Context, c domain.Coupon) (*domain.Coupon, error) {
	defer r.h.lock()()
	if !c.WellFormed() {
		return nil, errCouponDiscountType
	}
	st := r.h.state()
	c.Code = domain.NormalizeCouponCode(c.Code)
	c.Currency = money.NormalizeCurrency(c.Currency)
	if existing, ok := st.coupons[c.Code]; ok {
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
		c.TimesRedeemed = existing.TimesRedeemed
	} else {
		c.ID = newID()
		c.CreatedAt = r.h.now()
	}
	st.coupons[c.Code] = c
	return &c, nil
}

// PutCoupon stores c verbatim, bypassing the discount type check. Tests use
// it to simulate rows that predate the constraint.
func (s *Store) PutCoupon(c domain.Coupon) domain.Coupon {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Code = domain.NormalizeCouponCode(c.Code)
	if c.ID == "" {
		c.ID = newID()
	}
	s.st.coupons[c.Code] = c
	return c
}
