package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"storefront/internal/domain"
	cartrepo "storefront/internal/repository/cart"
)

type cartRepo struct{ h handle }

func (r *cartRepo) GetByID(_ context.Context, id string) (*domain.Cart, error) {
	defer r.h.lock()()
	c, ok := r.h.state().carts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r *cartRepo) LockByID(ctx context.Context, id string) (*domain.Cart, error) {
	return r.GetByID(ctx, id)
}

func (r *cartRepo) FindActive(_ context.Context, identity domain.Identity, _ bool) (*domain.Cart, error) {
	defer r.h.lock()()
	for _, c := range r.h.state().carts {
		if c.Status != domain.CartActive {
			continue
		}
		if identity.Authenticated() {
			if c.UserID != nil && *c.UserID == identity.UserID {
				return &c, nil
			}
			continue
		}
		if c.SessionKey != nil && *c.SessionKey == identity.SessionKey {
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *cartRepo) LockMergeCandidate(_ context.Context, cartID string, sessionKeys []string) (*domain.Cart, error) {
	defer r.h.lock()()
	var best *domain.Cart
	for _, c := range r.h.state().carts {
		if c.Status != domain.CartActive || c.UserID != nil {
			continue
		}
		if cartID != "" {
			if c.ID != cartID {
				continue
			}
		} else if c.SessionKey == nil || !slices.Contains(sessionKeys, *c.SessionKey) {
			continue
		}
		if best == nil || c.UpdatedAt.After(best.UpdatedAt) || (c.UpdatedAt.Equal(best.UpdatedAt) && c.ID > best.ID) {
			found := c
			best = &found
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	return best, nil
}

func (r *cartRepo) Create(_ context.Context, in cartrepo.CreateCartInput) (*domain.Cart, error) {
	defer r.h.lock()()
	if in.UserID == nil && in.SessionKey == nil {
		return nil, fmt.Errorf("memory: cart requires user or session key")
	}
	st := r.h.state()
	if conflictsActive(st, "", in.UserID, in.SessionKey) {
		return nil, domain.ErrAlreadyExists
	}
	now := r.h.now()
	c := domain.Cart{
		ID:         newID(),
		UserID:     copyStr(in.UserID),
		SessionKey: copyStr(in.SessionKey),
		Status:     domain.CartActive,
		Currency:   in.Currency,
		ExpiresAt:  copyTime(in.ExpiresAt),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	st.carts[c.ID] = c
	return &c, nil
}

func (r *cartRepo) Touch(_ context.Context, id string, expiresAt *time.Time) error {
	return r.update(id, func(c *domain.Cart) error {
		c.ExpiresAt = copyTime(expiresAt)
		return nil
	})
}

func (r *cartRepo) SetCoupon(_ context.Context, id, code string) error {
	return r.update(id, func(c *domain.Cart) error {
		c.CouponCode = code
		return nil
	})
}

func (r *cartRepo) SetOwner(_ context.Context, id, userID string) error {
	return r.update(id, func(c *domain.Cart) error {
		uid := userID
		if c.Status == domain.CartActive && conflictsActive(r.h.state(), id, &uid, nil) {
			return domain.ErrAlreadyExists
		}
		c.UserID = &uid
		c.SessionKey = nil
		return nil
	})
}

func (r *cartRepo) SetStatus(_ context.Context, id string, status domain.CartStatus) error {
	return r.update(id, func(c *domain.Cart) error {
		if status == domain.CartActive && c.Status != domain.CartActive && conflictsActive(r.h.state(), id, c.UserID, c.SessionKey) {
			return domain.ErrAlreadyExists
		}
		c.Status = status
		return nil
	})
}

func (r *cartRepo) update(id string, fn func(*domain.Cart) error) error {
	defer r.h.lock()()
	st := r.h.state()
	c, ok := st.carts[id]
	if !ok {
		return domain.ErrNotFound
	}
	if err := fn(&c); err != nil {
		return err
	}
	c.UpdatedAt = r.h.now()
	st.carts[id] = c
	return nil
}

func (r *cartRepo) Lines(_ context.Context, cartID string) ([]domain.CartItem, error) {
	defer r.h.lock()()
	return linesOf(r.h.state(), cartID), nil
}

func (r *cartRepo) LockLines(ctx context.Context, cartID string) ([]domain.CartItem, error) {
	return r.Lines(ctx, cartID)
}

func (r *cartRepo) LockLine(_ context.Context, cartID, productID string) (*domain.CartItem, error) {
	defer r.h.lock()()
	if l, ok := findLine(r.h.state(), cartID, productID); ok {
		return &l.item, nil
	}
	return nil, domain.ErrNotFound
}

func (r *cartRepo) InsertLine(_ context.Context, in cartrepo.NewLine) (*domain.CartItem, error) {
	defer r.h.lock()()
	st := r.h.state()
	if in.Quantity < 1 {
		return nil, fmt.Errorf("memory: cart item quantity must be >= 1, got %d", in.Quantity)
	}
	if _, ok := st.carts[in.CartID]; !ok {
		return nil, fmt.Errorf("memory: cart %s does not exist", in.CartID)
	}
	if _, ok := findLine(st, in.CartID, in.ProductID); ok {
		return nil, domain.ErrAlreadyExists
	}
	now := r.h.now()
	it := domain.CartItem{
		ID:           newID(),
		CartID:       in.CartID,
		ProductID:    in.ProductID,
		ProductTitle: in.ProductTitle,
		ProductSlug:  in.ProductSlug,
		Quantity:     in.Quantity,
		UnitPrice:    in.UnitPrice,
		Currency:     in.Currency,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	st.lines[it.ID] = cartLine{item: it, seq: st.next()}
	return &it, nil
}

func (r *cartRepo) UpdateLineQuantity(_ context.Context, lineID string, quantity int) (*domain.CartItem, error) {
	defer r.h.lock()()
	st := r.h.state()
	l, ok := st.lines[lineID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if quantity < 1 {
		return nil, fmt.Errorf("memory: cart item quantity must be >= 1, got %d", quantity)
	}
	l.item.Quantity = quantity
	l.item.UpdatedAt = r.h.now()
	st.lines[lineID] = l
	return &l.item, nil
}

func (r *cartRepo) MoveLine(_ context.Context, lineID, targetCartID string) error {
	defer r.h.lock()()
	st := r.h.state()
	l, ok := st.lines[lineID]
	if !ok {
		return domain.ErrNotFound
	}
	if _, ok := findLine(st, targetCartID, l.item.ProductID); ok {
		return domain.ErrAlreadyExists
	}
	l.item.CartID = targetCartID
	l.item.UpdatedAt = r.h.now()
	st.lines[lineID] = l
	return nil
}

func (r *cartRepo) DeleteLine(_ context.Context, lineID string) error {
	defer r.h.lock()()
	st := r.h.state()
	if _, ok := st.lines[lineID]; !ok {
		return domain.ErrNotFound
	}
	delete(st.lines, lineID)
	return nil
}

func (r *cartRepo) DeleteLines(_ context.Context, cartID string) (int64, error) {
	return r.deleteWhere(func(it domain.CartItem) bool { return it.CartID == cartID })
}

func (r *cartRepo) DeleteLinesNotInCurrency(_ context.Context, cartID, currency string) (int64, error) {
	return r.deleteWhere(func(it domain.CartItem) bool { return it.CartID == cartID && it.Currency != currency })
}

func (r *cartRepo) deleteWhere(match func(domain.CartItem) bool) (int64, error) {
	defer r.h.lock()()
	st := r.h.state()
	var n int64
	for id, l := range st.lines {
		if match(l.item) {
			delete(st.lines, id)
			n++
		}
	}
	return n, nil
}

func linesOf(st *state, cartID string) []domain.CartItem {
	var recs []cartLine
	for _, l := range st.lines {
		if l.item.CartID == cartID {
			recs = append(recs, l)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })
	out := make([]domain.CartItem, 0, len(recs))
	for _, l := range recs {
		out = append(out, l.item)
	}
	return out
}

func findLine(st *state, cartID, productID string) (cartLine, bool) {
	for _, l := range st.lines {
		if l.item.CartID == cartID && l.item.ProductID == productID {
			return l, true
		}
	}
	return cartLine{}, false
}

// conflictsActive mirrors the partial unique indexes on active carts.
func conflictsActive(st *state, selfID string, userID, sessionKey *string) bool {
	for id, c := range st.carts {
		if id == selfID || c.Status != domain.CartActive {
			continue
		}
		if userID != nil && c.UserID != nil && *c.UserID == *userID {
			return true
		}
		if sessionKey != nil && c.SessionKey != nil && *c.SessionKey == *sessionKey {
			return true
		}
	}
	return false
}

func copyStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
