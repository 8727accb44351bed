package memory

import (
	"context"
	"strings"
	"time"

	"storefront/internal/domain"
	tokenrepo "storefront/internal/repository/token"
)

type customerRepo struct{ h handle }

func (r *customerRepo) Create(_ context.Context, c domain.Customer) (*domain.Customer, error) {
	defer r.h.lock()()
	st := r.h.state()
	c.Email = strings.ToLower(c.Email)
	for _, existing := range st.customers {
		if existing.Email == c.Email {
			return nil, domain.ErrAlreadyExists
		}
	}
	c.ID = newID()
	c.CreatedAt = r.h.now()
	st.customers[c.ID] = c
	return &c, nil
}

func (r *customerRepo) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	defer r.h.lock()()
	email = strings.ToLower(email)
	for _, c := range r.h.state().customers {
		if c.Email == email {
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *customerRepo) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	defer r.h.lock()()
	c, ok := r.h.state().customers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

type tokenRepo struct{ h handle }

func (r *tokenRepo) Create(_ context.Context, t tokenrepo.Token) error {
	defer r.h.lock()()
	st := r.h.state()
	if _, ok := st.tokens[t.Token]; ok {
		return domain.ErrAlreadyExists
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.h.now()
	}
	st.tokens[t.Token] = t
	return nil
}

func (r *tokenRepo) Get(_ context.Context, token string) (*tokenrepo.Token, error) {
	defer r.h.lock()()
	t, ok := r.h.state().tokens[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (r *tokenRepo) Delete(_ context.Context, token string) error {
	defer r.h.lock()()
	st := r.h.state()
	if _, ok := st.tokens[token]; !ok {
		return domain.ErrNotFound
	}
	delete(st.tokens, token)
	return nil
}

func (r *tokenRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	defer r.h.lock()()
	st := r.h.state()
	var n int64
	for key, t := range st.tokens {
		if t.Expired(now) {
			delete(st.tokens, key)
			n++
		}
	}
	return n, nil
}
