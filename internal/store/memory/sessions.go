package memory

import (
	"context"
	"time"

	"storefront/internal/domain"
	sessionrepo "storefront/internal/repository/session"
)

type sessionRepo struct{ h handle }

func (r *sessionRepo) Create(_ context.Context, s sessionrepo.Session) error {
	defer r.h.lock()()
	st := r.h.state()
	if _, ok := st.sessions[s.Key]; ok {
		return domain.ErrAlreadyExists
	}
	s.CreatedAt = r.h.now()
	st.sessions[s.Key] = s
	return nil
}

func (r *sessionRepo) Get(_ context.Context, key string) (*sessionrepo.Session, error) {
	defer r.h.lock()()
	s, ok := r.h.state().sessions[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (r *sessionRepo) Touch(_ context.Context, key string, expiresAt time.Time) error {
	return r.update(key, func(s *sessionrepo.Session) { s.ExpiresAt = expiresAt })
}

func (r *sessionRepo) SetCart(_ context.Context, key, cartID string) error {
	return r.update(key, func(s *sessionrepo.Session) { s.CartID = cartID })
}

func (r *sessionRepo) Delete(_ context.Context, key string) error {
	defer r.h.lock()()
	st := r.h.state()
	if _, ok := st.sessions[key]; !ok {
		return domain.ErrNotFound
	}
	delete(st.sessions, key)
	return nil
}

func (r *sessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	defer r.h.lock()()
	st := r.h.state()
	var n int64
	for key, s := range st.sessions {
		if s.Expired(now) {
			delete(st.sessions, key)
			n++
		}
	}
	return n, nil
}

func (r *sessionRepo) update(key string, fn func(*sessionrepo.Session)) error {
	defer r.h.lock()()
	st := r.h.state()
	s, ok := st.sessions[key]
	if !ok {
		return domain.ErrNotFound
	}
	fn(&s)
	st.sessions[key] = s
	return nil
}
