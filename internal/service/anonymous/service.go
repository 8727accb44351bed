// Package anonymous provisions session keys for visitors who have not logged
// in. The session remembers the cart the visitor was shopping with so a later
// login can merge it. Sessions are persisted through the session repository,
// so they survive restarts and are shared between replicas.
package anonymous

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain"
	sessionrepo "storefront/internal/repository/session"

	"github.com/google/uuid"
)

const issueAttempts = 3

var ErrInvalidSession = domain.Errorf(domain.EUNAUTHORIZED, "", "Unknown or expired session")

// Session is the server-side state behind a session cookie.
type Session struct {
	Key       string
	CartID    string
	ExpiresAt time.Time
}

type Service struct {
	repo sessionrepo.Repository
	ttl  time.Duration
	now  func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(repo sessionrepo.Repository, ttl time.Duration, opts ...Option) *Service {
	if ttl <= 0 {
		ttl = 14 * 24 * time.Hour
	}
	s := &Service{repo: repo, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue starts a new anonymous session.
func (s *Service) Issue(ctx context.Context) (Session, error) {
	for range issueAttempts {
		row := sessionrepo.Session{
			Key:       uuid.NewString(),
			ExpiresAt: s.now().Add(s.ttl),
		}
		err := s.repo.Create(ctx, row)
		if err == nil {
			return fromRow(row), nil
		}
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return Session{}, fmt.Errorf("anonymous: issue session: %w", err)
		}
	}
	return Session{}, errors.New("anonymous: could not allocate a session key")
}

// Lookup returns the live session for key and extends its lifetime.
func (s *Service) Lookup(ctx context.Context, key string) (Session, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Session{}, ErrInvalidSession
	}
	row, err := s.repo.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return Session{}, ErrInvalidSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("anonymous: lookup: %w", err)
	}
	now := s.now()
	if row.Expired(now) {
		_ = s.repo.Delete(ctx, key)
		return Session{}, ErrInvalidSession
	}
	row.ExpiresAt = now.Add(s.ttl)
	if err := s.repo.Touch(ctx, key, row.ExpiresAt); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Session{}, ErrInvalidSession
		}
		return Session{}, fmt.Errorf("anonymous: touch: %w", err)
	}
	return fromRow(*row), nil
}

// Ensure returns the session for key, or a fresh one when key is unknown.
func (s *Service) Ensure(ctx context.Context, key string) (sess Session, created bool, err error) {
	sess, err = s.Lookup(ctx, key)
	if err == nil {
		return sess, false, nil
	}
	if !errors.Is(err, ErrInvalidSession) {
		return Session{}, false, err
	}
	sess, err = s.Issue(ctx)
	return sess, err == nil, err
}

// RememberCart records the cart the session is shopping with.
func (s *Service) RememberCart(ctx context.Context, key, cartID string) error {
	if _, err := s.Lookup(ctx, key); err != nil {
		return err
	}
	err := s.repo.SetCart(ctx, strings.TrimSpace(key), cartID)
	if errors.Is(err, domain.ErrNotFound) {
		return ErrInvalidSession
	}
	return err
}

// PreLogin captures the anonymous state of key ahead of a login.
func (s *Service) PreLogin(ctx context.Context, key string) domain.PreLogin {
	pre := domain.PreLogin{CookieSessionKey: strings.TrimSpace(key)}
	if sess, err := s.Lookup(ctx, key); err == nil {
		pre.CartID = sess.CartID
	}
	return pre
}

// Rotate replaces key with a new session key after a privilege change. The
// remembered cart is not carried over.
func (s *Service) Rotate(ctx context.Context, key string) (Session, error) {
	if key = strings.TrimSpace(key); key != "" {
		if err := s.repo.Delete(ctx, key); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return Session{}, fmt.Errorf("anonymous: rotate: %w", err)
		}
	}
	return s.Issue(ctx)
}

// RotateKey is Rotate reduced to the new key.
func (s *Service) RotateKey(ctx context.Context, key string) (string, error) {
	sess, err := s.Rotate(ctx, key)
	if err != nil {
		return "", err
	}
	return sess.Key, nil
}

func (s *Service) TTLSeconds() int {
	return int(s.ttl.Seconds())
}

// Sweep removes expired sessions.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("anonymous: sweep: %w", err)
	}
	return n, nil
}

func fromRow(row sessionrepo.Session) Session {
	return Session{Key: row.Key, CartID: row.CartID, ExpiresAt: row.ExpiresAt}
}
