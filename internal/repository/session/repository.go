// Package session stores anonymous visitor sessions keyed by the cookie value.
package session

import (
	"context"
	"time"
)

type Session struct {
	Key       string
	CartID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Repository methods that address a single key return domain.ErrNotFound
// when no row matches.
type Repository interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, key string) (*Session, error)
	Touch(ctx context.Context, key string, expiresAt time.Time) error
	SetCart(ctx context.Context, key, cartID string) error
	Delete(ctx context.Context, key string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
