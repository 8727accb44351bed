// Package token stores opaque bearer tokens issued to customers.
package token

import (
	"context"
	"time"
)

// Kind separates short-lived access tokens from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

type Token struct {
	Token      string
	CustomerID string
	Kind       Kind
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// Expired reports whether the token is no longer valid at now.
func (t Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

type Repository interface {
	Create(ctx context.Context, token Token) error
	Get(ctx context.Context, token string) (*Token, error)
	// Delete returns domain.ErrNotFound when the token does not exist.
	Delete(ctx context.Context, token string) error
	// DeleteExpired removes every token that expired at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
