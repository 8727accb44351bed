package session

import (
	"context"
	"time"

	"storefront/internal/db"
	"storefront/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

type postgresRepo struct {
	q db.DBTX
}

func NewPostgres(q db.DBTX) Repository {
	return &postgresRepo{q: q}
}

func (r *postgresRepo) Create(ctx context.Context, s Session) error {
	const q = `
INSERT INTO sessions (key, cart_id, expires_at)
VALUES ($1, NULLIF($2, '')::uuid, $3)
`
	_, err := r.q.Exec(ctx, q, s.Key, s.CartID, s.ExpiresAt)
	return db.MapError(err)
}

func (r *postgresRepo) Get(ctx context.Context, key string) (*Session, error) {
	const q = `
SELECT key, COALESCE(cart_id::text, ''), expires_at, created_at
FROM sessions
WHERE key = $1
`
	var s Session
	if err := r.q.QueryRow(ctx, q, key).Scan(&s.Key, &s.CartID, &s.ExpiresAt, &s.CreatedAt); err != nil {
		return nil, db.MapError(err)
	}
	return &s, nil
}

func (r *postgresRepo) Touch(ctx context.Context, key string, expiresAt time.Time) error {
	return oneRow(r.q.Exec(ctx, `UPDATE sessions SET expires_at = $2 WHERE key = $1`, key, expiresAt))
}

func (r *postgresRepo) SetCart(ctx context.Context, key, cartID string) error {
	return oneRow(r.q.Exec(ctx, `UPDATE sessions SET cart_id = NULLIF($2, '')::uuid WHERE key = $1`, key, cartID))
}

func (r *postgresRepo) Delete(ctx context.Context, key string) error {
	return oneRow(r.q.Exec(ctx, `DELETE FROM sessions WHERE key = $1`, key))
}

func (r *postgresRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, db.MapError(err)
	}
	return tag.RowsAffected(), nil
}

func oneRow(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
