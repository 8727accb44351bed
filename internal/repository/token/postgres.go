package token

import (
	"context"
	"time"

	"storefront/internal/db"
	"storefront/internal/domain"
)

type postgresRepo struct {
	q db.DBTX
}

func NewPostgres(q db.DBTX) Repository {
	return &postgresRepo{q: q}
}

func (r *postgresRepo) Create(ctx context.Context, t Token) error {
	const q = `
INSERT INTO tokens (token, customer_id, kind, expires_at)
VALUES ($1, $2, $3, $4)
`
	_, err := r.q.Exec(ctx, q, t.Token, t.CustomerID, string(t.Kind), t.ExpiresAt)
	return db.MapError(err)
}

func (r *postgresRepo) Get(ctx context.Context, token string) (*Token, error) {
	const q = `
SELECT token, customer_id::text, kind, expires_at, created_at
FROM tokens
WHERE token = $1
`
	var (
		out  Token
		kind string
	)
	if err := r.q.QueryRow(ctx, q, token).Scan(&out.Token, &out.CustomerID, &kind, &out.ExpiresAt, &out.CreatedAt); err != nil {
		return nil, db.MapError(err)
	}
	out.Kind = Kind(kind)
	return &out, nil
}

func (r *postgresRepo) Delete(ctx context.Context, token string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM tokens WHERE token = $1`, token)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, db.MapError(err)
	}
	return tag.RowsAffected(), nil
}
