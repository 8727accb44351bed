package customer

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/logging"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type postgresRepo struct {
	q      db.DBTX
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(q db.DBTX, logger *zap.Logger) Repository {
	return &postgresRepo{q: q, logger: logging.OrNop(logger)}
}

func (r *postgresRepo) Create(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	const q = `
INSERT INTO customers (email, password_hash, first_name, last_name)
VALUES ($1, $2, $3, $4)
RETURNING id::text, email, password_hash, first_name, last_name, created_at
`
	return r.scanCustomer(r.q.QueryRow(ctx, q, strings.ToLower(c.Email), c.PasswordHash, c.FirstName, c.LastName))
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	const q = `
SELECT id::text, email, password_hash, first_name, last_name, created_at
FROM customers
WHERE lower(email) = lower($1)
LIMIT 1
`
	return r.scanCustomer(r.q.QueryRow(ctx, q, email))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	const q = `
SELECT id::text, email, password_hash, first_name, last_name, created_at
FROM customers
WHERE id = $1
LIMIT 1
`
	return r.scanCustomer(r.q.QueryRow(ctx, q, id))
}

func (r *postgresRepo) scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.Email, &c.PasswordHash, &c.FirstName, &c.LastName, &c.CreatedAt)
	if err != nil {
		mapped := db.MapError(err)
		if !errors.Is(mapped, domain.ErrNotFound) && !errors.Is(mapped, domain.ErrAlreadyExists) {
			r.logger.Error("customer repo: scan", zap.Error(err))
		}
		return nil, mapped
	}
	return &c, nil
}
