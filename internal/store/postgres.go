package store

import (
	"context"

	"storefront/internal/db"
	"storefront/internal/logging"
	cartrepo "storefront/internal/repository/cart"
	couponrepo "storefront/internal/repository/coupon"
	customerrepo "storefront/internal/repository/customer"
	orderrepo "storefront/internal/repository/order"
	productrepo "storefront/internal/repository/product"
	sessionrepo "storefront/internal/repository/session"
	tokenrepo "storefront/internal/repository/token"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type postgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	base   Repos
}

// NewPostgres returns a Store backed by a pgx pool. Transactions use the
// default read committed isolation; correctness relies on row locks.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Store {
	s := &postgresStore{pool: pool, logger: logging.OrNop(logger)}
	s.base = s.repos(pool)
	return s
}

func (s *postgresStore) Repos() Repos {
	return s.base
}

func (s *postgresStore) InTx(ctx context.Context, fn func(Repos) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(s.repos(tx))
	})
}

func (s *postgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *postgresStore) repos(q db.DBTX) Repos {
	return Repos{
		Carts:     cartrepo.NewPostgres(q, s.logger),
		Products:  productrepo.NewPostgres(q, s.logger),
		Coupons:   couponrepo.NewPostgres(q, s.logger),
		Orders:    orderrepo.NewPostgres(q, s.logger),
		Customers: customerrepo.NewPostgres(q, s.logger),
		Tokens:    tokenrepo.NewPostgres(q),
		Sessions:  sessionrepo.NewPostgres(q),
	}
}
