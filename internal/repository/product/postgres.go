package product

import (
	"context"
	"fmt"

	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/logging"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const productColumns = `id::text, title, slug, description, price, sale_price, currency, stock_quantity, is_active, created_at`

type postgresRepo struct {
	q      db.DBTX
	logger *zap.Logger
}

func NewPostgres(q db.DBTX, logger *zap.Logger) Repository {
	return &postgresRepo{q: q, logger: logging.OrNop(logger)}
}

func (r *postgresRepo) ListActive(ctx context.Context, limit, offset int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT ` + productColumns + `
FROM products
WHERE is_active
ORDER BY created_at DESC, id
LIMIT $1 OFFSET $2
`
	rows, err := r.q.Query(ctx, q, limit, offset)
	if err != nil {
		r.logger.Error("product repo: list", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("product repo: list rows", zap.Error(err))
		return nil, err
	}
	r.logger.Debug("product repo: list", zap.Int("count", len(result)))
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(r.q.QueryRow(ctx, q, id))
	if err != nil {
		r.logger.Debug("product repo: get", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (id, title, slug, description, price, sale_price, currency, stock_quantity, is_active)
VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (slug) DO UPDATE SET
    title = EXCLUDED.title,
    description = EXCLUDED.description,
    price = EXCLUDED.price,
    sale_price = EXCLUDED.sale_price,
    currency = EXCLUDED.currency,
    stock_quantity = EXCLUDED.stock_quantity,
    is_active = EXCLUDED.is_active
RETURNING ` + productColumns
	res, err := scanProduct(r.q.QueryRow(ctx, q,
		p.ID,
		p.Title,
		p.Slug,
		p.Description,
		p.Price,
		p.SalePrice,
		p.Currency,
		p.StockQuantity,
		p.IsActive,
	))
	if err != nil {
		r.logger.Error("product repo: upsert", zap.String("slug", p.Slug), zap.Error(err))
		return nil, err
	}
	if p.ID != "" && res.ID != p.ID {
		return nil, fmt.Errorf("product repo: id mismatch for slug=%s existing_id=%s import_id=%s", p.Slug, res.ID, p.ID)
	}
	r.logger.Debug("product repo: upserted", zap.String("slug", res.Slug), zap.String("id", res.ID))
	return res, nil
}

func (r *postgresRepo) DecrementStock(ctx context.Context, id string, qty int) (int64, error) {
	const q = `
UPDATE products
SET stock_quantity = stock_quantity - $2
WHERE id = $1 AND stock_quantity >= $2
`
	cmd, err := r.q.Exec(ctx, q, id, qty)
	if err != nil {
		return 0, fmt.Errorf("product repo: decrement stock: %w", err)
	}
	return cmd.RowsAffected(), nil
}

func (r *postgresRepo) IncrementStock(ctx context.Context, id string, qty int) error {
	cmd, err := r.q.Exec(ctx, `UPDATE products SET stock_quantity = stock_quantity + $2 WHERE id = $1`, id, qty)
	if err != nil {
		return fmt.Errorf("product repo: increment stock: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Slug,
		&p.Description,
		&p.Price,
		&p.SalePrice,
		&p.Currency,
		&p.StockQuantity,
		&p.IsActive,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, db.MapError(err)
	}
	return &p, nil
}
