package cart

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/logging"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const cartColumns = `id::text, user_id::text, session_key, status, currency, coupon_code, expires_at, created_at, updated_at`

const lineColumns = `id::text, cart_id::text, product_id::text, product_title, product_slug, quantity, unit_price, currency, created_at, updated_at`

type postgresRepo struct {
	q      db.DBTX
	logger *zap.Logger
}

// NewPostgres returns a Repository running its statements on q, which may be
// a pool or a transaction.
func NewPostgres(q db.DBTX, logger *zap.Logger) Repository {
	return &postgresRepo{q: q, logger: logging.OrNop(logger)}
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Cart, error) {
	const q = `SELECT ` + cartColumns + ` FROM carts WHERE id = $1`
	return r.fetchCart(ctx, q, id)
}

func (r *postgresRepo) LockByID(ctx context.Context, id string) (*domain.Cart, error) {
	const q = `SELECT ` + cartColumns + ` FROM carts WHERE id = $1 FOR UPDATE`
	return r.fetchCart(ctx, q, id)
}

func (r *postgresRepo) FindActive(ctx context.Context, identity domain.Identity, lock bool) (*domain.Cart, error) {
	var (
		q   string
		arg string
	)
	if identity.Authenticated() {
		q = `SELECT ` + cartColumns + ` FROM carts WHERE user_id = $1 AND status = 'active'`
		arg = identity.UserID
	} else {
		q = `SELECT ` + cartColumns + ` FROM carts WHERE session_key = $1 AND status = 'active'`
		arg = identity.SessionKey
	}
	if lock {
		q += ` FOR UPDATE`
	}
	return r.fetchCart(ctx, q, arg)
}

func (r *postgresRepo) LockMergeCandidate(ctx context.Context, cartID string, sessionKeys []string) (*domain.Cart, error) {
	if cartID != "" {
		const q = `
SELECT ` + cartColumns + `
FROM carts
WHERE id = $1 AND status = 'active' AND user_id IS NULL
FOR UPDATE
`
		return r.fetchCart(ctx, q, cartID)
	}
	if len(sessionKeys) == 0 {
		return nil, domain.ErrNotFound
	}
	const q = `
SELECT ` + cartColumns + `
FROM carts
WHERE session_key = ANY($1) AND status = 'active' AND user_id IS NULL
ORDER BY updated_at DESC
LIMIT 1
FOR UPDATE
`
	return r.fetchCart(ctx, q, sessionKeys)
}

func (r *postgresRepo) Create(ctx context.Context, in CreateCartInput) (*domain.Cart, error) {
	const q = `
INSERT INTO carts (user_id, session_key, status, currency, expires_at)
VALUES ($1, $2, 'active', $3, $4)
RETURNING ` + cartColumns
	cart, err := r.fetchCart(ctx, q, in.UserID, in.SessionKey, in.Currency, in.ExpiresAt)
	if err != nil {
		r.logger.Debug("cart repo: create", zap.Error(err))
		return nil, err
	}
	return cart, nil
}

func (r *postgresRepo) Touch(ctx context.Context, id string, expiresAt *time.Time) error {
	return r.execOne(ctx, "touch", `UPDATE carts SET expires_at = $2, updated_at = now() WHERE id = $1`, id, expiresAt)
}

func (r *postgresRepo) SetCoupon(ctx context.Context, id, code string) error {
	return r.execOne(ctx, "set coupon", `UPDATE carts SET coupon_code = $2, updated_at = now() WHERE id = $1`, id, code)
}

func (r *postgresRepo) SetOwner(ctx context.Context, id, userID string) error {
	const q = `
UPDATE carts
SET user_id = $2,
    session_key = NULL,
    updated_at = now()
WHERE id = $1
`
	return r.execOne(ctx, "set owner", q, id, userID)
}

func (r *postgresRepo) SetStatus(ctx context.Context, id string, status domain.CartStatus) error {
	return r.execOne(ctx, "set status", `UPDATE carts SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
}

func (r *postgresRepo) Lines(ctx context.Context, cartID string) ([]domain.CartItem, error) {
	const q = `SELECT ` + lineColumns + ` FROM cart_items WHERE cart_id = $1 ORDER BY created_at ASC, id ASC`
	return r.fetchLines(ctx, q, cartID)
}

func (r *postgresRepo) LockLines(ctx context.Context, cartID string) ([]domain.CartItem, error) {
	const q = `SELECT ` + lineColumns + ` FROM cart_items WHERE cart_id = $1 ORDER BY created_at ASC, id ASC FOR UPDATE`
	return r.fetchLines(ctx, q, cartID)
}

func (r *postgresRepo) LockLine(ctx context.Context, cartID, productID string) (*domain.CartItem, error) {
	const q = `SELECT ` + lineColumns + ` FROM cart_items WHERE cart_id = $1 AND product_id = $2 FOR UPDATE`
	return scanLine(r.q.QueryRow(ctx, q, cartID, productID))
}

func (r *postgresRepo) InsertLine(ctx context.Context, in NewLine) (*domain.CartItem, error) {
	const q = `
INSERT INTO cart_items (cart_id, product_id, product_title, product_slug, quantity, unit_price, currency)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + lineColumns
	line, err := scanLine(r.q.QueryRow(ctx, q,
		in.CartID,
		in.ProductID,
		in.ProductTitle,
		in.ProductSlug,
		in.Quantity,
		in.UnitPrice,
		in.Currency,
	))
	if err != nil {
		r.logger.Debug("cart repo: insert line", zap.String("cart_id", in.CartID), zap.String("product_id", in.ProductID), zap.Error(err))
		return nil, err
	}
	return line, nil
}

func (r *postgresRepo) UpdateLineQuantity(ctx context.Context, lineID string, quantity int) (*domain.CartItem, error) {
	const q = `
UPDATE cart_items
SET quantity = $2, updated_at = now()
WHERE id = $1
RETURNING ` + lineColumns
	return scanLine(r.q.QueryRow(ctx, q, lineID, quantity))
}

func (r *postgresRepo) MoveLine(ctx context.Context, lineID, targetCartID string) error {
	return r.execOne(ctx, "move line", `UPDATE cart_items SET cart_id = $2, updated_at = now() WHERE id = $1`, lineID, targetCartID)
}

func (r *postgresRepo) DeleteLine(ctx context.Context, lineID string) error {
	return r.execOne(ctx, "delete line", `DELETE FROM cart_items WHERE id = $1`, lineID)
}

func (r *postgresRepo) DeleteLines(ctx context.Context, cartID string) (int64, error) {
	cmd, err := r.q.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return 0, fmt.Errorf("cart repo: delete lines: %w", err)
	}
	return cmd.RowsAffected(), nil
}

func (r *postgresRepo) DeleteLinesNotInCurrency(ctx context.Context, cartID, currency string) (int64, error) {
	cmd, err := r.q.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND currency <> $2`, cartID, currency)
	if err != nil {
		return 0, fmt.Errorf("cart repo: delete foreign-currency lines: %w", err)
	}
	return cmd.RowsAffected(), nil
}

func (r *postgresRepo) execOne(ctx context.Context, op, q string, args ...any) error {
	cmd, err := r.q.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("cart repo: %s: %w", op, db.MapError(err))
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) fetchCart(ctx context.Context, q string, args ...any) (*domain.Cart, error) {
	var (
		c      domain.Cart
		status string
	)
	err := r.q.QueryRow(ctx, q, args...).Scan(
		&c.ID,
		&c.UserID,
		&c.SessionKey,
		&status,
		&c.Currency,
		&c.CouponCode,
		&c.ExpiresAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, db.MapError(err)
	}
	c.Status = domain.CartStatus(status)
	return &c, nil
}

func (r *postgresRepo) fetchLines(ctx context.Context, q string, args ...any) ([]domain.CartItem, error) {
	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("cart repo: query lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.CartItem
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, *line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func scanLine(row pgx.Row) (*domain.CartItem, error) {
	var it domain.CartItem
	err := row.Scan(
		&it.ID,
		&it.CartID,
		&it.ProductID,
		&it.ProductTitle,
		&it.ProductSlug,
		&it.Quantity,
		&it.UnitPrice,
		&it.Currency,
		&it.CreatedAt,
		&it.UpdatedAt,
	)
	if err != nil {
		return nil, db.MapError(err)
	}
	return &it, nil
}
