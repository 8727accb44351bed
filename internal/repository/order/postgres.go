package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/logging"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const orderColumns = `id::text, number, user_id::text, email, status, fulfillment_status, currency,
shipping_address, billing_address, subtotal, discount, shipping, tax, total, coupon_code,
placed_at, canceled_at, created_at`

const itemColumns = `id::text, order_id::text, product_id::text, product_title, product_slug, quantity, unit_price, currency`

type postgresRepo struct {
	q      db.DBTX
	logger *zap.Logger
}

func NewPostgres(q db.DBTX, logger *zap.Logger) Repository {
	return &postgresRepo{q: q, logger: logging.OrNop(logger)}
}

func (r *postgresRepo) Create(ctx context.Context, o domain.Order) (*domain.Order, error) {
	const q = `
INSERT INTO orders (
    number, user_id, email, status, fulfillment_status, currency,
    shipping_address, billing_address, subtotal, discount, shipping, tax, total,
    coupon_code, placed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (number) DO NOTHING
RETURNING ` + orderColumns
	shipping := o.ShippingAddress
	if shipping == nil {
		shipping = domain.AddressSnapshot{}
	}
	billing := o.BillingAddress
	if billing == nil {
		billing = domain.AddressSnapshot{}
	}
	created, err := scanOrder(r.q.QueryRow(ctx, q,
		o.Number,
		o.UserID,
		o.Email,
		string(o.Status),
		string(o.FulfillmentStatus),
		o.Currency,
		shipping,
		billing,
		o.Subtotal,
		o.Discount,
		o.Shipping,
		o.Tax,
		o.Total,
		o.CouponCode,
		o.PlacedAt,
	))
	if errors.Is(err, domain.ErrNotFound) {
		// ON CONFLICT DO NOTHING returned no row: the number is taken.
		return nil, domain.ErrAlreadyExists
	}
	if err != nil {
		r.logger.Error("order repo: create", zap.String("number", o.Number), zap.Error(err))
		return nil, err
	}
	return created, nil
}

func (r *postgresRepo) InsertItems(ctx context.Context, orderID string, items []domain.OrderItem) error {
	oid, err := uuid.Parse(orderID)
	if err != nil {
		return fmt.Errorf("order repo: order id %q: %w", orderID, err)
	}
	rows := make([][]any, 0, len(items))
	for i, it := range items {
		var productID any
		if it.ProductID != nil {
			pid, err := uuid.Parse(*it.ProductID)
			if err != nil {
				return fmt.Errorf("order repo: product id %q: %w", *it.ProductID, err)
			}
			productID = pid
		}
		rows = append(rows, []any{oid, productID, it.ProductTitle, it.ProductSlug, int32(it.Quantity), it.UnitPrice, it.Currency, int32(i)})
	}
	n, err := r.q.CopyFrom(ctx,
		pgx.Identifier{"order_items"},
		[]string{"order_id", "product_id", "product_title", "product_slug", "quantity", "unit_price", "currency", "position"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("order repo: copy items: %w", err)
	}
	if int(n) != len(items) {
		return fmt.Errorf("order repo: copied %d of %d items", n, len(items))
	}
	return nil
}

func (r *postgresRepo) InsertCoupon(ctx context.Context, oc domain.OrderCoupon) error {
	const q = `INSERT INTO order_coupons (order_id, coupon_id, discounted_amount) VALUES ($1, $2, $3)`
	if _, err := r.q.Exec(ctx, q, oc.OrderID, oc.CouponID, oc.DiscountedAmount); err != nil {
		return fmt.Errorf("order repo: insert coupon: %w", db.MapError(err))
	}
	return nil
}

func (r *postgresRepo) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE number = $1`
	return r.withItems(ctx, q, number)
}

func (r *postgresRepo) LockByNumber(ctx context.Context, number string) (*domain.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE number = $1 FOR UPDATE`
	return r.withItems(ctx, q, number)
}

func (r *postgresRepo) ListForUser(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT ` + orderColumns + `
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := r.q.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("order repo: list: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *postgresRepo) SetStatus(ctx context.Context, id string, status domain.OrderStatus, canceledAt *time.Time) error {
	const q = `UPDATE orders SET status = $2, canceled_at = COALESCE($3, canceled_at) WHERE id = $1`
	cmd, err := r.q.Exec(ctx, q, id, string(status), canceledAt)
	if err != nil {
		return fmt.Errorf("order repo: set status: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) withItems(ctx context.Context, q string, args ...any) (*domain.Order, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, err
	}

	const itemsQuery = `SELECT ` + itemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY position ASC`
	rows, err := r.q.Query(ctx, itemsQuery, o.ID)
	if err != nil {
		return nil, fmt.Errorf("order repo: query items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(
			&it.ID,
			&it.OrderID,
			&it.ProductID,
			&it.ProductTitle,
			&it.ProductSlug,
			&it.Quantity,
			&it.UnitPrice,
			&it.Currency,
		); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return o, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o           domain.Order
		status      string
		fulfillment string
	)
	err := row.Scan(
		&o.ID,
		&o.Number,
		&o.UserID,
		&o.Email,
		&status,
		&fulfillment,
		&o.Currency,
		&o.ShippingAddress,
		&o.BillingAddress,
		&o.Subtotal,
		&o.Discount,
		&o.Shipping,
		&o.Tax,
		&o.Total,
		&o.CouponCode,
		&o.PlacedAt,
		&o.CanceledAt,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, db.MapError(err)
	}
	o.Status = domain.OrderStatus(status)
	o.FulfillmentStatus = domain.FulfillmentStatus(fulfillment)
	return &o, nil
}
