package repository

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/northmill/storefront/internal/domain/order"
)

const (
	orderColumns = `id, user_id, items, shipping_info, payment_method, payment_status,
		subtotal, campaign_discount, coupon_code, coupon_discount, tax_amount, shipping_cost, total,
		status, COALESCE(return_status, ''), COALESCE(return_reason, ''), created_at`

	lockStockSQL = `SELECT stock FROM products WHERE id = $1 FOR UPDATE`

	reserveStockSQL = `UPDATE products SET stock = stock - $2, sold = sold + $2, updated_at = now() WHERE id = $1`

	createOrderSQL = `INSERT INTO orders (id, user_id, items, shipping_info, payment_method, payment_status,
		subtotal, campaign_discount, coupon_code, coupon_discount, tax_amount, shipping_cost, total,
		status, return_status, return_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NULLIF($15, ''), NULLIF($16, ''), $17)`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`

	updateOrderSQL = `UPDATE orders
		SET status = $2, payment_status = $3, return_status = NULLIF($4, ''), return_reason = NULLIF($5, '')
		WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// sortedByProductID returns a copy of the reservation lines ordered by
// product ID. Locking rows in a fixed order keeps two concurrent orders over
// the same products from deadlocking each other.
func sortedByProductID(lines []order.ReservationLine) []order.ReservationLine {
	out := slices.Clone(lines)
	slices.SortFunc(out, func(a, b order.ReservationLine) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	return out
}

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateWithReservation reserves stock for every line and writes the order
// row in a single transaction. Product rows are locked in product ID order
// so concurrent orders never hold locks in opposite sequence, stock
// preconditions checked under the lock, and nothing commits unless every
// line passes. A shortage on any line rolls the whole transaction back and
// returns *order.StockConflictError listing every failing line.
func (r *OrderRepository) CreateWithReservation(ctx context.Context, o *order.Order, lines []order.ReservationLine) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning order transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var conflicts []order.StockConflict
	for _, l := range sortedByProductID(lines) {
		var available int
		if err := tx.QueryRow(ctx, lockStockSQL, l.ProductID).Scan(&available); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				conflicts = append(conflicts, order.StockConflict{
					ProductID: l.ProductID, Requested: l.Quantity, Available: 0,
				})
				continue
			}
			return fmt.Errorf("locking stock for %q: %w", l.ProductID, err)
		}
		if available < l.Quantity {
			conflicts = append(conflicts, order.StockConflict{
				ProductID: l.ProductID, Requested: l.Quantity, Available: available,
			})
			continue
		}
		if _, err := tx.Exec(ctx, reserveStockSQL, l.ProductID, l.Quantity); err != nil {
			return fmt.Errorf("reserving stock for %q: %w", l.ProductID, err)
		}
	}
	if len(conflicts) > 0 {
		return &order.StockConflictError{Conflicts: conflicts}
	}

	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("encoding order items: %w", err)
	}
	shippingJSON, err := json.Marshal(o.ShippingInfo)
	if err != nil {
		return fmt.Errorf("encoding shipping info: %w", err)
	}

	_, err = tx.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, itemsJSON, shippingJSON, o.PaymentMethod, o.PaymentStatus,
		o.Subtotal, o.CampaignDiscount, o.CouponCode, o.CouponDiscount,
		o.TaxAmount, o.ShippingCost, o.Total,
		o.Status, string(o.ReturnStatus), o.ReturnReason, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// List returns all orders, newest first.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// Update persists status, payment status, and return fields. Item snapshots
// and money figures are immutable after commit.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	tag, err := r.pool.Exec(ctx, updateOrderSQL,
		o.ID, o.Status, o.PaymentStatus, string(o.ReturnStatus), o.ReturnReason,
	)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o            order.Order
		itemsJSON    []byte
		shippingJSON []byte
	)
	err := row.Scan(
		&o.ID, &o.UserID, &itemsJSON, &shippingJSON, &o.PaymentMethod, &o.PaymentStatus,
		&o.Subtotal, &o.CampaignDiscount, &o.CouponCode, &o.CouponDiscount,
		&o.TaxAmount, &o.ShippingCost, &o.Total,
		&o.Status, &o.ReturnStatus, &o.ReturnReason, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("decoding order items: %w", err)
	}
	if err := json.Unmarshal(shippingJSON, &o.ShippingInfo); err != nil {
		return o, fmt.Errorf("decoding shipping info: %w", err)
	}
	return o, nil
}
