package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/northmill/storefront/internal/domain/cart"
)

const (
	getCartSQL = `SELECT items, COALESCE(applied_coupon, ''), updated_at FROM carts WHERE user_id = $1`

	ensureCartSQL = `INSERT INTO carts (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`

	lockCartSQL = `SELECT items, COALESCE(applied_coupon, '') FROM carts WHERE user_id = $1 FOR UPDATE`

	saveCartSQL = `UPDATE carts SET items = $2, applied_coupon = NULLIF($3, ''), updated_at = now() WHERE user_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Every
// mutation runs as a read-modify-write under a row lock, so concurrent
// requests against the same cart serialize instead of clobbering each other.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Get returns the user's cart. A user with no cart row yet gets an empty
// cart without one being created.
func (r *CartRepository) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	c := &cart.Cart{UserID: userID}

	var itemsJSON []byte
	err := r.pool.QueryRow(ctx, getCartSQL, userID).Scan(&itemsJSON, &c.AppliedCoupon, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c, nil
		}
		return nil, fmt.Errorf("getting cart for %q: %w", userID, err)
	}

	if err := json.Unmarshal(itemsJSON, &c.Items); err != nil {
		return nil, fmt.Errorf("decoding cart items for %q: %w", userID, err)
	}
	return c, nil
}

// UpsertItem adds an item to the cart, merging quantities when a line with
// the same CartItemID already exists.
func (r *CartRepository) UpsertItem(ctx context.Context, userID string, item cart.Item) (*cart.Cart, error) {
	return r.mutate(ctx, userID, func(c *cart.Cart) error {
		for i := range c.Items {
			if c.Items[i].CartItemID == item.CartItemID {
				c.Items[i].Quantity += item.Quantity
				return nil
			}
		}
		c.Items = append(c.Items, item)
		return nil
	})
}

// UpdateItemQuantity replaces the quantity of an existing line.
func (r *CartRepository) UpdateItemQuantity(ctx context.Context, userID, cartItemID string, quantity int) (*cart.Cart, error) {
	return r.mutate(ctx, userID, func(c *cart.Cart) error {
		for i := range c.Items {
			if c.Items[i].CartItemID == cartItemID {
				c.Items[i].Quantity = quantity
				return nil
			}
		}
		return cart.ErrItemNotFound
	})
}

// RemoveItem deletes a line from the cart.
func (r *CartRepository) RemoveItem(ctx context.Context, userID, cartItemID string) (*cart.Cart, error) {
	return r.mutate(ctx, userID, func(c *cart.Cart) error {
		for i := range c.Items {
			if c.Items[i].CartItemID == cartItemID {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
				return nil
			}
		}
		return cart.ErrItemNotFound
	})
}

// Clear removes every item and the applied coupon.
func (r *CartRepository) Clear(ctx context.Context, userID string) (*cart.Cart, error) {
	return r.mutate(ctx, userID, func(c *cart.Cart) error {
		c.Items = nil
		c.AppliedCoupon = ""
		return nil
	})
}

// SetCoupon records the applied coupon code; an empty code removes it.
func (r *CartRepository) SetCoupon(ctx context.Context, userID, code string) (*cart.Cart, error) {
	return r.mutate(ctx, userID, func(c *cart.Cart) error {
		c.AppliedCoupon = code
		return nil
	})
}

// mutate runs fn against the cart inside a transaction holding the cart's
// row lock. A cart left with no items loses its coupon before saving.
func (r *CartRepository) mutate(ctx context.Context, userID string, fn func(*cart.Cart) error) (*cart.Cart, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("beginning cart transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, ensureCartSQL, userID); err != nil {
		return nil, fmt.Errorf("ensuring cart row for %q: %w", userID, err)
	}

	c := &cart.Cart{UserID: userID}
	var itemsJSON []byte
	if err := tx.QueryRow(ctx, lockCartSQL, userID).Scan(&itemsJSON, &c.AppliedCoupon); err != nil {
		return nil, fmt.Errorf("locking cart for %q: %w", userID, err)
	}
	if err := json.Unmarshal(itemsJSON, &c.Items); err != nil {
		return nil, fmt.Errorf("decoding cart items for %q: %w", userID, err)
	}

	if err := fn(c); err != nil {
		return nil, err
	}

	if len(c.Items) == 0 {
		c.Items = nil
		c.AppliedCoupon = ""
	}

	itemsJSON, err = json.Marshal(c.Items)
	if err != nil {
		return nil, fmt.Errorf("encoding cart items for %q: %w", userID, err)
	}
	if c.Items == nil {
		itemsJSON = []byte("[]")
	}

	if _, err := tx.Exec(ctx, saveCartSQL, userID, itemsJSON, c.AppliedCoupon); err != nil {
		return nil, fmt.Errorf("saving cart for %q: %w", userID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing cart for %q: %w", userID, err)
	}
	return c, nil
}
