package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for cart operations.
var (
	// ErrEmptyCart is returned when a coupon is applied to a cart with no items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrCouponNotApplicable is returned when a coupon's scope matches none of
	// the cart's items.
	ErrCouponNotApplicable = errors.New("coupon not applicable to cart items")
	// ErrItemNotFound is returned when a cart line does not exist.
	ErrItemNotFound = errors.New("cart item not found")
	// ErrInvalidQuantity is returned for non-positive line quantities.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
)

// Item is one line in a user's cart. CartItemID is assigned by the client and
// identifies one exact selection (product + size); it is unique only within
// this cart. Price is the charged price, already net of any campaign
// discount; OriginalPrice is the pre-campaign price, nil when no campaign
// applied.
type Item struct {
	CartItemID    string           `json:"cartItemId"`
	ProductID     string           `json:"productId"`
	Name          string           `json:"name"`
	Image         string           `json:"image"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	Quantity      int              `json:"quantity"`
	SelectedSize  string           `json:"selectedSize,omitempty"`
}

// Cart holds a user's items and at most one applied coupon code. Each user
// has exactly one cart. If the item list becomes empty the coupon is cleared.
type Cart struct {
	UserID        string
	Items         []Item
	AppliedCoupon string
	UpdatedAt     time.Time
}

// Repository defines persistence operations for carts. Mutations are
// serialized per cart: implementations lock the cart row for the duration of
// the read-modify-write so concurrent requests from the same user cannot
// overwrite each other's item list.
type Repository interface {
	// Get returns the user's cart, or an empty cart when none exists yet.
	Get(ctx context.Context, userID string) (*Cart, error)
	// UpsertItem adds an item; a line with the same CartItemID merges
	// quantities instead of duplicating.
	UpsertItem(ctx context.Context, userID string, item Item) (*Cart, error)
	// UpdateItemQuantity replaces the quantity of an existing line.
	UpdateItemQuantity(ctx context.Context, userID, cartItemID string, quantity int) (*Cart, error)
	// RemoveItem deletes a line; when the last line goes, the applied coupon
	// is cleared with it.
	RemoveItem(ctx context.Context, userID, cartItemID string) (*Cart, error)
	// Clear removes every item and the applied coupon.
	Clear(ctx context.Context, userID string) (*Cart, error)
	// SetCoupon records (or clears, with "") the applied coupon code.
	SetCoupon(ctx context.Context, userID, code string) (*Cart, error)
}
