package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/northmill/storefront/internal/domain/promo"
)

// Status is the stored on/off switch for a coupon, independent of its time
// window.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Display controls where the storefront surfaces a coupon.
type Display string

const (
	DisplayStandard Display = "standard"
	DisplayPopup    Display = "popup"
	// DisplayHidden keeps a coupon redeemable by code while excluding it
	// from every public listing. Bulk-imported partner codes use it.
	DisplayHidden Display = "hidden"
)

// EffectiveStatus is the derived, display-facing state of a coupon.
type EffectiveStatus string

const (
	EffectiveExpired   EffectiveStatus = "Expired"
	EffectiveInactive  EffectiveStatus = "Inactive"
	EffectiveScheduled EffectiveStatus = "Scheduled"
	EffectiveActive    EffectiveStatus = "Active"
)

// ErrInvalidCoupon is returned when a coupon code is not found, inactive, or
// outside its validity window.
var ErrInvalidCoupon = errors.New("invalid or expired coupon")

// ErrNotFound is returned by ID lookups when the coupon does not exist.
var ErrNotFound = errors.New("coupon not found")

// Coupon is a user-entered discount code. Its scope follows the campaign
// scope rules, minus child-category.
type Coupon struct {
	ID        string
	Code      string
	Kind      promo.DiscountKind
	Value     decimal.Decimal
	Status    Status
	Scope     promo.Scope
	Display   Display
	StartsAt  time.Time
	EndsAt    time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeCode upper-cases and trims a user-supplied coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// EffectiveStatus derives the display state at the given instant.
// Precedence: Expired > Inactive > Scheduled > Active.
func (c Coupon) EffectiveStatus(now time.Time) EffectiveStatus {
	switch {
	case now.After(c.EndsAt):
		return EffectiveExpired
	case c.Status == StatusInactive:
		return EffectiveInactive
	case now.Before(c.StartsAt):
		return EffectiveScheduled
	default:
		return EffectiveActive
	}
}

// Validate checks that the coupon is redeemable at the given instant. Both
// window bounds are enforced, so a scheduled coupon cannot be applied early.
func (c Coupon) Validate(now time.Time) error {
	if c.Status != StatusActive {
		return ErrInvalidCoupon
	}
	if now.Before(c.StartsAt) || now.After(c.EndsAt) {
		return ErrInvalidCoupon
	}
	return nil
}

// Repository defines persistence operations for coupons.
type Repository interface {
	// FindByCode looks up a coupon by code, case-insensitively. It returns
	// ErrInvalidCoupon when no coupon carries the code.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	List(ctx context.Context) ([]Coupon, error)
	GetByID(ctx context.Context, id string) (*Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	Update(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, id string) error
}
