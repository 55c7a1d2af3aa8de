package promo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a campaign does not exist.
var ErrNotFound = errors.New("campaign not found")

// DiscountKind distinguishes percentage discounts from fixed-amount ones.
type DiscountKind string

const (
	DiscountPercentage DiscountKind = "percentage"
	DiscountFixed      DiscountKind = "fixed"
)

// Discount is a reduction rule. For percentage kinds Value is the percent
// (20 means 20% off); for fixed kinds it is an amount in currency units.
type Discount struct {
	Kind  DiscountKind
	Value decimal.Decimal
}

// Campaign is a time-boxed automatic discount over a scope of products.
type Campaign struct {
	ID        string
	Name      string
	Active    bool
	Discount  Discount
	Scope     Scope
	StartsAt  time.Time
	EndsAt    time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ActiveAt reports whether the campaign is switched on and the instant falls
// inside its window. Both bounds are inclusive.
func (c Campaign) ActiveAt(now time.Time) bool {
	return c.Active && !now.Before(c.StartsAt) && !now.After(c.EndsAt)
}

// Repository defines persistence operations for campaigns.
type Repository interface {
	// ListActive returns campaigns that are switched on and whose window
	// contains the given instant.
	ListActive(ctx context.Context, now time.Time) ([]Campaign, error)
	List(ctx context.Context) ([]Campaign, error)
	GetByID(ctx context.Context, id string) (*Campaign, error)
	Create(ctx context.Context, c *Campaign) error
	Update(ctx context.Context, c *Campaign) error
	Delete(ctx context.Context, id string) error
}
