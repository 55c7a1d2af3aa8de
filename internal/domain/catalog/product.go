// Package catalog holds the product catalog and its campaign-aware pricing.
package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/northmill/storefront/internal/domain/promo"
)

// ErrNotFound is returned when a product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog entry. Price is the base price before any campaign.
type Product struct {
	ID            string
	Name          string
	Image         string
	Price         decimal.Decimal
	Stock         int
	Sold          int
	Gender        string
	Category      string
	ChildCategory string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PromoTarget adapts the product to the attribute set scopes match against.
// Gender doubles as the parent category.
func (p Product) PromoTarget() promo.Target {
	return promo.Target{
		ProductID:      p.ID,
		ParentCategory: p.Gender,
		Category:       p.Category,
		ChildCategory:  p.ChildCategory,
	}
}

// ListFilter narrows and pages a product listing. Zero values mean "no
// filter"; Page is 1-based.
type ListFilter struct {
	Gender   string
	Category string
	Page     int
	PerPage  int
}

// Repository defines persistence operations for products. List also returns
// the total match count before paging.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Product, int, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
}
