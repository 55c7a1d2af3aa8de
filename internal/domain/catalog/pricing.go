package catalog

import (
	"context"
	"time"

	"github.com/northmill/storefront/internal/domain/promo"
)

// PricedProduct is a product with its campaign-resolved price attached.
type PricedProduct struct {
	Product
	promo.Quote
}

// Pricer serves catalog reads with campaign pricing already applied.
type Pricer struct {
	products  Repository
	campaigns promo.Repository

	now func() time.Time
}

// NewPricer creates a Pricer over the given repositories.
func NewPricer(products Repository, campaigns promo.Repository) *Pricer {
	return &Pricer{
		products:  products,
		campaigns: campaigns,
		now:       time.Now,
	}
}

// GetPrice resolves the current price of a single product.
func (p *Pricer) GetPrice(ctx context.Context, productID string) (*PricedProduct, error) {
	prod, err := p.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	now := p.now()
	campaigns, err := p.campaigns.ListActive(ctx, now)
	if err != nil {
		return nil, err
	}

	quote := promo.ResolveBestPrice(prod.PromoTarget(), prod.Price, campaigns, now)
	return &PricedProduct{Product: *prod, Quote: quote}, nil
}

// List returns a filtered, paged product listing with resolved prices, plus
// the total match count.
func (p *Pricer) List(ctx context.Context, filter ListFilter) ([]PricedProduct, int, error) {
	products, total, err := p.products.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	now := p.now()
	campaigns, err := p.campaigns.ListActive(ctx, now)
	if err != nil {
		return nil, 0, err
	}

	priced := make([]PricedProduct, len(products))
	for i, prod := range products {
		quote := promo.ResolveBestPrice(prod.PromoTarget(), prod.Price, campaigns, now)
		priced[i] = PricedProduct{Product: prod, Quote: quote}
	}
	return priced, total, nil
}

// ListOnSale returns the page of products covered by at least one running
// campaign. The sale filter runs over the full catalog, so paging applies
// after filtering.
func (p *Pricer) ListOnSale(ctx context.Context, page, perPage int) ([]PricedProduct, int, error) {
	products, _, err := p.products.List(ctx, ListFilter{})
	if err != nil {
		return nil, 0, err
	}

	now := p.now()
	campaigns, err := p.campaigns.ListActive(ctx, now)
	if err != nil {
		return nil, 0, err
	}

	var onSale []PricedProduct
	for _, prod := range products {
		target := prod.PromoTarget()
		if !promo.AnyMatch(target, campaigns, now) {
			continue
		}
		quote := promo.ResolveBestPrice(target, prod.Price, campaigns, now)
		onSale = append(onSale, PricedProduct{Product: prod, Quote: quote})
	}

	total := len(onSale)
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = total
	}
	start := (page - 1) * perPage
	if start >= total {
		return []PricedProduct{}, total, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return onSale[start:end], total, nil
}
