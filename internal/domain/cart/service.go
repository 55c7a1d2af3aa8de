package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/northmill/storefront/internal/domain/catalog"
	"github.com/northmill/storefront/internal/domain/coupon"
	"github.com/northmill/storefront/internal/domain/promo"
)

// View is a cart together with freshly computed totals. Every service
// operation returns one so the client always sees current pricing.
type View struct {
	Items           []Item
	AppliedCoupon   string
	Totals          Totals
	CouponEffective bool
}

// AddItemRequest holds the input for adding a line to a cart.
type AddItemRequest struct {
	CartItemID   string
	ProductID    string
	Quantity     int
	SelectedSize string
}

// Service owns cart mutations. Item prices are resolved through the campaign
// discount engine at add time and stored on the line; totals are recomputed
// on every read and mutation.
type Service struct {
	carts     Repository
	products  catalog.Repository
	campaigns promo.Repository
	coupons   coupon.Repository
	now       func() time.Time
}

// NewService creates a cart Service with the required dependencies.
func NewService(
	carts Repository,
	products catalog.Repository,
	campaigns promo.Repository,
	coupons coupon.Repository,
) *Service {
	return &Service{
		carts:     carts,
		products:  products,
		campaigns: campaigns,
		coupons:   coupons,
		now:       time.Now,
	}
}

// Get returns the user's cart with fresh totals.
func (s *Service) Get(ctx context.Context, userID string) (*View, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	return s.view(ctx, c)
}

// AddItem resolves the product's current selling price and adds the line.
// A line with the same CartItemID merges quantities.
func (s *Service) AddItem(ctx context.Context, userID string, req AddItemRequest) (*View, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	campaigns, err := s.campaigns.ListActive(ctx, now)
	if err != nil {
		return nil, errors.Wrap(err, "list active campaigns")
	}
	quote := promo.ResolveBestPrice(p.PromoTarget(), p.Price, campaigns, now)

	item := Item{
		CartItemID:    req.CartItemID,
		ProductID:     p.ID,
		Name:          p.Name,
		Image:         p.Image,
		Price:         quote.FinalPrice,
		OriginalPrice: quote.OriginalPrice,
		Quantity:      req.Quantity,
		SelectedSize:  req.SelectedSize,
	}

	c, err := s.carts.UpsertItem(ctx, userID, item)
	if err != nil {
		return nil, errors.Wrap(err, "upsert cart item")
	}
	return s.view(ctx, c)
}

// UpdateItemQuantity replaces the quantity of an existing line.
func (s *Service) UpdateItemQuantity(ctx context.Context, userID, cartItemID string, quantity int) (*View, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	c, err := s.carts.UpdateItemQuantity(ctx, userID, cartItemID, quantity)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, c)
}

// RemoveItem deletes a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, userID, cartItemID string) (*View, error) {
	c, err := s.carts.RemoveItem(ctx, userID, cartItemID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, c)
}

// Clear removes all items and the applied coupon.
func (s *Service) Clear(ctx context.Context, userID string) (*View, error) {
	c, err := s.carts.Clear(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "clear cart")
	}
	return s.view(ctx, c)
}

// ApplyCoupon validates the code against the cart and records it. The cart is
// never mutated when validation fails.
func (s *Service) ApplyCoupon(ctx context.Context, userID, code string) (*View, error) {
	code = coupon.NormalizeCode(code)

	cpn, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := cpn.Validate(s.now()); err != nil {
		return nil, err
	}

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	if cpn.Scope.Kind != promo.ScopeAll {
		targets, err := s.itemTargets(ctx, c.Items)
		if err != nil {
			return nil, err
		}
		if !Eligible(c.Items, cpn.Scope, targets) {
			return nil, ErrCouponNotApplicable
		}
	}

	c, err = s.carts.SetCoupon(ctx, userID, cpn.Code)
	if err != nil {
		return nil, errors.Wrap(err, "set coupon")
	}
	return s.view(ctx, c)
}

// RemoveCoupon clears the applied coupon unconditionally.
func (s *Service) RemoveCoupon(ctx context.Context, userID string) (*View, error) {
	c, err := s.carts.SetCoupon(ctx, userID, "")
	if err != nil {
		return nil, errors.Wrap(err, "clear coupon")
	}
	return s.view(ctx, c)
}

// view recomputes totals for the cart. A coupon that no longer resolves is
// priced as no discount rather than surfaced as an error.
func (s *Service) view(ctx context.Context, c *Cart) (*View, error) {
	now := s.now()

	var cpn *coupon.Coupon
	if c.AppliedCoupon != "" {
		found, err := s.coupons.FindByCode(ctx, c.AppliedCoupon)
		switch {
		case err == nil:
			cpn = found
		case errors.Is(err, coupon.ErrInvalidCoupon):
			// Stale code on the cart; totals fall back to no discount.
		default:
			return nil, errors.Wrap(err, "resolve applied coupon")
		}
	}

	targets := map[string]promo.Target{}
	if cpn != nil && cpn.Scope.Kind != promo.ScopeAll {
		var err error
		targets, err = s.itemTargets(ctx, c.Items)
		if err != nil {
			return nil, err
		}
	}

	return &View{
		Items:           c.Items,
		AppliedCoupon:   c.AppliedCoupon,
		Totals:          ComputeTotals(c.Items, cpn, targets, now),
		CouponEffective: cpn != nil && cpn.Validate(now) == nil,
	}, nil
}

// itemTargets resolves the cart lines' products so scope matching runs
// against current catalog attributes.
func (s *Service) itemTargets(ctx context.Context, items []Item) (map[string]promo.Target, error) {
	ids := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}

	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "resolve cart products")
	}

	targets := make(map[string]promo.Target, len(products))
	for _, p := range products {
		targets[p.ID] = p.PromoTarget()
	}
	return targets, nil
}
