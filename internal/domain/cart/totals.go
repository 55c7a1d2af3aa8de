package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/northmill/storefront/internal/domain/coupon"
	"github.com/northmill/storefront/internal/domain/promo"
)

var hundred = decimal.NewFromInt(100)

// Totals is the computed pricing summary for a cart.
type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
}

// ComputeTotals computes the cart subtotal and the coupon discount. It is
// pure: same inputs, same output. targets maps product IDs to their current
// scope-matching attributes; a missing entry degrades to ID-only matching.
//
// A nil, inactive, or out-of-window coupon yields a zero discount without
// error: a stale code left on a cart must not break reads. The discount is
// clamped in one place against the subtotal it applies to, then rounded to
// whole currency units.
func ComputeTotals(items []Item, cpn *coupon.Coupon, targets map[string]promo.Target, now time.Time) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(lineTotal(item))
	}

	discount := couponDiscount(items, cpn, targets, subtotal, now)

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
	}
}

func couponDiscount(items []Item, cpn *coupon.Coupon, targets map[string]promo.Target, subtotal decimal.Decimal, now time.Time) decimal.Decimal {
	if cpn == nil || cpn.Validate(now) != nil {
		return decimal.Zero
	}

	// The discount base is the subtotal of the lines the coupon's scope
	// matches; for an all-scope coupon that is the whole cart.
	base := subtotal
	if cpn.Scope.Kind != promo.ScopeAll {
		base = decimal.Zero
		for _, item := range items {
			if cpn.Scope.Matches(itemTarget(item, targets)) {
				base = base.Add(lineTotal(item))
			}
		}
	}

	var amount decimal.Decimal
	switch cpn.Kind {
	case promo.DiscountPercentage:
		amount = base.Mul(cpn.Value).Div(hundred)
	case promo.DiscountFixed:
		amount = cpn.Value
	default:
		return decimal.Zero
	}

	// Single central clamp: never more than the base it discounts, never
	// more than the cart subtotal.
	amount = decimal.Min(amount, base, subtotal)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return amount.Round(0)
}

// Eligible reports whether the coupon's scope matches at least one cart line.
func Eligible(items []Item, scope promo.Scope, targets map[string]promo.Target) bool {
	for _, item := range items {
		if scope.Matches(itemTarget(item, targets)) {
			return true
		}
	}
	return false
}

func lineTotal(item Item) decimal.Decimal {
	return item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

func itemTarget(item Item, targets map[string]promo.Target) promo.Target {
	if t, ok := targets[item.ProductID]; ok {
		return t
	}
	return promo.Target{ProductID: item.ProductID}
}
