package promo

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the resolved price of a single product. OriginalPrice is set only
// when a campaign actually lowered the price.
type Quote struct {
	FinalPrice    decimal.Decimal
	OriginalPrice *decimal.Decimal
}

// Discounted reports whether a campaign lowered the price.
func (q Quote) Discounted() bool {
	return q.OriginalPrice != nil
}

// ResolveBestPrice picks the single campaign that yields the largest price
// reduction for the target and returns the resulting quote. Campaigns never
// stack. A candidate wins only with a strictly greater reduction, so ties
// keep the earlier campaign in the slice. With no applicable campaign the
// quote is the base price unchanged.
func ResolveBestPrice(target Target, price decimal.Decimal, campaigns []Campaign, now time.Time) Quote {
	best := decimal.Zero
	for _, c := range campaigns {
		if !c.ActiveAt(now) || !c.Scope.Matches(target) {
			continue
		}
		if amount := discountAmount(c.Discount, price); amount.GreaterThan(best) {
			best = amount
		}
	}

	if !best.IsPositive() {
		return Quote{FinalPrice: price}
	}

	final := price.Sub(best).Round(0)
	if final.IsNegative() {
		final = decimal.Zero
	}
	original := price
	return Quote{FinalPrice: final, OriginalPrice: &original}
}

// AnyMatch reports whether any of the campaigns is running and covers the
// target. It backs on-sale listings, which only need the yes/no answer.
func AnyMatch(target Target, campaigns []Campaign, now time.Time) bool {
	for _, c := range campaigns {
		if c.ActiveAt(now) && c.Scope.Matches(target) {
			return true
		}
	}
	return false
}

// discountAmount computes the reduction a discount yields on a price,
// clamped so the final price never drops below zero.
func discountAmount(d Discount, price decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch d.Kind {
	case DiscountPercentage:
		amount = price.Mul(d.Value).Div(decimal.NewFromInt(100))
	case DiscountFixed:
		amount = d.Value
	default:
		return decimal.Zero
	}
	return decimal.Min(amount, price)
}
