package promo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func running(kind DiscountKind, value string, scope Scope) Campaign {
	return Campaign{
		Active:   true,
		Discount: Discount{Kind: kind, Value: decimal.RequireFromString(value)},
		Scope:    scope,
		StartsAt: fixedNow.Add(-time.Hour),
		EndsAt:   fixedNow.Add(time.Hour),
	}
}

func TestResolveBestPrice_Percentage(t *testing.T) {
	q := ResolveBestPrice(
		Target{ProductID: "p1"},
		decimal.NewFromInt(1000),
		[]Campaign{running(DiscountPercentage, "20", AllProducts())},
		fixedNow,
	)

	assert.True(t, decimal.NewFromInt(800).Equal(q.FinalPrice))
	require.True(t, q.Discounted())
	assert.True(t, decimal.NewFromInt(1000).Equal(*q.OriginalPrice))
}

func TestResolveBestPrice_NoCampaigns(t *testing.T) {
	q := ResolveBestPrice(Target{ProductID: "p1"}, decimal.NewFromInt(1000), nil, fixedNow)

	assert.True(t, decimal.NewFromInt(1000).Equal(q.FinalPrice))
	assert.False(t, q.Discounted())
	assert.Nil(t, q.OriginalPrice)
}

func TestResolveBestPrice_PicksLargestReduction(t *testing.T) {
	campaigns := []Campaign{
		running(DiscountPercentage, "10", AllProducts()),
		running(DiscountFixed, "300", ProductScope("p1")),
		running(DiscountPercentage, "25", CategoryScope("shoes")),
	}

	q := ResolveBestPrice(
		Target{ProductID: "p1", Category: "shoes"},
		decimal.NewFromInt(1000),
		campaigns, fixedNow,
	)

	// Fixed 300 beats 25% (250) and 10% (100). Campaigns never stack.
	assert.True(t, decimal.NewFromInt(700).Equal(q.FinalPrice))
}

func TestResolveBestPrice_TieKeepsFirst(t *testing.T) {
	first := running(DiscountPercentage, "20", AllProducts())
	first.ID = "first"
	second := running(DiscountFixed, "200", AllProducts())
	second.ID = "second"

	q := ResolveBestPrice(Target{ProductID: "p1"}, decimal.NewFromInt(1000),
		[]Campaign{first, second}, fixedNow)

	assert.True(t, decimal.NewFromInt(800).Equal(q.FinalPrice))
}

func TestResolveBestPrice_SkipsInactiveAndOutOfWindow(t *testing.T) {
	inactive := running(DiscountPercentage, "50", AllProducts())
	inactive.Active = false

	ended := running(DiscountPercentage, "50", AllProducts())
	ended.EndsAt = fixedNow.Add(-time.Minute)

	notStarted := running(DiscountPercentage, "50", AllProducts())
	notStarted.StartsAt = fixedNow.Add(time.Minute)

	q := ResolveBestPrice(Target{ProductID: "p1"}, decimal.NewFromInt(1000),
		[]Campaign{inactive, ended, notStarted}, fixedNow)

	assert.False(t, q.Discounted())
}

func TestResolveBestPrice_WindowBoundsInclusive(t *testing.T) {
	c := running(DiscountPercentage, "10", AllProducts())
	c.StartsAt = fixedNow
	c.EndsAt = fixedNow

	q := ResolveBestPrice(Target{ProductID: "p1"}, decimal.NewFromInt(1000),
		[]Campaign{c}, fixedNow)

	assert.True(t, q.Discounted())
}

func TestResolveBestPrice_FixedClampedAtZero(t *testing.T) {
	q := ResolveBestPrice(Target{ProductID: "p1"}, decimal.NewFromInt(100),
		[]Campaign{running(DiscountFixed, "500", AllProducts())}, fixedNow)

	assert.True(t, decimal.Zero.Equal(q.FinalPrice))
	require.True(t, q.Discounted())
}

func TestResolveBestPrice_RoundsToWholeUnits(t *testing.T) {
	q := ResolveBestPrice(Target{ProductID: "p1"}, decimal.NewFromInt(999),
		[]Campaign{running(DiscountPercentage, "33", AllProducts())}, fixedNow)

	// 999 - 329.67 = 669.33, rounded to 669.
	assert.True(t, decimal.NewFromInt(669).Equal(q.FinalPrice))
}

func TestAnyMatch(t *testing.T) {
	campaigns := []Campaign{running(DiscountPercentage, "20", CategoryScope("shoes"))}

	assert.True(t, AnyMatch(Target{Category: "shoes"}, campaigns, fixedNow))
	assert.False(t, AnyMatch(Target{Category: "hats"}, campaigns, fixedNow))
	assert.False(t, AnyMatch(Target{Category: "shoes"}, campaigns, fixedNow.Add(2*time.Hour)))
}
