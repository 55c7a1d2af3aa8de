package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northmill/storefront/internal/domain/promo"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type mockProductRepo struct {
	products []Product
}

func (m *mockProductRepo) List(_ context.Context, filter ListFilter) ([]Product, int, error) {
	var out []Product
	for _, p := range m.products {
		if filter.Gender != "" && p.Gender != filter.Gender {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*Product, error) {
	for _, p := range m.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]Product, error) {
	var out []Product
	for _, id := range ids {
		if p, err := m.GetByID(context.Background(), id); err == nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) Create(_ context.Context, _ *Product) error { return nil }
func (m *mockProductRepo) Update(_ context.Context, _ *Product) error { return nil }
func (m *mockProductRepo) Delete(_ context.Context, _ string) error   { return nil }

type mockCampaignRepo struct {
	active []promo.Campaign
}

func (m *mockCampaignRepo) ListActive(_ context.Context, _ time.Time) ([]promo.Campaign, error) {
	return m.active, nil
}
func (m *mockCampaignRepo) List(_ context.Context) ([]promo.Campaign, error) { return nil, nil }
func (m *mockCampaignRepo) GetByID(_ context.Context, _ string) (*promo.Campaign, error) {
	return nil, promo.ErrNotFound
}
func (m *mockCampaignRepo) Create(_ context.Context, _ *promo.Campaign) error { return nil }
func (m *mockCampaignRepo) Update(_ context.Context, _ *promo.Campaign) error { return nil }
func (m *mockCampaignRepo) Delete(_ context.Context, _ string) error          { return nil }

func newTestPricer(products []Product, campaigns []promo.Campaign) *Pricer {
	p := NewPricer(&mockProductRepo{products: products}, &mockCampaignRepo{active: campaigns})
	p.now = func() time.Time { return fixedNow }
	return p
}

func shoesCampaign(percent string) promo.Campaign {
	return promo.Campaign{
		Active:   true,
		Discount: promo.Discount{Kind: promo.DiscountPercentage, Value: decimal.RequireFromString(percent)},
		Scope:    promo.CategoryScope("shoes"),
		StartsAt: fixedNow.Add(-time.Hour),
		EndsAt:   fixedNow.Add(time.Hour),
	}
}

func TestGetPrice_AppliesCampaign(t *testing.T) {
	pricer := newTestPricer(
		[]Product{{ID: "p1", Category: "shoes", Price: decimal.NewFromInt(1000)}},
		[]promo.Campaign{shoesCampaign("20")},
	)

	pp, err := pricer.GetPrice(context.Background(), "p1")

	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(800).Equal(pp.FinalPrice))
	require.NotNil(t, pp.OriginalPrice)
	assert.True(t, decimal.NewFromInt(1000).Equal(*pp.OriginalPrice))
}

func TestGetPrice_UnknownProduct(t *testing.T) {
	pricer := newTestPricer(nil, nil)

	_, err := pricer.GetPrice(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_PricesEveryRow(t *testing.T) {
	pricer := newTestPricer(
		[]Product{
			{ID: "p1", Category: "shoes", Price: decimal.NewFromInt(1000)},
			{ID: "p2", Category: "hats", Price: decimal.NewFromInt(500)},
		},
		[]promo.Campaign{shoesCampaign("20")},
	)

	priced, total, err := pricer.List(context.Background(), ListFilter{})

	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.True(t, decimal.NewFromInt(800).Equal(priced[0].FinalPrice))
	assert.True(t, decimal.NewFromInt(500).Equal(priced[1].FinalPrice))
	assert.False(t, priced[1].Discounted())
}

func TestListOnSale_FiltersAndPages(t *testing.T) {
	products := []Product{
		{ID: "p1", Category: "shoes", Price: decimal.NewFromInt(100)},
		{ID: "p2", Category: "hats", Price: decimal.NewFromInt(100)},
		{ID: "p3", Category: "shoes", Price: decimal.NewFromInt(200)},
		{ID: "p4", Category: "shoes", Price: decimal.NewFromInt(300)},
	}
	pricer := newTestPricer(products, []promo.Campaign{shoesCampaign("10")})

	page1, total, err := pricer.ListOnSale(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page1, 2)
	assert.Equal(t, "p1", page1[0].ID)
	assert.Equal(t, "p3", page1[1].ID)

	page2, _, err := pricer.ListOnSale(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "p4", page2[0].ID)

	beyond, _, err := pricer.ListOnSale(context.Background(), 5, 2)
	require.NoError(t, err)
	assert.Empty(t, beyond)
}
