package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northmill/storefront/internal/collab"
	"github.com/northmill/storefront/internal/domain/cart"
	"github.com/northmill/storefront/internal/domain/catalog"
	"github.com/northmill/storefront/internal/domain/coupon"
	"github.com/northmill/storefront/internal/domain/order"
	"github.com/northmill/storefront/internal/domain/promo"
)

// --- Mock implementations ---

type mockProductRepo struct {
	products []catalog.Product
}

func (m *mockProductRepo) List(_ context.Context, filter catalog.ListFilter) ([]catalog.Product, int, error) {
	var out []catalog.Product
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

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	for _, p := range m.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, id := range ids {
		if p, err := m.GetByID(context.Background(), id); err == nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) Create(_ context.Context, p *catalog.Product) error {
	m.products = append(m.products, *p)
	return nil
}

func (m *mockProductRepo) Update(_ context.Context, p *catalog.Product) error {
	for i := range m.products {
		if m.products[i].ID == p.ID {
			m.products[i] = *p
			return nil
		}
	}
	return catalog.ErrNotFound
}

func (m *mockProductRepo) Delete(_ context.Context, id string) error {
	for i := range m.products {
		if m.products[i].ID == id {
			m.products = append(m.products[:i], m.products[i+1:]...)
			return nil
		}
	}
	return catalog.ErrNotFound
}

type mockCampaignRepo struct {
	campaigns []promo.Campaign
}

func (m *mockCampaignRepo) ListActive(_ context.Context, _ time.Time) ([]promo.Campaign, error) {
	return m.campaigns, nil
}

func (m *mockCampaignRepo) List(_ context.Context) ([]promo.Campaign, error) {
	return m.campaigns, nil
}

func (m *mockCampaignRepo) GetByID(_ context.Context, id string) (*promo.Campaign, error) {
	for _, c := range m.campaigns {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, promo.ErrNotFound
}

func (m *mockCampaignRepo) Create(_ context.Context, c *promo.Campaign) error {
	m.campaigns = append(m.campaigns, *c)
	return nil
}

func (m *mockCampaignRepo) Update(_ context.Context, c *promo.Campaign) error {
	for i := range m.campaigns {
		if m.campaigns[i].ID == c.ID {
			m.campaigns[i] = *c
			return nil
		}
	}
	return promo.ErrNotFound
}

func (m *mockCampaignRepo) Delete(_ context.Context, id string) error {
	for i := range m.campaigns {
		if m.campaigns[i].ID == id {
			m.campaigns = append(m.campaigns[:i], m.campaigns[i+1:]...)
			return nil
		}
	}
	return promo.ErrNotFound
}

type mockCouponRepo struct {
	coupons []coupon.Coupon
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	for _, c := range m.coupons {
		if c.Code == coupon.NormalizeCode(code) {
			return &c, nil
		}
	}
	return nil, coupon.ErrInvalidCoupon
}
func (m *mockCouponRepo) List(_ context.Context) ([]coupon.Coupon, error) { return m.coupons, nil }

func (m *mockCouponRepo) GetByID(_ context.Context, id string) (*coupon.Coupon, error) {
	for _, c := range m.coupons {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, coupon.ErrNotFound
}

func (m *mockCouponRepo) Create(_ context.Context, c *coupon.Coupon) error {
	m.coupons = append(m.coupons, *c)
	return nil
}

func (m *mockCouponRepo) Update(_ context.Context, c *coupon.Coupon) error {
	for i := range m.coupons {
		if m.coupons[i].ID == c.ID {
			m.coupons[i] = *c
			return nil
		}
	}
	return coupon.ErrNotFound
}

func (m *mockCouponRepo) Delete(_ context.Context, id string) error {
	for i := range m.coupons {
		if m.coupons[i].ID == id {
			m.coupons = append(m.coupons[:i], m.coupons[i+1:]...)
			return nil
		}
	}
	return coupon.ErrNotFound
}

// mockCartRepo keeps carts in memory with the same merge and coupon-clearing
// rules as the SQL implementation.
type mockCartRepo struct {
	mu    sync.Mutex
	carts map[string]*cart.Cart
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{carts: make(map[string]*cart.Cart)}
}

func (m *mockCartRepo) get(userID string) *cart.Cart {
	c, ok := m.carts[userID]
	if !ok {
		c = &cart.Cart{UserID: userID}
		m.carts[userID] = c
	}
	return c
}

func (m *mockCartRepo) Get(_ context.Context, userID string) (*cart.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *m.get(userID)
	return &c, nil
}

func (m *mockCartRepo) UpsertItem(_ context.Context, userID string, item cart.Item) (*cart.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.get(userID)
	for i := range c.Items {
		if c.Items[i].CartItemID == item.CartItemID {
			c.Items[i].Quantity += item.Quantity
			out := *c
			return &out, nil
		}
	}
	c.Items = append(c.Items, item)
	out := *c
	return &out, nil
}

func (m *mockCartRepo) UpdateItemQuantity(_ context.Context, userID, cartItemID string, quantity int) (*cart.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.get(userID)
	for i := range c.Items {
		if c.Items[i].CartItemID == cartItemID {
			c.Items[i].Quantity = quantity
			out := *c
			return &out, nil
		}
	}
	return nil, cart.ErrItemNotFound
}

func (m *mockCartRepo) RemoveItem(_ context.Context, userID, cartItemID string) (*cart.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.get(userID)
	for i := range c.Items {
		if c.Items[i].CartItemID == cartItemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			if len(c.Items) == 0 {
				c.AppliedCoupon = ""
			}
			out := *c
			return &out, nil
		}
	}
	return nil, cart.ErrItemNotFound
}

func (m *mockCartRepo) Clear(_ context.Context, userID string) (*cart.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.get(userID)
	c.Items = nil
	c.AppliedCoupon = ""
	out := *c
	return &out, nil
}

func (m *mockCartRepo) SetCoupon(_ context.Context, userID, code string) (*cart.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.get(userID)
	c.AppliedCoupon = code
	out := *c
	return &out, nil
}

type mockOrderRepo struct {
	mu     sync.Mutex
	stock  map[string]int
	orders map[string]*order.Order
}

func (m *mockOrderRepo) CreateWithReservation(_ context.Context, o *order.Order, lines []order.ReservationLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var conflicts []order.StockConflict
	for _, l := range lines {
		if m.stock[l.ProductID] < l.Quantity {
			conflicts = append(conflicts, order.StockConflict{
				ProductID: l.ProductID, Requested: l.Quantity, Available: m.stock[l.ProductID],
			})
		}
	}
	if len(conflicts) > 0 {
		return &order.StockConflictError{Conflicts: conflicts}
	}
	for _, l := range lines {
		m.stock[l.ProductID] -= l.Quantity
	}
	clone := *o
	m.orders[o.ID] = &clone
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	clone := *o
	return &clone, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []order.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) List(_ context.Context) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []order.Order
	for _, o := range m.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (m *mockOrderRepo) Update(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *o
	m.orders[o.ID] = &clone
	return nil
}

// nopCollab satisfies the collaborator interfaces with no-ops. Permission
// checks fall back to the principal's own resolved set.
type nopCollab struct{}

func (nopCollab) Can(_ context.Context, p collab.Principal, permission string) bool {
	return p.Has(permission)
}
func (nopCollab) Record(_ context.Context, _, _, _, _, _ string) error        { return nil }
func (nopCollab) NotifyRole(_ context.Context, _ string, _ collab.Note) error { return nil }
func (nopCollab) SendOrderConfirmation(_ context.Context, _, _ string) error  { return nil }

// --- Test harness ---

type testEnv struct {
	router    http.Handler
	orderRepo *mockOrderRepo
	coupons   *mockCouponRepo
	campaigns *mockCampaignRepo
	products  *mockProductRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	products := &mockProductRepo{products: []catalog.Product{
		{ID: "p1", Name: "Runner", Price: decimal.NewFromInt(1000), Stock: 5, Gender: "men", Category: "shoes"},
		{ID: "p2", Name: "Cap", Price: decimal.NewFromInt(200), Stock: 10, Gender: "women", Category: "hats"},
	}}
	campaigns := &mockCampaignRepo{campaigns: []promo.Campaign{{
		ID:       "cmp1",
		Active:   true,
		Discount: promo.Discount{Kind: promo.DiscountPercentage, Value: decimal.NewFromInt(20)},
		Scope:    promo.CategoryScope("shoes"),
		StartsAt: time.Now().Add(-time.Hour),
		EndsAt:   time.Now().Add(time.Hour),
	}}}
	coupons := &mockCouponRepo{coupons: []coupon.Coupon{{
		ID: "c1", Code: "SAVE10", Kind: promo.DiscountPercentage,
		Value: decimal.NewFromInt(10), Status: coupon.StatusActive,
		Scope: promo.AllProducts(), Display: coupon.DisplayStandard,
		StartsAt: time.Now().Add(-time.Hour), EndsAt: time.Now().Add(time.Hour),
	}}}

	orderRepo := &mockOrderRepo{stock: map[string]int{"p1": 5, "p2": 10}, orders: map[string]*order.Order{}}
	cartRepo := newMockCartRepo()
	nop := nopCollab{}

	h := NewHandler(
		HandlerConfig{},
		catalog.NewPricer(products, campaigns),
		cart.NewService(cartRepo, products, campaigns, coupons),
		order.NewService(orderRepo, products, cartRepo, nop, nop, nop),
		products,
		campaigns,
		coupons,
		nop,
		nop,
	)

	return &testEnv{
		router:    h.Routes(),
		orderRepo: orderRepo,
		coupons:   coupons,
		campaigns: campaigns,
		products:  products,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func userHeaders(id string) map[string]string {
	return map[string]string{headerUserID: id}
}

func adminHeaders(id string) map[string]string {
	return map[string]string{
		headerUserID:      id,
		headerUserRole:    "admin",
		headerPermissions: "orders:manage,catalog:manage,promotions:manage",
	}
}

// --- Tests ---

func TestListProducts_PricesThroughCampaigns(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/products", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp productListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Products, 2)

	// The shoes campaign discounts p1 but not p2.
	assert.True(t, decimal.NewFromInt(800).Equal(resp.Products[0].Price))
	require.NotNil(t, resp.Products[0].OriginalPrice)
	assert.True(t, decimal.NewFromInt(200).Equal(resp.Products[1].Price))
	assert.Nil(t, resp.Products[1].OriginalPrice)
}

func TestListOnSale_OnlyDiscounted(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/products/sale", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp productListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "p1", resp.Products[0].ID)
}

func TestGetProduct_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/products/ghost", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCart_RequiresPrincipal(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/cart", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCart_AddAndGet(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/cart/items", map[string]any{
		"cartItemId": "li1", "productId": "p1", "quantity": 2,
	}, userHeaders("u1"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	// Line carries the campaign price, not the base price.
	assert.True(t, decimal.NewFromInt(800).Equal(resp.Items[0].Price))
	assert.True(t, decimal.NewFromInt(1600).Equal(resp.Subtotal))
}

func TestCart_ApplyCoupon(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/cart/items", map[string]any{
		"cartItemId": "li1", "productId": "p1", "quantity": 1,
	}, userHeaders("u1"))

	rec := env.do(t, http.MethodPost, "/cart/coupon", map[string]any{"code": "save10"}, userHeaders("u1"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SAVE10", resp.AppliedCoupon)
	assert.True(t, decimal.NewFromInt(80).Equal(resp.DiscountAmount))
}

func TestCart_ApplyUnknownCoupon(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/cart/items", map[string]any{
		"cartItemId": "li1", "productId": "p1", "quantity": 1,
	}, userHeaders("u1"))

	rec := env.do(t, http.MethodPost, "/cart/coupon", map[string]any{"code": "NOPE"}, userHeaders("u1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceOrder_Created(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/orders", map[string]any{
		"items": []map[string]any{
			{"productId": "p1", "quantity": 2, "price": "800"},
		},
		"paymentMethod": "card",
		"shippingInfo": map[string]any{
			"fullName": "Kim Doe", "address": "1 Main St", "city": "Oslo", "country": "NO",
		},
		"subtotal": "1600",
		"total":    "1600",
	}, userHeaders("u1"))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "Processing", resp.Status)
	assert.Equal(t, "Pending", resp.PaymentStatus)
	assert.Equal(t, 3, env.orderRepo.stock["p1"])
}

func TestPlaceOrder_StockConflict(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/orders", map[string]any{
		"items": []map[string]any{
			{"productId": "p1", "quantity": 99, "price": "800"},
		},
		"paymentMethod": "card",
		"shippingInfo": map[string]any{
			"fullName": "Kim Doe", "address": "1 Main St", "city": "Oslo", "country": "NO",
		},
		"subtotal": "79200",
		"total":    "79200",
	}, userHeaders("u1"))

	require.Equal(t, http.StatusConflict, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "stock_conflict", body.Kind)
	require.Len(t, body.Conflicts, 1)
	assert.Equal(t, "p1", body.Conflicts[0].ProductID)
	assert.Equal(t, 99, body.Conflicts[0].Requested)
	assert.Equal(t, 5, body.Conflicts[0].Available)
}

func TestAdminOrders_Forbidden(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/admin/orders", nil, userHeaders("u1"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/admin/orders", nil, adminHeaders("boss"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateOrderStatus(t *testing.T) {
	env := newTestEnv(t)
	env.orderRepo.orders["o1"] = &order.Order{ID: "o1", UserID: "u1", Status: order.StatusProcessing}

	rec := env.do(t, http.MethodPut, "/admin/orders/o1/status",
		map[string]any{"status": "Shipped"}, adminHeaders("boss"))
	require.Equal(t, http.StatusOK, rec.Code)

	// Skipping Shipped is rejected.
	env.orderRepo.orders["o2"] = &order.Order{ID: "o2", UserID: "u1", Status: order.StatusProcessing}
	rec = env.do(t, http.MethodPut, "/admin/orders/o2/status",
		map[string]any{"status": "Delivered"}, adminHeaders("boss"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOrder_OwnershipEnforced(t *testing.T) {
	env := newTestEnv(t)
	env.orderRepo.orders["o1"] = &order.Order{ID: "o1", UserID: "u1", Status: order.StatusProcessing}

	rec := env.do(t, http.MethodGet, "/orders/o1", nil, userHeaders("u2"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/orders/o1", nil, userHeaders("u1"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListCoupons_EffectiveStatus(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/coupons", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Coupons []couponResponse `json:"coupons"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Coupons, 1)
	assert.Equal(t, "Active", resp.Coupons[0].EffectiveStatus)
}

func TestAdminProducts_CRUD(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/admin/products", map[string]any{
		"name": "Scarf", "price": "300", "stock": 4, "gender": "women", "category": "accessories",
	}, adminHeaders("boss"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created productBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	rec = env.do(t, http.MethodPut, "/admin/products/"+created.ID, map[string]any{
		"name": "Wool Scarf", "price": "350", "stock": 4, "gender": "women", "category": "accessories",
	}, adminHeaders("boss"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/products/"+created.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Wool Scarf")

	rec = env.do(t, http.MethodDelete, "/admin/products/"+created.ID, nil, adminHeaders("boss"))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/products/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminProducts_RejectsInvalidBody(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/admin/products", map[string]any{
		"price": "300", "stock": 4, "gender": "women", "category": "accessories",
	}, adminHeaders("boss"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/admin/products", map[string]any{
		"name": "Scarf", "price": "-1", "stock": 4, "gender": "women", "category": "accessories",
	}, adminHeaders("boss"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminCampaigns_CRUD(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{
		"name":     "Winter Sale",
		"active":   true,
		"kind":     "percentage",
		"value":    "15",
		"scope":    map[string]any{"kind": "category", "targets": []string{"hats"}},
		"startsAt": time.Now().Add(-time.Hour),
		"endsAt":   time.Now().Add(time.Hour),
	}
	rec := env.do(t, http.MethodPost, "/admin/campaigns", body, adminHeaders("boss"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created campaignBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	rec = env.do(t, http.MethodGet, "/admin/campaigns/"+created.ID, nil, adminHeaders("boss"))
	require.Equal(t, http.StatusOK, rec.Code)

	body["value"] = "25"
	rec = env.do(t, http.MethodPut, "/admin/campaigns/"+created.ID, body, adminHeaders("boss"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated campaignBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.True(t, decimal.NewFromInt(25).Equal(updated.Value))

	rec = env.do(t, http.MethodDelete, "/admin/campaigns/"+created.ID, nil, adminHeaders("boss"))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/admin/campaigns/"+created.ID, nil, adminHeaders("boss"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminCampaigns_RejectsUnknownScope(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/admin/campaigns", map[string]any{
		"name":     "Broken",
		"kind":     "percentage",
		"value":    "15",
		"scope":    map[string]any{"kind": "brand", "targets": []string{"acme"}},
		"startsAt": time.Now().Add(-time.Hour),
		"endsAt":   time.Now().Add(time.Hour),
	}, adminHeaders("boss"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminCoupons_CRUD(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{
		"code":     "partner5",
		"kind":     "fixed",
		"value":    "5",
		"status":   "active",
		"scope":    map[string]any{"kind": "all"},
		"display":  "hidden",
		"startsAt": time.Now().Add(-time.Hour),
		"endsAt":   time.Now().Add(time.Hour),
	}
	rec := env.do(t, http.MethodPost, "/admin/coupons", body, adminHeaders("boss"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created couponBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "PARTNER5", created.Code)
	assert.Equal(t, "hidden", created.Display)

	rec = env.do(t, http.MethodGet, "/admin/coupons/"+created.ID, nil, adminHeaders("boss"))
	require.Equal(t, http.StatusOK, rec.Code)

	body["status"] = "inactive"
	rec = env.do(t, http.MethodPut, "/admin/coupons/"+created.ID, body, adminHeaders("boss"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodDelete, "/admin/coupons/"+created.ID, nil, adminHeaders("boss"))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/admin/coupons/"+created.ID, nil, adminHeaders("boss"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminManagement_RequiresPermission(t *testing.T) {
	env := newTestEnv(t)

	product := map[string]any{
		"name": "Scarf", "price": "300", "stock": 4, "gender": "women", "category": "accessories",
	}
	rec := env.do(t, http.MethodPost, "/admin/products", product, userHeaders("u1"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// orders:manage alone does not grant promotion management.
	orderAdmin := map[string]string{
		headerUserID:      "boss",
		headerUserRole:    "admin",
		headerPermissions: "orders:manage",
	}
	rec = env.do(t, http.MethodGet, "/admin/campaigns", nil, orderAdmin)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodDelete, "/admin/coupons/c1", nil, orderAdmin)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListCoupons_HiddenExcluded(t *testing.T) {
	env := newTestEnv(t)
	env.coupons.coupons = append(env.coupons.coupons, coupon.Coupon{
		ID: "c2", Code: "PARTNER5", Kind: promo.DiscountFixed,
		Value: decimal.NewFromInt(5), Status: coupon.StatusActive,
		Scope: promo.AllProducts(), Display: coupon.DisplayHidden,
		StartsAt: time.Now().Add(-time.Hour), EndsAt: time.Now().Add(time.Hour),
	})

	rec := env.do(t, http.MethodGet, "/coupons", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Coupons []couponResponse `json:"coupons"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Coupons, 1)
	assert.Equal(t, "SAVE10", resp.Coupons[0].Code)

	// The display filter does not leak hidden codes either.
	rec = env.do(t, http.MethodGet, "/coupons?display=hidden", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Coupons)

	// Hidden codes stay redeemable when entered directly.
	env.do(t, http.MethodPost, "/cart/items", map[string]any{
		"cartItemId": "li1", "productId": "p2", "quantity": 1,
	}, userHeaders("u1"))
	rec = env.do(t, http.MethodPost, "/cart/coupon", map[string]any{"code": "partner5"}, userHeaders("u1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var applied cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &applied))
	assert.Equal(t, "PARTNER5", applied.AppliedCoupon)
}
