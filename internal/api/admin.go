package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/northmill/storefront/internal/domain/catalog"
	"github.com/northmill/storefront/internal/domain/coupon"
	"github.com/northmill/storefront/internal/domain/promo"
)

// Admin management endpoints are thin CRUD over the repositories. Successful
// mutations are recorded in the audit log; a failing audit write never fails
// the request.

type scopeBody struct {
	Kind    string   `json:"kind"`
	Targets []string `json:"targets"`
}

func (s scopeBody) toScope() (promo.Scope, bool) {
	switch promo.ScopeKind(s.Kind) {
	case promo.ScopeAll:
		return promo.AllProducts(), true
	case promo.ScopeProduct, promo.ScopeCategory, promo.ScopeParentCategory, promo.ScopeChildCategory:
		return promo.Scope{Kind: promo.ScopeKind(s.Kind), Targets: s.Targets}, true
	default:
		return promo.Scope{}, false
	}
}

func parseDiscountKind(s string) (promo.DiscountKind, bool) {
	switch promo.DiscountKind(s) {
	case promo.DiscountPercentage, promo.DiscountFixed:
		return promo.DiscountKind(s), true
	default:
		return "", false
	}
}

func (h *Handler) recordAudit(r *http.Request, action, entity, entityID string) {
	p, _ := PrincipalFrom(r.Context())
	if err := h.audit.Record(r.Context(), p.ID, action, entity, entityID, ""); err != nil {
		zctx.From(r.Context()).Warn("audit record failed", zap.Error(err))
	}
}

// --- Products ---

type productBody struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Image         string          `json:"image"`
	Price         decimal.Decimal `json:"price"`
	Stock         int             `json:"stock"`
	Gender        string          `json:"gender"`
	Category      string          `json:"category"`
	ChildCategory string          `json:"childCategory"`
}

func (b productBody) toProduct() (*catalog.Product, string) {
	switch {
	case b.Name == "":
		return nil, "name is required"
	case b.Price.Sign() < 0:
		return nil, "price must not be negative"
	case b.Stock < 0:
		return nil, "stock must not be negative"
	case b.Gender == "" || b.Category == "":
		return nil, "gender and category are required"
	}
	return &catalog.Product{
		ID:            b.ID,
		Name:          b.Name,
		Image:         b.Image,
		Price:         b.Price,
		Stock:         b.Stock,
		Gender:        b.Gender,
		Category:      b.Category,
		ChildCategory: b.ChildCategory,
	}, ""
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var body productBody
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, "invalid json")
		return
	}
	p, msg := body.toProduct()
	if msg != "" {
		badRequest(w, msg)
		return
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	if err := h.products.Create(r.Context(), p); err != nil {
		respondError(w, r, err)
		return
	}
	h.recordAudit(r, "create", "product", p.ID)
	writeJSON(w, http.StatusCreated, body.withID(p.ID))
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var body productBody
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, "invalid json")
		return
	}
	p, msg := body.toProduct()
	if msg != "" {
		badRequest(w, msg)
		return
	}
	p.ID = chi.URLParam(r, "id")

	if err := h.products.Update(r.Context(), p); err != nil {
		respondError(w, r, err)
		return
	}
	h.recordAudit(r, "update", "product", p.ID)
	writeJSON(w, http.StatusOK, body.withID(p.ID))
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.products.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	h.recordAudit(r, "delete", "product", id)
	w.WriteHeader(http.StatusNoContent)
}

func (b productBody) withID(id string) productBody {
	b.ID = id
	return b
}

// --- Campaigns ---

type campaignBody struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Active   bool            `json:"active"`
	Kind     string          `json:"kind"`
	Value    decimal.Decimal `json:"value"`
	Scope    scopeBody       `json:"scope"`
	StartsAt time.Time       `json:"startsAt"`
	EndsAt   time.Time       `json:"endsAt"`
}

func (b campaignBody) toCampaign() (*promo.Campaign, string) {
	if b.Name == "" {
		return nil, "name is required"
	}
	kind, ok := parseDiscountKind(b.Kind)
	if !ok {
		return nil, "kind must be percentage or fixed"
	}
	if b.Value.Sign() <= 0 {
		return nil, "value must be positive"
	}
	scope, ok := b.Scope.toScope()
	if !ok {
		return nil, "unknown scope kind"
	}
	if !b.EndsAt.After(b.StartsAt) {
		return nil, "endsAt must be after startsAt"
	}
	return &promo.Campaign{
		ID:       b.ID,
		Name:     b.Name,
		Active:   b.Active,
		Discount: promo.Discount{Kind: kind, Value: b.Value},
		Scope:    scope,
		StartsAt: b.StartsAt,
		EndsAt:   b.EndsAt,
	}, ""
}

func toCampaignBody(c promo.Campaign) campaignBody {
	return campaignBody{
		ID:       c.ID,
		Name:     c.Name,
		Active:   c.Active,
		Kind:     string(c.Discount.Kind),
		Value:    c.Discount.Value,
		Scope:    scopeBody{Kind: string(c.Scope.Kind), Targets: c.Scope.Targets},
		StartsAt: c.StartsAt,
		EndsAt:   c.EndsAt,
	}
}

func (h *Handler) adminListCampaigns(w http.ResponseWriter, r *http.Request) {
	list, err := h.campaigns.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]campaignBody, len(list))
	for i, c := range list {
		out[i] = toCampaignBody(c)
	}
	writeJSON(w, http.StatusOK, struct {
		Campaigns []campaignBody `json:"campaigns"`
	}{Campaigns: out})
}

func (h *Handler) getCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := h.campaigns.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCampaignBody(*c))
}

func (h *Handler) createCampaign(w http.ResponseWriter, r *http.Request) {
	var body campaignBody
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, "invalid json")
		return
	}
	c, msg := body.toCampaign()
	if msg != "" {
		badRequest(w, msg)
		return
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	if err := h.campaigns.Create(r.Context(), c); err != nil {
		respondError(w, r, err)
		return
	}
	h.recordAudit(r, "create", "campaign", c.ID)
	writeJSON(w, http.StatusCreated, toCampaignBody(*c))
}

func (h *Handler) updateCampaign(w http.ResponseWriter, r *http.Request) {
	var body campaignBody
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, "invalid json")
		return
	}
	c, msg := body.toCampaign()
	if msg != "" {
		badRequest(w, msg)
		return
	}
	c.ID = chi.URLParam(r, "id")

	if err := h.campaigns.Update(r.Context(), c); err != nil {
		respondError(w, r, err)
		return
	}
	h.recordAudit(r, "update", "campaign", c.ID)
	writeJSON(w, http.StatusOK, toCampaignBody(*c))
}

func (h *Handler) deleteCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.campaigns.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	h.recordAudit(r, "delete", "campaign", id)
	w.WriteHeader(http.StatusNoContent)
}

// --- Coupons ---

type couponBody struct {
	ID       string          `json:"id"`
	Code     string          `json:"code"`
	Kind     string          `json:"kind"`
	Value    decimal.Decimal `json:"value"`
	Status   string          `json:"status"`
	Scope    scopeBody       `json:"scope"`
	Display  string          `json:"display"`
	StartsAt time.Time       `json:"startsAt"`
	EndsAt   time.Time       `json:"endsAt"`
}

func (b couponBody) toCoupon() (*coupon.Coupon, string) {
	if coupon.NormalizeCode(b.Code) == "" {
		return nil, "code is required"
	}
	kind, ok := parseDiscountKind(b.Kind)
	if !ok {
		return nil, "kind must be percentage or fixed"
	}
	if b.Value.Sign() <= 0 {
		return nil, "value must be positive"
	}
	status := coupon.Status(b.Status)
	if status != coupon.StatusActive && status != coupon.StatusInactive {
		return nil, "status must be active or inactive"
	}
	scope, ok := b.Scope.toScope()
	if !ok || scope.Kind == promo.ScopeChildCategory {
		return nil, "unknown scope kind"
	}
	display := coupon.Display(b.Display)
	switch display {
	case coupon.DisplayStandard, coupon.DisplayPopup, coupon.DisplayHidden:
	case "":
		display = coupon.DisplayStandard
	default:
		return nil, "display must be standard, popup or hidden"
	}
	if !b.EndsAt.After(b.StartsAt) {
		return nil, "endsAt must be after startsAt"
	}
	return &coupon.Coupon{
		ID:       b.ID,
		Code:     coupon.NormalizeCode(b.Code),
		Kind:     kind,
		Value:    b.Value,
		Status:   status,
		Scope:    scope,
		Display:  display,
		StartsAt: b.StartsAt,
		EndsAt:   b.EndsAt,
	}, ""
}

func toCouponBody(c coupon.Coupon) couponBody {
	return couponBody{
		ID:       c.ID,
		Code:     c.Code,
		Kind:     string(c.Kind),
		Value:    c.Value,
		Status:   string(c.Status),
		Scope:    scopeBody{Kind: string(c.Scope.Kind), Targets: c.Scope.Targets},
		Display:  string(c.Display),
		StartsAt: c.StartsAt,
		EndsAt:   c.EndsAt,
	}
}

func (h *Handler) getCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := h.coupons.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCouponBody(*c))
}

func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request) {
	var body couponBody
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, "invalid json")
		return
	}
	c, msg := body.toCoupon()
	if msg != "" {
		badRequest(w, msg)
		return
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	if err := h.coupons.Create(r.Context(), c); err != nil {
		respondError(w, r, err)
		return
	}
	h.recordAudit(r, "create", "coupon", c.ID)
	writeJSON(w, http.StatusCreated, toCouponBody(*c))
}

func (h *Handler) updateCoupon(w http.ResponseWriter, r *http.Request) {
	var body couponBody
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, "invalid json")
		return
	}
	c, msg := body.toCoupon()
	if msg != "" {
		badRequest(w, msg)
		return
	}
	c.ID = chi.URLParam(r, "id")

	if err := h.coupons.Update(r.Context(), c); err != nil {
		respondError(w, r, err)
		return
	}
	h.recordAudit(r, "update", "coupon", c.ID)
	writeJSON(w, http.StatusOK, toCouponBody(*c))
}

func (h *Handler) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.coupons.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	h.recordAudit(r, "delete", "coupon", id)
	w.WriteHeader(http.StatusNoContent)
}
