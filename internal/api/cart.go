package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/northmill/storefront/internal/domain/cart"
)

type cartResponse struct {
	Items           []cart.Item     `json:"items"`
	AppliedCoupon   string          `json:"appliedCoupon,omitempty"`
	CouponEffective bool            `json:"couponEffective"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
}

func toCartResponse(v *cart.View) cartResponse {
	items := v.Items
	if items == nil {
		items = []cart.Item{}
	}
	return cartResponse{
		Items:           items,
		AppliedCoupon:   v.AppliedCoupon,
		CouponEffective: v.CouponEffective,
		Subtotal:        v.Totals.Subtotal,
		DiscountAmount:  v.Totals.DiscountAmount,
	}
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	view, err := h.carts.Get(r.Context(), p.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	var req struct {
		CartItemID   string `json:"cartItemId"`
		ProductID    string `json:"productId"`
		Quantity     int    `json:"quantity"`
		SelectedSize string `json:"selectedSize"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if req.CartItemID == "" || req.ProductID == "" {
		badRequest(w, "cartItemId and productId required")
		return
	}

	view, err := h.carts.AddItem(r.Context(), p.ID, cart.AddItemRequest{
		CartItemID:   req.CartItemID,
		ProductID:    req.ProductID,
		Quantity:     req.Quantity,
		SelectedSize: req.SelectedSize,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	view, err := h.carts.UpdateItemQuantity(r.Context(), p.ID, chi.URLParam(r, "cartItemId"), req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	view, err := h.carts.RemoveItem(r.Context(), p.ID, chi.URLParam(r, "cartItemId"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	view, err := h.carts.Clear(r.Context(), p.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if req.Code == "" {
		badRequest(w, "code required")
		return
	}

	view, err := h.carts.ApplyCoupon(r.Context(), p.ID, req.Code)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

func (h *Handler) removeCoupon(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	view, err := h.carts.RemoveCoupon(r.Context(), p.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}
