package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/northmill/storefront/internal/domain/order"
)

type placeOrderRequest struct {
	Items            []order.Item       `json:"items"`
	ShippingInfo     order.ShippingInfo `json:"shippingInfo"`
	PaymentMethod    string             `json:"paymentMethod"`
	Subtotal         decimal.Decimal    `json:"subtotal"`
	CampaignDiscount decimal.Decimal    `json:"campaignDiscount"`
	CouponCode       string             `json:"couponCode"`
	CouponDiscount   decimal.Decimal    `json:"couponDiscount"`
	TaxAmount        decimal.Decimal    `json:"taxAmount"`
	ShippingCost     decimal.Decimal    `json:"shippingCost"`
	Total            decimal.Decimal    `json:"total"`
}

type orderResponse struct {
	ID               string             `json:"id"`
	UserID           string             `json:"userId"`
	Items            []order.Item       `json:"items"`
	ShippingInfo     order.ShippingInfo `json:"shippingInfo"`
	PaymentMethod    string             `json:"paymentMethod"`
	PaymentStatus    string             `json:"paymentStatus"`
	Subtotal         decimal.Decimal    `json:"subtotal"`
	CampaignDiscount decimal.Decimal    `json:"campaignDiscount"`
	CouponCode       string             `json:"couponCode,omitempty"`
	CouponDiscount   decimal.Decimal    `json:"couponDiscount"`
	TaxAmount        decimal.Decimal    `json:"taxAmount"`
	ShippingCost     decimal.Decimal    `json:"shippingCost"`
	Total            decimal.Decimal    `json:"total"`
	Status           string             `json:"status"`
	ReturnStatus     string             `json:"returnStatus,omitempty"`
	ReturnReason     string             `json:"returnReason,omitempty"`
	CreatedAt        string             `json:"createdAt"`
}

func toOrderResponse(o *order.Order) orderResponse {
	return orderResponse{
		ID:               o.ID,
		UserID:           o.UserID,
		Items:            o.Items,
		ShippingInfo:     o.ShippingInfo,
		PaymentMethod:    o.PaymentMethod,
		PaymentStatus:    string(o.PaymentStatus),
		Subtotal:         o.Subtotal,
		CampaignDiscount: o.CampaignDiscount,
		CouponCode:       o.CouponCode,
		CouponDiscount:   o.CouponDiscount,
		TaxAmount:        o.TaxAmount,
		ShippingCost:     o.ShippingCost,
		Total:            o.Total,
		Status:           string(o.Status),
		ReturnStatus:     string(o.ReturnStatus),
		ReturnReason:     o.ReturnReason,
		CreatedAt:        o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	o, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		UserID:           p.ID,
		Items:            req.Items,
		ShippingInfo:     req.ShippingInfo,
		PaymentMethod:    req.PaymentMethod,
		Subtotal:         req.Subtotal,
		CampaignDiscount: req.CampaignDiscount,
		CouponCode:       req.CouponCode,
		CouponDiscount:   req.CouponDiscount,
		TaxAmount:        req.TaxAmount,
		ShippingCost:     req.ShippingCost,
		Total:            req.Total,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	o, err := h.orders.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	// Users only see their own orders.
	if o.UserID != p.ID && !p.Has("orders:manage") {
		respondError(w, r, order.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) listMyOrders(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	list, err := h.orders.ListByUser(r.Context(), p.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderListResponse(list))
}

func (h *Handler) requestReturn(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	orderID := chi.URLParam(r, "id")
	existing, err := h.orders.GetByID(r.Context(), orderID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if existing.UserID != p.ID {
		respondError(w, r, order.ErrNotFound)
		return
	}

	o, err := h.orders.RequestReturn(r.Context(), p.ID, orderID, req.Reason)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) adminListOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.orders.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderListResponse(list))
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	status, err := order.ParseStatus(req.Status)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), p.ID, chi.URLParam(r, "id"), status)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) updateReturnStatus(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	var req struct {
		Approved bool `json:"approved"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	o, err := h.orders.UpdateReturnStatus(r.Context(), p.ID, chi.URLParam(r, "id"), req.Approved)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func toOrderListResponse(list []order.Order) []orderResponse {
	out := make([]orderResponse, len(list))
	for i := range list {
		out[i] = toOrderResponse(&list[i])
	}
	return out
}
