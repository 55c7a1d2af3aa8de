package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/northmill/storefront/internal/domain/catalog"
)

type productResponse struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Image         string           `json:"image"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	Stock         int              `json:"stock"`
	Gender        string           `json:"gender"`
	Category      string           `json:"category"`
	ChildCategory string           `json:"childCategory,omitempty"`
}

type productListResponse struct {
	Products []productResponse `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PerPage  int               `json:"perPage"`
}

func (h *Handler) toProductResponse(p catalog.PricedProduct) productResponse {
	image := p.Image
	if h.imageBaseURL != "" && image != "" && !strings.HasPrefix(image, "http") {
		image = strings.TrimSuffix(h.imageBaseURL, "/") + "/" + strings.TrimPrefix(image, "/")
	}
	return productResponse{
		ID:            p.ID,
		Name:          p.Name,
		Image:         image,
		Price:         p.FinalPrice,
		OriginalPrice: p.OriginalPrice,
		Stock:         p.Stock,
		Gender:        p.Gender,
		Category:      p.Category,
		ChildCategory: p.ChildCategory,
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	filter := catalog.ListFilter{
		Gender:   r.URL.Query().Get("gender"),
		Category: r.URL.Query().Get("category"),
	}
	filter.Page, filter.PerPage = pageParams(r)

	h.respondProductList(w, r, filter)
}

func (h *Handler) listByCategory(w http.ResponseWriter, r *http.Request) {
	filter := catalog.ListFilter{
		Category: chi.URLParam(r, "category"),
		Gender:   r.URL.Query().Get("gender"),
	}
	filter.Page, filter.PerPage = pageParams(r)

	h.respondProductList(w, r, filter)
}

func (h *Handler) respondProductList(w http.ResponseWriter, r *http.Request, filter catalog.ListFilter) {
	priced, total, err := h.pricer.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := productListResponse{
		Products: make([]productResponse, len(priced)),
		Total:    total,
		Page:     filter.Page,
		PerPage:  filter.PerPage,
	}
	for i, p := range priced {
		resp.Products[i] = h.toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) listOnSale(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)

	priced, total, err := h.pricer.ListOnSale(r.Context(), page, perPage)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := productListResponse{
		Products: make([]productResponse, len(priced)),
		Total:    total,
		Page:     page,
		PerPage:  perPage,
	}
	for i, p := range priced {
		resp.Products[i] = h.toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	pp, err := h.pricer.GetPrice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toProductResponse(*pp))
}

// getProductPrice returns just the resolved price of a product. Storefront
// pages poll this to refresh prices without refetching the whole product.
func (h *Handler) getProductPrice(w http.ResponseWriter, r *http.Request) {
	pp, err := h.pricer.GetPrice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Price         decimal.Decimal  `json:"price"`
		OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	}{Price: pp.FinalPrice, OriginalPrice: pp.OriginalPrice})
}

func pageParams(r *http.Request) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(r.URL.Query().Get("perPage"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}
