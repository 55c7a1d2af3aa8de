// Package api exposes the storefront over HTTP using chi.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/northmill/storefront/internal/collab"
	"github.com/northmill/storefront/internal/domain/cart"
	"github.com/northmill/storefront/internal/domain/catalog"
	"github.com/northmill/storefront/internal/domain/coupon"
	"github.com/northmill/storefront/internal/domain/order"
	"github.com/northmill/storefront/internal/domain/promo"
)

// Amounts are whole currency units; they render as bare JSON numbers.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Handler wires the domain services to HTTP routes.
type Handler struct {
	pricer       *catalog.Pricer
	carts        *cart.Service
	orders       *order.Service
	products     catalog.Repository
	campaigns    promo.Repository
	coupons      coupon.Repository
	perms        collab.PermissionChecker
	audit        collab.AuditLog
	imageBaseURL string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	pricer *catalog.Pricer,
	carts *cart.Service,
	orders *order.Service,
	products catalog.Repository,
	campaigns promo.Repository,
	coupons coupon.Repository,
	perms collab.PermissionChecker,
	audit collab.AuditLog,
) *Handler {
	return &Handler{
		pricer:       pricer,
		carts:        carts,
		orders:       orders,
		products:     products,
		campaigns:    campaigns,
		coupons:      coupons,
		perms:        perms,
		audit:        audit,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Routes mounts every storefront endpoint on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Get("/sale", h.listOnSale)
		r.Get("/category/{category}", h.listByCategory)
		r.Get("/{id}", h.getProduct)
		r.Get("/{id}/price", h.getProductPrice)
	})

	r.Get("/coupons", h.listCoupons)

	r.Group(func(r chi.Router) {
		r.Use(RequirePrincipal)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.getCart)
			r.Post("/items", h.addCartItem)
			r.Put("/items/{cartItemId}", h.updateCartItem)
			r.Delete("/items/{cartItemId}", h.removeCartItem)
			r.Delete("/", h.clearCart)
			r.Post("/coupon", h.applyCoupon)
			r.Delete("/coupon", h.removeCoupon)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.placeOrder)
			r.Get("/", h.listMyOrders)
			r.Get("/{id}", h.getOrder)
			r.Post("/{id}/return", h.requestReturn)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(RequirePrincipal)

		r.Route("/admin/orders", func(r chi.Router) {
			r.Get("/", h.requirePermission("orders:manage", h.adminListOrders))
			r.Put("/{id}/status", h.requirePermission("orders:manage", h.updateOrderStatus))
			r.Put("/{id}/return", h.requirePermission("orders:manage", h.updateReturnStatus))
		})

		r.Route("/admin/products", func(r chi.Router) {
			r.Post("/", h.requirePermission("catalog:manage", h.createProduct))
			r.Put("/{id}", h.requirePermission("catalog:manage", h.updateProduct))
			r.Delete("/{id}", h.requirePermission("catalog:manage", h.deleteProduct))
		})

		r.Route("/admin/campaigns", func(r chi.Router) {
			r.Get("/", h.requirePermission("promotions:manage", h.adminListCampaigns))
			r.Get("/{id}", h.requirePermission("promotions:manage", h.getCampaign))
			r.Post("/", h.requirePermission("promotions:manage", h.createCampaign))
			r.Put("/{id}", h.requirePermission("promotions:manage", h.updateCampaign))
			r.Delete("/{id}", h.requirePermission("promotions:manage", h.deleteCampaign))
		})

		r.Route("/admin/coupons", func(r chi.Router) {
			r.Get("/{id}", h.requirePermission("promotions:manage", h.getCoupon))
			r.Post("/", h.requirePermission("promotions:manage", h.createCoupon))
			r.Put("/{id}", h.requirePermission("promotions:manage", h.updateCoupon))
			r.Delete("/{id}", h.requirePermission("promotions:manage", h.deleteCoupon))
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// requirePermission gates a handler on the principal's resolved permission
// set, consulting the external checker.
func (h *Handler) requirePermission(permission string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if !ok || !h.perms.Can(r.Context(), p, permission) {
			writeJSON(w, http.StatusForbidden, errorBody{
				Code: http.StatusForbidden, Kind: "forbidden", Message: "missing permission " + permission,
			})
			return
		}
		next(w, r)
	}
}
