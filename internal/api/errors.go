package api

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/northmill/storefront/internal/domain/cart"
	"github.com/northmill/storefront/internal/domain/catalog"
	"github.com/northmill/storefront/internal/domain/coupon"
	"github.com/northmill/storefront/internal/domain/order"
	"github.com/northmill/storefront/internal/domain/promo"
)

type errorBody struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	// Conflicts is set only for stock conflicts, one entry per failing line.
	Conflicts []conflictBody `json:"conflicts,omitempty"`
}

type conflictBody struct {
	ProductID string `json:"productId"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// respondError maps a domain error onto the wire taxonomy. Validation
// problems are 400, missing entities 404, stock shortages 409, everything
// unrecognized a logged 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		vErr     *order.ValidationError
		itErr    *order.InvalidTransitionError
		stockErr *order.StockConflictError
	)

	switch {
	case errors.As(err, &stockErr):
		body := errorBody{Code: http.StatusConflict, Kind: "stock_conflict", Message: stockErr.Error()}
		for _, c := range stockErr.Conflicts {
			body.Conflicts = append(body.Conflicts, conflictBody{
				ProductID: c.ProductID, Requested: c.Requested, Available: c.Available,
			})
		}
		writeJSON(w, http.StatusConflict, body)

	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, errorBody{
			Code: http.StatusBadRequest, Kind: "validation", Message: vErr.Error(),
		})

	case errors.As(err, &itErr):
		writeJSON(w, http.StatusBadRequest, errorBody{
			Code: http.StatusBadRequest, Kind: "invalid_transition", Message: itErr.Error(),
		})

	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, promo.ErrNotFound),
		errors.Is(err, coupon.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{
			Code: http.StatusNotFound, Kind: "not_found", Message: err.Error(),
		})

	case errors.Is(err, cart.ErrItemNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{
			Code: http.StatusNotFound, Kind: "not_found", Message: err.Error(),
		})

	case errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, cart.ErrCouponNotApplicable),
		errors.Is(err, cart.ErrEmptyCart),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrNotDelivered),
		errors.Is(err, order.ErrReturnRequested),
		errors.Is(err, order.ErrNoReturn):
		writeJSON(w, http.StatusBadRequest, errorBody{
			Code: http.StatusBadRequest, Kind: "validation", Message: err.Error(),
		})

	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Code: http.StatusInternalServerError, Kind: "internal", Message: "internal server error",
		})
	}
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorBody{
		Code: http.StatusBadRequest, Kind: "validation", Message: message,
	})
}
