package api

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/northmill/storefront/internal/domain/coupon"
)

type couponResponse struct {
	Code            string          `json:"code"`
	Kind            string          `json:"kind"`
	Value           decimal.Decimal `json:"value"`
	Display         string          `json:"display"`
	EffectiveStatus string          `json:"effectiveStatus"`
	StartsAt        time.Time       `json:"startsAt"`
	EndsAt          time.Time       `json:"endsAt"`
}

// listCoupons returns publicly listed coupons with their derived status. The
// display query parameter narrows to one surface (standard or popup). Hidden
// coupons never appear here; they remain redeemable by code only.
func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	list, err := h.coupons.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	display := coupon.Display(r.URL.Query().Get("display"))
	now := time.Now()

	out := make([]couponResponse, 0, len(list))
	for _, c := range list {
		if c.Display == coupon.DisplayHidden {
			continue
		}
		if display != "" && c.Display != display {
			continue
		}
		out = append(out, couponResponse{
			Code:            c.Code,
			Kind:            string(c.Kind),
			Value:           c.Value,
			Display:         string(c.Display),
			EffectiveStatus: string(c.EffectiveStatus(now)),
			StartsAt:        c.StartsAt,
			EndsAt:          c.EndsAt,
		})
	}
	writeJSON(w, http.StatusOK, struct {
		Coupons []couponResponse `json:"coupons"`
	}{Coupons: out})
}
