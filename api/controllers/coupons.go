package controllers

import (
	"net/http"

	"github.com/osteria-app/osteria-backend/api/responses"
	"github.com/osteria-app/osteria-backend/api/validators"
	"github.com/osteria-app/osteria-backend/internal/discount"
	pkgerrors "github.com/osteria-app/osteria-backend/pkg/errors"
	"github.com/osteria-app/osteria-backend/pkg/logger"
)

// CouponApply resolves a raw code against the cart without touching any
// balance. The cart UI calls this on every code entry; an unknown or
// exhausted code is a valid=false answer, not an error.
func CouponApply(discounts discount.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if discounts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount service unavailable"))
			return
		}

		var payload applyCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var subtotal int64
		for _, line := range payload.Cart {
			subtotal += line.UnitAmount * line.Quantity
		}

		eval, err := discounts.Evaluate(r.Context(), payload.Code, subtotal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, applyCouponResponse{
			Valid:      eval.Applies,
			AmountOff:  eval.AmountOff,
			PercentOff: eval.PercentOff,
		})
	}
}

// CouponValidate resolves a scanned gift-code QR to its current balance.
func CouponValidate(discounts discount.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if discounts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount service unavailable"))
			return
		}

		var payload validateGiftRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		giftCode, err := discounts.LookupGiftCode(r.Context(), payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, validateGiftResponse{
			ID:            giftCode.ID.String(),
			Code:          giftCode.Code,
			Balance:       giftCode.RemainingCents,
			CustomerEmail: giftCode.CustomerEmail,
		})
	}
}

type applyCouponRequest struct {
	Code string            `json:"code" validate:"required"`
	Cart []cartLineRequest `json:"cart" validate:"omitempty,dive"`
}

type applyCouponResponse struct {
	Valid      bool   `json:"valid"`
	AmountOff  *int64 `json:"amount_off"`
	PercentOff *int64 `json:"percent_off"`
}

type validateGiftRequest struct {
	Code string `json:"code" validate:"required"`
}

type validateGiftResponse struct {
	ID            string `json:"id"`
	Code          string `json:"code"`
	Balance       int64  `json:"balance"`
	CustomerEmail string `json:"customer_email"`
}
