package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/osteria-app/osteria-backend/api/responses"
	"github.com/osteria-app/osteria-backend/api/validators"
	checkoutsvc "github.com/osteria-app/osteria-backend/internal/checkout"
	pkgerrors "github.com/osteria-app/osteria-backend/pkg/errors"
	"github.com/osteria-app/osteria-backend/pkg/logger"
)

// GiftCouponBuy starts a stored-value gift purchase. The buyer pays the face
// amount; the bonus is credited when the payment settles.
func GiftCouponBuy(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload buyGiftRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amountCents := decimal.NewFromFloat(payload.AmountEUR).
			Mul(decimal.NewFromInt(100)).
			Round(0).
			IntPart()

		result, err := svc.StartGiftPurchase(r.Context(), checkoutsvc.GiftInput{
			AmountCents: amountCents,
			Email:       payload.Email,
			Identity:    identityFromContext(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, buyGiftResponse{
			URL:         result.ApprovalURL,
			AmountCents: result.AmountCents,
			BonusCents:  result.BonusCents,
		})
	}
}

type buyGiftRequest struct {
	AmountEUR float64 `json:"amount_eur" validate:"required,gt=0"`
	Email     string  `json:"email" validate:"omitempty,email"`
}

type buyGiftResponse struct {
	URL         string `json:"url"`
	AmountCents int64  `json:"amount_cents"`
	BonusCents  int64  `json:"bonus_cents"`
}
