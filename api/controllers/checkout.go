package controllers

import (
	"net/http"

	"github.com/osteria-app/osteria-backend/api/middleware"
	"github.com/osteria-app/osteria-backend/api/responses"
	"github.com/osteria-app/osteria-backend/api/validators"
	checkoutsvc "github.com/osteria-app/osteria-backend/internal/checkout"
	pkgerrors "github.com/osteria-app/osteria-backend/pkg/errors"
	"github.com/osteria-app/osteria-backend/pkg/logger"
	"github.com/osteria-app/osteria-backend/pkg/types"
)

// Checkout prices the submitted cart and hands back the provider approval
// URL. The cart is the storefront's snapshot; finalization re-reads it from
// the pending row, never from the client again.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart := make([]types.CartLine, 0, len(payload.Cart))
		for _, line := range payload.Cart {
			cart = append(cart, types.CartLine{
				ProductID:  line.ProductID,
				Name:       line.Name,
				Quantity:   line.Quantity,
				UnitAmount: line.UnitAmount,
				Currency:   line.Currency,
			})
		}

		result, err := svc.StartCheckout(r.Context(), checkoutsvc.StartInput{
			Cart:       cart,
			CouponCode: payload.CouponCode,
			Email:      payload.Email,
			Identity:   identityFromContext(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			URL:           result.ApprovalURL,
			SubtotalCents: result.SubtotalCents,
			DiscountCents: result.DiscountCents,
			TotalCents:    result.TotalCents,
		})
	}
}

type checkoutRequest struct {
	Cart       []cartLineRequest `json:"cart" validate:"required,min=1,dive"`
	CouponCode string            `json:"coupon_code"`
	Email      string            `json:"email" validate:"omitempty,email"`
}

type cartLineRequest struct {
	ProductID  string `json:"productId" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Quantity   int64  `json:"quantity" validate:"required,min=1"`
	UnitAmount int64  `json:"unitAmount" validate:"required,min=0"`
	Currency   string `json:"currency"`
}

type checkoutResponse struct {
	URL           string `json:"url"`
	SubtotalCents int64  `json:"subtotal_cents"`
	DiscountCents int64  `json:"discount_cents"`
	TotalCents    int64  `json:"total_cents"`
}

// identityFromContext converts middleware claims into a checkout identity.
// Anonymous requests yield nil; client-supplied emails only count then.
func identityFromContext(r *http.Request) *checkoutsvc.Identity {
	userID := middleware.UserIDFromContext(r.Context())
	email := middleware.EmailFromContext(r.Context())
	if userID == "" && email == "" {
		return nil
	}
	return &checkoutsvc.Identity{UserID: userID, Email: email}
}
