package orders

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/osteria-app/osteria-backend/api/middleware"
	"github.com/osteria-app/osteria-backend/api/responses"
	internalorders "github.com/osteria-app/osteria-backend/internal/orders"
	"github.com/osteria-app/osteria-backend/pkg/db/models"
	pkgerrors "github.com/osteria-app/osteria-backend/pkg/errors"
	"github.com/osteria-app/osteria-backend/pkg/logger"
)

// Detail serves the thank-you page lookup. The order id is an unguessable
// uuid handed out by the finalize redirect, so no authentication is required.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		detail, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(detail))
	}
}

// List returns the authenticated customer's order history.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		email := middleware.EmailFromContext(r.Context())
		if email == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to view orders"))
			return
		}

		rows, err := svc.ListByEmail(r.Context(), email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]orderSummary, 0, len(rows))
		for _, row := range rows {
			items = append(items, newOrderSummary(row))
		}
		responses.WriteSuccess(w, map[string]any{"orders": items})
	}
}

type orderResponse struct {
	ID            uuid.UUID           `json:"id"`
	Email         string              `json:"email"`
	TotalCents    int64               `json:"total_cents"`
	CouponCode    *string             `json:"coupon_code,omitempty"`
	DiscountCents int64               `json:"discount_cents"`
	Items         []orderItemResponse `json:"items"`
	CreatedAt     time.Time           `json:"created_at"`
}

type orderItemResponse struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name,omitempty"`
	Quantity   int64  `json:"quantity"`
	UnitAmount int64  `json:"unit_amount"`
}

type orderSummary struct {
	ID         uuid.UUID `json:"id"`
	TotalCents int64     `json:"total_cents"`
	CouponCode *string   `json:"coupon_code,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func newOrderResponse(detail *internalorders.Detail) orderResponse {
	if detail == nil || detail.Order == nil {
		return orderResponse{}
	}
	order := detail.Order
	resp := orderResponse{
		ID:         order.ID,
		Email:      order.Email,
		TotalCents: order.TotalCents,
		CouponCode: order.CouponCode,
		CreatedAt:  order.CreatedAt,
		Items:      make([]orderItemResponse, 0, len(order.Items)),
	}

	// Snapshot lines carry the display names; the relational rows are the
	// durable fallback when a legacy snapshot is unreadable.
	if detail.Snapshot != nil {
		resp.DiscountCents = detail.Snapshot.DiscountCents
		for _, line := range detail.Snapshot.Cart {
			resp.Items = append(resp.Items, orderItemResponse{
				ProductID:  line.ProductID,
				Name:       line.Name,
				Quantity:   line.Quantity,
				UnitAmount: line.UnitAmount,
			})
		}
		return resp
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitAmount: item.UnitAmount,
		})
	}
	return resp
}

func newOrderSummary(order models.Order) orderSummary {
	return orderSummary{
		ID:         order.ID,
		TotalCents: order.TotalCents,
		CouponCode: order.CouponCode,
		CreatedAt:  order.CreatedAt,
	}
}
