package controllers

import (
	"net/http"
	"time"

	"github.com/osteria-app/osteria-backend/api/responses"
	"github.com/osteria-app/osteria-backend/internal/products"
	"github.com/osteria-app/osteria-backend/pkg/db/models"
	pkgerrors "github.com/osteria-app/osteria-backend/pkg/errors"
	"github.com/osteria-app/osteria-backend/pkg/logger"
)

// ProductList serves the active menu for the storefront.
func ProductList(repo products.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products repository unavailable"))
			return
		}

		rows, err := repo.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing products"))
			return
		}

		items := make([]productResponse, 0, len(rows))
		for _, row := range rows {
			items = append(items, newProductResponse(row))
		}
		responses.WriteSuccess(w, map[string]any{"products": items})
	}
}

type productResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	Currency   string    `json:"currency"`
	CreatedAt  time.Time `json:"created_at"`
}

func newProductResponse(product models.Product) productResponse {
	return productResponse{
		ID:         product.ID,
		Name:       product.Name,
		PriceCents: product.PriceCents,
		Currency:   product.Currency,
		CreatedAt:  product.CreatedAt,
	}
}
