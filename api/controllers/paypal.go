package controllers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/osteria-app/osteria-backend/api/responses"
	"github.com/osteria-app/osteria-backend/internal/finalize"
	"github.com/osteria-app/osteria-backend/pkg/logger"
)

// PayPalReturn is the browser hop back from the provider's approval page.
// It races the webhook for the same provider order id; both funnel into the
// same finalizer, so whichever lands second sees an idempotent no-op.
//
// The buyer always ends up on a thank-you page. Transient failures hide the
// order id rather than surfacing an error to a payer whose money may already
// be captured.
func PayPalReturn(svc finalize.Service, appURL string, logg *logger.Logger) http.HandlerFunc {
	base := strings.TrimRight(appURL, "/")
	return func(w http.ResponseWriter, r *http.Request) {
		fallback := base + "/thank-you"

		token := strings.TrimSpace(r.URL.Query().Get("token"))
		if token == "" || svc == nil {
			responses.WriteRedirect(w, r, fallback)
			return
		}

		result, err := svc.FinalizeOrder(r.Context(), token)
		if err != nil {
			logg.Error(r.Context(), "finalize on return failed", err)
			responses.WriteRedirect(w, r, fallback)
			return
		}
		if result.Outcome == finalize.OutcomeFinalized {
			responses.WriteRedirect(w, r, fallback+"/"+result.OrderID.String())
			return
		}
		responses.WriteRedirect(w, r, fallback)
	}
}

// PayPalGiftReturn finalizes a gift purchase on the browser hop back and
// carries the freshly minted code to the thank-you page.
func PayPalGiftReturn(svc finalize.Service, appURL string, logg *logger.Logger) http.HandlerFunc {
	base := strings.TrimRight(appURL, "/")
	return func(w http.ResponseWriter, r *http.Request) {
		fallback := base + "/thank-you"

		token := strings.TrimSpace(r.URL.Query().Get("token"))
		if token == "" || svc == nil {
			responses.WriteRedirect(w, r, fallback)
			return
		}

		result, err := svc.FinalizeGift(r.Context(), token)
		if err != nil {
			logg.Error(r.Context(), "finalize gift on return failed", err)
			responses.WriteRedirect(w, r, fallback)
			return
		}
		if result.Outcome == finalize.OutcomeFinalized && result.GiftCode != "" {
			responses.WriteRedirect(w, r, fallback+"?code="+url.QueryEscape(result.GiftCode))
			return
		}
		responses.WriteRedirect(w, r, fallback)
	}
}

// PayPalCancel acknowledges an abandoned approval. The pending row stays and
// the hourly sweep collects it.
func PayPalCancel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}
