package webhooks

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/osteria-app/osteria-backend/api/responses"
	paypalwebhook "github.com/osteria-app/osteria-backend/internal/webhooks/paypal"
	pkgerrors "github.com/osteria-app/osteria-backend/pkg/errors"
	"github.com/osteria-app/osteria-backend/pkg/logger"
)

const maxWebhookBody = 1 << 20

// PayPalWebhook ingests provider event deliveries. A non-2xx answer makes the
// provider redeliver, so only genuinely retryable failures return errors.
func PayPalWebhook(svc *paypalwebhook.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read webhook body"))
			return
		}

		var envelope struct {
			EventType string              `json:"event_type"`
			Resource  paypalwebhook.Event `json:"resource"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook payload"))
			return
		}

		event := envelope.Resource
		if event.ID == "" {
			// Some sandbox deliveries put the order at the top level.
			if err := json.Unmarshal(body, &event); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook payload"))
				return
			}
		}

		if err := svc.HandleEvent(r.Context(), event); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "received"})
	}
}
