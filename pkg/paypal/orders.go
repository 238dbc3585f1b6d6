package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/osteria-app/osteria-backend/pkg/enums"
	pkgerrors "github.com/osteria-app/osteria-backend/pkg/errors"
)

// CreateOrderParams describes a single-purchase-unit order. Amount is in
// minor units of the given currency.
type CreateOrderParams struct {
	AmountCents int64
	Currency    enums.Currency
	Description string
	ReturnURL   string
	CancelURL   string
}

// Order is the created provider-side order awaiting buyer approval.
type Order struct {
	ID          string
	Status      string
	ApprovalURL string
}

// Capture is the outcome of a capture attempt.
type Capture struct {
	OrderID    string
	Status     enums.CaptureStatus
	PayerEmail string
}

type orderRequest struct {
	Intent             string              `json:"intent"`
	PurchaseUnits      []purchaseUnit      `json:"purchase_units"`
	ApplicationContext *applicationContext `json:"application_context,omitempty"`
}

type purchaseUnit struct {
	Amount      amount `json:"amount"`
	Description string `json:"description,omitempty"`
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type applicationContext struct {
	ReturnURL string `json:"return_url,omitempty"`
	CancelURL string `json:"cancel_url,omitempty"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
	Payer struct {
		EmailAddress string `json:"email_address"`
	} `json:"payer"`
}

// CreateOrder creates a CAPTURE-intent order and returns its id plus the
// buyer approval link.
func (c *Client) CreateOrder(ctx context.Context, params CreateOrderParams) (*Order, error) {
	if params.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order amount must be positive")
	}
	currency := params.Currency
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency")
	}

	body := orderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			Amount: amount{
				CurrencyCode: currency.String(),
				Value:        formatAmount(params.AmountCents),
			},
			Description: params.Description,
		}},
	}
	if params.ReturnURL != "" || params.CancelURL != "" {
		body.ApplicationContext = &applicationContext{
			ReturnURL: params.ReturnURL,
			CancelURL: params.CancelURL,
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding order request")
	}

	var resp orderResponse
	if err := c.doJSON(ctx, http.MethodPost, ordersPath, bytes.NewReader(payload), &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paypal returned an order without an id")
	}

	order := &Order{ID: resp.ID, Status: resp.Status, ApprovalURL: approvalLink(resp)}
	logCtx := c.logger.WithFields(ctx, map[string]any{
		"provider_order_id": order.ID,
		"status":            order.Status,
	})
	c.logger.Info(logCtx, "paypal order created")
	return order, nil
}

// CaptureOrder captures an approved order. A non-settled status is returned
// to the caller, not turned into an error.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*Capture, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	var resp orderResponse
	path := ordersPath + "/" + id + "/capture"
	if err := c.doJSON(ctx, http.MethodPost, path, strings.NewReader("{}"), &resp); err != nil {
		return nil, err
	}

	capture := &Capture{
		OrderID:    resp.ID,
		Status:     enums.CaptureStatus(resp.Status),
		PayerEmail: resp.Payer.EmailAddress,
	}
	if capture.OrderID == "" {
		capture.OrderID = id
	}
	logCtx := c.logger.WithFields(ctx, map[string]any{
		"provider_order_id": capture.OrderID,
		"status":            capture.Status.String(),
	})
	c.logger.Info(logCtx, "paypal capture attempted")
	return capture, nil
}

func approvalLink(resp orderResponse) string {
	for _, link := range resp.Links {
		if link.Rel == "approve" {
			return link.Href
		}
	}
	return ""
}

func formatAmount(cents int64) string {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).StringFixed(2)
}
