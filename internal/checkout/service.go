package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/osteria-app/osteria-backend/internal/discount"
	"github.com/osteria-app/osteria-backend/internal/pending"
	"github.com/osteria-app/osteria-backend/pkg/db/models"
	"github.com/osteria-app/osteria-backend/pkg/enums"
	pkgerrors "github.com/osteria-app/osteria-backend/pkg/errors"
	"github.com/osteria-app/osteria-backend/pkg/paypal"
	"github.com/osteria-app/osteria-backend/pkg/types"
)

const (
	returnPath     = "/api/paypal/return"
	cancelPath     = "/api/paypal/cancel"
	giftReturnPath = "/api/paypal/gift/return"
	giftCancelPath = "/api/paypal/gift/cancel"
)

type gateway interface {
	CreateOrder(ctx context.Context, params paypal.CreateOrderParams) (*paypal.Order, error)
}

type discountEvaluator interface {
	Evaluate(ctx context.Context, rawCode string, subtotalCents int64) (*discount.Evaluation, error)
}

type emailResolver interface {
	FindEmailByID(ctx context.Context, id string) (string, error)
}

// Identity is the authenticated caller extracted from a bearer token.
// Its email always wins over a client-supplied one so a logged-in user's
// order cannot be mis-attributed.
type Identity struct {
	UserID string
	Email  string
}

// StartInput is a cart checkout request.
type StartInput struct {
	Cart       []types.CartLine
	CouponCode string
	Email      string
	Identity   *Identity
}

// StartResult carries the approval redirect plus the priced totals.
type StartResult struct {
	ProviderOrderID string
	ApprovalURL     string
	SubtotalCents   int64
	DiscountCents   int64
	TotalCents      int64
}

// GiftInput is a gift-code purchase request. AmountCents is the amount the
// buyer pays; the bonus is credited at issuance.
type GiftInput struct {
	AmountCents int64
	Email       string
	Identity    *Identity
}

// GiftResult mirrors StartResult for gift purchases.
type GiftResult struct {
	ProviderOrderID string
	ApprovalURL     string
	AmountCents     int64
	BonusCents      int64
}

// Service starts checkout flows: price the cart, reserve nothing, hand the
// buyer to the payment provider, and leave a pending row behind for the
// finalizer.
type Service interface {
	StartCheckout(ctx context.Context, input StartInput) (*StartResult, error)
	StartGiftPurchase(ctx context.Context, input GiftInput) (*GiftResult, error)
}

// Params collects the service dependencies. Users is optional; without it a
// token that carries no email claim falls back to the client-supplied one.
type Params struct {
	Gateway   gateway
	Discounts discountEvaluator
	Pending   pending.Repository
	Users     emailResolver
	AppURL    string
}

type service struct {
	gateway   gateway
	discounts discountEvaluator
	pending   pending.Repository
	users     emailResolver
	appURL    string
}

// NewService builds the checkout service.
func NewService(p Params) (Service, error) {
	if p.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if p.Discounts == nil {
		return nil, fmt.Errorf("discount evaluator required")
	}
	if p.Pending == nil {
		return nil, fmt.Errorf("pending repository required")
	}
	if p.AppURL == "" {
		return nil, fmt.Errorf("app url required")
	}
	return &service{
		gateway:   p.Gateway,
		discounts: p.Discounts,
		pending:   p.Pending,
		users:     p.Users,
		appURL:    strings.TrimRight(p.AppURL, "/"),
	}, nil
}

func (s *service) StartCheckout(ctx context.Context, input StartInput) (*StartResult, error) {
	subtotal, err := cartSubtotal(input.Cart)
	if err != nil {
		return nil, err
	}

	eval, err := s.discounts.Evaluate(ctx, input.CouponCode, subtotal)
	if err != nil {
		return nil, err
	}
	total := discount.Total(subtotal, eval.DiscountCents)

	order, err := s.gateway.CreateOrder(ctx, paypal.CreateOrderParams{
		AmountCents: total,
		Currency:    enums.CurrencyEUR,
		Description: "Cart checkout",
		ReturnURL:   s.appURL + returnPath,
		CancelURL:   s.appURL + cancelPath,
	})
	if err != nil {
		// No pending row on gateway failure; the buyer retries by
		// re-initiating checkout.
		return nil, err
	}
	if order.ApprovalURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment provider returned no approval link")
	}

	snapshot := types.OrderSnapshot{
		Version:       types.SnapshotVersion,
		Cart:          input.Cart,
		DiscountCents: eval.DiscountCents,
	}
	if eval.Applies {
		snapshot.CouponCode = eval.Code
	}
	itemsJSON, err := snapshot.Encode()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding cart snapshot")
	}

	row := &models.PendingOrder{
		ProviderOrderID: order.ID,
		Email:           s.buyerEmail(ctx, input.Identity, input.Email),
		AmountCents:     total,
		ItemsJSON:       itemsJSON,
	}
	if input.Identity != nil && input.Identity.UserID != "" {
		userID := input.Identity.UserID
		row.UserID = &userID
	}
	if err := s.pending.CreateOrder(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting pending order")
	}

	return &StartResult{
		ProviderOrderID: order.ID,
		ApprovalURL:     order.ApprovalURL,
		SubtotalCents:   subtotal,
		DiscountCents:   eval.DiscountCents,
		TotalCents:      total,
	}, nil
}

func (s *service) StartGiftPurchase(ctx context.Context, input GiftInput) (*GiftResult, error) {
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gift amount must be positive")
	}
	bonus := discount.GiftBonus(input.AmountCents)

	order, err := s.gateway.CreateOrder(ctx, paypal.CreateOrderParams{
		AmountCents: input.AmountCents,
		Currency:    enums.CurrencyEUR,
		Description: fmt.Sprintf("Gift coupon %d cents (+%d bonus)", input.AmountCents, bonus),
		ReturnURL:   s.appURL + giftReturnPath,
		CancelURL:   s.appURL + giftCancelPath,
	})
	if err != nil {
		return nil, err
	}
	if order.ApprovalURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment provider returned no approval link")
	}

	row := &models.PendingGift{
		ProviderOrderID: order.ID,
		Email:           s.buyerEmail(ctx, input.Identity, input.Email),
		AmountCents:     input.AmountCents,
	}
	if err := s.pending.CreateGift(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting pending gift")
	}

	return &GiftResult{
		ProviderOrderID: order.ID,
		ApprovalURL:     order.ApprovalURL,
		AmountCents:     input.AmountCents,
		BonusCents:      bonus,
	}, nil
}

func cartSubtotal(cart []types.CartLine) (int64, error) {
	if len(cart) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}
	var subtotal int64
	for _, line := range cart {
		if line.Quantity < 0 || line.UnitAmount < 0 {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "cart line with negative quantity or price")
		}
		subtotal += line.UnitAmount * line.Quantity
	}
	return subtotal, nil
}

// buyerEmail resolves the email to attach to the pending row. A token email
// always wins; a token with only a subject resolves through the users table;
// anonymous buyers keep the address they typed.
func (s *service) buyerEmail(ctx context.Context, identity *Identity, supplied string) string {
	if identity != nil {
		if identity.Email != "" {
			return identity.Email
		}
		if identity.UserID != "" && s.users != nil {
			if email, err := s.users.FindEmailByID(ctx, identity.UserID); err == nil && email != "" {
				return email
			}
		}
	}
	return strings.TrimSpace(supplied)
}
