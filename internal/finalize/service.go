package finalize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osteria-app/osteria-backend/internal/mailer"
	"github.com/osteria-app/osteria-backend/internal/orders"
	"github.com/osteria-app/osteria-backend/internal/pending"
	"github.com/osteria-app/osteria-backend/pkg/db/models"
	pkgerrors "github.com/osteria-app/osteria-backend/pkg/errors"
	"github.com/osteria-app/osteria-backend/pkg/logger"
	"github.com/osteria-app/osteria-backend/pkg/paypal"
	"github.com/osteria-app/osteria-backend/pkg/types"
)

// Outcome classifies a finalization attempt. Duplicate deliveries resolve to
// OutcomeAlreadyProcessed, indistinguishable from success to the payer.
type Outcome string

const (
	OutcomeFinalized        Outcome = "finalized"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeNotSettled       Outcome = "not_settled"
)

// Result reports what a finalization attempt did. OrderID is set only when
// this call created the order; GiftCode/GiftValueCents only for gift flows.
type Result struct {
	Outcome        Outcome
	OrderID        uuid.UUID
	GiftCode       string
	GiftValueCents int64
}

type gateway interface {
	CaptureOrder(ctx context.Context, orderID string) (*paypal.Capture, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type discountDecrementer interface {
	ApplyDecrement(ctx context.Context, tx *gorm.DB, code string, discountCents int64) error
	MintGiftCode(ctx context.Context, tx *gorm.DB, valueCents int64, email string) (*models.GiftCode, error)
}

// Service converts captured payments into durable orders. The pending-row
// delete inside the transaction is the single arbiter: whichever duplicate
// callback removes the row wins; everyone else sees already-processed.
type Service interface {
	FinalizeOrder(ctx context.Context, providerOrderID string) (*Result, error)
	FinalizeGift(ctx context.Context, providerOrderID string) (*Result, error)
}

// Params collects the service dependencies.
type Params struct {
	Gateway   gateway
	Tx        txRunner
	Pending   pending.Repository
	Orders    orders.Repository
	Discounts discountDecrementer
	Mailer    mailer.Dispatcher
	Logger    *logger.Logger
}

type service struct {
	gateway   gateway
	tx        txRunner
	pending   pending.Repository
	orders    orders.Repository
	discounts discountDecrementer
	mailer    mailer.Dispatcher
	logger    *logger.Logger
}

// NewService builds the finalization service.
func NewService(p Params) (Service, error) {
	if p.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Pending == nil {
		return nil, fmt.Errorf("pending repository required")
	}
	if p.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Discounts == nil {
		return nil, fmt.Errorf("discount service required")
	}
	if p.Mailer == nil {
		return nil, fmt.Errorf("mail dispatcher required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		gateway:   p.Gateway,
		tx:        p.Tx,
		pending:   p.Pending,
		orders:    p.Orders,
		discounts: p.Discounts,
		mailer:    p.Mailer,
		logger:    p.Logger,
	}, nil
}

// FinalizeOrder captures payment for a cart checkout and, exactly once per
// provider order id, materializes the order, decrements the discount source,
// and deletes the pending row, all in one transaction. The confirmation mail
// goes out after commit; its failure is logged, never propagated.
func (s *service) FinalizeOrder(ctx context.Context, providerOrderID string) (*Result, error) {
	providerOrderID = strings.TrimSpace(providerOrderID)
	if providerOrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider order id required")
	}
	ctx = s.logger.WithProviderOrderID(ctx, providerOrderID)

	capture, err := s.gateway.CaptureOrder(ctx, providerOrderID)
	if err != nil {
		return nil, err
	}
	if !capture.Status.Settled() {
		s.logger.Info(ctx, "capture not settled, leaving pending order intact")
		return &Result{Outcome: OutcomeNotSettled}, nil
	}

	var (
		result   = &Result{Outcome: OutcomeAlreadyProcessed}
		mail     mailer.OrderConfirmation
		sendMail bool
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		pendingRepo := s.pending.WithTx(tx)

		row, err := pendingRepo.FindOrder(ctx, providerOrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading pending order")
		}
		consumed, err := pendingRepo.ConsumeOrder(ctx, providerOrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consuming pending order")
		}
		if !consumed {
			return nil
		}

		snapshot, err := types.DecodeOrderSnapshot(row.ItemsJSON)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding order snapshot")
		}

		var couponCode *string
		if snapshot.CouponCode != "" {
			code := snapshot.CouponCode
			couponCode = &code
		}
		order := &models.Order{
			ID:         uuid.New(),
			UserID:     row.UserID,
			Email:      row.Email,
			TotalCents: row.AmountCents,
			CouponCode: couponCode,
			ItemsJSON:  row.ItemsJSON,
		}
		ordersRepo := s.orders.WithTx(tx)
		if _, err := ordersRepo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order")
		}

		items := make([]models.OrderItem, 0, len(snapshot.Cart))
		for _, line := range snapshot.Cart {
			items = append(items, models.OrderItem{
				ID:         uuid.New(),
				OrderID:    order.ID,
				ProductID:  line.ProductID,
				Quantity:   line.Quantity,
				UnitAmount: line.UnitAmount,
			})
		}
		if err := ordersRepo.CreateOrderItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order items")
		}

		if snapshot.CouponCode != "" {
			if err := s.discounts.ApplyDecrement(ctx, tx, snapshot.CouponCode, snapshot.DiscountCents); err != nil {
				return err
			}
		}

		result = &Result{Outcome: OutcomeFinalized, OrderID: order.ID}
		if row.Email != "" {
			sendMail = true
			mail = mailer.OrderConfirmation{
				To:            row.Email,
				OrderID:       order.ID.String(),
				TotalCents:    row.AmountCents,
				Lines:         snapshot.Cart,
				CouponCode:    snapshot.CouponCode,
				DiscountCents: snapshot.DiscountCents,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if sendMail {
		if err := s.mailer.SendOrderConfirmation(ctx, mail); err != nil {
			s.logger.Error(ctx, "order confirmation mail failed", err)
		}
	}
	if result.Outcome == OutcomeAlreadyProcessed {
		s.logger.Info(ctx, "pending order already consumed, nothing to do")
	}
	return result, nil
}

// FinalizeGift mirrors FinalizeOrder against the pending gift table: it mints
// the stored-value code with its bonus, records an audit order row, and mails
// the code to the buyer.
func (s *service) FinalizeGift(ctx context.Context, providerOrderID string) (*Result, error) {
	providerOrderID = strings.TrimSpace(providerOrderID)
	if providerOrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider order id required")
	}
	ctx = s.logger.WithProviderOrderID(ctx, providerOrderID)

	capture, err := s.gateway.CaptureOrder(ctx, providerOrderID)
	if err != nil {
		return nil, err
	}
	if !capture.Status.Settled() {
		s.logger.Info(ctx, "capture not settled, leaving pending gift intact")
		return &Result{Outcome: OutcomeNotSettled}, nil
	}

	var (
		result   = &Result{Outcome: OutcomeAlreadyProcessed}
		mail     mailer.GiftDelivery
		sendMail bool
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		pendingRepo := s.pending.WithTx(tx)

		row, err := pendingRepo.FindGift(ctx, providerOrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading pending gift")
		}
		consumed, err := pendingRepo.ConsumeGift(ctx, providerOrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consuming pending gift")
		}
		if !consumed {
			return nil
		}

		giftCode, err := s.discounts.MintGiftCode(ctx, tx, row.AmountCents, row.Email)
		if err != nil {
			return err
		}

		// Gift purchases share the order ledger.
		snapshot := types.OrderSnapshot{
			Version: types.SnapshotVersion,
			Cart: []types.CartLine{{
				ProductID:  "gift-code",
				Name:       "Gift code purchase",
				UnitAmount: row.AmountCents,
				Quantity:   1,
				Currency:   "EUR",
			}},
		}
		itemsJSON, err := snapshot.Encode()
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding gift snapshot")
		}
		order := &models.Order{
			ID:         uuid.New(),
			Email:      row.Email,
			TotalCents: row.AmountCents,
			ItemsJSON:  itemsJSON,
		}
		if _, err := s.orders.WithTx(tx).CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating gift audit order")
		}

		result = &Result{
			Outcome:        OutcomeFinalized,
			OrderID:        order.ID,
			GiftCode:       giftCode.Code,
			GiftValueCents: giftCode.ValueCents,
		}
		if row.Email != "" {
			sendMail = true
			mail = mailer.GiftDelivery{
				To:         row.Email,
				Code:       giftCode.Code,
				ValueCents: giftCode.ValueCents,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if sendMail {
		if err := s.mailer.SendGiftCode(ctx, mail); err != nil {
			s.logger.Error(ctx, "gift code mail failed", err)
		}
	}
	if result.Outcome == OutcomeAlreadyProcessed {
		s.logger.Info(ctx, "pending gift already consumed, nothing to do")
	}
	return result, nil
}
