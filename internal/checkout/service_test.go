package checkout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/osteria-app/osteria-backend/internal/discount"
	"github.com/osteria-app/osteria-backend/internal/pending"
	"github.com/osteria-app/osteria-backend/pkg/db/models"
	"github.com/osteria-app/osteria-backend/pkg/enums"
	pkgerrors "github.com/osteria-app/osteria-backend/pkg/errors"
	"github.com/osteria-app/osteria-backend/pkg/paypal"
	"github.com/osteria-app/osteria-backend/pkg/types"
)

type stubGateway struct {
	lastParams paypal.CreateOrderParams
	order      *paypal.Order
	err        error
	calls      int
}

func (s *stubGateway) CreateOrder(_ context.Context, params paypal.CreateOrderParams) (*paypal.Order, error) {
	s.calls++
	s.lastParams = params
	if s.err != nil {
		return nil, s.err
	}
	return s.order, nil
}

type stubEvaluator struct {
	eval *discount.Evaluation
	err  error
}

func (s *stubEvaluator) Evaluate(_ context.Context, _ string, _ int64) (*discount.Evaluation, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.eval == nil {
		return &discount.Evaluation{}, nil
	}
	return s.eval, nil
}

func setupCheckoutTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:checkout_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	pendingOrders := `
CREATE TABLE IF NOT EXISTS pending_orders (
  provider_order_id TEXT PRIMARY KEY,
  user_id TEXT,
  email TEXT NOT NULL DEFAULT '',
  amount_cents INTEGER NOT NULL,
  items_json TEXT NOT NULL,
  created_at DATETIME
);`
	pendingGifts := `
CREATE TABLE IF NOT EXISTS pending_gifts (
  provider_order_id TEXT PRIMARY KEY,
  email TEXT NOT NULL DEFAULT '',
  amount_cents INTEGER NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(pendingOrders).Error)
	require.NoError(t, db.Exec(pendingGifts).Error)
	require.NoError(t, db.Exec("DELETE FROM pending_orders").Error)
	require.NoError(t, db.Exec("DELETE FROM pending_gifts").Error)
	return db
}

func testCart() []types.CartLine {
	return []types.CartLine{
		{ProductID: "margherita", Name: "Margherita", UnitAmount: 950, Quantity: 3, Currency: "EUR"},
		{ProductID: "tiramisu", Name: "Tiramisu", UnitAmount: 1700, Quantity: 1, Currency: "EUR"},
	}
}

func newCheckoutService(t *testing.T, gw *stubGateway, eval *stubEvaluator, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(Params{
		Gateway:   gw,
		Discounts: eval,
		Pending:   pending.NewRepository(db),
		AppURL:    "https://osteria.test",
	})
	require.NoError(t, err)
	return svc
}

func TestStartCheckoutPersistsPendingOrder(t *testing.T) {
	db := setupCheckoutTestDB(t)
	gw := &stubGateway{order: &paypal.Order{ID: "PP-1", Status: "CREATED", ApprovalURL: "https://pp.test/approve"}}
	eval := &stubEvaluator{eval: &discount.Evaluation{
		Applies:       true,
		Kind:          enums.DiscountKindCoupon,
		Code:          "SAVE10",
		DiscountCents: 455,
	}}
	svc := newCheckoutService(t, gw, eval, db)

	result, err := svc.StartCheckout(context.Background(), StartInput{
		Cart:       testCart(),
		CouponCode: "save10",
		Email:      "guest@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pp.test/approve", result.ApprovalURL)
	assert.Equal(t, int64(4550), result.SubtotalCents)
	assert.Equal(t, int64(455), result.DiscountCents)
	assert.Equal(t, int64(4095), result.TotalCents)

	assert.Equal(t, int64(4095), gw.lastParams.AmountCents)
	assert.Equal(t, "https://osteria.test/api/paypal/return", gw.lastParams.ReturnURL)
	assert.Equal(t, "https://osteria.test/api/paypal/cancel", gw.lastParams.CancelURL)

	var row models.PendingOrder
	require.NoError(t, db.Where("provider_order_id = ?", "PP-1").First(&row).Error)
	assert.Equal(t, "guest@example.com", row.Email)
	assert.Equal(t, int64(4095), row.AmountCents)

	snapshot, err := types.DecodeOrderSnapshot(row.ItemsJSON)
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", snapshot.CouponCode)
	assert.Equal(t, int64(455), snapshot.DiscountCents)
	assert.Len(t, snapshot.Cart, 2)
}

func TestStartCheckoutIdentityEmailWins(t *testing.T) {
	db := setupCheckoutTestDB(t)
	gw := &stubGateway{order: &paypal.Order{ID: "PP-2", ApprovalURL: "https://pp.test/approve"}}
	svc := newCheckoutService(t, gw, &stubEvaluator{}, db)

	_, err := svc.StartCheckout(context.Background(), StartInput{
		Cart:     testCart(),
		Email:    "guest@example.com",
		Identity: &Identity{UserID: "u-1", Email: "member@example.com"},
	})
	require.NoError(t, err)

	var row models.PendingOrder
	require.NoError(t, db.Where("provider_order_id = ?", "PP-2").First(&row).Error)
	assert.Equal(t, "member@example.com", row.Email)
	require.NotNil(t, row.UserID)
	assert.Equal(t, "u-1", *row.UserID)
}

func TestStartCheckoutRejectsNegativeCartLines(t *testing.T) {
	db := setupCheckoutTestDB(t)
	gw := &stubGateway{}
	svc := newCheckoutService(t, gw, &stubEvaluator{}, db)

	_, err := svc.StartCheckout(context.Background(), StartInput{
		Cart: []types.CartLine{{ProductID: "x", UnitAmount: 100, Quantity: -1}},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Zero(t, gw.calls)

	_, err = svc.StartCheckout(context.Background(), StartInput{Cart: nil})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestStartCheckoutGatewayFailureLeavesNoPendingRow(t *testing.T) {
	db := setupCheckoutTestDB(t)
	gw := &stubGateway{err: pkgerrors.New(pkgerrors.CodeDependency, "paypal down")}
	svc := newCheckoutService(t, gw, &stubEvaluator{}, db)

	_, err := svc.StartCheckout(context.Background(), StartInput{Cart: testCart()})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	var count int64
	require.NoError(t, db.Model(&models.PendingOrder{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestStartCheckoutMissingApprovalLinkLeavesNoPendingRow(t *testing.T) {
	db := setupCheckoutTestDB(t)
	gw := &stubGateway{order: &paypal.Order{ID: "PP-3"}}
	svc := newCheckoutService(t, gw, &stubEvaluator{}, db)

	_, err := svc.StartCheckout(context.Background(), StartInput{Cart: testCart()})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	var count int64
	require.NoError(t, db.Model(&models.PendingOrder{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestStartGiftPurchasePersistsPendingGift(t *testing.T) {
	db := setupCheckoutTestDB(t)
	gw := &stubGateway{order: &paypal.Order{ID: "PP-G1", ApprovalURL: "https://pp.test/approve"}}
	svc := newCheckoutService(t, gw, &stubEvaluator{}, db)

	result, err := svc.StartGiftPurchase(context.Background(), GiftInput{
		AmountCents: 5000,
		Email:       "friend@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5000), result.AmountCents)
	assert.Equal(t, int64(500), result.BonusCents)
	assert.Equal(t, "https://osteria.test/api/paypal/gift/return", gw.lastParams.ReturnURL)

	var row models.PendingGift
	require.NoError(t, db.Where("provider_order_id = ?", "PP-G1").First(&row).Error)
	assert.Equal(t, int64(5000), row.AmountCents)
	assert.Equal(t, "friend@example.com", row.Email)
}

func TestStartGiftPurchaseRejectsNonPositiveAmount(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, &stubGateway{}, &stubEvaluator{}, db)

	_, err := svc.StartGiftPurchase(context.Background(), GiftInput{AmountCents: 0})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	db := setupCheckoutTestDB(t)
	_, err := NewService(Params{})
	require.Error(t, err)
	// app url missing
	_, err = NewService(Params{Gateway: &stubGateway{}, Discounts: &stubEvaluator{}, Pending: pending.NewRepository(db)})
	require.Error(t, err)
}

type stubUsers struct {
	emails map[string]string
}

func (s *stubUsers) FindEmailByID(_ context.Context, id string) (string, error) {
	if email, ok := s.emails[id]; ok {
		return email, nil
	}
	return "", gorm.ErrRecordNotFound
}

func TestStartGiftPurchaseResolvesEmailFromUsers(t *testing.T) {
	db := setupCheckoutTestDB(t)
	gw := &stubGateway{order: &paypal.Order{ID: "PP-U1", Status: "CREATED", ApprovalURL: "https://pp.test/approve"}}
	svc, err := NewService(Params{
		Gateway:   gw,
		Discounts: &stubEvaluator{},
		Pending:   pending.NewRepository(db),
		Users:     &stubUsers{emails: map[string]string{"user-42": "regular@example.com"}},
		AppURL:    "https://osteria.test",
	})
	require.NoError(t, err)

	_, err = svc.StartGiftPurchase(context.Background(), GiftInput{
		AmountCents: 2000,
		Email:       "typo@example.com",
		Identity:    &Identity{UserID: "user-42"},
	})
	require.NoError(t, err)

	var row models.PendingGift
	require.NoError(t, db.Where("provider_order_id = ?", "PP-U1").First(&row).Error)
	assert.Equal(t, "regular@example.com", row.Email)
}

func TestStartGiftPurchaseUnknownSubjectKeepsSuppliedEmail(t *testing.T) {
	db := setupCheckoutTestDB(t)
	gw := &stubGateway{order: &paypal.Order{ID: "PP-U2", Status: "CREATED", ApprovalURL: "https://pp.test/approve"}}
	svc, err := NewService(Params{
		Gateway:   gw,
		Discounts: &stubEvaluator{},
		Pending:   pending.NewRepository(db),
		Users:     &stubUsers{},
		AppURL:    "https://osteria.test",
	})
	require.NoError(t, err)

	_, err = svc.StartGiftPurchase(context.Background(), GiftInput{
		AmountCents: 2000,
		Email:       "guest@example.com",
		Identity:    &Identity{UserID: "user-999"},
	})
	require.NoError(t, err)

	var row models.PendingGift
	require.NoError(t, db.Where("provider_order_id = ?", "PP-U2").First(&row).Error)
	assert.Equal(t, "guest@example.com", row.Email)
}
