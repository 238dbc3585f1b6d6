package finalize

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/osteria-app/osteria-backend/internal/discount"
	"github.com/osteria-app/osteria-backend/internal/mailer"
	"github.com/osteria-app/osteria-backend/internal/orders"
	"github.com/osteria-app/osteria-backend/internal/pending"
	"github.com/osteria-app/osteria-backend/pkg/db/models"
	"github.com/osteria-app/osteria-backend/pkg/enums"
	"github.com/osteria-app/osteria-backend/pkg/logger"
	"github.com/osteria-app/osteria-backend/pkg/paypal"
	"github.com/osteria-app/osteria-backend/pkg/types"
)

type stubGateway struct {
	status enums.CaptureStatus
	err    error
	calls  int
}

func (s *stubGateway) CaptureOrder(_ context.Context, orderID string) (*paypal.Capture, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &paypal.Capture{OrderID: orderID, Status: s.status}, nil
}

type stubMailer struct {
	confirmations []mailer.OrderConfirmation
	gifts         []mailer.GiftDelivery
	err           error
}

func (s *stubMailer) SendOrderConfirmation(_ context.Context, msg mailer.OrderConfirmation) error {
	s.confirmations = append(s.confirmations, msg)
	return s.err
}

func (s *stubMailer) SendGiftCode(_ context.Context, msg mailer.GiftDelivery) error {
	s.gifts = append(s.gifts, msg)
	return s.err
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupFinalizeTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:finalize_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schemas := []string{
		`CREATE TABLE IF NOT EXISTS pending_orders (
  provider_order_id TEXT PRIMARY KEY,
  user_id TEXT,
  email TEXT NOT NULL DEFAULT '',
  amount_cents INTEGER NOT NULL,
  items_json TEXT NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS pending_gifts (
  provider_order_id TEXT PRIMARY KEY,
  email TEXT NOT NULL DEFAULT '',
  amount_cents INTEGER NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  email TEXT NOT NULL DEFAULT '',
  total_cents INTEGER NOT NULL,
  coupon_code TEXT,
  items_json TEXT NOT NULL DEFAULT '',
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_amount INTEGER NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS coupons (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  percent_off INTEGER,
  amount_off INTEGER,
  remaining_uses INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS gift_codes (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  value_cents INTEGER NOT NULL,
  remaining_cents INTEGER NOT NULL,
  customer_email TEXT NOT NULL DEFAULT '',
  created_at DATETIME,
  updated_at DATETIME
);`,
	}
	for _, schema := range schemas {
		require.NoError(t, db.Exec(schema).Error)
	}
	for _, table := range []string{"pending_orders", "pending_gifts", "orders", "order_items", "coupons", "gift_codes"} {
		require.NoError(t, db.Exec("DELETE FROM " + table).Error)
	}
	return db
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
}

type fixture struct {
	db      *gorm.DB
	gateway *stubGateway
	mailer  *stubMailer
	svc     Service
}

func newFixture(t *testing.T, status enums.CaptureStatus) *fixture {
	t.Helper()
	db := setupFinalizeTestDB(t)
	gw := &stubGateway{status: status}
	mail := &stubMailer{}

	discountSvc, err := discount.NewService(discount.NewRepository(db))
	require.NoError(t, err)

	svc, err := NewService(Params{
		Gateway:   gw,
		Tx:        gormTxRunner{db: db},
		Pending:   pending.NewRepository(db),
		Orders:    orders.NewRepository(db),
		Discounts: discountSvc,
		Mailer:    mail,
		Logger:    testLogger(),
	})
	require.NoError(t, err)

	return &fixture{db: db, gateway: gw, mailer: mail, svc: svc}
}

func seedPendingOrder(t *testing.T, db *gorm.DB, providerOrderID, couponCode string, discountCents, totalCents int64) {
	t.Helper()
	snapshot := types.OrderSnapshot{
		Version: types.SnapshotVersion,
		Cart: []types.CartLine{
			{ProductID: "margherita", Name: "Margherita", UnitAmount: 950, Quantity: 3, Currency: "EUR"},
			{ProductID: "tiramisu", Name: "Tiramisu", UnitAmount: 1700, Quantity: 1, Currency: "EUR"},
		},
		CouponCode:    couponCode,
		DiscountCents: discountCents,
	}
	itemsJSON, err := snapshot.Encode()
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.PendingOrder{
		ProviderOrderID: providerOrderID,
		Email:           "buyer@example.com",
		AmountCents:     totalCents,
		ItemsJSON:       itemsJSON,
	}).Error)
}

func TestFinalizeOrderCouponScenario(t *testing.T) {
	f := newFixture(t, enums.CaptureStatusCompleted)
	require.NoError(t, f.db.Create(&models.Coupon{
		ID: uuid.New(), Code: "SAVE10", PercentOff: ptr(int64(10)), RemainingUses: 3,
	}).Error)
	seedPendingOrder(t, f.db, "PP-1", "SAVE10", 455, 4095)

	result, err := f.svc.FinalizeOrder(context.Background(), "PP-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFinalized, result.Outcome)
	require.NotEqual(t, uuid.Nil, result.OrderID)

	var order models.Order
	require.NoError(t, f.db.Where("id = ?", result.OrderID).First(&order).Error)
	assert.Equal(t, int64(4095), order.TotalCents)
	assert.Equal(t, "buyer@example.com", order.Email)
	require.NotNil(t, order.CouponCode)
	assert.Equal(t, "SAVE10", *order.CouponCode)

	var itemCount int64
	require.NoError(t, f.db.Model(&models.OrderItem{}).Where("order_id = ?", result.OrderID).Count(&itemCount).Error)
	assert.Equal(t, int64(2), itemCount)

	var coupon models.Coupon
	require.NoError(t, f.db.Where("code = ?", "SAVE10").First(&coupon).Error)
	assert.Equal(t, int64(2), coupon.RemainingUses)

	var pendingCount int64
	require.NoError(t, f.db.Model(&models.PendingOrder{}).Count(&pendingCount).Error)
	assert.Zero(t, pendingCount)

	require.Len(t, f.mailer.confirmations, 1)
	assert.Equal(t, "buyer@example.com", f.mailer.confirmations[0].To)
	assert.Equal(t, int64(4095), f.mailer.confirmations[0].TotalCents)
}

func TestFinalizeOrderGiftCodeScenario(t *testing.T) {
	f := newFixture(t, enums.CaptureStatusCompleted)
	require.NoError(t, f.db.Create(&models.GiftCode{
		ID: uuid.New(), Code: "abc123", ValueCents: 2000, RemainingCents: 2000,
	}).Error)
	// Subtotal 1500 fully covered by the gift balance: total owed is 0.
	seedPendingOrder(t, f.db, "PP-2", "abc123", 1500, 0)

	result, err := f.svc.FinalizeOrder(context.Background(), "PP-2")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFinalized, result.Outcome)

	var giftCode models.GiftCode
	require.NoError(t, f.db.Where("code = ?", "abc123").First(&giftCode).Error)
	assert.Equal(t, int64(500), giftCode.RemainingCents)
}

func TestFinalizeOrderDuplicateDeliveryIsIdempotent(t *testing.T) {
	f := newFixture(t, enums.CaptureStatusCompleted)
	require.NoError(t, f.db.Create(&models.Coupon{
		ID: uuid.New(), Code: "SAVE10", PercentOff: ptr(int64(10)), RemainingUses: 3,
	}).Error)
	seedPendingOrder(t, f.db, "PP-3", "SAVE10", 455, 4095)

	first, err := f.svc.FinalizeOrder(context.Background(), "PP-3")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFinalized, first.Outcome)

	second, err := f.svc.FinalizeOrder(context.Background(), "PP-3")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, second.Outcome)
	assert.Equal(t, uuid.Nil, second.OrderID)

	var orderCount int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(1), orderCount)

	var coupon models.Coupon
	require.NoError(t, f.db.Where("code = ?", "SAVE10").First(&coupon).Error)
	assert.Equal(t, int64(2), coupon.RemainingUses, "exactly one decrement")

	assert.Len(t, f.mailer.confirmations, 1)
}

func TestFinalizeOrderNotSettledLeavesStateIntact(t *testing.T) {
	f := newFixture(t, enums.CaptureStatusPending)
	seedPendingOrder(t, f.db, "PP-4", "", 0, 2500)

	result, err := f.svc.FinalizeOrder(context.Background(), "PP-4")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotSettled, result.Outcome)

	var pendingCount, orderCount int64
	require.NoError(t, f.db.Model(&models.PendingOrder{}).Count(&pendingCount).Error)
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(1), pendingCount)
	assert.Zero(t, orderCount)
	assert.Empty(t, f.mailer.confirmations)
}

func TestFinalizeOrderGatewayFailureIsTransient(t *testing.T) {
	f := newFixture(t, enums.CaptureStatusCompleted)
	f.gateway.err = errors.New("connection reset")
	seedPendingOrder(t, f.db, "PP-5", "", 0, 2500)

	_, err := f.svc.FinalizeOrder(context.Background(), "PP-5")
	require.Error(t, err)

	var pendingCount int64
	require.NoError(t, f.db.Model(&models.PendingOrder{}).Count(&pendingCount).Error)
	assert.Equal(t, int64(1), pendingCount, "no state deleted on transport failure")
}

func TestFinalizeOrderMissingPendingIsIdempotentSuccess(t *testing.T) {
	f := newFixture(t, enums.CaptureStatusCompleted)

	result, err := f.svc.FinalizeOrder(context.Background(), "PP-UNKNOWN")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, result.Outcome)
}

func TestFinalizeOrderEmailFailureDoesNotSurface(t *testing.T) {
	f := newFixture(t, enums.CaptureStatusCompleted)
	f.mailer.err = errors.New("smtp timeout")
	seedPendingOrder(t, f.db, "PP-6", "", 0, 2500)

	result, err := f.svc.FinalizeOrder(context.Background(), "PP-6")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFinalized, result.Outcome)

	var orderCount int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(1), orderCount, "order survives the mail failure")
}

func TestFinalizeGiftMintsBonusCode(t *testing.T) {
	f := newFixture(t, enums.CaptureStatusCompleted)
	require.NoError(t, f.db.Create(&models.PendingGift{
		ProviderOrderID: "PP-G1",
		Email:           "friend@example.com",
		AmountCents:     5000,
	}).Error)

	result, err := f.svc.FinalizeGift(context.Background(), "PP-G1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFinalized, result.Outcome)
	assert.Equal(t, int64(5500), result.GiftValueCents)
	assert.NotEmpty(t, result.GiftCode)

	var giftCode models.GiftCode
	require.NoError(t, f.db.Where("code = ?", result.GiftCode).First(&giftCode).Error)
	assert.Equal(t, int64(5500), giftCode.RemainingCents)
	assert.Equal(t, "friend@example.com", giftCode.CustomerEmail)

	// Gift purchases get an audit row in the order ledger.
	var order models.Order
	require.NoError(t, f.db.Where("id = ?", result.OrderID).First(&order).Error)
	assert.Equal(t, int64(5000), order.TotalCents)

	var pendingCount int64
	require.NoError(t, f.db.Model(&models.PendingGift{}).Count(&pendingCount).Error)
	assert.Zero(t, pendingCount)

	require.Len(t, f.mailer.gifts, 1)
	assert.Equal(t, result.GiftCode, f.mailer.gifts[0].Code)
	assert.Equal(t, int64(5500), f.mailer.gifts[0].ValueCents)
}

func TestFinalizeGiftDuplicateDeliveryIsIdempotent(t *testing.T) {
	f := newFixture(t, enums.CaptureStatusCompleted)
	require.NoError(t, f.db.Create(&models.PendingGift{
		ProviderOrderID: "PP-G2",
		Email:           "friend@example.com",
		AmountCents:     1000,
	}).Error)

	first, err := f.svc.FinalizeGift(context.Background(), "PP-G2")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFinalized, first.Outcome)

	second, err := f.svc.FinalizeGift(context.Background(), "PP-G2")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, second.Outcome)

	var codeCount int64
	require.NoError(t, f.db.Model(&models.GiftCode{}).Count(&codeCount).Error)
	assert.Equal(t, int64(1), codeCount, "exactly one code minted")
}

func TestFinalizeGiftNotSettledLeavesPendingGift(t *testing.T) {
	f := newFixture(t, enums.CaptureStatusDeclined)
	require.NoError(t, f.db.Create(&models.PendingGift{
		ProviderOrderID: "PP-G3",
		AmountCents:     1000,
	}).Error)

	result, err := f.svc.FinalizeGift(context.Background(), "PP-G3")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotSettled, result.Outcome)

	var pendingCount int64
	require.NoError(t, f.db.Model(&models.PendingGift{}).Count(&pendingCount).Error)
	assert.Equal(t, int64(1), pendingCount)
}

func ptr[T any](v T) *T { return &v }
