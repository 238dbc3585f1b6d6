package discount

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/osteria-app/osteria-backend/pkg/db/models"
	"github.com/osteria-app/osteria-backend/pkg/enums"
	pkgerrors "github.com/osteria-app/osteria-backend/pkg/errors"
)

func setupDiscountTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:discount_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	coupons := `
CREATE TABLE IF NOT EXISTS coupons (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  percent_off INTEGER,
  amount_off INTEGER,
  remaining_uses INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	giftCodes := `
CREATE TABLE IF NOT EXISTS gift_codes (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  value_cents INTEGER NOT NULL,
  remaining_cents INTEGER NOT NULL,
  customer_email TEXT NOT NULL DEFAULT '',
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(coupons).Error)
	require.NoError(t, db.Exec(giftCodes).Error)
	require.NoError(t, db.Exec("DELETE FROM coupons").Error)
	require.NoError(t, db.Exec("DELETE FROM gift_codes").Error)
	return db
}

func int64Ptr(v int64) *int64 { return &v }

func seedCoupon(t *testing.T, db *gorm.DB, coupon models.Coupon) {
	t.Helper()
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	require.NoError(t, db.Create(&coupon).Error)
}

func seedGiftCode(t *testing.T, db *gorm.DB, giftCode models.GiftCode) {
	t.Helper()
	if giftCode.ID == uuid.Nil {
		giftCode.ID = uuid.New()
	}
	require.NoError(t, db.Create(&giftCode).Error)
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := setupDiscountTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc, db
}

func TestEvaluateEmptyCodeMeansNoDiscount(t *testing.T) {
	svc, _ := newTestService(t)

	eval, err := svc.Evaluate(context.Background(), "   ", 4550)
	require.NoError(t, err)
	assert.False(t, eval.Applies)
	assert.Zero(t, eval.DiscountCents)
}

func TestEvaluateRejectsNegativeSubtotal(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Evaluate(context.Background(), "SAVE10", -1)
	require.Error(t, err)
}

func TestEvaluatePercentCouponRoundsHalfUp(t *testing.T) {
	svc, db := newTestService(t)
	seedCoupon(t, db, models.Coupon{Code: "SAVE10", PercentOff: int64Ptr(10), RemainingUses: 3})

	eval, err := svc.Evaluate(context.Background(), "save10", 4550)
	require.NoError(t, err)
	assert.True(t, eval.Applies)
	assert.Equal(t, enums.DiscountKindCoupon, eval.Kind)
	assert.Equal(t, "SAVE10", eval.Code)
	assert.Equal(t, int64(455), eval.DiscountCents)

	// 15% of 30 cents = 4.5, rounds up to 5.
	seedCoupon(t, db, models.Coupon{Code: "ODD15", PercentOff: int64Ptr(15), RemainingUses: 1})
	eval, err = svc.Evaluate(context.Background(), "ODD15", 30)
	require.NoError(t, err)
	assert.Equal(t, int64(5), eval.DiscountCents)
}

func TestEvaluateAmountOffTakesPriority(t *testing.T) {
	svc, db := newTestService(t)
	seedCoupon(t, db, models.Coupon{
		Code:          "BOTH",
		PercentOff:    int64Ptr(50),
		AmountOff:     int64Ptr(300),
		RemainingUses: 1,
	})

	eval, err := svc.Evaluate(context.Background(), "both", 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(300), eval.DiscountCents)
}

func TestEvaluateExhaustedOrEmptyCouponActsAsNotFound(t *testing.T) {
	svc, db := newTestService(t)
	seedCoupon(t, db, models.Coupon{Code: "SPENT", PercentOff: int64Ptr(10), RemainingUses: 0})
	seedCoupon(t, db, models.Coupon{Code: "HOLLOW", RemainingUses: 5})

	for _, code := range []string{"SPENT", "HOLLOW", "NOSUCH"} {
		eval, err := svc.Evaluate(context.Background(), code, 1000)
		require.NoError(t, err)
		assert.False(t, eval.Applies, "code %s", code)
	}
}

func TestEvaluateGiftCodeCapsAtSubtotal(t *testing.T) {
	svc, db := newTestService(t)
	seedGiftCode(t, db, models.GiftCode{Code: "abc123", ValueCents: 2000, RemainingCents: 2000})

	eval, err := svc.Evaluate(context.Background(), "ABC123", 1500)
	require.NoError(t, err)
	assert.True(t, eval.Applies)
	assert.Equal(t, enums.DiscountKindGiftCode, eval.Kind)
	assert.Equal(t, "abc123", eval.Code)
	assert.Equal(t, int64(1500), eval.DiscountCents)
	assert.Equal(t, int64(2000), eval.RemainingCents)
}

func TestEvaluateGiftCodeWinsOverCoupon(t *testing.T) {
	svc, db := newTestService(t)
	seedGiftCode(t, db, models.GiftCode{Code: "twin", ValueCents: 100, RemainingCents: 100})
	seedCoupon(t, db, models.Coupon{Code: "TWIN", AmountOff: int64Ptr(999), RemainingUses: 9})

	eval, err := svc.Evaluate(context.Background(), "TWIN", 1000)
	require.NoError(t, err)
	assert.Equal(t, enums.DiscountKindGiftCode, eval.Kind)
	assert.Equal(t, int64(100), eval.DiscountCents)
}

func TestEvaluateDrainedGiftCodeActsAsNotFound(t *testing.T) {
	svc, db := newTestService(t)
	seedGiftCode(t, db, models.GiftCode{Code: "empty", ValueCents: 500, RemainingCents: 0})

	eval, err := svc.Evaluate(context.Background(), "empty", 1000)
	require.NoError(t, err)
	assert.False(t, eval.Applies)
}

func TestLookupGiftCodeReturnsBalance(t *testing.T) {
	svc, db := newTestService(t)
	seedGiftCode(t, db, models.GiftCode{Code: "GC-SCAN42", ValueCents: 3000, RemainingCents: 1250, CustomerEmail: "friend@example.com"})

	giftCode, err := svc.LookupGiftCode(context.Background(), "  gc-scan42  ")
	require.NoError(t, err)
	assert.Equal(t, "GC-SCAN42", giftCode.Code)
	assert.Equal(t, int64(1250), giftCode.RemainingCents)
	assert.Equal(t, "friend@example.com", giftCode.CustomerEmail)
}

func TestLookupGiftCodeUnknownIsNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.LookupGiftCode(context.Background(), "GC-MISSING")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestLookupGiftCodeRequiresCode(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.LookupGiftCode(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestApplyDecrementConsumesCouponUse(t *testing.T) {
	svc, db := newTestService(t)
	seedCoupon(t, db, models.Coupon{Code: "SAVE10", PercentOff: int64Ptr(10), RemainingUses: 3})

	require.NoError(t, svc.ApplyDecrement(context.Background(), db, "SAVE10", 455))

	var coupon models.Coupon
	require.NoError(t, db.Where("code = ?", "SAVE10").First(&coupon).Error)
	assert.Equal(t, int64(2), coupon.RemainingUses)
}

func TestApplyDecrementFloorsCouponAtZero(t *testing.T) {
	svc, db := newTestService(t)
	seedCoupon(t, db, models.Coupon{Code: "LAST", AmountOff: int64Ptr(100), RemainingUses: 1})

	require.NoError(t, svc.ApplyDecrement(context.Background(), db, "LAST", 100))
	require.NoError(t, svc.ApplyDecrement(context.Background(), db, "LAST", 100))

	var coupon models.Coupon
	require.NoError(t, db.Where("code = ?", "LAST").First(&coupon).Error)
	assert.Equal(t, int64(0), coupon.RemainingUses)
}

func TestApplyDecrementDebitsGiftBalance(t *testing.T) {
	svc, db := newTestService(t)
	seedGiftCode(t, db, models.GiftCode{Code: "abc123", ValueCents: 2000, RemainingCents: 2000})

	require.NoError(t, svc.ApplyDecrement(context.Background(), db, "ABC123", 1500))

	var giftCode models.GiftCode
	require.NoError(t, db.Where("code = ?", "abc123").First(&giftCode).Error)
	assert.Equal(t, int64(500), giftCode.RemainingCents)
}

func TestApplyDecrementFloorsGiftBalanceAtZero(t *testing.T) {
	svc, db := newTestService(t)
	seedGiftCode(t, db, models.GiftCode{Code: "small", ValueCents: 200, RemainingCents: 200})

	require.NoError(t, svc.ApplyDecrement(context.Background(), db, "small", 9999))

	var giftCode models.GiftCode
	require.NoError(t, db.Where("code = ?", "small").First(&giftCode).Error)
	assert.Equal(t, int64(0), giftCode.RemainingCents)
}

func TestApplyDecrementTolerantOfDeletedCode(t *testing.T) {
	svc, db := newTestService(t)
	require.NoError(t, svc.ApplyDecrement(context.Background(), db, "GONE", 100))
}

func TestMintGiftCodeAddsBonus(t *testing.T) {
	svc, db := newTestService(t)

	giftCode, err := svc.MintGiftCode(context.Background(), db, 5000, "buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(5500), giftCode.ValueCents)
	assert.Equal(t, int64(5500), giftCode.RemainingCents)
	assert.Equal(t, "buyer@example.com", giftCode.CustomerEmail)
	assert.NotEmpty(t, giftCode.Code)

	var stored models.GiftCode
	require.NoError(t, db.Where("code = ?", giftCode.Code).First(&stored).Error)
	assert.Equal(t, int64(5500), stored.RemainingCents)
}

func TestMintGiftCodeRejectsNonPositiveValue(t *testing.T) {
	svc, db := newTestService(t)
	_, err := svc.MintGiftCode(context.Background(), db, 0, "x@example.com")
	require.Error(t, err)
}

func TestTotalNeverNegative(t *testing.T) {
	assert.Equal(t, int64(4095), Total(4550, 455))
	assert.Equal(t, int64(0), Total(1500, 1500))
	assert.Equal(t, int64(0), Total(100, 500))
}

func TestGiftBonusRoundsHalfUp(t *testing.T) {
	assert.Equal(t, int64(500), GiftBonus(5000))
	assert.Equal(t, int64(1), GiftBonus(5))
	assert.Equal(t, int64(0), GiftBonus(4))
}
