package discount

import (
	"context"

	"gorm.io/gorm"

	"github.com/osteria-app/osteria-backend/pkg/db/models"
)

// Repository provides discount-source persistence. Balance mutations are
// conditional UPDATEs so concurrent finalizations never produce negative
// balances or lost decrements.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindCouponByCode(ctx context.Context, code string) (*models.Coupon, error)
	FindGiftCodeByCode(ctx context.Context, code string) (*models.GiftCode, error)
	ConsumeCouponUse(ctx context.Context, code string) (bool, error)
	DebitGiftCode(ctx context.Context, code string, cents int64) (bool, error)
	CreateCoupon(ctx context.Context, coupon *models.Coupon) error
	CreateGiftCode(ctx context.Context, giftCode *models.GiftCode) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a discount repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindCouponByCode matches the exact stored code. Callers uppercase before
// calling; coupon codes are stored canonically uppercased.
func (r *repository) FindCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// FindGiftCodeByCode matches case-insensitively; gift codes are entered by
// hand from emails and printed cards.
func (r *repository) FindGiftCodeByCode(ctx context.Context, code string) (*models.GiftCode, error) {
	var giftCode models.GiftCode
	err := r.db.WithContext(ctx).
		Where("LOWER(code) = LOWER(?)", code).
		First(&giftCode).Error
	if err != nil {
		return nil, err
	}
	return &giftCode, nil
}

// ConsumeCouponUse decrements remaining_uses by one, refusing to go below
// zero. Returns false when the coupon is missing or already exhausted.
func (r *repository) ConsumeCouponUse(ctx context.Context, code string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("code = ? AND remaining_uses > 0", code).
		UpdateColumn("remaining_uses", gorm.Expr("remaining_uses - 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DebitGiftCode subtracts cents from the remaining balance with a floor of
// zero. Returns false when no row matched the code.
func (r *repository) DebitGiftCode(ctx context.Context, code string, cents int64) (bool, error) {
	if cents < 0 {
		cents = 0
	}
	res := r.db.WithContext(ctx).
		Model(&models.GiftCode{}).
		Where("LOWER(code) = LOWER(?)", code).
		UpdateColumn("remaining_cents", gorm.Expr(
			"CASE WHEN remaining_cents >= ? THEN remaining_cents - ? ELSE 0 END", cents, cents,
		))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CreateCoupon(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

func (r *repository) CreateGiftCode(ctx context.Context, giftCode *models.GiftCode) error {
	return r.db.WithContext(ctx).Create(giftCode).Error
}
