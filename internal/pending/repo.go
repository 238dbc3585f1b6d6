package pending

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/osteria-app/osteria-backend/pkg/db/models"
)

// Repository stores the ephemeral rows that bridge checkout start and payment
// capture. Rows are keyed by the payment provider's order id.
//
// Consume* methods delete the row and report whether this caller removed it.
// Run inside a transaction, that delete is the single gate deciding which of
// several duplicate callbacks gets to finalize.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrder(ctx context.Context, row *models.PendingOrder) error
	FindOrder(ctx context.Context, providerOrderID string) (*models.PendingOrder, error)
	ConsumeOrder(ctx context.Context, providerOrderID string) (bool, error)
	DeleteOrdersOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	CreateGift(ctx context.Context, row *models.PendingGift) error
	FindGift(ctx context.Context, providerOrderID string) (*models.PendingGift, error)
	ConsumeGift(ctx context.Context, providerOrderID string) (bool, error)
	DeleteGiftsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a pending repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, row *models.PendingOrder) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) FindOrder(ctx context.Context, providerOrderID string) (*models.PendingOrder, error) {
	var row models.PendingOrder
	err := r.db.WithContext(ctx).
		Where("provider_order_id = ?", providerOrderID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) ConsumeOrder(ctx context.Context, providerOrderID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("provider_order_id = ?", providerOrderID).
		Delete(&models.PendingOrder{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) DeleteOrdersOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.PendingOrder{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) CreateGift(ctx context.Context, row *models.PendingGift) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) FindGift(ctx context.Context, providerOrderID string) (*models.PendingGift, error) {
	var row models.PendingGift
	err := r.db.WithContext(ctx).
		Where("provider_order_id = ?", providerOrderID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) ConsumeGift(ctx context.Context, providerOrderID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("provider_order_id = ?", providerOrderID).
		Delete(&models.PendingGift{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) DeleteGiftsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.PendingGift{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
