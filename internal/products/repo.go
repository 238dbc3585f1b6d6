package products

import (
	"context"

	"gorm.io/gorm"

	"github.com/osteria-app/osteria-backend/pkg/db/models"
)

// Repository reads the menu catalog. Prices feed the storefront cart; the
// checkout flow prices from the submitted cart snapshot, not from here.
type Repository interface {
	ListActive(ctx context.Context) ([]models.Product, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Product, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a products repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListActive(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
