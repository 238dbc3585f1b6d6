package users

import (
	"context"

	"gorm.io/gorm"

	"github.com/osteria-app/osteria-backend/pkg/db/models"
)

// Repository resolves registered customers. Checkout uses it to find the
// buyer's email when the bearer token carries only a subject.
type Repository interface {
	FindEmailByID(ctx context.Context, id string) (string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a users repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindEmailByID(ctx context.Context, id string) (string, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Select("email").
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		return "", err
	}
	return user.Email, nil
}
