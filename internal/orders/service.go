package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osteria-app/osteria-backend/pkg/db/models"
	pkgerrors "github.com/osteria-app/osteria-backend/pkg/errors"
	"github.com/osteria-app/osteria-backend/pkg/types"
)

// Detail is an order plus its decoded checkout-time snapshot.
type Detail struct {
	Order    *models.Order
	Snapshot *types.OrderSnapshot
}

// Service exposes read operations over finalized orders.
type Service interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*Detail, error)
	ListByEmail(ctx context.Context, email string) ([]models.Order, error)
}

type service struct {
	repo Repository
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*Detail, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}

	detail := &Detail{Order: order}
	if order.ItemsJSON != "" {
		snapshot, err := types.DecodeOrderSnapshot(order.ItemsJSON)
		if err == nil {
			detail.Snapshot = &snapshot
		}
		// An undecodable snapshot is an audit artifact problem, not a
		// reason to hide the order.
	}
	return detail, nil
}

func (s *service) ListByEmail(ctx context.Context, email string) ([]models.Order, error) {
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	rows, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing orders")
	}
	return rows, nil
}
