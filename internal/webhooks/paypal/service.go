package paypalwebhook

import (
	"context"
	"strings"

	"github.com/osteria-app/osteria-backend/internal/finalize"
	pkgerrors "github.com/osteria-app/osteria-backend/pkg/errors"
	"github.com/osteria-app/osteria-backend/pkg/logger"
)

// settledStatus is the provider's terminal status for a paid order. Any other
// status on a webhook resource is acknowledged and dropped.
const settledStatus = "COMPLETED"

// Event is the subset of the provider webhook resource the handler needs.
type Event struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type finalizer interface {
	FinalizeOrder(ctx context.Context, providerOrderID string) (*finalize.Result, error)
	FinalizeGift(ctx context.Context, providerOrderID string) (*finalize.Result, error)
}

type idempotencyGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type ServiceParams struct {
	Finalizer finalizer
	Guard     idempotencyGuard
	Logger    *logger.Logger
}

// Service processes provider webhook deliveries. It is the asynchronous
// backstop for buyers who never land on the return URL.
type Service struct {
	finalizer finalizer
	guard     idempotencyGuard
	logg      *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Finalizer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "finalizer required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		finalizer: params.Finalizer,
		guard:     params.Guard,
		logg:      params.Logger,
	}, nil
}

// HandleEvent finalizes the referenced order. Duplicate deliveries and
// non-settled statuses succeed without side effects; transient failures
// release the idempotency mark so the provider's retry can land.
func (s *Service) HandleEvent(ctx context.Context, event Event) error {
	providerOrderID := strings.TrimSpace(event.ID)
	if providerOrderID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook resource id required")
	}
	ctx = s.logg.WithProviderOrderID(ctx, providerOrderID)

	if !strings.EqualFold(strings.TrimSpace(event.Status), settledStatus) {
		s.logg.Info(ctx, "ignoring webhook for non-settled order")
		return nil
	}

	duplicate, err := s.guard.CheckAndMark(ctx, providerOrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook idempotency check")
	}
	if duplicate {
		s.logg.Info(ctx, "duplicate webhook delivery skipped")
		return nil
	}

	result, err := s.finalizer.FinalizeOrder(ctx, providerOrderID)
	if err != nil {
		s.releaseMark(ctx, providerOrderID)
		return err
	}

	// A settled id unknown to the cart flow may belong to a gift purchase.
	if result.Outcome == finalize.OutcomeAlreadyProcessed {
		if _, err := s.finalizer.FinalizeGift(ctx, providerOrderID); err != nil {
			s.releaseMark(ctx, providerOrderID)
			return err
		}
	}

	s.logg.Info(ctx, "webhook processed")
	return nil
}

func (s *Service) releaseMark(ctx context.Context, providerOrderID string) {
	if err := s.guard.Delete(ctx, providerOrderID); err != nil {
		s.logg.Error(ctx, "failed to release webhook idempotency mark", err)
	}
}
