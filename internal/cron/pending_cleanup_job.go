package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/osteria-app/osteria-backend/pkg/logger"
	"github.com/osteria-app/osteria-backend/pkg/metrics"
)

const defaultPendingRetention = 24 * time.Hour

type pendingSweeper interface {
	DeleteOrdersOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteGiftsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PendingCleanupJobParams configure the stale pending-row sweep.
type PendingCleanupJobParams struct {
	Logger    *logger.Logger
	Pending   pendingSweeper
	Metrics   *metrics.CronJobMetrics
	Retention time.Duration
}

// NewPendingCleanupJob builds the job that garbage-collects pending orders
// and pending gifts left behind by abandoned checkouts. The canonical payment
// state lives with the provider, so removal is safe regardless of outcome.
func NewPendingCleanupJob(params PendingCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Pending == nil {
		return nil, fmt.Errorf("pending sweeper required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultPendingRetention
	}
	return &pendingCleanupJob{
		logg:      params.Logger,
		pending:   params.Pending,
		metrics:   params.Metrics,
		retention: retention,
		now:       time.Now,
	}, nil
}

type pendingCleanupJob struct {
	logg      *logger.Logger
	pending   pendingSweeper
	metrics   *metrics.CronJobMetrics
	retention time.Duration
	now       func() time.Time
}

func (j *pendingCleanupJob) Name() string { return "pending-cleanup" }

func (j *pendingCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)

	var errs []error
	var sweptOrders, sweptGifts int64

	swept, err := j.pending.DeleteOrdersOlderThan(ctx, cutoff)
	if err != nil {
		errs = append(errs, fmt.Errorf("sweep pending orders: %w", err))
	} else {
		sweptOrders = swept
	}

	swept, err = j.pending.DeleteGiftsOlderThan(ctx, cutoff)
	if err != nil {
		errs = append(errs, fmt.Errorf("sweep pending gifts: %w", err))
	} else {
		sweptGifts = swept
	}

	j.metrics.AddSwept(j.Name(), sweptOrders+sweptGifts)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"pending_orders_swept": sweptOrders,
		"pending_gifts_swept":  sweptGifts,
		"cutoff":               cutoff,
	})
	j.logg.Info(logCtx, "pending cleanup sweep complete")
	return multierr.Combine(errs...)
}
