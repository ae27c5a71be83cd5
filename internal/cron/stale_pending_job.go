package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const (
	defaultPendingTTL = 24 * time.Hour
	defaultBatchSize  = 200
	expiredReason     = "payment window expired"
)

// OrderJobParams configure the order maintenance jobs.
type OrderJobParams struct {
	Logger     *logger.Logger
	DB         db.TxRunner
	Orders     orders.Repository
	PendingTTL time.Duration
	BatchSize  int
}

func (p OrderJobParams) validate() error {
	if p.Logger == nil {
		return fmt.Errorf("logger required")
	}
	if p.DB == nil {
		return fmt.Errorf("db runner required")
	}
	if p.Orders == nil {
		return fmt.Errorf("orders repository required")
	}
	return nil
}

func (p OrderJobParams) ttl() time.Duration {
	if p.PendingTTL <= 0 {
		return defaultPendingTTL
	}
	return p.PendingTTL
}

func (p OrderJobParams) batch() int {
	if p.BatchSize <= 0 {
		return defaultBatchSize
	}
	return p.BatchSize
}

// NewStalePendingOrdersJob fails payments that stayed pending past the checkout window.
func NewStalePendingOrdersJob(params OrderJobParams) (Job, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &stalePendingOrdersJob{
		logg:   params.Logger,
		db:     params.DB,
		orders: params.Orders,
		ttl:    params.ttl(),
		batch:  params.batch(),
		now:    time.Now,
	}, nil
}

type stalePendingOrdersJob struct {
	logg   *logger.Logger
	db     db.TxRunner
	orders orders.Repository
	ttl    time.Duration
	batch  int
	now    func() time.Time
}

func (j *stalePendingOrdersJob) Name() string { return "stale-pending-orders" }

func (j *stalePendingOrdersJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	stale, err := j.orders.FindStalePendingOrders(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("query stale pending orders: %w", err)
	}

	var errs error
	failed := 0
	for _, order := range stale {
		orderID := order.ID
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			repo := j.orders.WithTx(tx)
			if _, err := repo.FailPendingTransactions(ctx, orderID, expiredReason); err != nil {
				return err
			}
			_, err := repo.MarkPaymentFailed(ctx, orderID)
			return err
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", orderID, err))
			continue
		}
		failed++
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{"candidates": len(stale), "failed": failed}), "stale pending orders processed")
	return errs
}
