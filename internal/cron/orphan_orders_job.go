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

// NewOrphanOrdersJob deletes pending orders that never reached the payment provider.
func NewOrphanOrdersJob(params OrderJobParams) (Job, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &orphanOrdersJob{
		logg:   params.Logger,
		db:     params.DB,
		orders: params.Orders,
		ttl:    params.ttl(),
		batch:  params.batch(),
		now:    time.Now,
	}, nil
}

type orphanOrdersJob struct {
	logg   *logger.Logger
	db     db.TxRunner
	orders orders.Repository
	ttl    time.Duration
	batch  int
	now    func() time.Time
}

func (j *orphanOrdersJob) Name() string { return "orphan-orders" }

func (j *orphanOrdersJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	ids, err := j.orders.FindOrphanOrders(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("query orphan orders: %w", err)
	}

	var errs error
	deleted := 0
	for _, id := range ids {
		orderID := id
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			return j.orders.WithTx(tx).DeleteOrder(ctx, orderID)
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete orphan order %s: %w", orderID, err))
			continue
		}
		deleted++
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{"candidates": len(ids), "deleted": deleted}), "orphan orders processed")
	return errs
}
