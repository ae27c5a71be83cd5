// Package webhooks reconciles asynchronous provider notifications with stored orders.
package webhooks

import (
	"context"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"gorm.io/gorm"
)

// Reconciler applies verified provider events to orders and payment transactions.
// Redelivered events re-run the same conditional updates, which are no-ops once settled.
type Reconciler struct {
	orders  orders.Repository
	tx      db.TxRunner
	metrics *metrics.PaymentMetrics
	logg    *logger.Logger
}

type ReconcilerParams struct {
	Orders            orders.Repository
	TransactionRunner db.TxRunner
	Metrics           *metrics.PaymentMetrics
	Logger            *logger.Logger
}

func NewReconciler(params ReconcilerParams) (*Reconciler, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Reconciler{
		orders:  params.Orders,
		tx:      params.TransactionRunner,
		metrics: params.Metrics,
		logg:    logg,
	}, nil
}

// Handle dispatches on the event kind. Events that match no stored transaction are logged and dropped.
func (r *Reconciler) Handle(ctx context.Context, event *payments.Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook event required")
	}
	provider := event.Provider.String()
	ctx = r.logg.WithFields(ctx, map[string]any{
		"provider":            provider,
		"event_type":          event.RawType,
		"provider_order_id":   event.ProviderOrderID,
		"provider_payment_id": event.ProviderPaymentID,
	})

	var target enums.TransactionStatus
	switch event.Kind {
	case payments.EventPaymentCaptured, payments.EventOrderPaid:
		target = enums.TransactionStatusSuccess
	case payments.EventPaymentFailed:
		target = enums.TransactionStatusFailed
	default:
		r.logg.Info(ctx, "ignoring unhandled webhook event")
		r.metrics.Webhook(provider, event.Kind.String(), metrics.OutcomeIgnored)
		return nil
	}

	txn, err := r.resolve(ctx, event)
	if err != nil {
		r.metrics.Webhook(provider, event.Kind.String(), metrics.OutcomeFailure)
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup payment transaction")
	}
	if txn == nil {
		r.logg.Warn(ctx, "webhook references no known payment transaction")
		r.metrics.Webhook(provider, event.Kind.String(), metrics.OutcomeIgnored)
		return nil
	}
	ctx = r.logg.WithOrderID(ctx, txn.OrderID.String())

	if err := r.apply(ctx, txn, event, target); err != nil {
		r.metrics.Webhook(provider, event.Kind.String(), metrics.OutcomeFailure)
		r.logg.Error(ctx, "apply webhook event failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply webhook event")
	}
	r.metrics.Webhook(provider, event.Kind.String(), metrics.OutcomeSuccess)
	r.logg.Info(ctx, "webhook event applied")
	return nil
}

// resolve finds the transaction by payment id first, then by provider order id.
func (r *Reconciler) resolve(ctx context.Context, event *payments.Event) (*models.PaymentTransaction, error) {
	if id := strings.TrimSpace(event.ProviderPaymentID); id != "" {
		txn, err := r.orders.FindTransactionByPaymentID(ctx, event.Provider, id)
		if err == nil {
			return txn, nil
		}
		if !db.IsNotFound(err) {
			return nil, err
		}
	}
	if id := strings.TrimSpace(event.ProviderOrderID); id != "" {
		txn, err := r.orders.FindTransactionByProviderOrderID(ctx, event.Provider, id)
		if err == nil {
			return txn, nil
		}
		if !db.IsNotFound(err) {
			return nil, err
		}
	}
	return nil, nil
}

func (r *Reconciler) apply(ctx context.Context, txn *models.PaymentTransaction, event *payments.Event, target enums.TransactionStatus) error {
	update := orders.TransactionUpdate{
		Status:          target,
		GatewayResponse: event.GatewayResponse(),
	}
	if id := strings.TrimSpace(event.ProviderPaymentID); id != "" {
		update.ProviderPaymentID = &id
	}
	return r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := r.orders.WithTx(tx)
		settled, err := repo.SettleTransaction(ctx, txn.ID, update)
		if err != nil {
			return err
		}
		var moved bool
		if target == enums.TransactionStatusSuccess {
			moved, err = repo.MarkPaid(ctx, txn.OrderID)
		} else {
			moved, err = repo.MarkPaymentFailed(ctx, txn.OrderID)
		}
		if err != nil {
			return err
		}
		if settled || moved {
			return nil
		}
		if target == enums.TransactionStatusSuccess {
			return r.flagCaptureAfterFailure(ctx, repo, txn)
		}
		r.logg.Debug(ctx, "webhook event left state unchanged")
		return nil
	})
}

// flagCaptureAfterFailure warns when money arrives for an order already marked failed.
// The order stays failed; the capture has to be refunded or settled by hand.
func (r *Reconciler) flagCaptureAfterFailure(ctx context.Context, repo orders.Repository, txn *models.PaymentTransaction) error {
	order, err := repo.FindOrder(ctx, txn.OrderID)
	if err != nil {
		return err
	}
	if order.PaymentStatus != enums.PaymentStatusFailed {
		r.logg.Debug(ctx, "webhook event left state unchanged")
		return nil
	}
	r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
		"captured_after_failure": true,
		"amount":                 txn.Amount.String(),
		"currency":               txn.Currency,
	}), "payment captured for an order already marked failed")
	return nil
}
