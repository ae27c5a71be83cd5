package payments

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VerifyInput carries the client-side confirmation returned by the provider widget or redirect.
type VerifyInput struct {
	OrderID         uuid.UUID `json:"orderId" validate:"required"`
	ProviderOrderID string    `json:"providerOrderId" validate:"omitempty,max=255"`
	PaymentID       string    `json:"paymentId" validate:"omitempty,max=255"`
	Signature       string    `json:"signature" validate:"omitempty,max=512"`
}

// VerifyResult reports the settled order state.
type VerifyResult struct {
	OrderID           uuid.UUID           `json:"orderId"`
	Status            enums.OrderStatus   `json:"status"`
	PaymentStatus     enums.PaymentStatus `json:"paymentStatus"`
	ProviderPaymentID string              `json:"providerPaymentId,omitempty"`
}

// Service settles a pending payment from the shopper's synchronous confirmation.
type Service interface {
	Verify(ctx context.Context, userID uuid.UUID, input VerifyInput) (*VerifyResult, error)
}

type ServiceParams struct {
	Orders            orders.Repository
	Providers         *Registry
	TransactionRunner db.TxRunner
	Metrics           *metrics.PaymentMetrics
	Logger            *logger.Logger
}

type service struct {
	orders    orders.Repository
	providers *Registry
	tx        db.TxRunner
	metrics   *metrics.PaymentMetrics
	logg      *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.Providers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "provider registry required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		orders:    params.Orders,
		providers: params.Providers,
		tx:        params.TransactionRunner,
		metrics:   params.Metrics,
		logg:      logg,
	}, nil
}

func (s *service) Verify(ctx context.Context, userID uuid.UUID, input VerifyInput) (*VerifyResult, error) {
	order, err := s.orders.FindOrderForUser(ctx, input.OrderID, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	ctx = s.logg.WithProvider(ctx, order.Provider.String())

	txn, err := s.orders.FindLatestTransaction(ctx, order.ID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has no payment in progress")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment transaction")
	}

	switch txn.Status {
	case enums.TransactionStatusSuccess:
		return resultFor(order.ID, enums.OrderStatusConfirmed, enums.PaymentStatusPaid, txn.ProviderPaymentID), nil
	case enums.TransactionStatusFailed:
		return nil, pkgerrors.New(pkgerrors.CodePayment, "payment already failed for this order")
	}

	if providerOrderID := strings.TrimSpace(input.ProviderOrderID); providerOrderID != "" && providerOrderID != txn.ProviderOrderID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider order id does not match order")
	}

	provider, err := s.providers.Get(order.Provider.String())
	if err != nil {
		return nil, err
	}

	verification, verifyErr := provider.VerifyPayment(ctx, VerifyRequest{
		ProviderOrderID: txn.ProviderOrderID,
		PaymentID:       strings.TrimSpace(input.PaymentID),
		Signature:       strings.TrimSpace(input.Signature),
	})
	if verifyErr != nil {
		if errors.Is(verifyErr, ErrPaymentPending) {
			s.metrics.Verification(order.Provider.String(), metrics.OutcomePending)
			s.logg.Info(s.logg.WithField(ctx, "reason", verifyErr.Error()), "payment not settled yet")
			return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, verifyErr, "payment is still processing")
		}
		if !errors.Is(verifyErr, ErrVerificationFailed) {
			s.metrics.Verification(order.Provider.String(), metrics.OutcomeFailure)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, verifyErr, "verify payment with provider")
		}
		if err := s.fail(ctx, order.ID, txn.ID, input.PaymentID, verifyErr); err != nil {
			return nil, err
		}
		s.metrics.Verification(order.Provider.String(), metrics.OutcomeFailure)
		s.logg.Warn(ctx, "payment verification rejected")
		return nil, pkgerrors.Wrap(pkgerrors.CodePayment, verifyErr, "payment verification failed")
	}

	paymentID := verification.PaymentID
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		if _, err := repo.SettleTransaction(ctx, txn.ID, orders.TransactionUpdate{
			Status:            enums.TransactionStatusSuccess,
			ProviderPaymentID: &paymentID,
			GatewayResponse:   verification.Raw,
		}); err != nil {
			return err
		}
		_, err := repo.MarkPaid(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record verified payment")
	}

	s.metrics.Verification(order.Provider.String(), metrics.OutcomeSuccess)
	s.logg.Info(ctx, "payment verified")

	settled, err := s.orders.FindOrder(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
	}
	return resultFor(settled.ID, settled.Status, settled.PaymentStatus, &paymentID), nil
}

func (s *service) fail(ctx context.Context, orderID, txnID uuid.UUID, paymentID string, cause error) error {
	update := orders.TransactionUpdate{
		Status:          enums.TransactionStatusFailed,
		GatewayResponse: types.JSONMap{"reason": cause.Error()},
	}
	if id := strings.TrimSpace(paymentID); id != "" {
		update.ProviderPaymentID = &id
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		if _, err := repo.SettleTransaction(ctx, txnID, update); err != nil {
			return err
		}
		_, err := repo.MarkPaymentFailed(ctx, orderID)
		return err
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record failed payment")
	}
	return nil
}

func resultFor(orderID uuid.UUID, status enums.OrderStatus, paymentStatus enums.PaymentStatus, paymentID *string) *VerifyResult {
	out := &VerifyResult{OrderID: orderID, Status: status, PaymentStatus: paymentStatus}
	if paymentID != nil {
		out.ProviderPaymentID = *paymentID
	}
	return out
}
