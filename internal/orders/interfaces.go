package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for orders, order items and payment transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrder(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderForUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListOrders(ctx context.Context, filters AdminFilters, params pagination.Params) (*OrderList, error)
	SetProviderSession(ctx context.Context, orderID uuid.UUID, providerSessionID string) error

	MarkPaid(ctx context.Context, orderID uuid.UUID) (bool, error)
	MarkPaymentFailed(ctx context.Context, orderID uuid.UUID) (bool, error)

	CreateTransaction(ctx context.Context, txn *models.PaymentTransaction) error
	FindTransactionByPaymentID(ctx context.Context, provider enums.PaymentProvider, paymentID string) (*models.PaymentTransaction, error)
	FindTransactionByProviderOrderID(ctx context.Context, provider enums.PaymentProvider, providerOrderID string) (*models.PaymentTransaction, error)
	FindLatestTransaction(ctx context.Context, orderID uuid.UUID) (*models.PaymentTransaction, error)
	SettleTransaction(ctx context.Context, txnID uuid.UUID, update TransactionUpdate) (bool, error)
	FailPendingTransactions(ctx context.Context, orderID uuid.UUID, reason string) (int64, error)

	FindStalePendingOrders(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	FindOrphanOrders(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

// TransactionUpdate moves a pending transaction to success or failed.
type TransactionUpdate struct {
	Status            enums.TransactionStatus
	ProviderPaymentID *string
	GatewayResponse   types.JSONMap
}
