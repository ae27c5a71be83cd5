package cron

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type jobFixture struct {
	conn   *gorm.DB
	repo   orders.Repository
	params OrderJobParams
}

func newJobFixture(t *testing.T) *jobFixture {
	t.Helper()
	conn := dbtest.Open(t)
	repo := orders.NewRepository(conn)
	return &jobFixture{
		conn: conn,
		repo: repo,
		params: OrderJobParams{
			Logger:     logger.Nop(),
			DB:         db.NewFromGorm(conn),
			Orders:     repo,
			PendingTTL: time.Hour,
		},
	}
}

func (f *jobFixture) order(t *testing.T, age time.Duration, withTxn bool) *models.Order {
	t.Helper()
	ctx := context.Background()
	order := &models.Order{
		UserID: uuid.New(), TotalAmount: decimal.NewFromInt(50), Currency: "INR",
		Status: enums.OrderStatusPending, PaymentStatus: enums.PaymentStatusPending,
		Provider: enums.PaymentProviderRazorpay, CreatedAt: time.Now().UTC().Add(-age),
	}
	require.NoError(t, f.repo.CreateOrder(ctx, order))
	require.NoError(t, f.repo.CreateItems(ctx, []models.OrderItem{
		{OrderID: order.ID, ProductID: uuid.New(), Name: "Linen Kurta", Quantity: 1, UnitPrice: decimal.NewFromInt(50)},
	}))
	if withTxn {
		require.NoError(t, f.repo.CreateTransaction(ctx, &models.PaymentTransaction{
			OrderID: order.ID, Provider: order.Provider, ProviderOrderID: "order_" + order.ID.String()[:8],
			Amount: order.TotalAmount, Currency: "INR", Status: enums.TransactionStatusPending,
		}))
	}
	return order
}

func TestStalePendingOrdersJobFailsExpiredPayments(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()
	stale := f.order(t, 2*time.Hour, true)
	fresh := f.order(t, time.Minute, true)
	paid := f.order(t, 2*time.Hour, true)
	_, err := f.repo.MarkPaid(ctx, paid.ID)
	require.NoError(t, err)

	job, err := NewStalePendingOrdersJob(f.params)
	require.NoError(t, err)
	assert.Equal(t, "stale-pending-orders", job.Name())
	require.NoError(t, job.Run(ctx))

	got, err := f.repo.FindOrder(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusFailed, got.PaymentStatus)
	assert.Equal(t, enums.OrderStatusPending, got.Status)
	txn, err := f.repo.FindLatestTransaction(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusFailed, txn.Status)

	got, err = f.repo.FindOrder(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, got.PaymentStatus)

	got, err = f.repo.FindOrder(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, got.PaymentStatus)
}

func TestOrphanOrdersJobDeletesOrdersWithoutTransactions(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()
	orphan := f.order(t, 2*time.Hour, false)
	young := f.order(t, time.Minute, false)
	handedOff := f.order(t, 2*time.Hour, true)

	job, err := NewOrphanOrdersJob(f.params)
	require.NoError(t, err)
	require.NoError(t, job.Run(ctx))

	_, err = f.repo.FindOrder(ctx, orphan.ID)
	assert.True(t, db.IsNotFound(err))
	var items int64
	require.NoError(t, f.conn.Model(&models.OrderItem{}).Where("order_id = ?", orphan.ID).Count(&items).Error)
	assert.Zero(t, items)

	_, err = f.repo.FindOrder(ctx, young.ID)
	assert.NoError(t, err)
	_, err = f.repo.FindOrder(ctx, handedOff.ID)
	assert.NoError(t, err)
}

func TestOrderJobsValidateParams(t *testing.T) {
	_, err := NewStalePendingOrdersJob(OrderJobParams{})
	require.Error(t, err)
	_, err = NewOrphanOrdersJob(OrderJobParams{Logger: logger.Nop()})
	require.Error(t, err)
}
