package orders

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedOrder(t *testing.T, repo Repository, userID uuid.UUID, provider enums.PaymentProvider, createdAt time.Time) *models.Order {
	t.Helper()
	ctx := context.Background()
	order := &models.Order{
		UserID:        userID,
		TotalAmount:   decimal.RequireFromString("130.00"),
		Currency:      "INR",
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
		Provider:      provider,
		ShippingAddress: types.Address{
			FullName: "Asha Rao", Line1: "12 MG Road", City: "Bengaluru",
			State: "KA", PostalCode: "560001", Country: "IN", Phone: "+919800000000",
		},
		CreatedAt: createdAt,
	}
	require.NoError(t, repo.CreateOrder(ctx, order))
	require.NoError(t, repo.CreateItems(ctx, []models.OrderItem{
		{OrderID: order.ID, ProductID: uuid.New(), Name: "Linen Kurta", Quantity: 2, UnitPrice: decimal.NewFromInt(50)},
		{OrderID: order.ID, ProductID: uuid.New(), Name: "Cotton Scarf", Quantity: 1, UnitPrice: decimal.NewFromInt(30)},
	}))
	return order
}

func seedTransaction(t *testing.T, repo Repository, order *models.Order, providerOrderID string) *models.PaymentTransaction {
	t.Helper()
	txn := &models.PaymentTransaction{
		OrderID:         order.ID,
		Provider:        order.Provider,
		ProviderOrderID: providerOrderID,
		Amount:          order.TotalAmount,
		Currency:        order.Currency,
		Status:          enums.TransactionStatusPending,
	}
	require.NoError(t, repo.CreateTransaction(context.Background(), txn))
	return txn
}

func TestRepository_CreateAndFindOrder(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	userID := uuid.New()
	order := seedOrder(t, repo, userID, enums.PaymentProviderRazorpay, time.Now().UTC())

	found, err := repo.FindOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, found.Status)
	assert.Equal(t, enums.PaymentStatusPending, found.PaymentStatus)
	assert.Equal(t, "Bengaluru", found.ShippingAddress.City)
	require.Len(t, found.Items, 2)

	_, err = repo.FindOrderForUser(context.Background(), order.ID, uuid.New())
	assert.True(t, db.IsNotFound(err))
}

func TestRepository_DeleteOrderRemovesChildren(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	order := seedOrder(t, repo, uuid.New(), enums.PaymentProviderStripe, time.Now().UTC())
	seedTransaction(t, repo, order, "cs_test_1")

	require.NoError(t, repo.DeleteOrder(context.Background(), order.ID))

	_, err := repo.FindOrder(context.Background(), order.ID)
	assert.True(t, db.IsNotFound(err))
	var items, txns int64
	require.NoError(t, conn.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Count(&items).Error)
	require.NoError(t, conn.Model(&models.PaymentTransaction{}).Where("order_id = ?", order.ID).Count(&txns).Error)
	assert.Zero(t, items)
	assert.Zero(t, txns)
}

func TestRepository_WithTxRollsBackOrder(t *testing.T) {
	conn := dbtest.Open(t)
	client := db.NewFromGorm(conn)
	repo := NewRepository(conn)

	var orderID uuid.UUID
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		scoped := repo.WithTx(tx)
		order := &models.Order{
			UserID: uuid.New(), TotalAmount: decimal.NewFromInt(10), Currency: "INR",
			Status: enums.OrderStatusPending, PaymentStatus: enums.PaymentStatusPending,
			Provider: enums.PaymentProviderRazorpay,
		}
		if err := scoped.CreateOrder(context.Background(), order); err != nil {
			return err
		}
		orderID = order.ID
		dup := uuid.New()
		return scoped.CreateItems(context.Background(), []models.OrderItem{
			{ID: dup, OrderID: order.ID, ProductID: uuid.New(), Name: "a", Quantity: 1, UnitPrice: decimal.NewFromInt(10)},
			{ID: dup, OrderID: order.ID, ProductID: uuid.New(), Name: "b", Quantity: 1, UnitPrice: decimal.NewFromInt(10)},
		})
	})
	require.Error(t, err)

	_, err = repo.FindOrder(context.Background(), orderID)
	assert.True(t, db.IsNotFound(err))
}

func TestRepository_MarkPaidOnlyFromPending(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	order := seedOrder(t, repo, uuid.New(), enums.PaymentProviderRazorpay, time.Now().UTC())

	changed, err := repo.MarkPaid(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkPaymentFailed(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, changed, "a paid order must not move to failed")

	changed, err = repo.MarkPaid(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	found, err := repo.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, found.PaymentStatus)
	assert.Equal(t, enums.OrderStatusConfirmed, found.Status)
}

func TestRepository_MarkPaymentFailedKeepsOrderStatus(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	order := seedOrder(t, repo, uuid.New(), enums.PaymentProviderRazorpay, time.Now().UTC())

	changed, err := repo.MarkPaymentFailed(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkPaid(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	found, err := repo.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusFailed, found.PaymentStatus)
	assert.Equal(t, enums.OrderStatusPending, found.Status)
}

func TestRepository_SettleTransaction(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	order := seedOrder(t, repo, uuid.New(), enums.PaymentProviderRazorpay, time.Now().UTC())
	txn := seedTransaction(t, repo, order, "order_abc")

	paymentID := "pay_123"
	changed, err := repo.SettleTransaction(ctx, txn.ID, TransactionUpdate{
		Status:            enums.TransactionStatusSuccess,
		ProviderPaymentID: &paymentID,
		GatewayResponse:   types.JSONMap{"event": "payment.captured"},
	})
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.SettleTransaction(ctx, txn.ID, TransactionUpdate{Status: enums.TransactionStatusFailed})
	require.NoError(t, err)
	assert.False(t, changed, "success is terminal")

	byPayment, err := repo.FindTransactionByPaymentID(ctx, enums.PaymentProviderRazorpay, paymentID)
	require.NoError(t, err)
	assert.Equal(t, txn.ID, byPayment.ID)
	assert.Equal(t, enums.TransactionStatusSuccess, byPayment.Status)
	assert.Equal(t, "payment.captured", byPayment.GatewayResponse["event"])

	_, err = repo.FindTransactionByPaymentID(ctx, enums.PaymentProviderStripe, paymentID)
	assert.True(t, db.IsNotFound(err))

	byOrder, err := repo.FindTransactionByProviderOrderID(ctx, enums.PaymentProviderRazorpay, "order_abc")
	require.NoError(t, err)
	assert.Equal(t, txn.ID, byOrder.ID)
}

func TestRepository_ListUserOrdersPaginates(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	userID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	var created []uuid.UUID
	for i := 0; i < 3; i++ {
		created = append(created, seedOrder(t, repo, userID, enums.PaymentProviderRazorpay, base.Add(time.Duration(i)*time.Minute)).ID)
	}
	seedOrder(t, repo, uuid.New(), enums.PaymentProviderRazorpay, base)

	first, err := repo.ListUserOrders(ctx, userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Orders, 2)
	assert.Equal(t, created[2], first.Orders[0].ID)
	assert.Equal(t, created[1], first.Orders[1].ID)
	assert.Len(t, first.Orders[0].Items, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := repo.ListUserOrders(ctx, userID, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Orders, 1)
	assert.Equal(t, created[0], second.Orders[0].ID)
	assert.Empty(t, second.NextCursor)
}

func TestRepository_ListOrdersFilters(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	now := time.Now().UTC()
	paid := seedOrder(t, repo, uuid.New(), enums.PaymentProviderStripe, now.Add(-2*time.Minute))
	seedOrder(t, repo, uuid.New(), enums.PaymentProviderRazorpay, now.Add(-time.Minute))
	_, err := repo.MarkPaid(ctx, paid.ID)
	require.NoError(t, err)

	status := enums.PaymentStatusPaid
	list, err := repo.ListOrders(ctx, AdminFilters{PaymentStatus: &status}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, paid.ID, list.Orders[0].ID)

	provider := enums.PaymentProviderRazorpay
	list, err = repo.ListOrders(ctx, AdminFilters{Provider: &provider}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, enums.PaymentProviderRazorpay, list.Orders[0].Provider)

	_, err = repo.ListOrders(ctx, AdminFilters{}, pagination.Params{Cursor: "%%%"})
	assert.ErrorIs(t, err, pagination.ErrInvalidCursor)
}

func TestRepository_StaleAndOrphanLookups(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	now := time.Now().UTC()

	staleWithTxn := seedOrder(t, repo, uuid.New(), enums.PaymentProviderRazorpay, now.Add(-2*time.Hour))
	seedTransaction(t, repo, staleWithTxn, "order_stale")
	orphan := seedOrder(t, repo, uuid.New(), enums.PaymentProviderRazorpay, now.Add(-2*time.Hour))
	fresh := seedOrder(t, repo, uuid.New(), enums.PaymentProviderRazorpay, now)
	seedTransaction(t, repo, fresh, "order_fresh")

	cutoff := now.Add(-time.Hour)
	stale, err := repo.FindStalePendingOrders(ctx, cutoff, 10)
	require.NoError(t, err)
	assert.Len(t, stale, 2)

	orphans, err := repo.FindOrphanOrders(ctx, cutoff, 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{orphan.ID}, orphans)

	n, err := repo.FailPendingTransactions(ctx, staleWithTxn.ID, "expired")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	txn, err := repo.FindLatestTransaction(ctx, staleWithTxn.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusFailed, txn.Status)
	assert.Equal(t, "expired", txn.GatewayResponse["reason"])
}
