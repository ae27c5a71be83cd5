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
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

// NewRepository constructs an orders repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// DeleteOrder removes an order together with its items and transactions.
func (r *repository) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	conn := r.db.WithContext(ctx)
	if err := conn.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	if err := conn.Where("order_id = ?", orderID).Delete(&models.PaymentTransaction{}).Error; err != nil {
		return err
	}
	return conn.Where("id = ?", orderID).Delete(&models.Order{}).Error
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		First(&order, "id = ?", orderID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderForUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	qb := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)
	return r.page(qb, params)
}

func (r *repository) ListOrders(ctx context.Context, filters AdminFilters, params pagination.Params) (*OrderList, error) {
	qb := r.db.WithContext(ctx).Model(&models.Order{})
	if filters.Status != nil {
		qb = qb.Where("status = ?", *filters.Status)
	}
	if filters.PaymentStatus != nil {
		qb = qb.Where("payment_status = ?", *filters.PaymentStatus)
	}
	if filters.Provider != nil {
		qb = qb.Where("provider = ?", *filters.Provider)
	}
	if filters.UserID != nil {
		qb = qb.Where("user_id = ?", *filters.UserID)
	}
	return r.page(qb, params)
}

func (r *repository) page(qb *gorm.DB, params pagination.Params) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	limit := pagination.NormalizeLimit(params.Limit)
	var rows []models.Order
	err = qb.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Order("created_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := &OrderList{Orders: rows}
	if len(rows) > limit {
		last := rows[limit-1]
		out.Orders = rows[:limit]
		out.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return out, nil
}

func (r *repository) SetProviderSession(ctx context.Context, orderID uuid.UUID, providerSessionID string) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("provider_session_id", providerSessionID).Error
}

// MarkPaid settles a pending order as paid and confirmed. It reports false when
// the order was not pending anymore.
func (r *repository) MarkPaid(ctx context.Context, orderID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", orderID, enums.PaymentStatusPending).
		Updates(map[string]any{
			"payment_status": enums.PaymentStatusPaid,
			"status":         enums.OrderStatusConfirmed,
			"updated_at":     time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

// MarkPaymentFailed flags the payment as failed. The order status is left untouched.
func (r *repository) MarkPaymentFailed(ctx context.Context, orderID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", orderID, enums.PaymentStatusPending).
		Updates(map[string]any{
			"payment_status": enums.PaymentStatusFailed,
			"updated_at":     time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.PaymentTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) FindTransactionByPaymentID(ctx context.Context, provider enums.PaymentProvider, paymentID string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_payment_id = ?", provider, paymentID).
		Order("created_at DESC").
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) FindTransactionByProviderOrderID(ctx context.Context, provider enums.PaymentProvider, providerOrderID string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_order_id = ?", provider, providerOrderID).
		Order("created_at DESC").
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) FindLatestTransaction(ctx context.Context, orderID uuid.UUID) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").Order("id DESC").
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// SettleTransaction applies update to a pending transaction. It reports false
// when the transaction had already left pending.
func (r *repository) SettleTransaction(ctx context.Context, txnID uuid.UUID, update TransactionUpdate) (bool, error) {
	fields := map[string]any{
		"status":     update.Status,
		"updated_at": time.Now().UTC(),
	}
	if update.ProviderPaymentID != nil {
		fields["provider_payment_id"] = *update.ProviderPaymentID
	}
	if update.GatewayResponse != nil {
		fields["gateway_response"] = update.GatewayResponse
	}
	res := r.db.WithContext(ctx).Model(&models.PaymentTransaction{}).
		Where("id = ? AND status = ?", txnID, enums.TransactionStatusPending).
		Updates(fields)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) FailPendingTransactions(ctx context.Context, orderID uuid.UUID, reason string) (int64, error) {
	fields := map[string]any{
		"status":     enums.TransactionStatusFailed,
		"updated_at": time.Now().UTC(),
	}
	if reason != "" {
		fields["gateway_response"] = types.JSONMap{"reason": reason}
	}
	res := r.db.WithContext(ctx).Model(&models.PaymentTransaction{}).
		Where("order_id = ? AND status = ?", orderID, enums.TransactionStatusPending).
		Updates(fields)
	return res.RowsAffected, res.Error
}

// FindStalePendingOrders returns orders whose payment is still pending past cutoff.
func (r *repository) FindStalePendingOrders(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	qb := r.db.WithContext(ctx).
		Where("payment_status = ? AND status = ? AND created_at < ?", enums.PaymentStatusPending, enums.OrderStatusPending, cutoff).
		Order("created_at ASC")
	if limit > 0 {
		qb = qb.Limit(limit)
	}
	if err := qb.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindOrphanOrders returns ids of orders older than cutoff that never got a payment transaction.
func (r *repository) FindOrphanOrders(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	qb := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("created_at < ?", cutoff).
		Where("payment_status = ?", enums.PaymentStatusPending).
		Where("NOT EXISTS (SELECT 1 FROM payment_transactions pt WHERE pt.order_id = orders.id)").
		Order("created_at ASC")
	if limit > 0 {
		qb = qb.Limit(limit)
	}
	if err := qb.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
