package models

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentTransaction records one payment attempt against a provider. It is updated in place.
type PaymentTransaction struct {
	ID                uuid.UUID               `gorm:"type:uuid;primaryKey"`
	OrderID           uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index"`
	Provider          enums.PaymentProvider   `gorm:"column:provider;type:text;not null"`
	ProviderOrderID   string                  `gorm:"column:provider_order_id;not null;index"`
	ProviderPaymentID *string                 `gorm:"column:provider_payment_id;index"`
	Amount            decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency          string                  `gorm:"column:currency;type:text;not null"`
	Status            enums.TransactionStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	GatewayResponse   types.JSONMap           `gorm:"column:gateway_response;type:jsonb"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *PaymentTransaction) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
