package models

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order is created pending at checkout and settled by verification or webhooks.
type Order struct {
	ID                uuid.UUID             `gorm:"type:uuid;primaryKey"`
	UserID            uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	TotalAmount       decimal.Decimal       `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Currency          string                `gorm:"column:currency;type:text;not null"`
	Status            enums.OrderStatus     `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus     enums.PaymentStatus   `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	Provider          enums.PaymentProvider `gorm:"column:provider;type:text;not null"`
	ShippingAddress   types.Address         `gorm:"column:shipping_address;type:jsonb;not null"`
	ProviderSessionID *string               `gorm:"column:provider_session_id;index"`
	Items             []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
