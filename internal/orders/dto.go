package orders

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdminFilters narrow the admin order listing.
type AdminFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	Provider      *enums.PaymentProvider
	UserID        *uuid.UUID
}

// OrderList is one cursor page of orders.
type OrderList struct {
	Orders     []models.Order
	NextCursor string
}

// OrderItemDTO is one purchased line.
type OrderItemDTO struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
	Size      *string         `json:"size,omitempty"`
	Color     *string         `json:"color,omitempty"`
	Fabric    *string         `json:"fabric,omitempty"`
}

// TransactionDTO summarizes the latest payment attempt.
type TransactionDTO struct {
	ID                uuid.UUID               `json:"id"`
	Provider          enums.PaymentProvider   `json:"provider"`
	ProviderOrderID   string                  `json:"providerOrderId"`
	ProviderPaymentID *string                 `json:"providerPaymentId,omitempty"`
	Status            enums.TransactionStatus `json:"status"`
	UpdatedAt         time.Time               `json:"updatedAt"`
}

// OrderDTO is the order representation returned to shoppers and admins.
type OrderDTO struct {
	ID                uuid.UUID             `json:"id"`
	UserID            uuid.UUID             `json:"userId"`
	TotalAmount       decimal.Decimal       `json:"totalAmount"`
	Currency          string                `json:"currency"`
	Status            enums.OrderStatus     `json:"status"`
	PaymentStatus     enums.PaymentStatus   `json:"paymentStatus"`
	Provider          enums.PaymentProvider `json:"provider"`
	ShippingAddress   types.Address         `json:"shippingAddress"`
	ProviderSessionID *string               `json:"providerSessionId,omitempty"`
	Items             []OrderItemDTO        `json:"items"`
	Transaction       *TransactionDTO       `json:"transaction,omitempty"`
	CreatedAt         time.Time             `json:"createdAt"`
	UpdatedAt         time.Time             `json:"updatedAt"`
}

// OrderListDTO is a page of orders plus the cursor for the next one.
type OrderListDTO struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

func FromModel(o *models.Order, txn *models.PaymentTransaction) OrderDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemDTO{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: it.LineTotal(),
			Size:      it.Size,
			Color:     it.Color,
			Fabric:    it.Fabric,
		})
	}
	dto := OrderDTO{
		ID:                o.ID,
		UserID:            o.UserID,
		TotalAmount:       o.TotalAmount,
		Currency:          o.Currency,
		Status:            o.Status,
		PaymentStatus:     o.PaymentStatus,
		Provider:          o.Provider,
		ShippingAddress:   o.ShippingAddress,
		ProviderSessionID: o.ProviderSessionID,
		Items:             items,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
	if txn != nil {
		dto.Transaction = &TransactionDTO{
			ID:                txn.ID,
			Provider:          txn.Provider,
			ProviderOrderID:   txn.ProviderOrderID,
			ProviderPaymentID: txn.ProviderPaymentID,
			Status:            txn.Status,
			UpdatedAt:         txn.UpdatedAt,
		}
	}
	return dto
}
