package checkout

import (
	"context"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// Service turns a session cart into a pending order and a provider payment handle.
type Service interface {
	Initiate(ctx context.Context, userID uuid.UUID, sessionID string, input Input) (*Result, error)
}

// Input is the checkout request body.
type Input struct {
	Provider        string        `json:"provider" validate:"required,max=32"`
	ShippingAddress types.Address `json:"shippingAddress"`
}

// Result is what the client needs to hand the shopper over to the provider.
type Result struct {
	OrderID         uuid.UUID             `json:"orderId"`
	Provider        enums.PaymentProvider `json:"provider"`
	ProviderOrderID string                `json:"providerOrderId"`
	RedirectURL     string                `json:"redirectUrl,omitempty"`
	KeyID           string                `json:"keyId,omitempty"`
	Amount          int64                 `json:"amount"`
	Currency        string                `json:"currency"`
}

type cartSource interface {
	Load(ctx context.Context, sessionID string) (*cart.Cart, error)
	Clear(ctx context.Context, sessionID string) error
}

type catalog interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type userLookup interface {
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type ServiceParams struct {
	Carts             cartSource
	Catalog           catalog
	Users             userLookup
	Orders            orders.Repository
	Providers         *payments.Registry
	TransactionRunner db.TxRunner
	Currency          string
	Metrics           *metrics.PaymentMetrics
	Logger            *logger.Logger
}

type service struct {
	carts     cartSource
	catalog   catalog
	users     userLookup
	orders    orders.Repository
	providers *payments.Registry
	tx        db.TxRunner
	currency  string
	metrics   *metrics.PaymentMetrics
	logg      *logger.Logger
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Carts == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart source required")
	case params.Catalog == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog required")
	case params.Users == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user lookup required")
	case params.Orders == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	case params.Providers == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "provider registry required")
	case params.TransactionRunner == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "INR"
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		carts:     params.Carts,
		catalog:   params.Catalog,
		users:     params.Users,
		orders:    params.Orders,
		providers: params.Providers,
		tx:        params.TransactionRunner,
		currency:  currency,
		metrics:   params.Metrics,
		logg:      logg,
	}, nil
}

func (s *service) Initiate(ctx context.Context, userID uuid.UUID, sessionID string, input Input) (*Result, error) {
	c, err := s.carts.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	input.ShippingAddress = input.ShippingAddress.Normalize()
	if err := s.validateInput(input); err != nil {
		return nil, err
	}
	provider, err := s.providers.Get(input.Provider)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithProvider(ctx, provider.Name().String())

	user, err := s.users.FindActiveByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load account")
	}

	items, lines, total, err := s.price(ctx, c)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:          userID,
		TotalAmount:     total,
		Currency:        s.currency,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		Provider:        provider.Name(),
		ShippingAddress: input.ShippingAddress,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		if err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		return repo.CreateItems(ctx, items)
	})
	if err != nil {
		s.metrics.Checkout(provider.Name().String(), metrics.OutcomeFailure)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	providerOrder, err := provider.CreateOrder(ctx, payments.CreateOrderRequest{
		Amount:        total,
		Currency:      s.currency,
		OrderID:       order.ID,
		Items:         lines,
		CustomerEmail: user.Email,
	})
	if err != nil {
		err = s.compensate(ctx, order.ID, err)
		s.metrics.Checkout(provider.Name().String(), metrics.OutcomeFailure)
		s.logg.Error(ctx, "payment provider order creation failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment provider unavailable")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		if err := repo.SetProviderSession(ctx, order.ID, providerOrder.ProviderOrderID); err != nil {
			return err
		}
		return repo.CreateTransaction(ctx, &models.PaymentTransaction{
			OrderID:         order.ID,
			Provider:        provider.Name(),
			ProviderOrderID: providerOrder.ProviderOrderID,
			Amount:          total,
			Currency:        s.currency,
			Status:          enums.TransactionStatusPending,
			GatewayResponse: providerOrder.Raw,
		})
	})
	if err != nil {
		err = s.compensate(ctx, order.ID, err)
		s.metrics.Checkout(provider.Name().String(), metrics.OutcomeFailure)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payment transaction")
	}

	if err := s.carts.Clear(ctx, sessionID); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "clear cart after checkout failed")
	}

	s.metrics.Checkout(provider.Name().String(), metrics.OutcomeSuccess)
	s.logg.Info(ctx, "checkout initiated")

	amount := providerOrder.AmountMinor
	if amount == 0 {
		// total was range-checked while pricing
		amount, _ = payments.ToMinorUnits(total)
	}
	currency := strings.ToUpper(providerOrder.Currency)
	if currency == "" {
		currency = s.currency
	}
	return &Result{
		OrderID:         order.ID,
		Provider:        provider.Name(),
		ProviderOrderID: providerOrder.ProviderOrderID,
		RedirectURL:     providerOrder.RedirectURL,
		KeyID:           providerOrder.KeyID,
		Amount:          amount,
		Currency:        currency,
	}, nil
}

// compensate deletes an order whose payment handshake did not complete.
func (s *service) compensate(ctx context.Context, orderID uuid.UUID, cause error) error {
	if delErr := s.orders.DeleteOrder(ctx, orderID); delErr != nil {
		s.logg.Error(ctx, "compensating order delete failed", delErr)
		return multierr.Append(cause, delErr)
	}
	return cause
}

func (s *service) validateInput(input Input) error {
	return validators.ValidateStruct(input)
}

// price re-reads every line from the catalog so stored prices never come from the client.
func (s *service) price(ctx context.Context, c *cart.Cart) ([]models.OrderItem, []payments.LineItem, decimal.Decimal, error) {
	ids := make([]uuid.UUID, 0, len(c.Items))
	seen := make(map[uuid.UUID]struct{}, len(c.Items))
	for _, item := range c.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	products, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart products")
	}

	total := decimal.Zero
	reserved := make(map[uuid.UUID]int, len(products))
	items := make([]models.OrderItem, 0, len(c.Items))
	lines := make([]payments.LineItem, 0, len(c.Items))
	for _, item := range c.Items {
		product, ok := products[item.ProductID]
		if !ok || !product.IsActive {
			return nil, nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "cart contains an unavailable product").
				WithDetails(map[string]any{"productId": item.ProductID})
		}
		if item.Quantity <= 0 || item.Quantity > cart.MaxLineQuantity {
			return nil, nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "cart contains an invalid quantity").
				WithDetails(map[string]any{"productId": item.ProductID})
		}
		reserved[product.ID] += item.Quantity
		if reserved[product.ID] > product.Stock {
			return nil, nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "not enough stock for a cart item").
				WithDetails(map[string]any{"productId": item.ProductID, "available": product.Stock})
		}
		orderItem := models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
			Size:      optional(item.Size),
			Color:     optional(item.Color),
			Fabric:    optional(item.Fabric),
		}
		total = total.Add(orderItem.LineTotal())
		items = append(items, orderItem)
		lines = append(lines, payments.LineItem{Name: product.Name, Quantity: item.Quantity, UnitPrice: product.Price})
	}
	if _, err := payments.ToMinorUnits(total); err != nil {
		return nil, nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "order total exceeds the payable limit")
	}
	return items, lines, total, nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
