package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service exposes the session cart to HTTP handlers and checkout.
type Service interface {
	Get(ctx context.Context, sessionID string) (*CartDTO, error)
	AddItem(ctx context.Context, sessionID string, input AddItemInput) (*CartDTO, error)
	UpdateQuantity(ctx context.Context, sessionID string, productID uuid.UUID, qty int) (*CartDTO, error)
	RemoveItem(ctx context.Context, sessionID string, cartItemID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, sessionID string) error
	Load(ctx context.Context, sessionID string) (*Cart, error)
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// MaxLineQuantity caps the quantity of a single cart line.
const MaxLineQuantity = 99

// AddItemInput is the client payload for adding a line. Price and display fields come from the catalog.
type AddItemInput struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=99"`
	Size      string    `json:"size,omitempty" validate:"omitempty,max=32"`
	Color     string    `json:"color,omitempty" validate:"omitempty,max=32"`
	Fabric    string    `json:"fabric,omitempty" validate:"omitempty,max=32"`
}

// CartDTO is the cart as returned to clients.
type CartDTO struct {
	Items []Item          `json:"items"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

func toDTO(c *Cart) *CartDTO {
	items := c.Items
	if items == nil {
		items = []Item{}
	}
	return &CartDTO{Items: items, Total: c.Total(), Count: c.Count()}
}

type service struct {
	store    Store
	products productLoader
	logg     *logger.Logger
}

// NewService builds a cart service backed by the provided store and catalog.
func NewService(store Store, products productLoader, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{store: store, products: products, logg: logg}, nil
}

func (s *service) Load(ctx context.Context, sessionID string) (*Cart, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart session required")
	}
	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrCorruptCart) {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithField(ctx, "cart_session", sessionID), "discarding corrupt cart")
			}
			return &Cart{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return c, nil
}

func (s *service) Get(ctx context.Context, sessionID string) (*CartDTO, error) {
	c, err := s.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return toDTO(c), nil
}

func (s *service) AddItem(ctx context.Context, sessionID string, input AddItemInput) (*CartDTO, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}

	p, err := s.activeProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if p.Stock <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is out of stock")
	}

	size, err := pickOption("size", input.Size, p.Sizes)
	if err != nil {
		return nil, err
	}
	color, err := pickOption("color", input.Color, p.Colors)
	if err != nil {
		return nil, err
	}
	fabric, err := pickOption("fabric", input.Fabric, p.Fabrics)
	if err != nil {
		return nil, err
	}

	c, err := s.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	item := Item{
		ProductID: p.ID,
		Quantity:  input.Quantity,
		Price:     p.Price,
		Size:      size,
		Color:     color,
		Fabric:    fabric,
		Category:  p.Category,
		Name:      p.Name,
		ImageURL:  p.ImageURL,
	}
	if input.Quantity > MaxLineQuantity || c.LineQuantity(item)+input.Quantity > MaxLineQuantity {
		return nil, lineLimitError()
	}
	if err := checkStock(p, c.QuantityOf(p.ID)+input.Quantity); err != nil {
		return nil, err
	}
	c.Add(item)
	if err := s.save(ctx, sessionID, c); err != nil {
		return nil, err
	}
	return toDTO(c), nil
}

func (s *service) UpdateQuantity(ctx context.Context, sessionID string, productID uuid.UUID, qty int) (*CartDTO, error) {
	c, err := s.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	lines := c.LinesOf(productID)
	if qty <= 0 || lines == 0 {
		return toDTO(c), nil
	}
	if qty > MaxLineQuantity {
		return nil, lineLimitError()
	}
	p, err := s.activeProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := checkStock(p, qty*lines); err != nil {
		return nil, err
	}
	if c.UpdateQuantity(productID, qty) {
		if err := s.save(ctx, sessionID, c); err != nil {
			return nil, err
		}
	}
	return toDTO(c), nil
}

func (s *service) RemoveItem(ctx context.Context, sessionID string, cartItemID uuid.UUID) (*CartDTO, error) {
	c, err := s.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if c.Remove(cartItemID) {
		if err := s.save(ctx, sessionID, c); err != nil {
			return nil, err
		}
	}
	return toDTO(c), nil
}

func (s *service) Clear(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart session required")
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) save(ctx context.Context, sessionID string, c *Cart) error {
	if err := s.store.Save(ctx, sessionID, c); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return nil
}

func (s *service) activeProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if !p.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return p, nil
}

func lineLimitError() error {
	return pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds the per-item limit").
		WithDetails(map[string]any{"max": MaxLineQuantity})
}

// checkStock rejects a cart holding more units of p than are on hand.
func checkStock(p *models.Product, wanted int) error {
	if wanted > p.Stock {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds available stock").
			WithDetails(map[string]any{"available": p.Stock})
	}
	return nil
}

// pickOption validates a requested option against the product's offered values and
// returns the catalog spelling.
func pickOption(field, requested string, offered types.StringList) (string, error) {
	requested = strings.TrimSpace(requested)
	if len(offered) == 0 {
		if requested != "" {
			return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product has no %s options", field))
		}
		return "", nil
	}
	if requested == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is required", field)).
			WithDetails(map[string]any{"allowed": []string(offered)})
	}
	for _, candidate := range offered {
		if strings.EqualFold(candidate, requested) {
			return candidate, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid %s", field)).
		WithDetails(map[string]any{"allowed": []string(offered)})
}
