package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
)

// Service exposes read access to orders for shoppers and admins.
type Service interface {
	GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderListDTO, error)
	AdminList(ctx context.Context, filters AdminFilters, params pagination.Params) (*OrderListDTO, error)
	AdminGet(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
}

type service struct {
	repo Repository
}

// NewService builds the orders read service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindOrderForUser(ctx, orderID, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return s.withTransaction(ctx, order)
}

func (s *service) AdminGet(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return s.withTransaction(ctx, order)
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderListDTO, error) {
	list, err := s.repo.ListUserOrders(ctx, userID, params)
	if err != nil {
		return nil, listError(err)
	}
	return toListDTO(list), nil
}

func (s *service) AdminList(ctx context.Context, filters AdminFilters, params pagination.Params) (*OrderListDTO, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status filter")
	}
	if filters.PaymentStatus != nil && !filters.PaymentStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status filter")
	}
	if filters.Provider != nil && !filters.Provider.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid provider filter")
	}
	list, err := s.repo.ListOrders(ctx, filters, params)
	if err != nil {
		return nil, listError(err)
	}
	return toListDTO(list), nil
}

func (s *service) withTransaction(ctx context.Context, order *models.Order) (*OrderDTO, error) {
	txn, err := s.repo.FindLatestTransaction(ctx, order.ID)
	if err != nil && !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment transaction")
	}
	dto := FromModel(order, txn)
	return &dto, nil
}

func listError(err error) error {
	if errors.Is(err, pagination.ErrInvalidCursor) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
}

func toListDTO(list *OrderList) *OrderListDTO {
	out := &OrderListDTO{Orders: make([]OrderDTO, 0, len(list.Orders)), NextCursor: list.NextCursor}
	for i := range list.Orders {
		out.Orders = append(out.Orders, FromModel(&list.Orders[i], nil))
	}
	return out
}
