package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type stubOrdersService struct {
	adminListFn func(ctx context.Context, filters orders.AdminFilters, params pagination.Params) (*orders.OrderListDTO, error)
	adminGetFn  func(ctx context.Context, orderID uuid.UUID) (*orders.OrderDTO, error)
}

func (s stubOrdersService) GetForUser(context.Context, uuid.UUID, uuid.UUID) (*orders.OrderDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (s stubOrdersService) ListForUser(context.Context, uuid.UUID, pagination.Params) (*orders.OrderListDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (s stubOrdersService) AdminList(ctx context.Context, filters orders.AdminFilters, params pagination.Params) (*orders.OrderListDTO, error) {
	if s.adminListFn != nil {
		return s.adminListFn(ctx, filters, params)
	}
	return &orders.OrderListDTO{}, nil
}

func (s stubOrdersService) AdminGet(ctx context.Context, orderID uuid.UUID) (*orders.OrderDTO, error) {
	if s.adminGetFn != nil {
		return s.adminGetFn(ctx, orderID)
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func TestAdminOrderListFilters(t *testing.T) {
	userID := uuid.New()
	svc := stubOrdersService{
		adminListFn: func(ctx context.Context, filters orders.AdminFilters, params pagination.Params) (*orders.OrderListDTO, error) {
			if params.Limit != 5 || params.Cursor != "abc" {
				t.Errorf("unexpected params %+v", params)
			}
			if filters.Status == nil || *filters.Status != enums.OrderStatusPending {
				t.Errorf("unexpected status filter %v", filters.Status)
			}
			if filters.Provider == nil || *filters.Provider != enums.PaymentProviderStripe {
				t.Errorf("unexpected provider filter %v", filters.Provider)
			}
			if filters.UserID == nil || *filters.UserID != userID {
				t.Errorf("unexpected user filter %v", filters.UserID)
			}
			if filters.PaymentStatus != nil {
				t.Errorf("payment status filter should be unset")
			}
			return &orders.OrderListDTO{NextCursor: "next"}, nil
		},
	}

	target := "/api/admin/v1/orders?limit=5&cursor=abc&status=PENDING&provider=stripe&userId=" + userID.String()
	resp := httptest.NewRecorder()
	AdminOrderList(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminOrderListRejectsBadUserID(t *testing.T) {
	resp := httptest.NewRecorder()
	AdminOrderList(stubOrdersService{}, nil).
		ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders?userId=nope", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestAdminOrderDetail(t *testing.T) {
	orderID := uuid.New()
	svc := stubOrdersService{
		adminGetFn: func(ctx context.Context, id uuid.UUID) (*orders.OrderDTO, error) {
			if id != orderID {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return &orders.OrderDTO{ID: id, Status: enums.OrderStatusConfirmed}, nil
		},
	}

	cases := map[string]int{
		orderID.String(): http.StatusOK,
		uuid.NewString(): http.StatusNotFound,
		"not-a-uuid":     http.StatusBadRequest,
	}
	for param, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders/"+param, nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("orderId", param)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

		resp := httptest.NewRecorder()
		AdminOrderDetail(svc, nil).ServeHTTP(resp, req)
		if resp.Code != want {
			t.Fatalf("%s: expected %d, got %d", param, want, resp.Code)
		}
	}
}
