package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubPaymentService struct {
	verifyFn func(ctx context.Context, userID uuid.UUID, input payments.VerifyInput) (*payments.VerifyResult, error)
}

func (s stubPaymentService) Verify(ctx context.Context, userID uuid.UUID, input payments.VerifyInput) (*payments.VerifyResult, error) {
	return s.verifyFn(ctx, userID, input)
}

func verifyRequest(body string, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/verify", strings.NewReader(body))
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func TestVerifyPayment(t *testing.T) {
	orderID := uuid.New()
	svc := stubPaymentService{
		verifyFn: func(ctx context.Context, userID uuid.UUID, input payments.VerifyInput) (*payments.VerifyResult, error) {
			if input.OrderID != orderID || input.PaymentID != "pay_1" {
				t.Errorf("unexpected input %+v", input)
			}
			return &payments.VerifyResult{
				OrderID:           orderID,
				Status:            enums.OrderStatusConfirmed,
				PaymentStatus:     enums.PaymentStatusPaid,
				ProviderPaymentID: "pay_1",
			}, nil
		},
	}

	body := `{"orderId":"` + orderID.String() + `","providerOrderId":"order_1","paymentId":"pay_1","signature":"abc"}`
	resp := httptest.NewRecorder()
	VerifyPayment(svc, nil).ServeHTTP(resp, verifyRequest(body, uuid.New()))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"paymentStatus":"paid"`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestVerifyPaymentSignatureMismatch(t *testing.T) {
	svc := stubPaymentService{
		verifyFn: func(context.Context, uuid.UUID, payments.VerifyInput) (*payments.VerifyResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodePayment, "payment signature mismatch")
		},
	}

	body := `{"orderId":"` + uuid.NewString() + `","paymentId":"pay_1","signature":"bad"}`
	resp := httptest.NewRecorder()
	VerifyPayment(svc, nil).ServeHTTP(resp, verifyRequest(body, uuid.New()))

	if resp.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", resp.Code)
	}
}

func TestVerifyPaymentRequiresOrderID(t *testing.T) {
	svc := stubPaymentService{
		verifyFn: func(context.Context, uuid.UUID, payments.VerifyInput) (*payments.VerifyResult, error) {
			t.Error("service should not be called")
			return nil, nil
		},
	}
	resp := httptest.NewRecorder()
	VerifyPayment(svc, nil).ServeHTTP(resp, verifyRequest(`{"paymentId":"pay_1"}`, uuid.New()))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
