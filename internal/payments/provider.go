package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrVerificationFailed marks a payment the provider definitively rejected.
	ErrVerificationFailed = errors.New("payment verification failed")
	// ErrPaymentPending marks a payment the provider has not settled yet. Nothing is recorded.
	ErrPaymentPending = errors.New("payment not settled yet")
	// ErrInvalidSignature is returned when a webhook signature does not match.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrAmountOutOfRange is returned for amounts that do not fit a provider's minor-unit field.
	ErrAmountOutOfRange = errors.New("amount out of range")
)

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

// Provider is implemented by every payment gateway the storefront can charge through.
type Provider interface {
	Name() enums.PaymentProvider
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*ProviderOrder, error)
	VerifyPayment(ctx context.Context, req VerifyRequest) (*Verification, error)
	ParseWebhook(payload []byte, header http.Header) (*Event, error)
}

// LineItem is one priced line forwarded to the provider.
type LineItem struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

type CreateOrderRequest struct {
	Amount        decimal.Decimal
	Currency      string
	OrderID       uuid.UUID
	Items         []LineItem
	CustomerEmail string
}

// ProviderOrder is the provider-side handle created for a storefront order.
type ProviderOrder struct {
	ProviderOrderID string
	RedirectURL     string
	KeyID           string
	AmountMinor     int64
	Currency        string
	Raw             types.JSONMap
}

type VerifyRequest struct {
	ProviderOrderID string
	PaymentID       string
	Signature       string
}

// Verification is a successful provider confirmation.
type Verification struct {
	PaymentID string
	Raw       types.JSONMap
}

type EventKind int

const (
	EventUnknown EventKind = iota
	EventPaymentCaptured
	EventPaymentFailed
	EventOrderPaid
)

func (k EventKind) String() string {
	switch k {
	case EventPaymentCaptured:
		return "payment_captured"
	case EventPaymentFailed:
		return "payment_failed"
	case EventOrderPaid:
		return "order_paid"
	default:
		return "unknown"
	}
}

// Event is a verified, provider-neutral webhook notification.
type Event struct {
	Kind              EventKind
	Provider          enums.PaymentProvider
	RawType           string
	ProviderOrderID   string
	ProviderPaymentID string
	Payload           json.RawMessage
}

// GatewayResponse decodes the raw payload for storage on the transaction.
func (e *Event) GatewayResponse() types.JSONMap {
	out := types.JSONMap{"event": e.RawType}
	var body map[string]any
	if len(e.Payload) > 0 && json.Unmarshal(e.Payload, &body) == nil {
		out["payload"] = body
	}
	return out
}

// ToMinorUnits converts a major-unit amount (rupees, dollars) to the smallest currency unit.
// Negative amounts and amounts past int64 are rejected.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	minor := amount.Shift(2).Round(0)
	if minor.IsNegative() || minor.GreaterThan(maxMinorUnits) {
		return 0, fmt.Errorf("%w: %s", ErrAmountOutOfRange, amount.String())
	}
	return minor.IntPart(), nil
}
