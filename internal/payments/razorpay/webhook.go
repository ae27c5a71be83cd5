package razorpay

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

const (
	eventPaymentCaptured = "payment.captured"
	eventPaymentFailed   = "payment.failed"
	eventOrderPaid       = "order.paid"
)

type webhookEnvelope struct {
	Entity  string `json:"entity"`
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// ParseWebhook validates the body signature and maps the event onto a provider-neutral Event.
func (p *Provider) ParseWebhook(payload []byte, header http.Header) (*payments.Event, error) {
	if p.webhookSecret == "" {
		return nil, fmt.Errorf("razorpay webhook secret not configured")
	}
	if !validSignature(string(payload), p.webhookSecret, strings.TrimSpace(header.Get(SignatureHeader))) {
		return nil, payments.ErrInvalidSignature
	}

	var env webhookEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decode razorpay webhook: %w", err)
	}

	event := &payments.Event{
		Kind:     kindFor(env.Event),
		Provider: enums.PaymentProviderRazorpay,
		RawType:  env.Event,
		Payload:  json.RawMessage(payload),
	}
	if env.Payload.Payment != nil {
		event.ProviderPaymentID = env.Payload.Payment.Entity.ID
		event.ProviderOrderID = env.Payload.Payment.Entity.OrderID
	}
	if env.Payload.Order != nil && env.Payload.Order.Entity.ID != "" {
		event.ProviderOrderID = env.Payload.Order.Entity.ID
	}
	return event, nil
}

func kindFor(eventType string) payments.EventKind {
	switch eventType {
	case eventPaymentCaptured:
		return payments.EventPaymentCaptured
	case eventPaymentFailed:
		return payments.EventPaymentFailed
	case eventOrderPaid:
		return payments.EventOrderPaid
	default:
		return payments.EventUnknown
	}
}
