package stripeprovider

import (
	"fmt"
	"net/http"

	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

// SignatureHeader carries the Stripe webhook signature.
const SignatureHeader = "Stripe-Signature"

// ParseWebhook verifies the Stripe signature and maps Checkout Session events.
func (p *Provider) ParseWebhook(payload []byte, header http.Header) (*payments.Event, error) {
	sigHeader := header.Get(SignatureHeader)
	if sigHeader == "" {
		return nil, payments.ErrInvalidSignature
	}
	evt, err := webhook.ConstructEvent(payload, sigHeader, p.secrets.SigningSecret())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payments.ErrInvalidSignature, err)
	}

	out := &payments.Event{
		Kind:     payments.EventUnknown,
		Provider: enums.PaymentProviderStripe,
		RawType:  string(evt.Type),
	}
	if evt.Data == nil {
		return out, nil
	}
	out.Payload = evt.Data.Raw

	switch evt.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded,
		stripe.EventTypeCheckoutSessionAsyncPaymentFailed,
		stripe.EventTypeCheckoutSessionExpired:
	default:
		return out, nil
	}

	sess, err := decodeSession(evt.Data.Raw)
	if err != nil {
		return nil, fmt.Errorf("decode checkout session event: %w", err)
	}
	out.ProviderOrderID = sess.ID
	out.ProviderPaymentID = paymentIntentID(sess)

	switch evt.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		// Delayed payment methods complete unpaid and settle through the async events.
		if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
			out.Kind = payments.EventOrderPaid
		}
	case stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		out.Kind = payments.EventOrderPaid
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed, stripe.EventTypeCheckoutSessionExpired:
		out.Kind = payments.EventPaymentFailed
	}
	return out, nil
}
