// Package stripeprovider charges shoppers through Stripe hosted Checkout Sessions.
package stripeprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
)

// SessionAPI is the slice of the Checkout Sessions API the provider relies on.
type SessionAPI interface {
	Create(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)
	Retrieve(ctx context.Context, id string, params *stripe.CheckoutSessionRetrieveParams) (*stripe.CheckoutSession, error)
}

type sessionClientWrapper struct {
	api *stripe.Client
}

// NewSessionAPI routes checkout session calls through the account's stripe-go client.
func NewSessionAPI(api *stripe.Client) SessionAPI {
	if api == nil {
		return nil
	}
	return &sessionClientWrapper{api: api}
}

func (w *sessionClientWrapper) Create(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error) {
	return w.api.V1CheckoutSessions.Create(ctx, params)
}

func (w *sessionClientWrapper) Retrieve(ctx context.Context, id string, params *stripe.CheckoutSessionRetrieveParams) (*stripe.CheckoutSession, error) {
	return w.api.V1CheckoutSessions.Retrieve(ctx, id, params)
}

type signingSecretSource interface {
	SigningSecret() string
}

type Params struct {
	Sessions SessionAPI
	Secrets  signingSecretSource
	// SuccessURL and CancelURL are absolute storefront URLs the hosted page returns to.
	SuccessURL string
	CancelURL  string
}

// Provider implements payments.Provider on top of Stripe Checkout.
type Provider struct {
	sessions   SessionAPI
	secrets    signingSecretSource
	successURL string
	cancelURL  string
}

func New(params Params) (*Provider, error) {
	if params.Sessions == nil {
		return nil, errors.New("stripe session api required")
	}
	if params.Secrets == nil {
		return nil, errors.New("stripe signing secret source required")
	}
	if strings.TrimSpace(params.SuccessURL) == "" || strings.TrimSpace(params.CancelURL) == "" {
		return nil, errors.New("stripe success and cancel urls required")
	}
	return &Provider{
		sessions:   params.Sessions,
		secrets:    params.Secrets,
		successURL: params.SuccessURL,
		cancelURL:  params.CancelURL,
	}, nil
}

func (p *Provider) Name() enums.PaymentProvider {
	return enums.PaymentProviderStripe
}

// CreateOrder opens a hosted Checkout Session priced from the order lines.
func (p *Provider) CreateOrder(ctx context.Context, req payments.CreateOrderRequest) (*payments.ProviderOrder, error) {
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	orderID := req.OrderID.String()

	items, err := lineItems(req, currency)
	if err != nil {
		return nil, err
	}
	params := &stripe.CheckoutSessionCreateParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(orderID),
		SuccessURL:        stripe.String(withQuery(p.successURL, orderID, true)),
		CancelURL:         stripe.String(withQuery(p.cancelURL, orderID, false)),
		LineItems:         items,
		PaymentIntentData: &stripe.CheckoutSessionCreatePaymentIntentDataParams{
			Metadata: map[string]string{"order_id": orderID},
		},
	}
	params.AddMetadata("order_id", orderID)
	if email := strings.TrimSpace(req.CustomerEmail); email != "" {
		params.CustomerEmail = stripe.String(email)
	}

	sess, err := p.sessions.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create stripe checkout session: %w", err)
	}
	if sess == nil || sess.ID == "" {
		return nil, errors.New("stripe checkout session missing id")
	}

	amount := sess.AmountTotal
	if amount == 0 {
		if amount, err = payments.ToMinorUnits(req.Amount); err != nil {
			return nil, err
		}
	}
	return &payments.ProviderOrder{
		ProviderOrderID: sess.ID,
		RedirectURL:     sess.URL,
		AmountMinor:     amount,
		Currency:        currency,
		Raw:             types.JSONMap{"session_id": sess.ID, "status": string(sess.Status)},
	}, nil
}

// lineItems prices each line in minor units. When no lines are given a single line carries the total.
func lineItems(req payments.CreateOrderRequest, currency string) ([]*stripe.CheckoutSessionCreateLineItemParams, error) {
	if len(req.Items) == 0 {
		line, err := priceLine("Order "+req.OrderID.String(), currency, req.Amount, 1)
		if err != nil {
			return nil, err
		}
		return []*stripe.CheckoutSessionCreateLineItemParams{line}, nil
	}
	out := make([]*stripe.CheckoutSessionCreateLineItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		line, err := priceLine(item.Name, currency, item.UnitPrice, item.Quantity)
		if err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, nil
}

func priceLine(name, currency string, unit decimal.Decimal, qty int) (*stripe.CheckoutSessionCreateLineItemParams, error) {
	unitAmount, err := payments.ToMinorUnits(unit)
	if err != nil {
		return nil, err
	}
	return &stripe.CheckoutSessionCreateLineItemParams{
		PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
			Currency:   stripe.String(currency),
			UnitAmount: stripe.Int64(unitAmount),
			ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
				Name: stripe.String(name),
			},
		},
		Quantity: stripe.Int64(int64(qty)),
	}, nil
}

func withQuery(base, orderID string, includeSession bool) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	q := "order_id=" + url.QueryEscape(orderID)
	if includeSession {
		// Stripe substitutes the literal placeholder, so it must stay unescaped.
		q += "&session_id={CHECKOUT_SESSION_ID}"
	}
	return base + sep + q
}

// VerifyPayment retrieves the session server-side and requires it to be paid.
// Open sessions and completed sessions still waiting on a delayed payment method are
// reported as pending so the async webhook can settle them.
func (p *Provider) VerifyPayment(ctx context.Context, req payments.VerifyRequest) (*payments.Verification, error) {
	if req.ProviderOrderID == "" {
		return nil, fmt.Errorf("%w: checkout session id missing", payments.ErrVerificationFailed)
	}
	sess, err := p.sessions.Retrieve(ctx, req.ProviderOrderID, &stripe.CheckoutSessionRetrieveParams{})
	if err != nil {
		return nil, fmt.Errorf("retrieve stripe checkout session: %w", err)
	}

	switch {
	case sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
	case sess.Status == stripe.CheckoutSessionStatusOpen:
		return nil, fmt.Errorf("%w: checkout session still open", payments.ErrPaymentPending)
	case sess.Status == stripe.CheckoutSessionStatusComplete && sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid:
		return nil, fmt.Errorf("%w: checkout session awaiting payment", payments.ErrPaymentPending)
	default:
		return nil, fmt.Errorf("%w: checkout session %s with payment status %q", payments.ErrVerificationFailed, sess.Status, sess.PaymentStatus)
	}

	paymentID := paymentIntentID(sess)
	if paymentID == "" {
		paymentID = sess.ID
	}
	return &payments.Verification{
		PaymentID: paymentID,
		Raw: types.JSONMap{
			"session_id":     sess.ID,
			"payment_status": string(sess.PaymentStatus),
			"amount_total":   sess.AmountTotal,
			"verified_by":    "session_retrieve",
		},
	}, nil
}

func paymentIntentID(sess *stripe.CheckoutSession) string {
	if sess == nil || sess.PaymentIntent == nil {
		return ""
	}
	return sess.PaymentIntent.ID
}

func decodeSession(raw json.RawMessage) (*stripe.CheckoutSession, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}
