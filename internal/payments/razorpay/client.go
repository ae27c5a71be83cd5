// Package razorpay charges shoppers through Razorpay Orders and the in-page checkout widget.
package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const (
	// SignatureHeader carries the webhook body signature.
	SignatureHeader = "X-Razorpay-Signature"

	ordersPath     = "/v1/orders"
	maxErrorBody   = 4 << 10
	defaultBaseURL = "https://api.razorpay.com"
)

// Provider talks to the Razorpay REST API with basic auth.
type Provider struct {
	keyID         string
	keySecret     string
	webhookSecret string
	baseURL       string
	http          *http.Client
}

// New builds the Razorpay provider from configuration.
func New(cfg config.RazorpayConfig) (*Provider, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keyID == "" || keySecret == "" {
		return nil, errors.New("razorpay key id and secret are required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Provider{
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		baseURL:       baseURL,
		http:          &http.Client{Timeout: timeout},
	}, nil
}

func (p *Provider) Name() enums.PaymentProvider {
	return enums.PaymentProviderRazorpay
}

type createOrderBody struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder registers an order with Razorpay. The amount is sent in paise.
func (p *Provider) CreateOrder(ctx context.Context, req payments.CreateOrderRequest) (*payments.ProviderOrder, error) {
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	amount, err := payments.ToMinorUnits(req.Amount)
	if err != nil {
		return nil, err
	}
	body := createOrderBody{
		Amount:   amount,
		Currency: currency,
		Receipt:  req.OrderID.String(),
		Notes:    map[string]string{"order_id": req.OrderID.String()},
	}
	if body.Amount <= 0 {
		return nil, fmt.Errorf("razorpay order amount must be positive")
	}

	raw, err := p.do(ctx, http.MethodPost, ordersPath, body)
	if err != nil {
		return nil, err
	}
	var out orderResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode razorpay order: %w", err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("razorpay order response missing id")
	}

	var rawMap types.JSONMap
	_ = json.Unmarshal(raw, &rawMap)
	return &payments.ProviderOrder{
		ProviderOrderID: out.ID,
		KeyID:           p.keyID,
		AmountMinor:     out.Amount,
		Currency:        out.Currency,
		Raw:             rawMap,
	}, nil
}

func (p *Provider) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode razorpay request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build razorpay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(p.keyID, p.keySecret)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("razorpay %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read razorpay response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Description != "" {
			return nil, fmt.Errorf("razorpay %s %s: status %d: %s: %s", method, path, resp.StatusCode, apiErr.Error.Code, apiErr.Error.Description)
		}
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, fmt.Errorf("razorpay %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
