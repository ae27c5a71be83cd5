package razorpay

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// VerifyPayment checks the checkout widget signature over "order_id|payment_id".
func (p *Provider) VerifyPayment(_ context.Context, req payments.VerifyRequest) (*payments.Verification, error) {
	if req.ProviderOrderID == "" || req.PaymentID == "" || req.Signature == "" {
		return nil, fmt.Errorf("%w: incomplete checkout confirmation", payments.ErrVerificationFailed)
	}
	if !validSignature(req.ProviderOrderID+"|"+req.PaymentID, p.keySecret, req.Signature) {
		return nil, fmt.Errorf("%w: signature mismatch", payments.ErrVerificationFailed)
	}
	return &payments.Verification{
		PaymentID: req.PaymentID,
		Raw: types.JSONMap{
			"razorpay_order_id":   req.ProviderOrderID,
			"razorpay_payment_id": req.PaymentID,
			"verified_by":         "checkout_signature",
		},
	}, nil
}
