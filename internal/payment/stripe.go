package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/kainapp/backend-kain/internal/pricing"
)

// Stripe implements Provider using the official SDK. Orders are referenced
// through payment-intent metadata.
type Stripe struct {
	APIKey        string
	WebhookSecret string
}

// NewStripe configures the SDK's global key and returns the provider.
func NewStripe(apiKey, webhookSecret string) Stripe {
	stripe.Key = apiKey
	return Stripe{APIKey: apiKey, WebhookSecret: webhookSecret}
}

func (s Stripe) Name() string { return "stripe" }

// CreateIntent opens a Stripe payment intent for the order amount.
func (s Stripe) CreateIntent(ctx context.Context, req IntentRequest) (IntentResponse, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return IntentResponse{}, errors.New("order id is required")
	}
	if req.Amount <= 0 {
		return IntentResponse{}, errors.New("amount must be positive")
	}
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(int64(req.Amount)),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Description: stripe.String(req.Description),
	}
	params.Context = ctx
	params.AddMetadata("orderId", req.OrderID)

	intent, err := paymentintent.New(params)
	if err != nil {
		return IntentResponse{}, err
	}
	return IntentResponse{
		Provider:    s.Name(),
		ProviderRef: intent.ID,
		ClientToken: intent.ClientSecret,
	}, nil
}

// VerifyWebhook validates the Stripe-Signature header and normalises
// payment_intent events.
func (s Stripe) VerifyWebhook(r *http.Request, body []byte) (WebhookVerifyResult, error) {
	signature := ""
	if r != nil {
		signature = r.Header.Get("Stripe-Signature")
	}
	event, err := webhook.ConstructEvent(body, signature, s.WebhookSecret)
	if err != nil {
		return WebhookVerifyResult{Valid: false, Err: err}, nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return WebhookVerifyResult{Valid: false, Err: err}, nil
	}
	orderID := intent.Metadata["orderId"]
	if orderID == "" {
		return WebhookVerifyResult{Valid: false, Err: errors.New("missing order reference")}, nil
	}

	status := StatusPending
	switch event.Type {
	case "payment_intent.succeeded":
		status = StatusPaid
	case "payment_intent.payment_failed", "payment_intent.canceled":
		status = StatusFailed
	}
	return WebhookVerifyResult{
		Valid:           true,
		OrderID:         orderID,
		Amount:          pricing.Money(intent.Amount),
		Status:          status,
		ProviderPayload: body,
	}, nil
}
