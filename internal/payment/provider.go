package payment

import (
	"context"
	"net/http"

	"github.com/kainapp/backend-kain/internal/pricing"
)

// IntentRequest captures what a provider needs to open a payment intent.
type IntentRequest struct {
	OrderID  string
	Amount   pricing.Money
	Currency string
	// Description is shown on the provider's payment page.
	Description string
}

// IntentResponse is the minimal provider result needed to drive the client.
type IntentResponse struct {
	Provider    string
	ProviderRef string
	ClientToken string
	RedirectURL string
}

// WebhookVerifyResult is the normalised outcome of a signature-checked
// provider notification.
type WebhookVerifyResult struct {
	Valid           bool
	OrderID         string
	Amount          pricing.Money
	Status          string
	ProviderPayload []byte
	Err             error
}

// Normalised webhook statuses.
const (
	StatusPaid    = "PAID"
	StatusPending = "PENDING"
	StatusFailed  = "FAILED"
)

// Provider abstracts an upstream payment processor.
type Provider interface {
	Name() string
	CreateIntent(ctx context.Context, req IntentRequest) (IntentResponse, error)
	VerifyWebhook(r *http.Request, body []byte) (WebhookVerifyResult, error)
}
