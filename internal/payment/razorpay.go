package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Razorpay implements Provider against the Razorpay Orders API. Amounts are
// sent in minor units (paise), which is also our canonical representation.
type Razorpay struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
	HTTPClient    *http.Client
}

func (r Razorpay) Name() string { return "razorpay" }

func (r Razorpay) baseURL() string {
	host := strings.TrimSpace(r.BaseURL)
	if host == "" {
		return "https://api.razorpay.com"
	}
	return strings.TrimRight(host, "/")
}

func (r Razorpay) client() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// CreateIntent opens a Razorpay order. The client then drives the hosted
// checkout with the returned order reference.
func (r Razorpay) CreateIntent(ctx context.Context, req IntentRequest) (IntentResponse, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return IntentResponse{}, errors.New("order id is required")
	}
	if req.Amount <= 0 {
		return IntentResponse{}, errors.New("amount must be positive")
	}
	payload, err := json.Marshal(map[string]any{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.OrderID,
		"notes":    map[string]string{"orderId": req.OrderID},
	})
	if err != nil {
		return IntentResponse{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL()+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return IntentResponse{}, err
	}
	httpReq.SetBasicAuth(r.KeyID, r.KeySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client().Do(httpReq)
	if err != nil {
		return IntentResponse{}, fmt.Errorf("razorpay create order: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return IntentResponse{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return IntentResponse{}, fmt.Errorf("razorpay create order: status %d: %s", resp.StatusCode, body)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return IntentResponse{}, err
	}
	if out.ID == "" {
		return IntentResponse{}, errors.New("razorpay response missing order id")
	}
	return IntentResponse{
		Provider:    r.Name(),
		ProviderRef: out.ID,
		ClientToken: out.ID,
	}, nil
}

// VerifyWebhook checks the X-Razorpay-Signature header against an
// HMAC-SHA256 of the raw body.
func (r Razorpay) VerifyWebhook(req *http.Request, body []byte) (WebhookVerifyResult, error) {
	provided := ""
	if req != nil {
		provided = strings.TrimSpace(req.Header.Get("X-Razorpay-Signature"))
	}
	expected := r.computeSignature(body)
	if expected == "" || provided == "" || !hmac.Equal([]byte(expected), []byte(provided)) {
		return WebhookVerifyResult{Valid: false, Err: errors.New("invalid signature")}, nil
	}

	var payload struct {
		Event   string `json:"event"`
		Payload struct {
			Payment struct {
				Entity struct {
					Amount int64  `json:"amount"`
					Status string `json:"status"`
					Notes  struct {
						OrderID string `json:"orderId"`
					} `json:"notes"`
				} `json:"entity"`
			} `json:"payment"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return WebhookVerifyResult{Valid: false, Err: err}, nil
	}
	entity := payload.Payload.Payment.Entity
	if entity.Notes.OrderID == "" {
		return WebhookVerifyResult{Valid: false, Err: errors.New("missing order reference")}, nil
	}
	return WebhookVerifyResult{
		Valid:           true,
		OrderID:         entity.Notes.OrderID,
		Amount:          entity.Amount,
		Status:          normaliseRazorpayStatus(payload.Event, entity.Status),
		ProviderPayload: body,
	}, nil
}

func (r Razorpay) computeSignature(body []byte) string {
	secret := strings.TrimSpace(r.WebhookSecret)
	if secret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func normaliseRazorpayStatus(event, status string) string {
	switch strings.ToLower(strings.TrimSpace(event)) {
	case "payment.captured":
		return StatusPaid
	case "payment.failed":
		return StatusFailed
	}
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "captured":
		return StatusPaid
	case "failed":
		return StatusFailed
	default:
		return StatusPending
	}
}
