package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kainapp/backend-kain/internal/checkout"
	"github.com/kainapp/backend-kain/internal/gateway"
	"github.com/kainapp/backend-kain/internal/obs"
	"github.com/kainapp/backend-kain/internal/pricing"
)

var (
	// ErrOrderNotPayable is returned when an intent is requested for an
	// order that is not awaiting payment.
	ErrOrderNotPayable = errors.New("order is not awaiting payment")
	// ErrUnknownProvider is returned for a webhook or intent against a
	// provider that is not configured.
	ErrUnknownProvider = errors.New("unknown payment provider")
)

// Store persists payment intents.
type Store interface {
	Insert(ctx context.Context, p Record) (Record, error)
	GetLatestByOrder(ctx context.Context, orderID uuid.UUID) (Record, error)
	SetStatusByOrder(ctx context.Context, orderID uuid.UUID, status string) error
}

// Orders reads and transitions orders as payments settle.
type Orders interface {
	GetOrder(ctx context.Context, id uuid.UUID) (checkout.Order, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

// Service coordinates payment intents and webhook settlement.
type Service struct {
	Store  Store
	Orders Orders

	// Providers maps the order's gateway to a processor. PARTIAL_COD
	// advances are charged through an online provider, preferring Razorpay.
	Providers map[gateway.Gateway]Provider

	Log zerolog.Logger
}

func (s *Service) providerFor(g gateway.Gateway) (Provider, error) {
	if p, ok := s.Providers[g]; ok {
		return p, nil
	}
	if g == gateway.PartialCOD {
		if p, ok := s.Providers[gateway.Razorpay]; ok {
			return p, nil
		}
		if p, ok := s.Providers[gateway.Stripe]; ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, g)
}

func (s *Service) providerByName(name string) (Provider, error) {
	for _, p := range s.Providers {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
}

// CreateIntent opens (or reuses) an intent for an order awaiting payment.
// For PARTIAL_COD orders only the advance portion is charged online; the
// remainder is collected on delivery.
func (s *Service) CreateIntent(ctx context.Context, orderID uuid.UUID) (Record, error) {
	if s == nil || s.Store == nil || s.Orders == nil {
		return Record{}, errors.New("payment service not configured")
	}
	order, err := s.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return Record{}, err
	}
	if order.Status != checkout.StatusPendingPayment {
		return Record{}, fmt.Errorf("%w: status %s", ErrOrderNotPayable, order.Status)
	}

	existing, err := s.Store.GetLatestByOrder(ctx, orderID)
	if err == nil && existing.Status == StatusPending {
		return existing, nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Record{}, err
	}

	amount := order.Totals.GrandTotal
	if order.Gateway == gateway.PartialCOD {
		amount = order.AdvanceDue
	}
	provider, err := s.providerFor(order.Gateway)
	if err != nil {
		return Record{}, err
	}
	resp, err := provider.CreateIntent(ctx, IntentRequest{
		OrderID:     orderID.String(),
		Amount:      amount,
		Currency:    order.Currency,
		Description: "order " + orderID.String(),
	})
	if err != nil {
		obs.IncPaymentIntent(provider.Name(), "error")
		return Record{}, err
	}
	obs.IncPaymentIntent(provider.Name(), "created")
	return s.Store.Insert(ctx, Record{
		OrderID:     orderID,
		Provider:    resp.Provider,
		ProviderRef: resp.ProviderRef,
		Amount:      amount,
		Currency:    order.Currency,
		Status:      StatusPending,
	})
}

// HandleWebhook verifies a provider notification and settles the order.
func (s *Service) HandleWebhook(ctx context.Context, providerName string, r *http.Request, body []byte) (WebhookVerifyResult, error) {
	if s == nil || s.Store == nil || s.Orders == nil {
		return WebhookVerifyResult{}, errors.New("payment service not configured")
	}
	provider, err := s.providerByName(providerName)
	if err != nil {
		return WebhookVerifyResult{}, err
	}
	result, err := provider.VerifyWebhook(r, body)
	if err != nil {
		obs.IncPaymentWebhook(providerName, "error")
		return WebhookVerifyResult{}, err
	}
	if !result.Valid {
		obs.IncPaymentWebhook(providerName, "invalid")
		return result, nil
	}
	obs.IncPaymentWebhook(providerName, "accepted")
	orderID, err := uuid.Parse(result.OrderID)
	if err != nil {
		return WebhookVerifyResult{}, fmt.Errorf("invalid order reference: %w", err)
	}

	switch result.Status {
	case StatusPaid:
		order, err := s.Orders.GetOrder(ctx, orderID)
		if err != nil {
			return WebhookVerifyResult{}, err
		}
		expected := order.Totals.GrandTotal
		if order.Gateway == gateway.PartialCOD {
			expected = order.AdvanceDue
		}
		if result.Amount != pricing.Money(0) && result.Amount != expected {
			s.Log.Warn().
				Str("orderId", orderID.String()).
				Int64("got", result.Amount).
				Int64("want", expected).
				Msg("webhook amount mismatch")
			return result, errors.New("amount mismatch")
		}
		if err := s.Store.SetStatusByOrder(ctx, orderID, StatusPaid); err != nil {
			return WebhookVerifyResult{}, err
		}
		// A paid advance confirms a partial-COD order; the balance is
		// collected on delivery. Fully online orders go straight to PAID.
		next := checkout.StatusPaid
		if order.Gateway == gateway.PartialCOD {
			next = checkout.StatusConfirmed
		}
		if err := s.Orders.SetStatus(ctx, orderID, next); err != nil {
			return WebhookVerifyResult{}, err
		}
		s.Log.Info().Str("orderId", orderID.String()).Str("status", next).Msg("payment settled")
	case StatusFailed:
		if err := s.Store.SetStatusByOrder(ctx, orderID, StatusFailed); err != nil {
			return WebhookVerifyResult{}, err
		}
	}
	return result, nil
}
