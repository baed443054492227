package checkout

import (
	"errors"
	"testing"

	"github.com/kainapp/backend-kain/internal/gateway"
)

func testConfig() gateway.Config {
	return gateway.Config{
		CODEnabled:        true,
		PartialCODEnabled: true,
		RazorpayEnabled:   true,
		StripeEnabled:     true,
	}
}

func allGateways() map[gateway.Gateway]bool {
	return map[gateway.Gateway]bool{gateway.Razorpay: true, gateway.Stripe: true}
}

func TestSessionResolveDefaults(t *testing.T) {
	s := &Session{Country: "IN"}
	if err := s.Resolve(testConfig(), allGateways()); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.Gateway != gateway.COD {
		t.Fatalf("gateway = %s, want COD", s.Gateway)
	}
}

func TestSessionSelectGateway(t *testing.T) {
	s := &Session{Country: "IN"}
	if err := s.Resolve(testConfig(), allGateways()); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := s.SelectGateway(gateway.Razorpay); err != nil {
		t.Fatalf("select: %v", err)
	}
	if s.Gateway != gateway.Razorpay {
		t.Fatalf("gateway = %s, want RAZORPAY", s.Gateway)
	}
}

func TestSessionSelectRejectsUnoffered(t *testing.T) {
	s := &Session{Country: "US"}
	if err := s.Resolve(testConfig(), allGateways()); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := s.SelectGateway(gateway.Razorpay); !errors.Is(err, ErrGatewayNotOffered) {
		t.Fatalf("err = %v, want ErrGatewayNotOffered", err)
	}
}

func TestSessionSelectionSurvivesCountryRoundTrip(t *testing.T) {
	s := &Session{Country: "IN"}
	if err := s.Resolve(testConfig(), allGateways()); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := s.SelectGateway(gateway.Stripe); err != nil {
		t.Fatalf("select: %v", err)
	}

	s.Country = "US"
	if err := s.Resolve(testConfig(), allGateways()); err != nil {
		t.Fatalf("resolve abroad: %v", err)
	}
	if s.Gateway != gateway.Stripe {
		t.Fatalf("gateway = %s, want STRIPE kept abroad", s.Gateway)
	}

	s.Country = "IN"
	if err := s.Resolve(testConfig(), allGateways()); err != nil {
		t.Fatalf("resolve home: %v", err)
	}
	if s.Gateway != gateway.Stripe {
		t.Fatalf("gateway = %s, selection must not flip back to COD", s.Gateway)
	}
}

func TestSessionResolveDropsStaleSelection(t *testing.T) {
	s := &Session{Country: "IN"}
	if err := s.Resolve(testConfig(), allGateways()); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.Gateway != gateway.COD {
		t.Fatalf("gateway = %s, want COD", s.Gateway)
	}

	// Adding a digital product removes COD from the offer set.
	s.HasDigitalProducts = true
	if err := s.Resolve(testConfig(), allGateways()); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.Gateway == gateway.COD {
		t.Fatal("COD must not survive a digital cart")
	}
	if s.Gateway != gateway.Stripe {
		t.Fatalf("gateway = %s, want STRIPE", s.Gateway)
	}
}

func TestSessionResolveEmptyOfferClearsSelection(t *testing.T) {
	s := &Session{Country: "US", HasDigitalProducts: true}
	cfg := gateway.Config{CODEnabled: true}
	if err := s.Resolve(cfg, nil); !errors.Is(err, gateway.ErrNoGatewayAvailable) {
		t.Fatalf("err = %v, want ErrNoGatewayAvailable", err)
	}
	if s.Gateway != "" {
		t.Fatalf("gateway = %s, want cleared", s.Gateway)
	}
}
