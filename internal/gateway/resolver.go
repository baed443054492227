// Package gateway decides which payment methods an order may use.
//
// Resolution is a pure function of the destination country, the cart's
// product-type composition, the merchant's gateway configuration, and the
// set of gateways provisioned with API credentials. Multiple gateways may
// be offered at once; one of them is picked as the default.
package gateway

import (
	"errors"
	"slices"

	"github.com/kainapp/backend-kain/internal/pricing"
)

// Gateway identifies a payment method.
type Gateway string

const (
	COD        Gateway = "COD"
	PartialCOD Gateway = "PARTIAL_COD"
	Razorpay   Gateway = "RAZORPAY"
	Stripe     Gateway = "STRIPE"
)

// ErrNoGatewayAvailable is returned when no gateway can serve the order.
var ErrNoGatewayAvailable = errors.New("no payment gateway available")

// Config carries the merchant-level gateway switches.
type Config struct {
	CODEnabled        bool
	PartialCODEnabled bool
	RazorpayEnabled   bool
	StripeEnabled     bool

	// PartialCODAdvanceBps is the share of the grand total collected online
	// up front for PARTIAL_COD orders, in basis points.
	PartialCODAdvanceBps int
	// CODCharge is the flat surcharge added to COD and PARTIAL_COD orders.
	CODCharge pricing.Money
}

// Input is everything resolution depends on.
type Input struct {
	Country            string
	HasDigitalProducts bool
	Config             Config

	// APIGateways is the set of online gateways with provisioned credentials.
	// A gateway toggled on in Config but absent here is not offered.
	APIGateways map[Gateway]bool

	// Previous is the gateway the buyer already selected, if any. It is
	// retained when still offered so re-resolution does not flip a valid
	// choice.
	Previous Gateway
}

// Resolution is the outcome: the offered set in precedence order and the
// default selection.
type Resolution struct {
	Offered []Gateway
	Default Gateway
}

// Offers reports whether g is in the offered set.
func (r Resolution) Offers(g Gateway) bool {
	return slices.Contains(r.Offered, g)
}

const countryIndia = "IN"

// Resolve applies the offering rules and picks a default.
//
// Digital products exclude every pay-on-delivery variant. Razorpay only
// operates domestically (India); Stripe is offered anywhere it is enabled
// and provisioned. Partial COD piggybacks on an online gateway for the
// advance payment, so it needs one of them enabled.
func Resolve(in Input) (Resolution, error) {
	cfg := in.Config
	domestic := in.Country == countryIndia

	var offered []Gateway

	if !in.HasDigitalProducts && cfg.CODEnabled {
		offered = append(offered, COD)
	}
	if !in.HasDigitalProducts && domestic && cfg.PartialCODEnabled && (cfg.RazorpayEnabled || cfg.StripeEnabled) {
		offered = append(offered, PartialCOD)
	}
	if domestic && cfg.RazorpayEnabled && in.APIGateways[Razorpay] {
		offered = append(offered, Razorpay)
	}
	if cfg.StripeEnabled && in.APIGateways[Stripe] {
		offered = append(offered, Stripe)
	}

	if len(offered) == 0 {
		return Resolution{}, ErrNoGatewayAvailable
	}

	return Resolution{Offered: offered, Default: pickDefault(offered, in.Previous)}, nil
}

// pickDefault retains a still-offered previous selection, otherwise prefers
// pay-on-delivery, then Stripe, then Razorpay.
func pickDefault(offered []Gateway, previous Gateway) Gateway {
	if previous != "" && slices.Contains(offered, previous) {
		return previous
	}
	for _, g := range []Gateway{COD, Stripe, Razorpay, PartialCOD} {
		if slices.Contains(offered, g) {
			return g
		}
	}
	return offered[0]
}
