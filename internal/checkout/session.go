package checkout

import (
	"errors"

	"github.com/google/uuid"

	"github.com/kainapp/backend-kain/internal/gateway"
)

// ErrGatewayNotOffered is returned when a buyer picks a gateway outside the
// resolved offer set.
var ErrGatewayNotOffered = errors.New("payment gateway not offered for this order")

// Session carries the buyer's in-flight gateway selection. The applied
// coupon code is owned by the cart record and snapshotted here read-only.
// It is a plain value owned by one request flow; persistence and
// concurrency are the caller's concern.
type Session struct {
	CartID             uuid.UUID
	Country            string
	HasDigitalProducts bool

	CouponCode string
	Gateway    gateway.Gateway

	// Resolution is the most recent gateway offer set for this session.
	Resolution gateway.Resolution
}

// Resolve recomputes the gateway offer set. A previously selected gateway
// is kept when still offered; otherwise the selection falls back to the
// resolver's default, so toggling the destination country back and forth
// never flips an already-valid choice.
func (s *Session) Resolve(cfg gateway.Config, apiGateways map[gateway.Gateway]bool) error {
	res, err := gateway.Resolve(gateway.Input{
		Country:            s.Country,
		HasDigitalProducts: s.HasDigitalProducts,
		Config:             cfg,
		APIGateways:        apiGateways,
		Previous:           s.Gateway,
	})
	if err != nil {
		s.Resolution = gateway.Resolution{}
		s.Gateway = ""
		return err
	}
	s.Resolution = res
	s.Gateway = res.Default
	return nil
}

// SelectGateway records an explicit buyer choice from the offered set.
func (s *Session) SelectGateway(g gateway.Gateway) error {
	if !s.Resolution.Offers(g) {
		return ErrGatewayNotOffered
	}
	s.Gateway = g
	return nil
}
