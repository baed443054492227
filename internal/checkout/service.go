package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kainapp/backend-kain/internal/cart"
	"github.com/kainapp/backend-kain/internal/coupon"
	"github.com/kainapp/backend-kain/internal/gateway"
	"github.com/kainapp/backend-kain/internal/obs"
	"github.com/kainapp/backend-kain/internal/pricing"
)

// ErrEmptyCart is returned when checkout is attempted on a cart without lines.
var ErrEmptyCart = errors.New("cart is empty")

// OrderStore persists placed orders.
type OrderStore interface {
	CreateOrder(ctx context.Context, o Order, items []cart.Item) (Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (Order, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

// Carts reads the cart being checked out.
type Carts interface {
	GetView(ctx context.Context, cartID uuid.UUID) (cart.View, error)
}

// Coupons books coupon usage once an order is placed.
type Coupons interface {
	Settle(ctx context.Context, code string, orderID uuid.UUID, userID *uuid.UUID, amount pricing.Money) error
}

// Service turns a cart into an order with locked totals.
type Service struct {
	Orders  OrderStore
	Carts   Carts
	Coupons Coupons

	Gateway     gateway.Config
	APIGateways map[gateway.Gateway]bool

	GSTBps   int
	Shipping pricing.Money
	Currency string

	Log zerolog.Logger
}

// Input is the checkout request.
type Input struct {
	CartID  uuid.UUID
	Address Address

	// Gateway is an explicit buyer choice; empty means use the resolver's
	// default.
	Gateway gateway.Gateway
}

// Preview is a dry-run checkout: the offer set and totals for a destination
// without placing the order.
type Preview struct {
	Session    Session             `json:"-"`
	Offered    []gateway.Gateway   `json:"offered"`
	Gateway    gateway.Gateway     `json:"gateway"`
	Totals     pricing.OrderTotals `json:"totals"`
	AdvanceDue pricing.Money       `json:"advanceDue"`
}

func hasDigital(items []cart.Item) bool {
	for _, it := range items {
		if it.Type == pricing.ProductDigital {
			return true
		}
	}
	return false
}

func allDigital(items []cart.Item) bool {
	for _, it := range items {
		if it.Type != pricing.ProductDigital {
			return false
		}
	}
	return len(items) > 0
}

// Quote resolves gateways and totals for a destination without placing the
// order.
func (s *Service) Quote(ctx context.Context, in Input) (Preview, error) {
	if s == nil || s.Carts == nil {
		return Preview{}, errors.New("checkout service not configured")
	}
	view, err := s.Carts.GetView(ctx, in.CartID)
	if err != nil {
		return Preview{}, err
	}
	if len(view.Items) == 0 {
		return Preview{}, ErrEmptyCart
	}
	return s.preview(view, in)
}

func (s *Service) preview(view cart.View, in Input) (Preview, error) {
	sess := Session{
		CartID:             in.CartID,
		Country:            in.Address.Country,
		HasDigitalProducts: hasDigital(view.Items),
	}
	if view.Cart.CouponCode != nil {
		sess.CouponCode = *view.Cart.CouponCode
	}
	if err := sess.Resolve(s.Gateway, s.APIGateways); err != nil {
		return Preview{}, err
	}
	if in.Gateway != "" {
		if err := sess.SelectGateway(in.Gateway); err != nil {
			return Preview{}, err
		}
	}
	obs.IncGatewayResolution(string(sess.Gateway))

	var shipping pricing.Money
	if !allDigital(view.Items) {
		shipping = s.Shipping
	}
	var codCharge pricing.Money
	if sess.Gateway == gateway.COD || sess.Gateway == gateway.PartialCOD {
		codCharge = s.Gateway.CODCharge
	}

	lines := make([]pricing.LineItem, 0, len(view.Items))
	for _, it := range view.Items {
		lines = append(lines, it.Line)
	}
	totals := pricing.ComputeTotals(lines, view.Totals.Discount, s.GSTBps, shipping, codCharge)

	var advance pricing.Money
	if sess.Gateway == gateway.PartialCOD {
		advance = pricing.PartialAdvance(totals.GrandTotal, s.Gateway.PartialCODAdvanceBps)
	}
	return Preview{
		Session:    sess,
		Offered:    sess.Resolution.Offered,
		Gateway:    sess.Gateway,
		Totals:     totals,
		AdvanceDue: advance,
	}, nil
}

// Create places the order: cart lines are snapshotted verbatim, the applied
// coupon is re-evaluated and consumed, the gateway choice is validated
// against the offer set for the destination.
func (s *Service) Create(ctx context.Context, userID *uuid.UUID, in Input) (Order, error) {
	if s == nil || s.Orders == nil || s.Carts == nil {
		return Order{}, errors.New("checkout service not configured")
	}
	view, err := s.Carts.GetView(ctx, in.CartID)
	if err != nil {
		return Order{}, err
	}
	if len(view.Items) == 0 {
		return Order{}, ErrEmptyCart
	}
	if view.Cart.UserID != nil && (userID == nil || *view.Cart.UserID != *userID) {
		return Order{}, fmt.Errorf("cart does not belong to user: %w", cart.ErrNotFound)
	}

	p, err := s.preview(view, in)
	if err != nil {
		return Order{}, err
	}

	status := StatusPendingPayment
	if p.Gateway == gateway.COD {
		status = StatusConfirmed
	}
	order := Order{
		UserID:     userID,
		CartID:     view.Cart.ID,
		Status:     status,
		Currency:   s.Currency,
		Gateway:    p.Gateway,
		CouponCode: view.Cart.CouponCode,
		Totals:     p.Totals,
		AdvanceDue: p.AdvanceDue,
		Address:    in.Address,
	}
	created, err := s.Orders.CreateOrder(ctx, order, view.Items)
	if err != nil {
		return Order{}, err
	}

	if s.Coupons != nil && view.Cart.CouponCode != nil {
		if err := s.Coupons.Settle(ctx, *view.Cart.CouponCode, created.ID, userID, p.Totals.Discount); err != nil {
			// The order stands; usage bookkeeping is reconciled out of band.
			s.Log.Error().Err(err).
				Str("orderId", created.ID.String()).
				Str("coupon", *view.Cart.CouponCode).
				Msg("coupon settlement failed")
		}
	}
	s.Log.Info().
		Str("orderId", created.ID.String()).
		Str("gateway", string(created.Gateway)).
		Int64("grandTotal", created.Totals.GrandTotal).
		Msg("order created")
	return created, nil
}

// Get loads a placed order.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Order, error) {
	if s == nil || s.Orders == nil {
		return Order{}, errors.New("checkout service not configured")
	}
	return s.Orders.GetOrder(ctx, id)
}

var _ Coupons = (*coupon.Service)(nil)
