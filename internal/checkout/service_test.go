package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kainapp/backend-kain/internal/cart"
	"github.com/kainapp/backend-kain/internal/gateway"
	"github.com/kainapp/backend-kain/internal/pricing"
)

type stubOrders struct {
	created []Order
	items   [][]cart.Item
}

func (s *stubOrders) CreateOrder(ctx context.Context, o Order, items []cart.Item) (Order, error) {
	o.ID = uuid.New()
	s.created = append(s.created, o)
	s.items = append(s.items, items)
	return o, nil
}

func (s *stubOrders) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	for _, o := range s.created {
		if o.ID == id {
			return o, nil
		}
	}
	return Order{}, ErrOrderNotFound
}

func (s *stubOrders) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	for i, o := range s.created {
		if o.ID == id {
			s.created[i].Status = status
			return nil
		}
	}
	return ErrOrderNotFound
}

type stubCarts struct {
	view cart.View
	err  error
}

func (s *stubCarts) GetView(ctx context.Context, cartID uuid.UUID) (cart.View, error) {
	if s.err != nil {
		return cart.View{}, s.err
	}
	return s.view, nil
}

type stubCoupons struct {
	settled []string
	amounts []pricing.Money
}

func (s *stubCoupons) Settle(ctx context.Context, code string, orderID uuid.UUID, userID *uuid.UUID, amount pricing.Money) error {
	s.settled = append(s.settled, code)
	s.amounts = append(s.amounts, amount)
	return nil
}

func physicalView(cartID uuid.UUID) cart.View {
	line := pricing.LineItem{UnitPrice: 5_000, Quantity: 2, LineTotal: 10_000, FabricComponent: 5_000}
	return cart.View{
		Cart:  cart.Cart{ID: cartID},
		Items: []cart.Item{{ID: uuid.New(), CartID: cartID, ProductID: uuid.New(), Slug: "cotton-plain", Type: pricing.ProductPlain, Quantity: 2, Line: line}},
		Totals: pricing.ComputeTotals([]pricing.LineItem{line}, 0, 500, 0, 0),
	}
}

func newTestService(view cart.View) (*Service, *stubOrders, *stubCoupons) {
	orders := &stubOrders{}
	coupons := &stubCoupons{}
	svc := &Service{
		Orders:  orders,
		Carts:   &stubCarts{view: view},
		Coupons: coupons,
		Gateway: gateway.Config{
			CODEnabled:           true,
			PartialCODEnabled:    true,
			RazorpayEnabled:      true,
			StripeEnabled:        true,
			PartialCODAdvanceBps: 2_500,
			CODCharge:            4_000,
		},
		APIGateways: map[gateway.Gateway]bool{gateway.Razorpay: true, gateway.Stripe: true},
		GSTBps:      500,
		Shipping:    2_000,
		Currency:    "INR",
		Log:         zerolog.Nop(),
	}
	return svc, orders, coupons
}

func TestCreateCODOrder(t *testing.T) {
	cartID := uuid.New()
	svc, orders, _ := newTestService(physicalView(cartID))

	order, err := svc.Create(context.Background(), nil, Input{
		CartID:  cartID,
		Address: Address{Country: "IN", City: "Mumbai"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if order.Gateway != gateway.COD {
		t.Fatalf("gateway = %s, want COD default", order.Gateway)
	}
	if order.Status != StatusConfirmed {
		t.Fatalf("status = %s, want CONFIRMED", order.Status)
	}
	if order.Totals.CODCharge != 4_000 {
		t.Fatalf("cod charge = %d, want 4000", order.Totals.CODCharge)
	}
	// 10000 + 500 gst + 2000 shipping + 4000 cod
	if order.Totals.GrandTotal != 16_500 {
		t.Fatalf("grand total = %d, want 16500", order.Totals.GrandTotal)
	}
	if order.AdvanceDue != 0 {
		t.Fatalf("advance = %d, want 0 for COD", order.AdvanceDue)
	}
	if len(orders.items[0]) != 1 {
		t.Fatalf("order items = %d, want the cart line snapshotted", len(orders.items[0]))
	}
}

func TestCreatePartialCODOrder(t *testing.T) {
	cartID := uuid.New()
	svc, _, _ := newTestService(physicalView(cartID))

	order, err := svc.Create(context.Background(), nil, Input{
		CartID:  cartID,
		Address: Address{Country: "IN"},
		Gateway: gateway.PartialCOD,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if order.Status != StatusPendingPayment {
		t.Fatalf("status = %s, want PENDING_PAYMENT until the advance clears", order.Status)
	}
	if order.Totals.CODCharge != 4_000 {
		t.Fatalf("cod charge = %d, want 4000", order.Totals.CODCharge)
	}
	// 25% of 16500
	if order.AdvanceDue != 4_125 {
		t.Fatalf("advance = %d, want 4125", order.AdvanceDue)
	}
}

func TestCreateOnlineOrderSkipsCODCharge(t *testing.T) {
	cartID := uuid.New()
	svc, _, _ := newTestService(physicalView(cartID))

	order, err := svc.Create(context.Background(), nil, Input{
		CartID:  cartID,
		Address: Address{Country: "IN"},
		Gateway: gateway.Stripe,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if order.Totals.CODCharge != 0 {
		t.Fatalf("cod charge = %d, want 0 for online payment", order.Totals.CODCharge)
	}
	if order.Totals.GrandTotal != 12_500 {
		t.Fatalf("grand total = %d, want 12500", order.Totals.GrandTotal)
	}
}

func TestCreateDigitalOrder(t *testing.T) {
	cartID := uuid.New()
	line := pricing.LineItem{UnitPrice: 20_000, Quantity: 1, LineTotal: 20_000, DesignComponent: 20_000}
	view := cart.View{
		Cart:   cart.Cart{ID: cartID},
		Items:  []cart.Item{{ID: uuid.New(), CartID: cartID, ProductID: uuid.New(), Slug: "pattern-file", Type: pricing.ProductDigital, Quantity: 1, Line: line}},
		Totals: pricing.ComputeTotals([]pricing.LineItem{line}, 0, 500, 0, 0),
	}
	svc, _, _ := newTestService(view)

	if _, err := svc.Create(context.Background(), nil, Input{
		CartID:  cartID,
		Address: Address{Country: "IN"},
		Gateway: gateway.COD,
	}); !errors.Is(err, ErrGatewayNotOffered) {
		t.Fatalf("err = %v, want ErrGatewayNotOffered for COD on digital goods", err)
	}

	order, err := svc.Create(context.Background(), nil, Input{
		CartID:  cartID,
		Address: Address{Country: "IN"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if order.Gateway != gateway.Stripe {
		t.Fatalf("gateway = %s, want STRIPE default", order.Gateway)
	}
	if order.Totals.Shipping != 0 {
		t.Fatalf("shipping = %d, want 0 for digital-only order", order.Totals.Shipping)
	}
}

func TestCreateSettlesCoupon(t *testing.T) {
	cartID := uuid.New()
	view := physicalView(cartID)
	code := "SAVE10"
	view.Cart.CouponCode = &code
	view.Totals = pricing.ComputeTotals([]pricing.LineItem{view.Items[0].Line}, 1_000, 500, 0, 0)
	svc, _, coupons := newTestService(view)

	order, err := svc.Create(context.Background(), nil, Input{
		CartID:  cartID,
		Address: Address{Country: "IN"},
		Gateway: gateway.Stripe,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if order.Totals.Discount != 1_000 {
		t.Fatalf("discount = %d, want 1000", order.Totals.Discount)
	}
	if len(coupons.settled) != 1 || coupons.settled[0] != "SAVE10" {
		t.Fatalf("settled = %v, want [SAVE10]", coupons.settled)
	}
	if coupons.amounts[0] != 1_000 {
		t.Fatalf("settled amount = %d, want 1000", coupons.amounts[0])
	}
}

func TestCreateRejectsEmptyCart(t *testing.T) {
	cartID := uuid.New()
	svc, _, _ := newTestService(cart.View{Cart: cart.Cart{ID: cartID}})
	if _, err := svc.Create(context.Background(), nil, Input{CartID: cartID, Address: Address{Country: "IN"}}); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("err = %v, want ErrEmptyCart", err)
	}
}

func TestCreateRejectsForeignOwnedCart(t *testing.T) {
	cartID := uuid.New()
	view := physicalView(cartID)
	owner := uuid.New()
	view.Cart.UserID = &owner
	svc, _, _ := newTestService(view)

	stranger := uuid.New()
	if _, err := svc.Create(context.Background(), &stranger, Input{CartID: cartID, Address: Address{Country: "IN"}}); !errors.Is(err, cart.ErrNotFound) {
		t.Fatalf("err = %v, want cart.ErrNotFound", err)
	}
}
