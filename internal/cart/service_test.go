package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kainapp/backend-kain/internal/catalog"
	"github.com/kainapp/backend-kain/internal/coupon"
	"github.com/kainapp/backend-kain/internal/pricing"
)

type stubStore struct {
	carts map[uuid.UUID]Cart
	items map[uuid.UUID]Item
}

func newStubStore() *stubStore {
	return &stubStore{carts: map[uuid.UUID]Cart{}, items: map[uuid.UUID]Item{}}
}

func (s *stubStore) GetByID(ctx context.Context, id uuid.UUID) (Cart, error) {
	c, ok := s.carts[id]
	if !ok {
		return Cart{}, ErrNotFound
	}
	return c, nil
}

func (s *stubStore) GetActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) (Cart, error) {
	for _, c := range s.carts {
		if c.UserID != nil && *c.UserID == userID && c.ExpiresAt.After(now) {
			return c, nil
		}
	}
	return Cart{}, ErrNotFound
}

func (s *stubStore) GetActiveByAnon(ctx context.Context, anonID string, now time.Time) (Cart, error) {
	for _, c := range s.carts {
		if c.AnonID != nil && *c.AnonID == anonID && c.ExpiresAt.After(now) {
			return c, nil
		}
	}
	return Cart{}, ErrNotFound
}

func (s *stubStore) Create(ctx context.Context, userID *uuid.UUID, anonID *string, expiresAt time.Time) (Cart, error) {
	c := Cart{ID: uuid.New(), UserID: userID, AnonID: anonID, ExpiresAt: expiresAt}
	s.carts[c.ID] = c
	return c, nil
}

func (s *stubStore) Touch(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	c, ok := s.carts[id]
	if !ok {
		return ErrNotFound
	}
	c.ExpiresAt = expiresAt
	s.carts[id] = c
	return nil
}

func (s *stubStore) SetCoupon(ctx context.Context, id uuid.UUID, code *string) error {
	c, ok := s.carts[id]
	if !ok {
		return ErrNotFound
	}
	c.CouponCode = code
	s.carts[id] = c
	return nil
}

func (s *stubStore) ListItems(ctx context.Context, cartID uuid.UUID) ([]Item, error) {
	var out []Item
	for _, it := range s.items {
		if it.CartID == cartID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *stubStore) GetItem(ctx context.Context, itemID uuid.UUID) (Item, error) {
	it, ok := s.items[itemID]
	if !ok {
		return Item{}, ErrNotFound
	}
	return it, nil
}

func (s *stubStore) FindItem(ctx context.Context, cartID, productID uuid.UUID, selections map[string]string) (Item, error) {
	for _, it := range s.items {
		if it.CartID != cartID || it.ProductID != productID {
			continue
		}
		if len(it.Selections) != len(selections) {
			continue
		}
		match := true
		for k, v := range selections {
			if it.Selections[k] != v {
				match = false
				break
			}
		}
		if match {
			return it, nil
		}
	}
	return Item{}, ErrNotFound
}

func (s *stubStore) InsertItem(ctx context.Context, it Item) (Item, error) {
	it.ID = uuid.New()
	s.items[it.ID] = it
	return it, nil
}

func (s *stubStore) UpdateItemLine(ctx context.Context, itemID uuid.UUID, quantity int, line pricing.LineItem) error {
	it, ok := s.items[itemID]
	if !ok {
		return ErrNotFound
	}
	it.Quantity = quantity
	it.Line = line
	s.items[itemID] = it
	return nil
}

func (s *stubStore) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	delete(s.items, itemID)
	return nil
}

// stubPricer prices a plain fabric at 50.00 per meter with a fixed 5.00
// discount from 10 meters up.
type stubPricer struct {
	product catalog.Product
	calls   int
}

func (p *stubPricer) ComposeLine(ctx context.Context, productID uuid.UUID, quantity int, selections map[string]string) (catalog.Product, pricing.LineItem, error) {
	if productID != p.product.ID {
		return catalog.Product{}, pricing.LineItem{}, catalog.ErrNotFound
	}
	p.calls++
	unit := pricing.EffectiveUnitPrice(quantity, 5_000, []pricing.Slab{
		{MinQuantity: 10, Kind: pricing.DiscountFixedAmount, Value: 500},
	})
	return p.product, pricing.LineItem{
		UnitPrice:       unit,
		Quantity:        quantity,
		LineTotal:       unit * pricing.Money(quantity),
		FabricComponent: unit,
	}, nil
}

type stubCoupons struct {
	result coupon.PreviewResult
	err    error
}

func (c *stubCoupons) Preview(ctx context.Context, code string, userID *uuid.UUID, subtotal pricing.Money) (coupon.PreviewResult, error) {
	if c.err != nil {
		return coupon.PreviewResult{}, c.err
	}
	return c.result, nil
}

func newTestService(t *testing.T) (*Service, *stubStore, *stubPricer, Cart) {
	t.Helper()
	store := newStubStore()
	pricer := &stubPricer{product: catalog.Product{ID: uuid.New(), Slug: "cotton-plain", Title: "Plain Cotton", Type: pricing.ProductPlain}}
	svc := &Service{
		Store:  store,
		Pricer: pricer,
		GSTBps: 500,
		Now:    func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
	anon := "anon-1"
	c, err := svc.EnsureCart(context.Background(), nil, &anon)
	if err != nil {
		t.Fatalf("ensure cart: %v", err)
	}
	return svc, store, pricer, c
}

func TestEnsureCartReusesActiveCart(t *testing.T) {
	svc, _, _, c := newTestService(t)
	anon := "anon-1"
	again, err := svc.EnsureCart(context.Background(), nil, &anon)
	if err != nil {
		t.Fatalf("ensure cart: %v", err)
	}
	if again.ID != c.ID {
		t.Fatalf("expected the same cart, got %s and %s", c.ID, again.ID)
	}
}

func TestEnsureCartRequiresIdentity(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	if _, err := svc.EnsureCart(context.Background(), nil, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestAddItemLocksPrice(t *testing.T) {
	svc, _, pricer, c := newTestService(t)
	item, err := svc.AddItem(context.Background(), c.ID, pricer.product.ID, 2, nil)
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if item.Line.UnitPrice != 5_000 || item.Line.LineTotal != 10_000 {
		t.Fatalf("line = %+v, want unit 5000 total 10000", item.Line)
	}
}

func TestAddItemMergesAndReprices(t *testing.T) {
	svc, _, pricer, c := newTestService(t)
	sel := map[string]string{"width": "wide"}
	if _, err := svc.AddItem(context.Background(), c.ID, pricer.product.ID, 6, sel); err != nil {
		t.Fatalf("add item: %v", err)
	}
	// 6 + 6 = 12 meters crosses into the discounted tier.
	item, err := svc.AddItem(context.Background(), c.ID, pricer.product.ID, 6, sel)
	if err != nil {
		t.Fatalf("add item again: %v", err)
	}
	if item.Quantity != 12 {
		t.Fatalf("quantity = %d, want 12", item.Quantity)
	}
	if item.Line.UnitPrice != 4_500 {
		t.Fatalf("unit price = %d, want slab-discounted 4500", item.Line.UnitPrice)
	}
}

func TestUpdateQtyReprices(t *testing.T) {
	svc, _, pricer, c := newTestService(t)
	item, err := svc.AddItem(context.Background(), c.ID, pricer.product.ID, 2, nil)
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	updated, err := svc.UpdateQty(context.Background(), item.ID, 10)
	if err != nil {
		t.Fatalf("update qty: %v", err)
	}
	if updated.Line.UnitPrice != 4_500 || updated.Line.LineTotal != 45_000 {
		t.Fatalf("line = %+v, want unit 4500 total 45000", updated.Line)
	}
}

func TestApplyCouponStoresCode(t *testing.T) {
	svc, store, pricer, c := newTestService(t)
	svc.Coupons = &stubCoupons{result: coupon.PreviewResult{Code: "SAVE10", Discount: 1_000}}
	if _, err := svc.AddItem(context.Background(), c.ID, pricer.product.ID, 2, nil); err != nil {
		t.Fatalf("add item: %v", err)
	}
	discount, err := svc.ApplyCoupon(context.Background(), c.ID, "SAVE10")
	if err != nil {
		t.Fatalf("apply coupon: %v", err)
	}
	if discount != 1_000 {
		t.Fatalf("discount = %d, want 1000", discount)
	}
	got := store.carts[c.ID]
	if got.CouponCode == nil || *got.CouponCode != "SAVE10" {
		t.Fatalf("coupon code not stored: %+v", got)
	}
}

func TestApplyCouponPropagatesInvalid(t *testing.T) {
	svc, _, _, c := newTestService(t)
	svc.Coupons = &stubCoupons{err: coupon.ErrExpired}
	if _, err := svc.ApplyCoupon(context.Background(), c.ID, "OLD"); !errors.Is(err, coupon.ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
}

func TestGetViewDropsStaleCoupon(t *testing.T) {
	svc, store, pricer, c := newTestService(t)
	coupons := &stubCoupons{result: coupon.PreviewResult{Code: "SAVE10", Discount: 1_000}}
	svc.Coupons = coupons
	if _, err := svc.AddItem(context.Background(), c.ID, pricer.product.ID, 2, nil); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if _, err := svc.ApplyCoupon(context.Background(), c.ID, "SAVE10"); err != nil {
		t.Fatalf("apply coupon: %v", err)
	}

	coupons.err = coupon.ErrExpired
	view, err := svc.GetView(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("get view: %v", err)
	}
	if view.Cart.CouponCode != nil {
		t.Fatal("expired coupon should have been dropped")
	}
	if view.Totals.Discount != 0 {
		t.Fatalf("discount = %d, want 0", view.Totals.Discount)
	}
	if got := store.carts[c.ID].CouponCode; got != nil {
		t.Fatal("coupon code should be cleared in the store")
	}
}

func TestGetViewTotals(t *testing.T) {
	svc, _, pricer, c := newTestService(t)
	svc.Coupons = &stubCoupons{result: coupon.PreviewResult{Code: "SAVE10", Discount: 1_000}}
	if _, err := svc.AddItem(context.Background(), c.ID, pricer.product.ID, 2, nil); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if _, err := svc.ApplyCoupon(context.Background(), c.ID, "SAVE10"); err != nil {
		t.Fatalf("apply coupon: %v", err)
	}
	view, err := svc.GetView(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("get view: %v", err)
	}
	if view.Totals.Subtotal != 10_000 {
		t.Fatalf("subtotal = %d, want 10000", view.Totals.Subtotal)
	}
	// GST at 5% on (10000 - 1000) = 450.
	if view.Totals.GST != 450 {
		t.Fatalf("gst = %d, want 450", view.Totals.GST)
	}
	if view.Totals.GrandTotal != 9_450 {
		t.Fatalf("grand total = %d, want 9450", view.Totals.GrandTotal)
	}
}
