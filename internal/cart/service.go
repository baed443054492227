package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kainapp/backend-kain/internal/catalog"
	"github.com/kainapp/backend-kain/internal/coupon"
	"github.com/kainapp/backend-kain/internal/pricing"
)

// ErrNotFound indicates the requested cart or line could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Store is the persistence surface the service needs.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (Cart, error)
	GetActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) (Cart, error)
	GetActiveByAnon(ctx context.Context, anonID string, now time.Time) (Cart, error)
	Create(ctx context.Context, userID *uuid.UUID, anonID *string, expiresAt time.Time) (Cart, error)
	Touch(ctx context.Context, id uuid.UUID, expiresAt time.Time) error
	SetCoupon(ctx context.Context, id uuid.UUID, code *string) error
	ListItems(ctx context.Context, cartID uuid.UUID) ([]Item, error)
	GetItem(ctx context.Context, itemID uuid.UUID) (Item, error)
	FindItem(ctx context.Context, cartID, productID uuid.UUID, selections map[string]string) (Item, error)
	InsertItem(ctx context.Context, it Item) (Item, error)
	UpdateItemLine(ctx context.Context, itemID uuid.UUID, quantity int, line pricing.LineItem) error
	DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error
}

// Pricer composes a locked price for a product configuration. Implemented by
// the catalog service so the cart charges exactly what the product page shows.
type Pricer interface {
	ComposeLine(ctx context.Context, productID uuid.UUID, quantity int, selections map[string]string) (catalog.Product, pricing.LineItem, error)
}

// CouponPreviewer validates a coupon against a subtotal without consuming it.
type CouponPreviewer interface {
	Preview(ctx context.Context, code string, userID *uuid.UUID, subtotal pricing.Money) (coupon.PreviewResult, error)
}

// Service encapsulates cart domain operations.
type Service struct {
	Store   Store
	Pricer  Pricer
	Coupons CouponPreviewer
	TTL     time.Duration
	GSTBps  int
	Now     func() time.Time
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// EnsureCart loads or creates an active cart for the provided identifiers.
func (s *Service) EnsureCart(ctx context.Context, userID *uuid.UUID, anonID *string) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	now := s.now()
	expires := now.Add(s.ttl())

	if userID != nil && *userID != uuid.Nil {
		c, err := s.Store.GetActiveByUser(ctx, *userID, now)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return s.Store.Create(ctx, userID, nil, expires)
			}
			return Cart{}, err
		}
		_ = s.Store.Touch(ctx, c.ID, expires)
		return c, nil
	}
	if anonID != nil && *anonID != "" {
		c, err := s.Store.GetActiveByAnon(ctx, *anonID, now)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return s.Store.Create(ctx, nil, anonID, expires)
			}
			return Cart{}, err
		}
		_ = s.Store.Touch(ctx, c.ID, expires)
		return c, nil
	}
	return Cart{}, fmt.Errorf("user or anonymous id required: %w", ErrInvalidInput)
}

// AddItem prices a configuration and appends it to the cart. Adding the same
// product with the same selections merges quantities and reprices the line,
// since slab tiers depend on the combined quantity.
func (s *Service) AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int, selections map[string]string) (Item, error) {
	if s == nil || s.Store == nil || s.Pricer == nil {
		return Item{}, errors.New("cart service not configured")
	}
	if quantity < 1 {
		return Item{}, fmt.Errorf("quantity must be positive: %w", ErrInvalidInput)
	}
	cart, err := s.Store.GetByID(ctx, cartID)
	if err != nil {
		return Item{}, err
	}

	existing, err := s.Store.FindItem(ctx, cart.ID, productID, selections)
	if err == nil {
		return s.repriceItem(ctx, existing, existing.Quantity+quantity)
	}
	if !errors.Is(err, ErrNotFound) {
		return Item{}, err
	}

	product, line, err := s.Pricer.ComposeLine(ctx, productID, quantity, selections)
	if err != nil {
		return Item{}, err
	}
	item, err := s.Store.InsertItem(ctx, Item{
		CartID:     cart.ID,
		ProductID:  product.ID,
		Slug:       product.Slug,
		Title:      product.Title,
		Type:       product.Type,
		Quantity:   quantity,
		Selections: selections,
		Line:       line,
	})
	if err != nil {
		return Item{}, err
	}
	_ = s.Store.Touch(ctx, cart.ID, s.now().Add(s.ttl()))
	return item, nil
}

// UpdateQty changes a line's quantity and reprices it.
func (s *Service) UpdateQty(ctx context.Context, itemID uuid.UUID, quantity int) (Item, error) {
	if s == nil || s.Store == nil || s.Pricer == nil {
		return Item{}, errors.New("cart service not configured")
	}
	if quantity < 1 {
		return Item{}, fmt.Errorf("quantity must be positive: %w", ErrInvalidInput)
	}
	item, err := s.Store.GetItem(ctx, itemID)
	if err != nil {
		return Item{}, err
	}
	return s.repriceItem(ctx, item, quantity)
}

// repriceItem recomposes a line at a new quantity. The slab tier in effect
// may change, so the whole breakdown is rebuilt rather than scaled.
func (s *Service) repriceItem(ctx context.Context, item Item, quantity int) (Item, error) {
	_, line, err := s.Pricer.ComposeLine(ctx, item.ProductID, quantity, item.Selections)
	if err != nil {
		return Item{}, err
	}
	if err := s.Store.UpdateItemLine(ctx, item.ID, quantity, line); err != nil {
		return Item{}, err
	}
	_ = s.Store.Touch(ctx, item.CartID, s.now().Add(s.ttl()))
	item.Quantity = quantity
	item.Line = line
	return item, nil
}

// RemoveItem deletes a cart line.
func (s *Service) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	if err := s.Store.DeleteItem(ctx, cartID, itemID); err != nil {
		return err
	}
	return s.Store.Touch(ctx, cartID, s.now().Add(s.ttl()))
}

// ApplyCoupon validates and attaches a coupon, replacing any previous one.
func (s *Service) ApplyCoupon(ctx context.Context, cartID uuid.UUID, code string) (pricing.Money, error) {
	if s == nil || s.Store == nil || s.Coupons == nil {
		return 0, errors.New("cart service not configured")
	}
	cart, err := s.Store.GetByID(ctx, cartID)
	if err != nil {
		return 0, err
	}
	items, err := s.Store.ListItems(ctx, cart.ID)
	if err != nil {
		return 0, err
	}
	result, err := s.Coupons.Preview(ctx, code, cart.UserID, subtotal(items))
	if err != nil {
		return 0, err
	}
	if err := s.Store.SetCoupon(ctx, cart.ID, &result.Code); err != nil {
		return 0, err
	}
	_ = s.Store.Touch(ctx, cart.ID, s.now().Add(s.ttl()))
	return result.Discount, nil
}

// RemoveCoupon clears an applied coupon.
func (s *Service) RemoveCoupon(ctx context.Context, cartID uuid.UUID) error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	if err := s.Store.SetCoupon(ctx, cartID, nil); err != nil {
		return err
	}
	return s.Store.Touch(ctx, cartID, s.now().Add(s.ttl()))
}

// View is the cart payload with running totals. Shipping and COD charges
// are only known at checkout and stay zero here.
type View struct {
	Cart   Cart                `json:"cart"`
	Items  []Item              `json:"items"`
	Totals pricing.OrderTotals `json:"totals"`
}

// GetView assembles the cart with its items and totals, re-validating any
// applied coupon against the current subtotal.
func (s *Service) GetView(ctx context.Context, cartID uuid.UUID) (View, error) {
	if s == nil || s.Store == nil {
		return View{}, errors.New("cart service not configured")
	}
	cart, err := s.Store.GetByID(ctx, cartID)
	if err != nil {
		return View{}, err
	}
	items, err := s.Store.ListItems(ctx, cart.ID)
	if err != nil {
		return View{}, err
	}

	var discount pricing.Money
	if cart.CouponCode != nil && s.Coupons != nil {
		result, err := s.Coupons.Preview(ctx, *cart.CouponCode, cart.UserID, subtotal(items))
		if err != nil {
			if !coupon.IsInvalid(err) {
				return View{}, err
			}
			// The coupon stopped being valid since it was applied; drop it.
			_ = s.Store.SetCoupon(ctx, cart.ID, nil)
			cart.CouponCode = nil
		} else {
			discount = result.Discount
		}
	}

	lines := make([]pricing.LineItem, 0, len(items))
	for _, it := range items {
		lines = append(lines, it.Line)
	}
	return View{
		Cart:   cart,
		Items:  items,
		Totals: pricing.ComputeTotals(lines, discount, s.GSTBps, 0, 0),
	}, nil
}

func subtotal(items []Item) pricing.Money {
	var total pricing.Money
	for _, it := range items {
		total += it.Line.LineTotal
	}
	return total
}
