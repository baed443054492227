package coupon

import (
	"errors"
	"testing"
	"time"

	"github.com/kainapp/backend-kain/internal/pricing"
)

func moneyPtr(v pricing.Money) *pricing.Money { return &v }
func int32Ptr(v int32) *int32                 { return &v }
func timePtr(t time.Time) *time.Time          { return &t }

func activeCoupon() Coupon {
	return Coupon{Code: "FAB10", Kind: KindFixed, Value: 1_000, Active: true}
}

func TestEvaluateFixedCappedAtSubtotal(t *testing.T) {
	c := activeCoupon()
	c.Value = 1_000_000
	discount, err := Evaluate(c, 5_000, time.Now(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if discount != 5_000 {
		t.Fatalf("fixed discount must never exceed subtotal, got %d", discount)
	}
}

func TestEvaluatePercentageWithCap(t *testing.T) {
	c := activeCoupon()
	c.Kind = KindPercentage
	c.PercentBps = 5000
	c.MaxDiscount = moneyPtr(2_000)
	discount, err := Evaluate(c, 100_000, time.Now(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if discount != 2_000 {
		t.Fatalf("expected cap of 2000 to apply, got %d", discount)
	}
}

func TestEvaluatePercentageWithoutCap(t *testing.T) {
	c := activeCoupon()
	c.Kind = KindPercentage
	c.PercentBps = 1000
	discount, err := Evaluate(c, 50_000, time.Now(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if discount != 5_000 {
		t.Fatalf("expected 10%% of 50000, got %d", discount)
	}
}

func TestValidateOrderOfChecks(t *testing.T) {
	now := time.Now()
	// An inactive coupon that also fails every later check must report inactive.
	c := Coupon{
		Code:         "STACK",
		Kind:         KindFixed,
		Value:        100,
		Active:       false,
		ValidFrom:    timePtr(now.Add(time.Hour)),
		ValidUntil:   timePtr(now.Add(-time.Hour)),
		MinOrder:     moneyPtr(1_000_000),
		UsageLimit:   int32Ptr(0),
		PerUserLimit: int32Ptr(1),
	}
	if err := c.Validate(now, 0, 5); !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive first, got %v", err)
	}
	c.Active = true
	if err := c.Validate(now, 0, 5); !errors.Is(err, ErrNotYetValid) {
		t.Fatalf("expected ErrNotYetValid next, got %v", err)
	}
	c.ValidFrom = nil
	if err := c.Validate(now, 0, 5); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired next, got %v", err)
	}
	c.ValidUntil = nil
	if err := c.Validate(now, 0, 5); !errors.Is(err, ErrMinOrderUnmet) {
		t.Fatalf("expected ErrMinOrderUnmet next, got %v", err)
	}
	c.MinOrder = nil
	if err := c.Validate(now, 0, 5); !errors.Is(err, ErrUsageLimitReached) {
		t.Fatalf("expected ErrUsageLimitReached next, got %v", err)
	}
	c.UsageLimit = nil
	if err := c.Validate(now, 0, 5); !errors.Is(err, ErrPerUserLimitReached) {
		t.Fatalf("expected ErrPerUserLimitReached last, got %v", err)
	}
	c.PerUserLimit = nil
	if err := c.Validate(now, 0, 5); err != nil {
		t.Fatalf("expected valid coupon, got %v", err)
	}
}

func TestValidateWindowBoundariesInclusive(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	c := activeCoupon()
	c.ValidFrom = timePtr(now)
	c.ValidUntil = timePtr(now)
	if err := c.Validate(now, 10_000, 0); err != nil {
		t.Fatalf("window boundaries are inclusive, got %v", err)
	}
}

func TestDiscountZeroSubtotal(t *testing.T) {
	if got := activeCoupon().Discount(0); got != 0 {
		t.Fatalf("expected zero discount on empty order, got %d", got)
	}
}
