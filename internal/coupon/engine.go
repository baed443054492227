package coupon

import (
	"errors"
	"time"

	"github.com/kainapp/backend-kain/internal/pricing"
)

var (
	// ErrNotFound is returned when no coupon carries the requested code.
	ErrNotFound = errors.New("coupon not found")
	// ErrInactive is returned when the coupon has been disabled by an admin.
	ErrInactive = errors.New("coupon not active")
	// ErrNotYetValid is returned before the coupon's validity window opens.
	ErrNotYetValid = errors.New("coupon not yet valid")
	// ErrExpired is returned after the coupon's validity window closes.
	ErrExpired = errors.New("coupon expired")
	// ErrMinOrderUnmet indicates the order subtotal did not reach the coupon requirement.
	ErrMinOrderUnmet = errors.New("coupon minimum order not met")
	// ErrUsageLimitReached indicates the coupon exhausted its global usage quota.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrPerUserLimitReached indicates the caller exceeded the per-user allowance.
	ErrPerUserLimitReached = errors.New("coupon per-user usage limit reached")
)

// Kind selects how a coupon's value is interpreted.
type Kind string

// Supported coupon kinds.
const (
	KindFixed      Kind = "FIXED"
	KindPercentage Kind = "PERCENTAGE"
)

// Coupon captures the runtime constraints of a discount code. Lifecycle is
// owned by the admin surface; evaluation only reads.
type Coupon struct {
	Code         string
	Kind         Kind
	Value        pricing.Money // FIXED: amount off in minor units
	PercentBps   int32         // PERCENTAGE: discount in basis points
	MinOrder     *pricing.Money
	MaxDiscount  *pricing.Money // percentage-only cap
	UsageLimit   *int32
	UsedCount    int32
	PerUserLimit *int32
	ValidFrom    *time.Time
	ValidUntil   *time.Time
	Active       bool
}

// Validate checks the coupon against the order context. Checks run in a fixed
// precedence order and the first failure wins: active flag, validity window,
// minimum order, global usage, per-user usage.
func (c Coupon) Validate(now time.Time, subtotal pricing.Money, userUsageCount int32) error {
	if !c.Active {
		return ErrInactive
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return ErrNotYetValid
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return ErrExpired
	}
	if c.MinOrder != nil && subtotal < *c.MinOrder {
		return ErrMinOrderUnmet
	}
	if c.UsageLimit != nil && *c.UsageLimit >= 0 && c.UsedCount >= *c.UsageLimit {
		return ErrUsageLimitReached
	}
	if c.PerUserLimit != nil && *c.PerUserLimit > 0 && userUsageCount >= *c.PerUserLimit {
		return ErrPerUserLimitReached
	}
	return nil
}

// Discount computes the amount the coupon takes off the given subtotal.
// A fixed coupon never exceeds the order; a percentage coupon is capped by
// MaxDiscount when set. The result is always within [0, subtotal].
func (c Coupon) Discount(subtotal pricing.Money) pricing.Money {
	if subtotal <= 0 {
		return 0
	}
	var discount pricing.Money
	switch c.Kind {
	case KindPercentage:
		if c.PercentBps <= 0 {
			return 0
		}
		discount = subtotal * pricing.Money(c.PercentBps) / 10000
		if c.MaxDiscount != nil && discount > *c.MaxDiscount {
			discount = *c.MaxDiscount
		}
	default:
		discount = c.Value
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		return 0
	}
	return discount
}

// Evaluate validates the coupon and, when eligible, computes its discount in
// one step. The returned error is one of the sentinel values above.
func Evaluate(c Coupon, subtotal pricing.Money, now time.Time, userUsageCount int32) (pricing.Money, error) {
	if err := c.Validate(now, subtotal, userUsageCount); err != nil {
		return 0, err
	}
	return c.Discount(subtotal), nil
}
