package coupon

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kainapp/backend-kain/internal/obs"
	"github.com/kainapp/backend-kain/internal/pricing"
)

// Store captures the persistence methods required by the coupon service.
type Store interface {
	GetByCode(ctx context.Context, code string) (Record, error)
	CountUsageByUser(ctx context.Context, couponID, userID uuid.UUID) (int64, error)
	InsertUsage(ctx context.Context, couponID, orderID uuid.UUID, userID *uuid.UUID, amount pricing.Money) (bool, error)
	IncrementUsedCount(ctx context.Context, id uuid.UUID) error
}

// PreviewResult describes a dry-run evaluation outcome.
type PreviewResult struct {
	Code     string        `json:"code"`
	Discount pricing.Money `json:"discount"`
}

// Service evaluates and settles coupons against stored state.
type Service struct {
	Store Store
	Now   func() time.Time
}

// normalizeCode folds buyer input onto the stored uppercase code form.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Preview evaluates a coupon for the given subtotal without mutating state.
// Only one coupon applies per order; callers replace any previously applied
// code with the previewed one rather than stacking.
func (s *Service) Preview(ctx context.Context, code string, userID *uuid.UUID, subtotal pricing.Money) (PreviewResult, error) {
	if s == nil || s.Store == nil {
		return PreviewResult{}, errors.New("coupon service not configured")
	}
	normalized := normalizeCode(code)
	if normalized == "" {
		return PreviewResult{}, ErrNotFound
	}
	rec, err := s.Store.GetByCode(ctx, normalized)
	if err != nil {
		return PreviewResult{}, err
	}
	var userUsage int32
	if userID != nil && rec.PerUserLimit != nil && *rec.PerUserLimit > 0 {
		used, err := s.Store.CountUsageByUser(ctx, rec.ID, *userID)
		if err != nil {
			return PreviewResult{}, err
		}
		userUsage = int32(used)
	}
	discount, err := Evaluate(rec.Coupon, subtotal, s.now(), userUsage)
	if err != nil {
		if reason := Reason(err); reason != "" {
			obs.IncCouponEvaluation(reason)
		}
		return PreviewResult{}, err
	}
	obs.IncCouponEvaluation("applied")
	return PreviewResult{Code: rec.Code, Discount: discount}, nil
}

// Settle records coupon usage for a placed order. It is idempotent per order:
// re-settling the same order neither inserts a second usage row nor bumps the
// global counter again.
func (s *Service) Settle(ctx context.Context, code string, orderID uuid.UUID, userID *uuid.UUID, amount pricing.Money) error {
	if s == nil || s.Store == nil {
		return errors.New("coupon service not configured")
	}
	normalized := normalizeCode(code)
	if normalized == "" || orderID == uuid.Nil {
		return nil
	}
	rec, err := s.Store.GetByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if amount < 0 {
		amount = 0
	}
	inserted, err := s.Store.InsertUsage(ctx, rec.ID, orderID, userID, amount)
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}
	return s.Store.IncrementUsedCount(ctx, rec.ID)
}

// Reason maps an evaluation error onto the stable machine-readable reason
// reported to clients.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not-found"
	case errors.Is(err, ErrInactive):
		return "inactive"
	case errors.Is(err, ErrNotYetValid):
		return "not-yet-valid"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrMinOrderUnmet):
		return "below-minimum-order"
	case errors.Is(err, ErrUsageLimitReached):
		return "usage-limit-exceeded"
	case errors.Is(err, ErrPerUserLimitReached):
		return "per-user-limit-exceeded"
	}
	return ""
}

// IsInvalid reports whether the error is one of the coupon eligibility failures.
func IsInvalid(err error) bool {
	return Reason(err) != ""
}
