package pricing

import "slices"

// DiscountKind selects how a slab's discount is applied to the base unit price.
type DiscountKind string

// Supported slab discount kinds.
const (
	DiscountFixedAmount DiscountKind = "FIXED_AMOUNT"
	DiscountPercentage  DiscountKind = "PERCENTAGE"
)

// Slab is a quantity range with an associated bulk discount rule.
//
// For FIXED_AMOUNT slabs Value holds the per-unit reduction in minor units;
// for PERCENTAGE slabs PercentBps holds the reduction in basis points.
// PricePerMeter is a deprecated legacy encoding: when both Value and
// PercentBps are zero and PricePerMeter is positive, the slab pins the unit
// price to that absolute amount instead of discounting. It exists only for
// backward compatibility with already-stored rows; creation of new slabs
// using it is rejected by the catalog admin surface.
type Slab struct {
	MinQuantity   int
	MaxQuantity   *int // nil means unbounded
	Kind          DiscountKind
	Value         Money
	PercentBps    int32
	PricePerMeter Money
}

// Matches reports whether the quantity falls inside the slab's range.
func (s Slab) Matches(quantity int) bool {
	if quantity < s.MinQuantity {
		return false
	}
	return s.MaxQuantity == nil || quantity <= *s.MaxQuantity
}

// EffectiveUnitPrice returns the per-unit price after applying the first slab
// whose range contains the quantity. Slabs are scanned in ascending
// MinQuantity order; the sort is stable so equal MinQuantity values keep
// their stored order. A quantity matched by no slab is not an error: the base
// price is returned unchanged.
//
// Callers are responsible for rejecting non-positive quantities before
// calling; the composer enforces quantity >= 1.
func EffectiveUnitPrice(quantity int, baseUnitPrice Money, slabs []Slab) Money {
	if len(slabs) == 0 {
		return baseUnitPrice
	}
	sorted := slices.Clone(slabs)
	slices.SortStableFunc(sorted, func(a, b Slab) int {
		return a.MinQuantity - b.MinQuantity
	})
	for _, s := range sorted {
		if !s.Matches(quantity) {
			continue
		}
		return s.apply(baseUnitPrice)
	}
	return baseUnitPrice
}

func (s Slab) apply(base Money) Money {
	// Legacy absolute-price rows: no discount encoded, PricePerMeter pinned.
	if s.Value == 0 && s.PercentBps == 0 && s.PricePerMeter > 0 {
		return s.PricePerMeter
	}
	var price Money
	switch s.Kind {
	case DiscountPercentage:
		price = base * Money(10000-s.PercentBps) / 10000
	default:
		price = base - s.Value
	}
	if price < 0 {
		return 0
	}
	return price
}
