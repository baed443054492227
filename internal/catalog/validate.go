package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kainapp/backend-kain/internal/pricing"
)

var (
	ErrSlabInvalidRange = errors.New("slab range is invalid")
	ErrSlabOverlap      = errors.New("slab ranges overlap")
	ErrSlabInvalidValue = errors.New("slab discount value is invalid")
	ErrSlabLegacyWrite  = errors.New("absolute price-per-meter slabs can no longer be created")
	ErrInvalidProduct   = errors.New("invalid product")
)

// ValidateSlabs rejects malformed or overlapping tier sets before they are
// persisted. Existing rows using the absolute price-per-meter encoding keep
// working at read time, but new writes must use a discount kind.
func ValidateSlabs(slabs []pricing.Slab) error {
	for i, s := range slabs {
		if s.PricePerMeter > 0 {
			return fmt.Errorf("slab %d: %w", i, ErrSlabLegacyWrite)
		}
		if s.MinQuantity < 1 {
			return fmt.Errorf("slab %d: %w: minQuantity must be at least 1", i, ErrSlabInvalidRange)
		}
		if s.MaxQuantity != nil && *s.MaxQuantity < s.MinQuantity {
			return fmt.Errorf("slab %d: %w: maxQuantity precedes minQuantity", i, ErrSlabInvalidRange)
		}
		switch s.Kind {
		case pricing.DiscountFixedAmount:
			if s.Value <= 0 || s.PercentBps != 0 {
				return fmt.Errorf("slab %d: %w", i, ErrSlabInvalidValue)
			}
		case pricing.DiscountPercentage:
			if s.PercentBps <= 0 || s.PercentBps > 10000 || s.Value != 0 {
				return fmt.Errorf("slab %d: %w", i, ErrSlabInvalidValue)
			}
		default:
			return fmt.Errorf("slab %d: %w: unknown kind %q", i, ErrSlabInvalidValue, s.Kind)
		}
		for j := 0; j < i; j++ {
			if slabsOverlap(slabs[j], s) {
				return fmt.Errorf("slabs %d and %d: %w", j, i, ErrSlabOverlap)
			}
		}
	}
	return nil
}

func slabsOverlap(a, b pricing.Slab) bool {
	aMax := a.MaxQuantity
	bMax := b.MaxQuantity
	if aMax == nil && bMax == nil {
		return true
	}
	if aMax == nil {
		return *bMax >= a.MinQuantity
	}
	if bMax == nil {
		return *aMax >= b.MinQuantity
	}
	return a.MinQuantity <= *bMax && b.MinQuantity <= *aMax
}

// CreateProduct validates and persists a new product.
func (s *Service) CreateProduct(ctx context.Context, p Product) (Product, error) {
	p.Slug = strings.TrimSpace(p.Slug)
	p.Title = strings.TrimSpace(p.Title)
	if p.Slug == "" || p.Title == "" {
		return Product{}, fmt.Errorf("%w: slug and title are required", ErrInvalidProduct)
	}
	if !p.Type.Valid() {
		return Product{}, fmt.Errorf("%w: unknown type %q", ErrInvalidProduct, p.Type)
	}
	if p.Type.RequiresFabric() && p.FabricID == nil {
		return Product{}, fmt.Errorf("%w: %s products need a fabric reference", ErrInvalidProduct, p.Type)
	}
	if p.FabricID != nil {
		fabric, err := s.store.GetByID(ctx, *p.FabricID)
		if err != nil {
			return Product{}, fmt.Errorf("%w: fabric lookup failed: %v", ErrInvalidProduct, err)
		}
		if fabric.Type != pricing.ProductPlain {
			return Product{}, fmt.Errorf("%w: fabric reference must be a plain product", ErrInvalidProduct)
		}
	}
	if err := ValidateSlabs(p.Slabs); err != nil {
		return Product{}, err
	}
	created, err := s.store.Create(ctx, p)
	if err != nil {
		return Product{}, err
	}
	_ = s.cache.Invalidate(ctx, created.Slug)
	return created, nil
}

// UpdateSlabs replaces a product's tier set.
func (s *Service) UpdateSlabs(ctx context.Context, productID uuid.UUID, slabs []pricing.Slab) error {
	if err := ValidateSlabs(slabs); err != nil {
		return err
	}
	p, err := s.store.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if err := s.store.ReplaceSlabs(ctx, productID, slabs); err != nil {
		return err
	}
	return s.cache.Invalidate(ctx, p.Slug)
}
