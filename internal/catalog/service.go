package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kainapp/backend-kain/internal/currency"
	"github.com/kainapp/backend-kain/internal/obs"
	"github.com/kainapp/backend-kain/internal/pricing"
)

// Store is the persistence surface the service needs.
type Store interface {
	List(ctx context.Context) ([]Product, error)
	GetBySlug(ctx context.Context, slug string) (Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (Product, error)
	Create(ctx context.Context, p Product) (Product, error)
	ReplaceSlabs(ctx context.Context, productID uuid.UUID, slabs []pricing.Slab) error
}

// Service orchestrates catalog reads, price previews, and caching.
type Service struct {
	store     Store
	cache     *Cache
	converter *currency.Converter
}

// NewService constructs a Service instance.
func NewService(store Store, cache *Cache, converter *currency.Converter) (*Service, error) {
	if store == nil {
		return nil, errors.New("catalog: store is required")
	}
	return &Service{store: store, cache: cache, converter: converter}, nil
}

// ListProducts returns the active catalog, optionally rendering prices in a
// display currency.
func (s *Service) ListProducts(ctx context.Context, displayCurrency string) ([]ListItem, error) {
	var products []Product
	ok, err := s.cache.GetJSON(ctx, listKey(), &products)
	if err != nil || !ok {
		products, err = s.store.List(ctx)
		if err != nil {
			return nil, err
		}
		_ = s.cache.SetJSON(ctx, listKey(), products)
	}
	items := make([]ListItem, 0, len(products))
	for _, p := range products {
		item := ListItem{
			ID:        p.ID,
			Slug:      p.Slug,
			Title:     p.Title,
			Type:      p.Type,
			BasePrice: p.BasePrice,
			UnitLabel: p.UnitLabel,
		}
		item.Display = s.display(p.BasePrice, displayCurrency)
		items = append(items, item)
	}
	return items, nil
}

// GetDetail returns a product with quantity-tier price previews.
func (s *Service) GetDetail(ctx context.Context, slug, displayCurrency string) (Detail, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return Detail{}, ErrNotFound
	}
	var p Product
	ok, err := s.cache.GetJSON(ctx, detailKey(slug), &p)
	if err != nil || !ok {
		p, err = s.store.GetBySlug(ctx, slug)
		if err != nil {
			return Detail{}, err
		}
		_ = s.cache.SetJSON(ctx, detailKey(slug), p)
	}
	detail := Detail{Product: p}
	detail.Display = s.display(s.previewUnitPrice(ctx, p), displayCurrency)
	detail.SlabPreviews = s.slabPreviews(ctx, p)
	return detail, nil
}

// previewUnitPrice is the price shown before any configuration: the base
// price for plain and digital products, the design charge plus the backing
// fabric's base price for fabric-backed ones.
func (s *Service) previewUnitPrice(ctx context.Context, p Product) pricing.Money {
	if p.Type != pricing.ProductDesigned && p.Type != pricing.ProductCustom {
		return p.BasePrice
	}
	unit := p.DesignPrice
	if p.FabricID != nil {
		if fabric, err := s.store.GetByID(ctx, *p.FabricID); err == nil {
			unit += fabric.BasePrice
		}
	}
	return unit
}

// slabPreviews prices each tier at its lower bound so buyers see the
// per-unit cost curve before configuring anything.
func (s *Service) slabPreviews(ctx context.Context, p Product) []SlabPreview {
	if len(p.Slabs) == 0 {
		return nil
	}
	base := p.BasePrice
	if p.Type == pricing.ProductDesigned || p.Type == pricing.ProductCustom {
		if p.FabricID == nil {
			return nil
		}
		fabric, err := s.store.GetByID(ctx, *p.FabricID)
		if err != nil {
			return nil
		}
		base = fabric.BasePrice
	}
	previews := make([]SlabPreview, 0, len(p.Slabs))
	for _, slab := range p.Slabs {
		previews = append(previews, SlabPreview{
			MinQuantity: slab.MinQuantity,
			MaxQuantity: slab.MaxQuantity,
			UnitPrice:   pricing.EffectiveUnitPrice(slab.MinQuantity, base, p.Slabs),
		})
	}
	return previews
}

// QuoteLine prices one configured line for a product. This is the single
// pricing path shared by the product page, the cart, and checkout.
func (s *Service) QuoteLine(ctx context.Context, slug string, req QuoteRequest) (Quote, error) {
	p, err := s.store.GetBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return Quote{}, err
	}
	line, err := s.composeFor(ctx, p, req.Quantity, req.Selections)
	if err != nil {
		return Quote{}, err
	}
	q := Quote{Slug: p.Slug, Quantity: req.Quantity, Line: line}
	q.Display = s.display(line.LineTotal, req.Currency)
	return q, nil
}

// ComposeLine prices a line for an already-loaded product id. Cart and
// checkout call this so every surface charges the same number.
func (s *Service) ComposeLine(ctx context.Context, productID uuid.UUID, quantity int, selections map[string]string) (Product, pricing.LineItem, error) {
	p, err := s.store.GetByID(ctx, productID)
	if err != nil {
		return Product{}, pricing.LineItem{}, err
	}
	line, err := s.composeFor(ctx, p, quantity, selections)
	return p, line, err
}

func (s *Service) composeFor(ctx context.Context, p Product, quantity int, selections map[string]string) (pricing.LineItem, error) {
	in := pricing.ComposeInput{
		Type:        p.Type,
		BasePrice:   p.BasePrice,
		DesignPrice: p.DesignPrice,
		Variants:    p.Variants,
		Selections:  selections,
		Slabs:       p.Slabs,
		Quantity:    quantity,
	}
	if p.Type == pricing.ProductDesigned || p.Type == pricing.ProductCustom {
		if p.FabricID == nil {
			return pricing.LineItem{}, pricing.ErrMissingFabricSelection
		}
		fabric, err := s.store.GetByID(ctx, *p.FabricID)
		if err != nil {
			return pricing.LineItem{}, fmt.Errorf("load fabric: %w", err)
		}
		in.Fabric = &pricing.FabricSelection{
			FabricID:     fabric.ID.String(),
			PricePerUnit: fabric.BasePrice + pricing.ResolveModifier(fabric.Variants, selections),
		}
	}
	line, err := pricing.Compose(in)
	if err != nil {
		return pricing.LineItem{}, err
	}
	obs.IncPriceComputation(string(p.Type))
	return line, nil
}

func (s *Service) display(amount pricing.Money, code string) string {
	if s.converter == nil {
		return ""
	}
	formatted, err := s.converter.Format(amount, code)
	if err != nil {
		return ""
	}
	return formatted
}
