package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/kainapp/backend-kain/internal/currency"
	"github.com/kainapp/backend-kain/internal/pricing"
)

type stubStore struct {
	products map[uuid.UUID]Product
	bySlug   map[string]Product
	created  []Product
}

func (s *stubStore) List(ctx context.Context) ([]Product, error) {
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	return out, nil
}

func (s *stubStore) GetBySlug(ctx context.Context, slug string) (Product, error) {
	p, ok := s.bySlug[slug]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (s *stubStore) GetByID(ctx context.Context, id uuid.UUID) (Product, error) {
	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (s *stubStore) Create(ctx context.Context, p Product) (Product, error) {
	p.ID = uuid.New()
	s.created = append(s.created, p)
	return p, nil
}

func (s *stubStore) ReplaceSlabs(ctx context.Context, productID uuid.UUID, slabs []pricing.Slab) error {
	p, ok := s.products[productID]
	if !ok {
		return ErrNotFound
	}
	p.Slabs = slabs
	s.products[productID] = p
	return nil
}

func newFixtureStore() (*stubStore, Product, Product) {
	fabric := Product{
		ID:        uuid.New(),
		Slug:      "cotton-plain",
		Title:     "Plain Cotton",
		Type:      pricing.ProductPlain,
		BasePrice: 5_000,
		UnitLabel: "meter",
		Active:    true,
	}
	designed := Product{
		ID:          uuid.New(),
		Slug:        "paisley-print",
		Title:       "Paisley Print",
		Type:        pricing.ProductDesigned,
		DesignPrice: 10_000,
		FabricID:    &fabric.ID,
		UnitLabel:   "meter",
		Active:      true,
		Variants: []pricing.Variant{
			{
				ID:   "width",
				Name: "Width",
				Options: []pricing.VariantOption{
					{ID: "narrow", Value: "110cm", PriceModifier: 0},
					{ID: "wide", Value: "150cm", PriceModifier: 2_000},
				},
			},
		},
		Slabs: []pricing.Slab{
			{MinQuantity: 10, Kind: pricing.DiscountFixedAmount, Value: 500},
		},
	}
	store := &stubStore{
		products: map[uuid.UUID]Product{fabric.ID: fabric, designed.ID: designed},
		bySlug:   map[string]Product{fabric.Slug: fabric, designed.Slug: designed},
	}
	return store, fabric, designed
}

func TestQuoteLineDesignedProduct(t *testing.T) {
	store, _, designed := newFixtureStore()
	svc, err := NewService(store, nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	quote, err := svc.QuoteLine(context.Background(), designed.Slug, QuoteRequest{
		Quantity:   10,
		Selections: map[string]string{"width": "wide"},
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	// design 100.00 + slab-discounted fabric (50.00 - 5.00) + width 20.00
	if quote.Line.UnitPrice != 16_500 {
		t.Fatalf("unit price = %d, want 16500", quote.Line.UnitPrice)
	}
	if quote.Line.LineTotal != 165_000 {
		t.Fatalf("line total = %d, want 165000", quote.Line.LineTotal)
	}
	if quote.Line.FabricComponent != 4_500 {
		t.Fatalf("fabric component = %d, want 4500", quote.Line.FabricComponent)
	}
}

func TestQuoteLineUnknownSlug(t *testing.T) {
	store, _, _ := newFixtureStore()
	svc, _ := NewService(store, nil, nil)
	if _, err := svc.QuoteLine(context.Background(), "missing", QuoteRequest{Quantity: 1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestComposeLineMatchesQuote(t *testing.T) {
	store, _, designed := newFixtureStore()
	svc, _ := NewService(store, nil, nil)

	selections := map[string]string{"width": "narrow"}
	quote, err := svc.QuoteLine(context.Background(), designed.Slug, QuoteRequest{Quantity: 3, Selections: selections})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	_, line, err := svc.ComposeLine(context.Background(), designed.ID, 3, selections)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if line != quote.Line {
		t.Fatalf("cart pricing diverged from quote: %+v vs %+v", line, quote.Line)
	}
}

func TestSlabPreviewsUseFabricBase(t *testing.T) {
	store, _, designed := newFixtureStore()
	svc, _ := NewService(store, nil, nil)

	detail, err := svc.GetDetail(context.Background(), designed.Slug, "")
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if len(detail.SlabPreviews) != 1 {
		t.Fatalf("previews = %d, want 1", len(detail.SlabPreviews))
	}
	if detail.SlabPreviews[0].UnitPrice != 4_500 {
		t.Fatalf("preview unit price = %d, want 4500", detail.SlabPreviews[0].UnitPrice)
	}
}

func TestDetailDisplayForDesignedProduct(t *testing.T) {
	store, _, designed := newFixtureStore()
	converter, err := currency.NewConverter("INR", nil)
	if err != nil {
		t.Fatalf("converter: %v", err)
	}
	svc, _ := NewService(store, nil, converter)

	detail, err := svc.GetDetail(context.Background(), designed.Slug, "")
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	// design 100.00 + fabric base 50.00, not the zero base price
	if detail.Display != "₹150.00" {
		t.Fatalf("display = %q, want ₹150.00", detail.Display)
	}
}

func TestCreateProductRequiresFabric(t *testing.T) {
	store, _, _ := newFixtureStore()
	svc, _ := NewService(store, nil, nil)

	_, err := svc.CreateProduct(context.Background(), Product{
		Slug:  "orphan-print",
		Title: "Orphan Print",
		Type:  pricing.ProductDesigned,
	})
	if !errors.Is(err, ErrInvalidProduct) {
		t.Fatalf("err = %v, want ErrInvalidProduct", err)
	}
}

func TestCreateProductRejectsNonPlainFabric(t *testing.T) {
	store, _, designed := newFixtureStore()
	svc, _ := NewService(store, nil, nil)

	_, err := svc.CreateProduct(context.Background(), Product{
		Slug:     "print-on-print",
		Title:    "Print on Print",
		Type:     pricing.ProductDesigned,
		FabricID: &designed.ID,
	})
	if !errors.Is(err, ErrInvalidProduct) {
		t.Fatalf("err = %v, want ErrInvalidProduct", err)
	}
}

func TestValidateSlabs(t *testing.T) {
	two := 20
	cases := []struct {
		name  string
		slabs []pricing.Slab
		want  error
	}{
		{
			name: "valid tiers",
			slabs: []pricing.Slab{
				{MinQuantity: 1, MaxQuantity: &two, Kind: pricing.DiscountFixedAmount, Value: 100},
				{MinQuantity: 21, Kind: pricing.DiscountPercentage, PercentBps: 1000},
			},
		},
		{
			name: "overlapping ranges",
			slabs: []pricing.Slab{
				{MinQuantity: 1, Kind: pricing.DiscountFixedAmount, Value: 100},
				{MinQuantity: 10, Kind: pricing.DiscountFixedAmount, Value: 200},
			},
			want: ErrSlabOverlap,
		},
		{
			name: "inverted range",
			slabs: []pricing.Slab{
				{MinQuantity: 30, MaxQuantity: &two, Kind: pricing.DiscountFixedAmount, Value: 100},
			},
			want: ErrSlabInvalidRange,
		},
		{
			name: "legacy absolute price",
			slabs: []pricing.Slab{
				{MinQuantity: 1, PricePerMeter: 4_000},
			},
			want: ErrSlabLegacyWrite,
		},
		{
			name: "percentage out of bounds",
			slabs: []pricing.Slab{
				{MinQuantity: 1, Kind: pricing.DiscountPercentage, PercentBps: 10_001},
			},
			want: ErrSlabInvalidValue,
		},
		{
			name: "zero fixed value",
			slabs: []pricing.Slab{
				{MinQuantity: 1, Kind: pricing.DiscountFixedAmount},
			},
			want: ErrSlabInvalidValue,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSlabs(tc.slabs)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}
