package pricing

import "errors"

var (
	// ErrInvalidQuantity is returned when a line is priced with a non-positive quantity.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrMissingFabricSelection is returned when a designed or custom product is
	// priced without a fabric chosen. Callers must block cart and wishlist
	// additions on this rather than charging a partial price.
	ErrMissingFabricSelection = errors.New("fabric selection required")
	// ErrUnknownProductType is returned for a product type the composer does not price.
	ErrUnknownProductType = errors.New("unknown product type")
)

// FabricSelection is the transient fabric choice made while configuring a
// designed or custom product. PricePerUnit already includes the fabric's own
// variant modifiers on top of its base price.
type FabricSelection struct {
	FabricID         string
	PricePerUnit     Money
	SelectedVariants map[string]string
}

// ComposeInput carries everything needed to price one configured line.
type ComposeInput struct {
	Type        ProductType
	BasePrice   Money // PLAIN and DIGITAL products
	DesignPrice Money // DESIGNED and CUSTOM products
	Variants    []Variant
	Selections  map[string]string
	Slabs       []Slab
	Fabric      *FabricSelection
	Quantity    int
}

// LineItem is the composed price for one cart line. The breakdown components
// are what the price-breakdown view renders; the persisted line carries them
// verbatim so checkout charges exactly what the product page showed.
type LineItem struct {
	UnitPrice        Money
	Quantity         int
	LineTotal        Money
	DesignComponent  Money
	FabricComponent  Money
	VariantComponent Money
}

// Compose assembles the per-unit price and line total for a product
// configuration. Quantity means the product's declared unit: meters of fabric
// for PLAIN/DESIGNED/CUSTOM, licenses for DIGITAL. The result is pure in its
// inputs; identical inputs always produce identical output.
func Compose(in ComposeInput) (LineItem, error) {
	if in.Quantity < 1 {
		return LineItem{}, ErrInvalidQuantity
	}
	variantPart := ResolveModifier(in.Variants, in.Selections)

	var design, fabric Money
	switch in.Type {
	case ProductPlain:
		fabric = in.BasePrice
	case ProductDigital:
		design = in.BasePrice
	case ProductDesigned, ProductCustom:
		if in.Fabric == nil {
			return LineItem{}, ErrMissingFabricSelection
		}
		design = in.DesignPrice
		fabric = EffectiveUnitPrice(in.Quantity, in.Fabric.PricePerUnit, in.Slabs)
	default:
		return LineItem{}, ErrUnknownProductType
	}

	unit := design + fabric + variantPart
	if unit < 0 {
		unit = 0
	}
	return LineItem{
		UnitPrice:        unit,
		Quantity:         in.Quantity,
		LineTotal:        unit * Money(in.Quantity),
		DesignComponent:  design,
		FabricComponent:  fabric,
		VariantComponent: variantPart,
	}, nil
}
