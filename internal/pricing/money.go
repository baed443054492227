package pricing

// Money represents a monetary value stored in minor units (paise for INR).
type Money = int64

// ProductType distinguishes how a product's unit price is assembled.
type ProductType string

// Product types carried by the catalog.
const (
	ProductPlain    ProductType = "PLAIN"
	ProductDesigned ProductType = "DESIGNED"
	ProductDigital  ProductType = "DIGITAL"
	ProductCustom   ProductType = "CUSTOM"
)

// RequiresFabric reports whether the product type prices against a fabric selection.
func (t ProductType) RequiresFabric() bool {
	return t == ProductDesigned || t == ProductCustom
}

// Valid reports whether the value is one of the known product types.
func (t ProductType) Valid() bool {
	switch t {
	case ProductPlain, ProductDesigned, ProductDigital, ProductCustom:
		return true
	}
	return false
}
