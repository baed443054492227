package pricing

// VariantOption is one selectable value of a variant, carrying a signed
// per-unit price adjustment.
type VariantOption struct {
	ID            string
	Value         string
	PriceModifier Money
}

// Variant is a selectable product attribute (e.g. Width, GSM). A line item
// selects at most one option per variant.
type Variant struct {
	ID      string
	Name    string
	Unit    string
	Options []VariantOption
}

// ResolveModifier sums the price modifiers of the options selected for the
// given variants. Variants without a selection contribute zero. Selections
// referencing an option id the variant no longer carries are ignored rather
// than rejected, since a stored selection may point at stale catalog data
// after a product edit.
func ResolveModifier(variants []Variant, selections map[string]string) Money {
	if len(variants) == 0 || len(selections) == 0 {
		return 0
	}
	var total Money
	for _, v := range variants {
		optionID, ok := selections[v.ID]
		if !ok || optionID == "" {
			continue
		}
		for _, opt := range v.Options {
			if opt.ID == optionID {
				total += opt.PriceModifier
				break
			}
		}
	}
	return total
}
