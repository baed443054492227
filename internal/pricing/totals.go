package pricing

// OrderTotals aggregates the order-level money components. The invariant
// GrandTotal = Subtotal - Discount + GST + Shipping + CODCharge holds for
// every value ComputeTotals returns, with Discount clamped to Subtotal.
type OrderTotals struct {
	Subtotal   Money
	Discount   Money
	GST        Money
	Shipping   Money
	CODCharge  Money
	GrandTotal Money
}

// ComputeTotals calculates order totals from composed line items. GST is
// charged on the discounted subtotal; shipping and the COD surcharge are
// added untaxed.
func ComputeTotals(items []LineItem, discount Money, gstBps int, shipping, codCharge Money) OrderTotals {
	var subtotal Money
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		subtotal += it.LineTotal
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	if shipping < 0 {
		shipping = 0
	}
	if codCharge < 0 {
		codCharge = 0
	}
	taxable := subtotal - discount
	gst := taxable * Money(gstBps) / 10000
	return OrderTotals{
		Subtotal:   subtotal,
		Discount:   discount,
		GST:        gst,
		Shipping:   shipping,
		CODCharge:  codCharge,
		GrandTotal: taxable + gst + shipping + codCharge,
	}
}

// PartialAdvance returns the up-front portion of a partial-COD order given the
// configured advance percentage in basis points, the remainder being collected
// on delivery.
func PartialAdvance(grandTotal Money, advanceBps int) Money {
	if grandTotal <= 0 || advanceBps <= 0 {
		return 0
	}
	if advanceBps >= 10000 {
		return grandTotal
	}
	return grandTotal * Money(advanceBps) / 10000
}
