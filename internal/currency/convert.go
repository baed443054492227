// Package currency converts canonical minor-unit amounts into display
// currencies. Conversion is presentation only: every stored and charged
// amount stays in the base currency.
package currency

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kainapp/backend-kain/internal/pricing"
)

var (
	ErrUnknownCurrency = errors.New("unknown currency code")
	ErrInvalidRate     = errors.New("conversion rate must be positive")
)

var symbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"AED": "د.إ",
	"SGD": "S$",
	"AUD": "A$",
	"CAD": "C$",
}

// Amount is a converted, display-ready figure.
type Amount struct {
	Code  string          `json:"code"`
	Value decimal.Decimal `json:"value"`
}

// String renders the amount with its currency symbol, e.g. "₹1,234.50"
// without the thousands grouping ("₹1234.50").
func (a Amount) String() string {
	sym, ok := symbols[a.Code]
	if !ok {
		return a.Code + " " + a.Value.StringFixed(2)
	}
	return sym + a.Value.StringFixed(2)
}

// Converter holds a rate table keyed by currency code, expressed as units
// of the target currency per one unit of the base currency.
type Converter struct {
	Base  string
	Rates map[string]decimal.Decimal
}

// NewConverter builds a converter. Rates for the base currency itself are
// implied and need not be present.
func NewConverter(base string, rates map[string]decimal.Decimal) (*Converter, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		return nil, errors.New("base currency code is required")
	}
	clean := make(map[string]decimal.Decimal, len(rates))
	for code, rate := range rates {
		if !rate.IsPositive() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRate, code)
		}
		clean[strings.ToUpper(strings.TrimSpace(code))] = rate
	}
	return &Converter{Base: base, Rates: clean}, nil
}

// Convert turns a canonical minor-unit amount into the target currency.
func (c *Converter) Convert(amount pricing.Money, code string) (Amount, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	major := decimal.New(amount, -2)
	if code == "" || code == c.Base {
		return Amount{Code: c.Base, Value: major}, nil
	}
	rate, ok := c.Rates[code]
	if !ok {
		return Amount{}, fmt.Errorf("%w: %s", ErrUnknownCurrency, code)
	}
	return Amount{Code: code, Value: major.Mul(rate).Round(2)}, nil
}

// Format is Convert plus symbol rendering in one call.
func (c *Converter) Format(amount pricing.Money, code string) (string, error) {
	a, err := c.Convert(amount, code)
	if err != nil {
		return "", err
	}
	return a.String(), nil
}
