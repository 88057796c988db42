// Package money holds the currency helpers shared by the cart, the
// coordinator and the gateway. All amounts are decimals displayed with two
// places; "balanced" comparisons use an absolute epsilon, never equality.
package money

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Places is the number of decimal places used for display and rounding.
const Places = 2

// Epsilon is the tolerance for comparing amounts that went through
// floating point on the way in (UI fields, JSON numbers).
var Epsilon = decimal.New(1, -Places)

// ErrNotNumeric is returned by Parse for input that is not a number.
var ErrNotNumeric = errors.New("amount is not numeric")

// Round rounds d to display precision.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Format renders d with exactly two decimals.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}

// Balanced reports whether |a - b| <= Epsilon.
func Balanced(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Epsilon)
}

// Parse reads an amount typed by an operator: plain digits with at most
// Places decimals, a comma accepted as the separator. Signs, exponents and
// empty input are not numeric.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return decimal.Zero, ErrNotNumeric
	}
	if !digits(whole) || !digits(frac) || len(frac) > Places {
		return decimal.Zero, ErrNotNumeric
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrNotNumeric
	}
	return d, nil
}

// LineTotal is unitPrice × quantity.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
