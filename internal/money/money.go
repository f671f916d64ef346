// Package money holds the decimal helpers shared by every pricing component.
// Amounts are shopspring decimals end to end; floats only appear at the
// display edge in Format.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Places is the scale every stored amount is rounded to.
const Places = 2

var hundred = decimal.NewFromInt(100)

// Round rounds to two decimal places, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Percent returns amount * pct / 100 without rounding.
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

// ClampZero returns d, or zero when d is negative.
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// ParseCurrency validates an ISO 4217 code and returns it upper-cased.
func ParseCurrency(code string) (string, error) {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return "", fmt.Errorf("invalid currency %q: %w", code, err)
	}
	return unit.String(), nil
}

func scale(code string) (int32, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return 0, fmt.Errorf("invalid currency %q: %w", code, err)
	}
	s, _ := currency.Standard.Rounding(unit)
	return int32(s), nil
}

// ToMinorUnits converts an amount into the currency's smallest unit (cents for USD, yen for JPY).
func ToMinorUnits(amount decimal.Decimal, code string) (int64, error) {
	s, err := scale(code)
	if err != nil {
		return 0, err
	}
	return amount.Shift(s).Round(0).IntPart(), nil
}

// FromMinorUnits is the inverse of ToMinorUnits.
func FromMinorUnits(minor int64, code string) (decimal.Decimal, error) {
	s, err := scale(code)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.New(minor, -s), nil
}

// Format renders amount for display in the given locale, e.g. "€ 12.50" or "US$ 3.00".
// Unknown locales fall back to English.
func Format(amount decimal.Decimal, code, locale string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return amount.StringFixed(Places) + " " + code
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	p := message.NewPrinter(tag)
	return p.Sprint(currency.Symbol(unit.Amount(amount.InexactFloat64())))
}
