// Package money holds integer minor-unit arithmetic shared by cart totals and checkout.
package money

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

var hundred = decimal.NewFromInt(100)

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCurrency reports whether code is a 3-letter upper-case ISO code.
func ValidCurrency(code string) bool {
	return currencyPattern.MatchString(code)
}

// SameCurrency compares two codes after normalization.
func SameCurrency(a, b string) bool {
	return NormalizeCurrency(a) == NormalizeCurrency(b)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NonNegative returns v, or 0 when v is negative.
func NonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// PercentOf returns floor(amount * percent / 100) computed exactly.
func PercentOf(amount int64, percent decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(percent).Div(hundred).Floor().IntPart()
}

// Discount computes the discount for a subtotal. Exactly one of percentOff or
// amountOff is expected; the result is always within [0, subtotal].
func Discount(subtotal int64, percentOff *decimal.Decimal, amountOff *int64) int64 {
	if subtotal <= 0 {
		return 0
	}
	var d int64
	switch {
	case percentOff != nil:
		d = PercentOf(subtotal, *percentOff)
	case amountOff != nil:
		d = *amountOff
	}
	return Clamp(d, 0, subtotal)
}

// Total is max(0, subtotal-discount) + shipping + tax.
func Total(subtotal, discount, shipping, tax int64) int64 {
	return NonNegative(subtotal-discount) + shipping + tax
}
