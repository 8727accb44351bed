package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func ptrInt64(v int64) *int64 { return &v }

func ptrDec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestDiscount(t *testing.T) {
	tests := []struct {
		name     string
		subtotal int64
		percent  *decimal.Decimal
		amount   *int64
		want     int64
	}{
		{name: "percent", subtotal: 2000, percent: ptrDec("10"), want: 200},
		{name: "percent truncates", subtotal: 999, percent: ptrDec("10"), want: 99},
		{name: "fractional percent floors", subtotal: 1000, percent: ptrDec("12.55"), want: 125},
		{name: "hundred percent", subtotal: 1234, percent: ptrDec("100"), want: 1234},
		{name: "amount", subtotal: 1000, amount: ptrInt64(300), want: 300},
		{name: "amount clamped to subtotal", subtotal: 1000, amount: ptrInt64(5000), want: 1000},
		{name: "negative amount clamped to zero", subtotal: 1000, amount: ptrInt64(-5), want: 0},
		{name: "empty subtotal", subtotal: 0, percent: ptrDec("50"), want: 0},
		{name: "no discount configured", subtotal: 1000, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Discount(tt.subtotal, tt.percent, tt.amount))
		})
	}
}

func TestTotalNeverNegativeBeforeFees(t *testing.T) {
	assert.Equal(t, int64(0), Total(1000, 1000, 0, 0))
	assert.Equal(t, int64(2100), Total(2000, 200, 300, 0))
	assert.Equal(t, int64(50), Total(100, 500, 20, 30))
}

func TestCurrencyHelpers(t *testing.T) {
	assert.True(t, ValidCurrency("JPY"))
	assert.False(t, ValidCurrency("jpy"))
	assert.False(t, ValidCurrency("YENS"))
	assert.Equal(t, "USD", NormalizeCurrency(" usd "))
	assert.True(t, SameCurrency("eur", "EUR"))
	assert.False(t, SameCurrency("EUR", "USD"))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, int64(5), Clamp(5, 0, 10))
	assert.Equal(t, int64(0), Clamp(-1, 0, 10))
	assert.Equal(t, int64(10), Clamp(11, 0, 10))
	assert.Equal(t, int64(0), NonNegative(-3))
}
