package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Coupon struct {
	ID             string           `json:"id"`
	Code           string           `json:"code"`
	PercentOff     *decimal.Decimal `json:"percentOff,omitempty"`
	AmountOff      *int64           `json:"amountOff,omitempty"`
	Currency       string           `json:"currency"`
	StartsAt       *time.Time       `json:"startsAt,omitempty"`
	EndsAt         *time.Time       `json:"endsAt,omitempty"`
	Active         bool             `json:"active"`
	MaxRedemptions *int             `json:"maxRedemptions,omitempty"`
	TimesRedeemed  int              `json:"timesRedeemed"`
	PerUserLimit   *int             `json:"perUserLimit,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// WellFormed reports whether exactly one discount type is configured.
func (c Coupon) WellFormed() bool {
	return (c.PercentOff != nil) != (c.AmountOff != nil)
}

// NormalizeCouponCode trims and upper-cases a user supplied code.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
