package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Coupon struct {
	Code      string          `gorm:"primary_key" json:"code"`
	Type      DiscountType    `gorm:"not null" json:"type"`
	Value     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"value"`
	CreatedAt time.Time       `json:"-"`
	UpdatedAt time.Time       `json:"-"`
}

// NormalizeCouponCode returns the canonical form coupons are keyed by.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// FullyFree reports whether the coupon waives the whole price.
func (coupon *Coupon) FullyFree() bool {
	return coupon.Type == DiscountPercentage && coupon.Value.Equal(decimal.NewFromInt(100))
}
