package services

import (
	"github.com/farellandr/ticketgate/internal/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type Quote struct {
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
	Discount  decimal.Decimal
	Total     decimal.Decimal
}

// PriceOrder applies coupon to quantity tickets at unitPrice. A percentage
// coupon of value V removes subtotal*V/100, a fixed coupon removes V, and the
// total never goes below zero.
func PriceOrder(unitPrice decimal.Decimal, quantity int, coupon *models.Coupon) Quote {
	subtotal := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	discount := decimal.Zero
	if coupon != nil {
		switch coupon.Type {
		case models.DiscountPercentage:
			discount = subtotal.Mul(coupon.Value).Div(hundred).Round(2)
		case models.DiscountFixed:
			discount = coupon.Value
		}
	}

	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Quote{
		UnitPrice: unitPrice,
		Subtotal:  subtotal,
		Discount:  discount,
		Total:     total,
	}
}
