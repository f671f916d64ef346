// Package coupon computes coupon discounts and checks whether a code can be redeemed.
package coupon

import (
	"context"

	"checkout-engine/internal/model"
	"checkout-engine/internal/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Amount computes a fixed or percentage discount against subtotal. Fixed
// amounts are returned as-is, even when they exceed the subtotal.
func Amount(discountType model.DiscountType, value, subtotal decimal.Decimal) decimal.Decimal {
	switch discountType {
	case model.DiscountFixed:
		return money.Round(value)
	case model.DiscountPercentage:
		return money.Round(money.Percent(subtotal, value))
	default:
		return decimal.Zero
	}
}

// Discount returns the coupon's discount for subtotal, or zero when the
// subtotal is below the coupon's minimum purchase. Usage limits are not checked here.
func Discount(c *model.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.LessThan(c.MinimumPurchase) {
		return decimal.Zero
	}
	return Amount(c.DiscountType, c.DiscountValue, subtotal)
}

// Source reads coupons and their redemption history.
type Source interface {
	// GetByCode returns the coupon for code, ignoring case, or nil when absent.
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)

	// CountCustomerRedemptions counts orders by customerID that used the coupon.
	CountCustomerRedemptions(ctx context.Context, couponID uuid.UUID, customerID string) (int, error)
}

// Redemption is a coupon that passed validation together with its discount.
type Redemption struct {
	Coupon     *model.Coupon
	Discount   decimal.Decimal
	MinimumMet bool
}

// Validator defines the interface for coupon validation.
type Validator interface {
	// Validate loads the coupon for code and checks status, validity window and
	// usage limits for the customer. A subtotal below the minimum purchase is not an
	// error: the redemption carries a zero discount and MinimumMet is false.
	Validate(ctx context.Context, code, customerID string, subtotal decimal.Decimal) (*Redemption, error)
}
