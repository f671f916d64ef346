package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType selects how a discount value is interpreted.
type DiscountType string

const (
	DiscountFixed      DiscountType = "fixed"
	DiscountPercentage DiscountType = "percentage"
)

// Coupon is a customer-entered promotion code.
type Coupon struct {
	ID               uuid.UUID       `json:"id"`
	Code             string          `json:"code"`
	DiscountType     DiscountType    `json:"discountType"`
	DiscountValue    decimal.Decimal `json:"discountValue"`
	MinimumPurchase  decimal.Decimal `json:"minimumPurchase"`
	UsageLimit       *int            `json:"usageLimit,omitempty"`
	UsagePerCustomer *int            `json:"usagePerCustomer,omitempty"`
	TimesUsed        int             `json:"timesUsed"`
	Status           PromotionStatus `json:"status"`
	ValidFrom        *time.Time      `json:"validFrom,omitempty"`
	ValidUntil       *time.Time      `json:"validUntil,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// RefreshStatus applies the same expiry and usage-limit transitions as cart rules.
func (c *Coupon) RefreshStatus(now time.Time) {
	c.Status = refreshStatus(c.Status, now, c.ValidUntil, c.UsageLimit, c.TimesUsed)
}

// CheckRedeemable verifies the coupon may be used by a customer with the given
// number of prior redemptions. It does not look at the cart subtotal.
func (c *Coupon) CheckRedeemable(now time.Time, customerRedemptions int) error {
	status := refreshStatus(c.Status, now, c.ValidUntil, c.UsageLimit, c.TimesUsed)
	switch status {
	case StatusActive:
	case StatusInactive:
		if c.UsageLimit != nil && c.TimesUsed >= *c.UsageLimit {
			return ErrUsageLimitExceeded
		}
		return ErrCouponInactive
	default:
		return ErrCouponInactive
	}

	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return ErrCouponInactive
	}
	if c.UsagePerCustomer != nil && customerRedemptions >= *c.UsagePerCustomer {
		return ErrUsageLimitExceeded
	}
	return nil
}

// ApplyCouponRequest is the payload of POST /cart/apply-coupon.
type ApplyCouponRequest struct {
	CartID uuid.UUID `json:"cartId"`
	Code   string    `json:"code"`
	Locale string    `json:"locale"`
}
