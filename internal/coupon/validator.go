package coupon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"checkout-engine/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// validator implements Validator on top of a coupon Source.
type validator struct {
	source Source
	now    func() time.Time
	logger zerolog.Logger
}

// NewValidator creates a new coupon validator.
func NewValidator(source Source, now func() time.Time, logger zerolog.Logger) Validator {
	if now == nil {
		now = time.Now
	}
	return &validator{
		source: source,
		now:    now,
		logger: logger.With().Str("component", "coupon-validator").Logger(),
	}
}

// Validate loads and checks a coupon code.
func (v *validator) Validate(ctx context.Context, code, customerID string, subtotal decimal.Decimal) (*Redemption, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, model.ErrCouponNotFound
	}

	c, err := v.source.GetByCode(ctx, code)
	if err != nil {
		v.logger.Error().Err(err).Str("coupon_code", code).Msg("failed to load coupon")
		return nil, fmt.Errorf("failed to load coupon: %w", err)
	}
	if c == nil {
		v.logger.Debug().Str("coupon_code", code).Msg("coupon not found")
		return nil, model.ErrCouponNotFound
	}

	redemptions := 0
	if customerID != "" && c.UsagePerCustomer != nil {
		redemptions, err = v.source.CountCustomerRedemptions(ctx, c.ID, customerID)
		if err != nil {
			v.logger.Error().Err(err).Str("coupon_code", code).Msg("failed to count customer redemptions")
			return nil, fmt.Errorf("failed to count coupon redemptions: %w", err)
		}
	}

	if err := c.CheckRedeemable(v.now(), redemptions); err != nil {
		v.logger.Debug().
			Err(err).
			Str("coupon_code", code).
			Int("times_used", c.TimesUsed).
			Msg("coupon not redeemable")
		return nil, err
	}

	minimumMet := !subtotal.LessThan(c.MinimumPurchase)
	discount := Discount(c, subtotal)

	v.logger.Debug().
		Str("coupon_code", c.Code).
		Str("discount", discount.String()).
		Bool("minimum_met", minimumMet).
		Msg("coupon validated")

	return &Redemption{Coupon: c, Discount: discount, MinimumMet: minimumMet}, nil
}
