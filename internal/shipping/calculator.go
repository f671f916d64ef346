// Package shipping prices delivery for a shipping method, destination and subtotal.
package shipping

import (
	"context"
	"fmt"
	"strings"

	"checkout-engine/internal/model"
	"checkout-engine/internal/money"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// MethodSource loads shipping methods. A missing method is returned as nil, nil.
type MethodSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.ShippingMethod, error)
}

// Calculator resolves shipping charges.
type Calculator struct {
	methods MethodSource
	logger  zerolog.Logger
}

// NewCalculator creates a shipping calculator.
func NewCalculator(methods MethodSource, logger zerolog.Logger) *Calculator {
	return &Calculator{
		methods: methods,
		logger:  logger.With().Str("component", "shipping-calculator").Logger(),
	}
}

// Cost loads the method and prices delivery to country/city for subtotal.
func (c *Calculator) Cost(ctx context.Context, methodID uuid.UUID, country, city string, subtotal decimal.Decimal) (model.ShippingQuote, error) {
	method, err := c.methods.GetByID(ctx, methodID)
	if err != nil {
		c.logger.Error().Err(err).Str("shipping_method_id", methodID.String()).Msg("failed to load shipping method")
		return model.ShippingQuote{}, fmt.Errorf("failed to load shipping method: %w", err)
	}
	if method == nil {
		return model.ShippingQuote{}, model.ErrShippingMethodNotFound
	}

	quote, err := Compute(method, country, city, subtotal)
	if err != nil {
		c.logger.Debug().
			Err(err).
			Str("shipping_method_id", methodID.String()).
			Str("country", country).
			Str("city", city).
			Msg("shipping not available")
		return model.ShippingQuote{}, err
	}
	return quote, nil
}

// Compute prices delivery with an already loaded method.
func Compute(method *model.ShippingMethod, country, city string, subtotal decimal.Decimal) (model.ShippingQuote, error) {
	if !strings.EqualFold(strings.TrimSpace(method.CountryID), strings.TrimSpace(country)) {
		return model.ShippingQuote{}, model.ErrCountryMismatch
	}

	cost := method.Cost
	threshold := method.FreeThreshold

	if method.CitiesType == model.CitiesSpecific {
		if strings.TrimSpace(city) == "" {
			return model.ShippingQuote{}, model.ErrCityRequired
		}
		if len(method.Cities) == 0 {
			return model.ShippingQuote{}, model.ErrNoCitiesConfigured
		}
		entry, ok := method.MatchCity(city)
		if !ok {
			return model.ShippingQuote{}, model.ErrCityUnavailable
		}
		if entry.Cost != nil {
			cost = *entry.Cost
		}
		if entry.FreeThreshold != nil {
			threshold = entry.FreeThreshold
		}
	}

	if threshold != nil && threshold.IsPositive() && subtotal.GreaterThanOrEqual(*threshold) {
		return model.FreeShipping(), nil
	}

	base := money.Round(cost)
	tax := decimal.Zero
	if method.Taxable {
		tax = money.Round(money.Percent(base, method.TaxRate))
	}

	return model.ShippingQuote{
		BaseCost: base,
		Tax:      tax,
		Total:    base.Add(tax),
		IsFree:   false,
	}, nil
}
