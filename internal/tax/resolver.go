// Package tax resolves the tax rates that apply to a destination country.
package tax

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"checkout-engine/internal/model"
	"checkout-engine/internal/money"
	"checkout-engine/internal/retry"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RateSource reads configured tax rates.
type RateSource interface {
	// ListSpecificByCountry returns every specific rate bound to the country.
	ListSpecificByCountry(ctx context.Context, countryID string) ([]model.TaxRate, error)

	// GetDefault returns the store-wide default rate, or nil when none is configured.
	GetDefault(ctx context.Context) (*model.TaxRate, error)
}

// Resolver picks specific rates over the default one.
type Resolver struct {
	source RateSource
	retry  retry.Config
	logger zerolog.Logger
}

// NewResolver creates a tax resolver.
func NewResolver(source RateSource, cfg retry.Config, logger zerolog.Logger) *Resolver {
	return &Resolver{
		source: source,
		retry:  cfg,
		logger: logger.With().Str("component", "tax-resolver").Logger(),
	}
}

// Rates returns the rates for a country. Specific rates replace the default
// entirely and are never combined with it.
func (r *Resolver) Rates(ctx context.Context, countryID string) (model.TaxRates, error) {
	countryID = strings.TrimSpace(countryID)
	if countryID == "" {
		return model.TaxRates{}, model.ErrCountryRequired
	}

	specific, err := retry.Value(ctx, r.retry, func() ([]model.TaxRate, error) {
		rates, err := r.source.ListSpecificByCountry(ctx, countryID)
		return rates, permanentOnCancel(err)
	})
	if err != nil {
		r.logger.Error().Err(err).Str("country", countryID).Msg("failed to load specific tax rates")
		return model.TaxRates{}, fmt.Errorf("failed to load tax rates: %w", err)
	}
	if len(specific) > 0 {
		return model.TaxRates{Type: model.TaxTypeSpecific, Rates: specific}, nil
	}

	def, err := retry.Value(ctx, r.retry, func() (*model.TaxRate, error) {
		rate, err := r.source.GetDefault(ctx)
		return rate, permanentOnCancel(err)
	})
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to load default tax rate")
		return model.TaxRates{}, fmt.Errorf("failed to load default tax rate: %w", err)
	}
	if def != nil {
		return model.TaxRates{Type: model.TaxTypeDefault, Rates: []model.TaxRate{*def}}, nil
	}

	return model.TaxRates{Type: model.TaxTypeNone, Rates: []model.TaxRate{}}, nil
}

// Resolve computes the tax on taxable for a country.
func (r *Resolver) Resolve(ctx context.Context, countryID string, taxable decimal.Decimal) (model.TaxBreakdown, error) {
	rates, err := r.Rates(ctx, countryID)
	if err != nil {
		return model.TaxBreakdown{}, err
	}
	return Compute(rates, taxable), nil
}

// Compute applies already-resolved rates to an amount.
func Compute(rates model.TaxRates, taxable decimal.Decimal) model.TaxBreakdown {
	pct := rates.TotalPercentage()
	list := rates.Rates
	if list == nil {
		list = []model.TaxRate{}
	}
	return model.TaxBreakdown{
		Type:            rates.Type,
		Rates:           list,
		TotalPercentage: pct,
		Amount:          money.Round(money.Percent(money.ClampZero(taxable), pct)),
	}
}

func permanentOnCancel(err error) error {
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return retry.Permanent(err)
	}
	return err
}
