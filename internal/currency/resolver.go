// Package currency converts amounts between the store base currency and the
// currencies of the active sales channel.
package currency

import (
	"context"
	"errors"
	"fmt"

	"checkout-engine/internal/model"
	"checkout-engine/internal/money"
	"checkout-engine/internal/retry"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// rateScale is the precision kept for cross rates before amounts are rounded.
const rateScale = 10

// ChannelSource returns the active default sales channel, or nil when none exists.
type ChannelSource interface {
	GetActive(ctx context.Context) (*model.SalesChannel, error)
}

// Resolver looks up exchange rates with the base currency as pivot.
type Resolver struct {
	channels ChannelSource
	snapshot Snapshot
	base     string
	retry    retry.Config
	logger   zerolog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSnapshot sets the static fallback rates.
func WithSnapshot(s Snapshot) Option {
	return func(r *Resolver) { r.snapshot = s }
}

// WithRetry overrides the retry policy used for channel lookups.
func WithRetry(cfg retry.Config) Option {
	return func(r *Resolver) { r.retry = cfg }
}

// NewResolver creates a resolver pivoting on base.
func NewResolver(channels ChannelSource, base string, logger zerolog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		channels: channels,
		base:     base,
		retry:    retry.DefaultConfig(),
		logger:   logger.With().Str("component", "currency-resolver").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Base returns the store base currency.
func (r *Resolver) Base() string {
	return r.base
}

// Rate returns how many units of to one unit of from is worth.
func (r *Resolver) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	from, err := money.ParseCurrency(from)
	if err != nil {
		return decimal.Zero, model.ErrInvalidCurrency.Wrap(err)
	}
	to, err = money.ParseCurrency(to)
	if err != nil {
		return decimal.Zero, model.ErrInvalidCurrency.Wrap(err)
	}
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	channel, err := r.activeChannel(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	fromRate, err := r.pivotRate(channel, from)
	if err != nil {
		return decimal.Zero, err
	}
	toRate, err := r.pivotRate(channel, to)
	if err != nil {
		return decimal.Zero, err
	}

	return toRate.DivRound(fromRate, rateScale), nil
}

func (r *Resolver) activeChannel(ctx context.Context) (*model.SalesChannel, error) {
	if r.channels == nil {
		return nil, nil
	}
	channel, err := retry.Value(ctx, r.retry, func() (*model.SalesChannel, error) {
		ch, err := r.channels.GetActive(ctx)
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return nil, retry.Permanent(err)
		}
		return ch, err
	})
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to load active sales channel")
		return nil, fmt.Errorf("failed to load active sales channel: %w", err)
	}
	return channel, nil
}

func (r *Resolver) pivotRate(channel *model.SalesChannel, code string) (decimal.Decimal, error) {
	if code == r.base {
		return decimal.NewFromInt(1), nil
	}
	if channel != nil {
		if c, ok := channel.Currency(code); ok && c.ExchangeRate.IsPositive() {
			return c.ExchangeRate, nil
		}
	}
	if rate, ok := r.snapshot.Rate(code); ok {
		r.logger.Debug().Str("currency", code).Msg("using snapshot exchange rate")
		return rate, nil
	}

	if channel == nil {
		r.logger.Warn().Str("currency", code).Msg("no active sales channel and no snapshot rate")
		return decimal.Zero, model.ErrSalesChannelNotFound
	}
	r.logger.Warn().Str("currency", code).Msg("no exchange rate configured")
	return decimal.Zero, model.ErrExchangeRateUnavailable.WithMessage(fmt.Sprintf("no exchange rate for %s", code))
}
