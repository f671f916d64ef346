package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"checkout-engine/internal/model"
	"checkout-engine/internal/money"
	"checkout-engine/internal/payment"
	"checkout-engine/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// defaultLocale is used for redirect URLs when the storefront sends none.
const defaultLocale = "en"

// AdapterRegistry resolves payment adapters by name.
type AdapterRegistry interface {
	Get(name string) (payment.Adapter, bool)
}

// SettlementDeps groups the collaborators of the settlement service.
type SettlementDeps struct {
	Orders         repository.OrderRepository
	PaymentMethods repository.PaymentMethodRepository
	Adapters       AdapterRegistry
	Rates          ExchangeRates
	Keys           OrderKeys
	OrderKeyTTL    time.Duration
	StorefrontURL  string
}

type settlementService struct {
	deps   SettlementDeps
	logger zerolog.Logger
}

// NewSettlementService creates a new settlement service.
func NewSettlementService(deps SettlementDeps, logger zerolog.Logger) SettlementService {
	deps.StorefrontURL = strings.TrimRight(deps.StorefrontURL, "/")
	return &settlementService{
		deps:   deps,
		logger: logger.With().Str("service", "settlement").Logger(),
	}
}

// Confirm picks the settlement currency for the order's payment method, mints
// the order key for the return page and hands the order to the adapter.
func (s *settlementService) Confirm(ctx context.Context, req *model.ConfirmPaymentRequest) (*model.ConfirmPaymentResponse, error) {
	ctx, span := tracer.Start(ctx, "settlement.Confirm")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", req.OrderID.String()))

	order, err := s.deps.Orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to load order: %w", err))
	}
	if order == nil {
		return nil, failSpan(span, model.ErrOrderNotFound)
	}

	method, err := s.deps.PaymentMethods.GetByID(ctx, order.PaymentMethodID)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to load payment method: %w", err))
	}
	if method == nil {
		return nil, failSpan(span, model.ErrPaymentMethodMissing)
	}
	if len(method.SupportedCurrencies) == 0 {
		return nil, failSpan(span, model.ErrNoCurrenciesConfigured)
	}

	amount, currency, err := s.settlementAmount(ctx, order, method)
	if err != nil {
		return nil, failSpan(span, err)
	}
	span.SetAttributes(
		attribute.String("payment.adapter", method.Adapter),
		attribute.String("payment.currency", currency),
	)

	adapter, ok := s.deps.Adapters.Get(method.Adapter)
	if !ok {
		s.logger.Error().Str("adapter", method.Adapter).Str("order_id", order.ID.String()).Msg("payment adapter not registered")
		return nil, failSpan(span, model.ErrUnsupportedAdapter)
	}

	locale := strings.TrimSpace(req.Locale)
	if locale == "" {
		locale = defaultLocale
	}
	key, err := s.deps.Keys.Mint(order.ID, order.PublicID, s.deps.OrderKeyTTL)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to mint order key: %w", err))
	}
	redirect := fmt.Sprintf("%s/%s/checkout/order-received/%s", s.deps.StorefrontURL, url.PathEscape(locale), url.PathEscape(key))

	result, err := adapter.Confirm(ctx, payment.ConfirmRequest{
		Amount:        amount,
		Currency:      currency,
		PublicOrderID: order.PublicID,
		RedirectURL:   redirect,
		Locale:        locale,
		Order:         order,
	})
	if err != nil || !result.Success {
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Str("public_id", order.PublicID).
			Str("adapter", adapter.Name()).
			Str("gateway_error", result.Error).
			Msg("payment confirmation failed")
		failure := model.ErrPaymentConfirmFailed
		if err != nil {
			failure = failure.Wrap(err)
		} else if result.Error != "" {
			failure = failure.WithMessage(result.Error)
		}
		return nil, failSpan(span, failure)
	}

	if result.RedirectTo != "" {
		redirect = result.RedirectTo
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("adapter", adapter.Name()).
		Str("amount", amount.String()).
		Str("currency", currency).
		Msg("payment confirmed with adapter")

	return &model.ConfirmPaymentResponse{
		Amount:         amount,
		Currency:       currency,
		RedirectTo:     redirect,
		ClientSecret:   result.ClientSecret,
		BillingAddress: order.BillingAddress,
	}, nil
}

// settlementAmount charges in the customer currency when the method supports it
// and otherwise converts the total into the method's first supported currency.
func (s *settlementService) settlementAmount(ctx context.Context, order *model.Order, method *model.PaymentMethod) (decimal.Decimal, string, error) {
	if method.Supports(order.CustomerCurrency) {
		return order.Total, strings.ToUpper(strings.TrimSpace(order.CustomerCurrency)), nil
	}

	fallback := strings.ToUpper(strings.TrimSpace(method.SupportedCurrencies[0]))
	rate, err := s.deps.Rates.Rate(ctx, order.CustomerCurrency, fallback)
	if err != nil {
		return decimal.Zero, "", err
	}
	amount := money.Round(order.Total.Mul(rate))

	s.logger.Warn().
		Str("order_id", order.ID.String()).
		Str("customer_currency", order.CustomerCurrency).
		Str("settlement_currency", fallback).
		Str("rate", rate.String()).
		Str("amount", amount.String()).
		Msg("payment method does not support customer currency, converting")

	return amount, fallback, nil
}
