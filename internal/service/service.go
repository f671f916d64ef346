package service

import (
	"context"
	"time"

	"checkout-engine/internal/model"
	"checkout-engine/internal/rules"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("checkout-engine/internal/service")

// CheckoutService prices carts and turns them into orders.
type CheckoutService interface {
	// ApplyCoupon validates a code against the cart and stores the coupon annotation.
	ApplyCoupon(ctx context.Context, req *model.ApplyCouponRequest) (*model.Cart, error)

	// TaxRates returns the rates that apply to a destination country.
	TaxRates(ctx context.Context, country string) (model.TaxRates, error)

	// Quote computes the full price breakdown without persisting anything.
	Quote(ctx context.Context, req *model.QuoteRequest) (*model.Quote, error)

	// PlaceOrder prices the cart, consumes promotion usage and stores the order snapshot atomically.
	PlaceOrder(ctx context.Context, req *model.PlaceOrderRequest) (*model.PlaceOrderResponse, error)
}

// SettlementService hands orders to payment adapters.
type SettlementService interface {
	// Confirm decides the settlement currency and amount and starts payment collection.
	Confirm(ctx context.Context, req *model.ConfirmPaymentRequest) (*model.ConfirmPaymentResponse, error)
}

// OrderStatusService answers order-key based status queries.
type OrderStatusService interface {
	// CheckStatus derives the paid state of the order behind an order key.
	CheckStatus(ctx context.Context, orderKey string) (*model.OrderStatus, error)

	// OrderReceived builds the order-received page payload.
	OrderReceived(ctx context.Context, orderKey, locale string) (*model.OrderReceipt, error)

	// Watch subscribes to payment events for the order behind an order key and
	// returns the status at subscription time. cancel must always be called.
	Watch(ctx context.Context, orderKey string) (current *model.OrderStatus, events <-chan model.PaymentEvent, cancel func(), err error)
}

// RuleEvaluator evaluates the active cart rules.
type RuleEvaluator interface {
	EvaluateActive(ctx context.Context, in rules.Input) (model.RuleEvaluation, error)
}

// ShippingQuoter prices a shipping method for a destination.
type ShippingQuoter interface {
	Cost(ctx context.Context, methodID uuid.UUID, country, city string, subtotal decimal.Decimal) (model.ShippingQuote, error)
}

// TaxRateResolver looks up the tax rates for a country.
type TaxRateResolver interface {
	Rates(ctx context.Context, countryID string) (model.TaxRates, error)
}

// ExchangeRates resolves exchange rates around the store base currency.
type ExchangeRates interface {
	Base() string
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// OrderKeys mints and resolves order keys.
type OrderKeys interface {
	Mint(orderID uuid.UUID, publicID string, ttl time.Duration) (string, error)
	Resolve(token string) (model.OrderKeyClaims, error)
}

// PaymentEvents lets callers wait for payment updates on one order.
type PaymentEvents interface {
	Subscribe(orderID uuid.UUID) (<-chan model.PaymentEvent, func())
}

// failSpan marks the span as failed and returns err unchanged.
func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
