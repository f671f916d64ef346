package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"checkout-engine/internal/model"
	"checkout-engine/internal/money"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// GatewayStripe is the adapter and transaction gateway name for Stripe.
const GatewayStripe = "stripe"

type paymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeConfig configures the Stripe adapter.
type StripeConfig struct {
	APIKey   string
	Backends *stripe.Backends
	Store    TransactionStore
	Clock    func() time.Time
	intents  paymentIntentAPI
}

// StripeAdapter creates PaymentIntents for orders.
type StripeAdapter struct {
	intents paymentIntentAPI
	store   TransactionStore
	clock   func() time.Time
	logger  zerolog.Logger
}

// NewStripeAdapter constructs the adapter from an API key.
func NewStripeAdapter(cfg StripeConfig, logger zerolog.Logger) (*StripeAdapter, error) {
	intents := cfg.intents
	if intents == nil {
		key := strings.TrimSpace(cfg.APIKey)
		if key == "" {
			return nil, errors.New("stripe: api key is required")
		}
		intents = client.New(key, cfg.Backends).PaymentIntents
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &StripeAdapter{
		intents: intents,
		store:   cfg.Store,
		clock:   clock,
		logger:  logger.With().Str("component", "stripe-adapter").Logger(),
	}, nil
}

// Name implements Adapter.
func (a *StripeAdapter) Name() string { return GatewayStripe }

// Confirm creates a PaymentIntent for the order and records it as pending.
func (a *StripeAdapter) Confirm(ctx context.Context, req ConfirmRequest) (ConfirmResult, error) {
	minor, err := money.ToMinorUnits(req.Amount, req.Currency)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("stripe: %w", err)
	}
	if minor <= 0 {
		return ConfirmResult{Success: false, Error: "amount must be positive"}, nil
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minor),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Description: stripe.String("Order " + req.PublicOrderID),
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey(req.PublicOrderID, req.Currency, minor))
	params.AddMetadata("public_order_id", req.PublicOrderID)
	if req.Order != nil {
		params.AddMetadata("order_id", req.Order.ID.String())
		if req.Order.BillingAddress.Email != "" {
			params.ReceiptEmail = stripe.String(req.Order.BillingAddress.Email)
		}
	}

	intent, err := a.intents.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			return ConfirmResult{Success: false, Error: stripeErr.Msg}, nil
		}
		return ConfirmResult{}, fmt.Errorf("stripe: create payment intent: %w", err)
	}

	if a.store != nil && req.Order != nil {
		now := a.clock()
		_, err := a.store.Upsert(ctx, &model.PaymentTransaction{
			ID:        uuid.New(),
			OrderID:   req.Order.ID,
			Gateway:   GatewayStripe,
			Reference: intent.ID,
			Status:    model.TransactionPending,
			Amount:    req.Amount,
			Currency:  strings.ToUpper(req.Currency),
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			a.logger.Error().Err(err).Str("payment_intent", intent.ID).Msg("failed to record pending transaction")
			return ConfirmResult{}, fmt.Errorf("stripe: record transaction: %w", err)
		}
	}

	a.logger.Info().
		Str("payment_intent", intent.ID).
		Str("public_order_id", req.PublicOrderID).
		Int64("amount_minor", minor).
		Str("currency", req.Currency).
		Msg("payment intent created")

	return ConfirmResult{
		Success:      true,
		RedirectTo:   req.RedirectURL,
		ClientSecret: intent.ClientSecret,
		Reference:    intent.ID,
	}, nil
}

// OfflineAdapter covers bank transfer and cash on delivery. Payment is collected
// outside any gateway, so confirmation always succeeds and the transaction stays pending.
type OfflineAdapter struct {
	name  string
	store TransactionStore
	clock func() time.Time
}

// NewOfflineAdapter creates an offline adapter registered under name.
func NewOfflineAdapter(name string, store TransactionStore, clock func() time.Time) *OfflineAdapter {
	if clock == nil {
		clock = time.Now
	}
	return &OfflineAdapter{name: name, store: store, clock: clock}
}

// Name implements Adapter.
func (a *OfflineAdapter) Name() string { return a.name }

// Confirm records a pending transaction and sends the customer straight to the return URL.
func (a *OfflineAdapter) Confirm(ctx context.Context, req ConfirmRequest) (ConfirmResult, error) {
	reference := a.name + "-" + req.PublicOrderID
	if a.store != nil && req.Order != nil {
		now := a.clock()
		_, err := a.store.Upsert(ctx, &model.PaymentTransaction{
			ID:        uuid.New(),
			OrderID:   req.Order.ID,
			Gateway:   a.name,
			Reference: reference,
			Status:    model.TransactionPending,
			Amount:    req.Amount,
			Currency:  req.Currency,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return ConfirmResult{}, fmt.Errorf("%s: record transaction: %w", a.name, err)
		}
	}
	return ConfirmResult{Success: true, RedirectTo: req.RedirectURL, Reference: reference}, nil
}

// idempotencyKey identifies one intent per order, currency and amount. A
// re-converted fallback amount must not reuse the earlier key.
func idempotencyKey(publicOrderID, currency string, minor int64) string {
	return "order-" + publicOrderID + "-" + strings.ToLower(currency) + "-" + strconv.FormatInt(minor, 10)
}
