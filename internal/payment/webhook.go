package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"checkout-engine/internal/model"
	"checkout-engine/internal/money"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
)

// Publisher fans payment events out to interested subscribers.
type Publisher interface {
	Publish(evt model.PaymentEvent)
}

// StripeWebhook verifies Stripe webhook deliveries and records PaymentIntent outcomes.
type StripeWebhook struct {
	secret    string
	store     TransactionStore
	publisher Publisher
	clock     func() time.Time
	logger    zerolog.Logger
}

// NewStripeWebhook creates a webhook processor.
func NewStripeWebhook(secret string, store TransactionStore, publisher Publisher, logger zerolog.Logger) *StripeWebhook {
	return &StripeWebhook{
		secret:    secret,
		store:     store,
		publisher: publisher,
		clock:     time.Now,
		logger:    logger.With().Str("component", "stripe-webhook").Logger(),
	}
}

// Handle verifies the signature header and applies the event. Events that do not
// concern PaymentIntents are acknowledged and ignored.
func (h *StripeWebhook) Handle(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEventWithOptions(payload, signature, h.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		h.logger.Warn().Err(err).Msg("rejected stripe webhook")
		return model.ErrInvalidWebhook.Wrap(err)
	}

	var status model.TransactionStatus
	switch string(event.Type) {
	case "payment_intent.succeeded":
		status = model.TransactionSucceeded
	case "payment_intent.payment_failed", "payment_intent.canceled":
		status = model.TransactionFailed
	case "payment_intent.processing", "payment_intent.created":
		status = model.TransactionPending
	default:
		h.logger.Debug().Str("event_type", string(event.Type)).Msg("ignoring stripe event")
		return nil
	}

	if event.Data == nil {
		return model.ErrInvalidWebhook.WithMessage("webhook event has no data")
	}
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return model.ErrInvalidWebhook.Wrap(fmt.Errorf("failed to decode payment intent: %w", err))
	}

	orderID, err := uuid.Parse(intent.Metadata["order_id"])
	if err != nil {
		h.logger.Warn().Str("payment_intent", intent.ID).Msg("payment intent has no order_id metadata")
		return nil
	}

	currency := strings.ToUpper(string(intent.Currency))
	amount, err := money.FromMinorUnits(intent.Amount, currency)
	if err != nil {
		return model.ErrInvalidWebhook.Wrap(err)
	}

	now := h.clock()
	txn, err := h.store.Upsert(ctx, &model.PaymentTransaction{
		ID:        uuid.New(),
		OrderID:   orderID,
		Gateway:   GatewayStripe,
		Reference: intent.ID,
		Status:    status,
		Amount:    amount,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Str("payment_intent", intent.ID).
			Msg("failed to record payment transaction")
		return fmt.Errorf("failed to record payment transaction: %w", err)
	}

	h.logger.Info().
		Str("order_id", orderID.String()).
		Str("payment_intent", intent.ID).
		Str("status", string(status)).
		Msg("payment transaction updated")

	if h.publisher != nil {
		h.publisher.Publish(model.PaymentEvent{OrderID: orderID, Transaction: *txn})
	}
	return nil
}
