package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"checkout-engine/internal/model"
	"checkout-engine/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxWebhookBytes matches the body limit Stripe documents for webhook deliveries.
const maxWebhookBytes = 64 << 10

// WebhookProcessor verifies and applies a gateway webhook delivery.
type WebhookProcessor interface {
	Handle(ctx context.Context, payload []byte, signature string) error
}

// PaymentHandler handles payment confirmation and gateway callbacks.
type PaymentHandler struct {
	service service.SettlementService
	webhook WebhookProcessor
	logger  zerolog.Logger
}

// NewPaymentHandler creates a new payment handler. webhook may be nil when no
// gateway with callbacks is configured.
func NewPaymentHandler(service service.SettlementService, webhook WebhookProcessor, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		webhook: webhook,
		logger:  logger.With().Str("handler", "payment").Logger(),
	}
}

// Confirm handles POST /payment-method/confirm requests.
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req model.ConfirmPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}
	if req.OrderID == uuid.Nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "orderId is required", h.logger)
		return
	}

	resp, err := h.service.Confirm(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// StripeWebhook handles POST /payments/webhook/stripe requests.
func (h *PaymentHandler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.webhook == nil {
		writeDomainError(w, r, model.ErrUnsupportedAdapter, h.logger)
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, model.ErrCodeInvalidWebhook, "webhook payload too large", h.logger)
			return
		}
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidWebhook, "failed to read webhook payload", h.logger)
		return
	}

	if err := h.webhook.Handle(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
