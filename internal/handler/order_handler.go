package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"checkout-engine/internal/model"
	"checkout-engine/internal/service"

	"github.com/rs/zerolog"
)

const defaultHeartbeat = 15 * time.Second

// statusResponse flattens an order status under the success flag storefront
// pollers expect.
type statusResponse struct {
	Success bool `json:"success"`
	model.OrderStatus
}

// OrderHandler handles order-key based order status requests.
type OrderHandler struct {
	service   service.OrderStatusService
	heartbeat time.Duration
	logger    zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderStatusService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service:   service,
		heartbeat: defaultHeartbeat,
		logger:    logger.With().Str("handler", "order").Logger(),
	}
}

// CheckStatus handles GET /orders/check-status?orderKey= requests.
func (h *OrderHandler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.URL.Query().Get("orderKey"))
	if key == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "orderKey is required", h.logger)
		return
	}

	status, err := h.service.CheckStatus(r.Context(), key)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Success: true, OrderStatus: *status})
}

// OrderReceived handles GET /checkout/order-received/{orderKey} requests.
func (h *OrderHandler) OrderReceived(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("orderKey")
	if key == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "orderKey is required", h.logger)
		return
	}

	receipt, err := h.service.OrderReceived(r.Context(), key, r.URL.Query().Get("locale"))
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, receipt)
}

// Events handles GET /orders/events?orderKey= by streaming payment updates as
// server-sent events until the order is paid or the client goes away.
func (h *OrderHandler) Events(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.URL.Query().Get("orderKey"))
	if key == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "orderKey is required", h.logger)
		return
	}

	current, updates, cancel, err := h.service.Watch(r.Context(), key)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}
	defer cancel()

	rc := http.NewResponseController(w)
	// The stream outlives the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, rc, "status", current); err != nil || current.IsPaid {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-updates:
			if !ok {
				return
			}
			if err := writeEvent(w, rc, "payment", evt.Transaction); err != nil {
				h.logger.Debug().Err(err).Msg("event stream closed")
				return
			}
			if evt.Transaction.Status == model.TransactionSucceeded {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, name string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload); err != nil {
		return err
	}
	return rc.Flush()
}
