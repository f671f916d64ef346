package service

import (
	"context"
	"fmt"
	"time"

	"checkout-engine/internal/model"
	"checkout-engine/internal/money"
	"checkout-engine/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type statusService struct {
	orders       repository.OrderRepository
	transactions repository.PaymentTransactionRepository
	keys         OrderKeys
	events       PaymentEvents
	pollInterval time.Duration
	logger       zerolog.Logger
}

// NewOrderStatusService creates a new order status service.
func NewOrderStatusService(
	orders repository.OrderRepository,
	transactions repository.PaymentTransactionRepository,
	keys OrderKeys,
	events PaymentEvents,
	pollInterval time.Duration,
	logger zerolog.Logger,
) OrderStatusService {
	return &statusService{
		orders:       orders,
		transactions: transactions,
		keys:         keys,
		events:       events,
		pollInterval: pollInterval,
		logger:       logger.With().Str("service", "order_status").Logger(),
	}
}

// CheckStatus resolves the order key and derives the payment state. Unpaid
// orders carry the configured poll interval as a hint.
func (s *statusService) CheckStatus(ctx context.Context, orderKey string) (*model.OrderStatus, error) {
	claims, err := s.keys.Resolve(orderKey)
	if err != nil {
		return nil, err
	}
	st, err := s.status(ctx, claims.OrderID)
	if err != nil {
		return nil, err
	}
	if !st.IsPaid && s.pollInterval > 0 {
		st.PollAfterMs = s.pollInterval.Milliseconds()
	}
	return st, nil
}

// OrderReceived renders the order snapshot with amounts formatted for locale.
func (s *statusService) OrderReceived(ctx context.Context, orderKey, locale string) (*model.OrderReceipt, error) {
	ctx, span := tracer.Start(ctx, "status.OrderReceived")
	defer span.End()

	claims, err := s.keys.Resolve(orderKey)
	if err != nil {
		return nil, failSpan(span, err)
	}

	order, err := s.orders.GetByID(ctx, claims.OrderID)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to load order: %w", err))
	}
	if order == nil {
		// a valid key for a vanished order is treated like an expired link
		s.logger.Warn().Str("order_id", claims.OrderID.String()).Msg("order key points at missing order")
		return nil, failSpan(span, model.ErrInvalidOrderKey)
	}

	st, err := s.status(ctx, order.ID)
	if err != nil {
		return nil, failSpan(span, err)
	}

	if locale == "" {
		locale = defaultLocale
	}
	code := order.CustomerCurrency
	return &model.OrderReceipt{
		PublicID:       order.PublicID,
		Currency:       code,
		Subtotal:       money.Format(order.Subtotal, code, locale),
		Discount:       money.Format(order.DiscountTotal, code, locale),
		Shipping:       money.Format(order.ShippingTotal, code, locale),
		Tax:            money.Format(order.TaxTotal, code, locale),
		Total:          money.Format(order.Total, code, locale),
		Items:          order.Items,
		BillingAddress: order.BillingAddress,
		Payment:        *st,
		CreatedAt:      order.CreatedAt,
	}, nil
}

// Watch subscribes before reading the current status so no transition between
// the two is lost.
func (s *statusService) Watch(ctx context.Context, orderKey string) (*model.OrderStatus, <-chan model.PaymentEvent, func(), error) {
	claims, err := s.keys.Resolve(orderKey)
	if err != nil {
		return nil, nil, nil, err
	}

	events, cancel := s.events.Subscribe(claims.OrderID)
	st, err := s.status(ctx, claims.OrderID)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return st, events, cancel, nil
}

func (s *statusService) status(ctx context.Context, orderID uuid.UUID) (*model.OrderStatus, error) {
	txns, err := s.transactions.ListForOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment transactions: %w", err)
	}
	st := model.DeriveOrderStatus(txns)
	return &st, nil
}
