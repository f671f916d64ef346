package handler

import (
	"context"

	"checkout-engine/internal/model"

	"github.com/stretchr/testify/mock"
)

// MockCheckoutService is a mock implementation of service.CheckoutService.
type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) ApplyCoupon(ctx context.Context, req *model.ApplyCouponRequest) (*model.Cart, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Cart), args.Error(1)
}

func (m *MockCheckoutService) TaxRates(ctx context.Context, country string) (model.TaxRates, error) {
	args := m.Called(ctx, country)
	return args.Get(0).(model.TaxRates), args.Error(1)
}

func (m *MockCheckoutService) Quote(ctx context.Context, req *model.QuoteRequest) (*model.Quote, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Quote), args.Error(1)
}

func (m *MockCheckoutService) PlaceOrder(ctx context.Context, req *model.PlaceOrderRequest) (*model.PlaceOrderResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PlaceOrderResponse), args.Error(1)
}

// MockSettlementService is a mock implementation of service.SettlementService.
type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) Confirm(ctx context.Context, req *model.ConfirmPaymentRequest) (*model.ConfirmPaymentResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConfirmPaymentResponse), args.Error(1)
}

// MockOrderStatusService is a mock implementation of service.OrderStatusService.
type MockOrderStatusService struct {
	mock.Mock
}

func (m *MockOrderStatusService) CheckStatus(ctx context.Context, orderKey string) (*model.OrderStatus, error) {
	args := m.Called(ctx, orderKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderStatus), args.Error(1)
}

func (m *MockOrderStatusService) OrderReceived(ctx context.Context, orderKey, locale string) (*model.OrderReceipt, error) {
	args := m.Called(ctx, orderKey, locale)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderReceipt), args.Error(1)
}

func (m *MockOrderStatusService) Watch(ctx context.Context, orderKey string) (*model.OrderStatus, <-chan model.PaymentEvent, func(), error) {
	args := m.Called(ctx, orderKey)
	if args.Error(3) != nil {
		return nil, nil, func() {}, args.Error(3)
	}
	return args.Get(0).(*model.OrderStatus), args.Get(1).(<-chan model.PaymentEvent), args.Get(2).(func()), nil
}

// MockWebhook is a mock implementation of WebhookProcessor.
type MockWebhook struct {
	mock.Mock
}

func (m *MockWebhook) Handle(ctx context.Context, payload []byte, signature string) error {
	args := m.Called(ctx, payload, signature)
	return args.Error(0)
}
