package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is a checkout payment option backed by an adapter.
type PaymentMethod struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	Adapter             string    `json:"adapter"`
	SupportedCurrencies []string  `json:"supportedCurrencies"`
	Active              bool      `json:"active"`
	CreatedAt           time.Time `json:"createdAt"`
}

// Supports reports whether the method can charge in code. ISO codes compare
// case-insensitively.
func (m *PaymentMethod) Supports(code string) bool {
	code = strings.TrimSpace(code)
	for _, c := range m.SupportedCurrencies {
		if strings.EqualFold(strings.TrimSpace(c), code) {
			return true
		}
	}
	return false
}

// TransactionStatus is the gateway-reported state of a payment.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionSucceeded TransactionStatus = "succeeded"
	TransactionFailed    TransactionStatus = "failed"
)

// PaymentTransaction records one gateway payment attempt for an order.
type PaymentTransaction struct {
	ID        uuid.UUID         `json:"id"`
	OrderID   uuid.UUID         `json:"orderId"`
	Gateway   string            `json:"gateway"`
	Reference string            `json:"reference"`
	Status    TransactionStatus `json:"status"`
	Amount    decimal.Decimal   `json:"amount"`
	Currency  string            `json:"currency"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// OrderStatus is the derived payment state of an order.
type OrderStatus struct {
	IsPaid        bool              `json:"isPaid"`
	PaymentAmount decimal.Decimal   `json:"paymentAmount"`
	Currency      string            `json:"currency,omitempty"`
	Status        TransactionStatus `json:"status"`
	// PollAfterMs tells pollers when to ask again. Omitted once paid.
	PollAfterMs int64 `json:"pollAfterMs,omitempty"`
}

// DeriveOrderStatus folds an order's transactions into its paid state. The
// order is paid once any transaction has succeeded.
func DeriveOrderStatus(txns []PaymentTransaction) OrderStatus {
	st := OrderStatus{PaymentAmount: decimal.Zero, Status: TransactionPending}
	sawFailed := false
	for _, t := range txns {
		switch t.Status {
		case TransactionSucceeded:
			st.IsPaid = true
			st.PaymentAmount = st.PaymentAmount.Add(t.Amount)
			st.Currency = t.Currency
		case TransactionFailed:
			sawFailed = true
		}
	}
	switch {
	case st.IsPaid:
		st.Status = TransactionSucceeded
	case sawFailed && !hasPending(txns):
		st.Status = TransactionFailed
	}
	return st
}

func hasPending(txns []PaymentTransaction) bool {
	for _, t := range txns {
		if t.Status == TransactionPending {
			return true
		}
	}
	return false
}

// PaymentEvent is published when a transaction changes state.
type PaymentEvent struct {
	OrderID     uuid.UUID          `json:"orderId"`
	Transaction PaymentTransaction `json:"transaction"`
}

// ConfirmPaymentRequest is the payload of POST /payment-method/confirm.
type ConfirmPaymentRequest struct {
	OrderID uuid.UUID `json:"orderId"`
	Locale  string    `json:"locale"`
}

// ConfirmPaymentResponse tells the storefront how much to charge and where to go next.
type ConfirmPaymentResponse struct {
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	RedirectTo     string          `json:"redirectTo"`
	ClientSecret   string          `json:"clientSecret,omitempty"`
	BillingAddress Address         `json:"billingAddress"`
}
