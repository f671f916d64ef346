package model

import "errors"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Success       bool   `json:"success"`
	Error         string `json:"error"`
	Code          string `json:"code,omitempty"`
	Expired       bool   `json:"expired,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// ErrorKind classifies domain errors so transports can map them consistently.
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindNotFound        ErrorKind = "not_found"
	KindConflict        ErrorKind = "conflict"
	KindExternalAdapter ErrorKind = "external_adapter"
	KindInvalidToken    ErrorKind = "invalid_token"
)

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON             = "INVALID_JSON"
	ErrCodeMissingField            = "MISSING_FIELD"
	ErrCodeInvalidCart             = "INVALID_CART"
	ErrCodeInvalidCurrency         = "INVALID_CURRENCY"
	ErrCodeCartNotFound            = "CART_NOT_FOUND"
	ErrCodeCouponNotFound          = "COUPON_NOT_FOUND"
	ErrCodeCouponInactive          = "COUPON_INACTIVE"
	ErrCodeCouponMinimumNotMet     = "COUPON_MINIMUM_NOT_MET"
	ErrCodeUsageLimitExceeded      = "USAGE_LIMIT_EXCEEDED"
	ErrCodePromotionUnavailable    = "PROMOTION_UNAVAILABLE"
	ErrCodeShippingNotFound        = "SHIPPING_METHOD_NOT_FOUND"
	ErrCodeCountryMismatch         = "COUNTRY_MISMATCH"
	ErrCodeCityRequired            = "CITY_REQUIRED"
	ErrCodeNoCitiesConfigured      = "NO_CITIES_CONFIGURED"
	ErrCodeCityUnavailable         = "CITY_UNAVAILABLE"
	ErrCodeCountryRequired         = "COUNTRY_REQUIRED"
	ErrCodeExchangeRateUnavailable = "EXCHANGE_RATE_UNAVAILABLE"
	ErrCodeSalesChannelNotFound    = "SALES_CHANNEL_NOT_FOUND"
	ErrCodeDuplicateDefaultTax     = "DUPLICATE_DEFAULT_TAX_RATE"
	ErrCodeDuplicateDefaultChannel = "DUPLICATE_DEFAULT_SALES_CHANNEL"
	ErrCodeOrderNotFound           = "ORDER_NOT_FOUND"
	ErrCodePaymentMethodMissing    = "PAYMENT_METHOD_MISSING"
	ErrCodeNoCurrenciesConfigured  = "NO_CURRENCIES_CONFIGURED"
	ErrCodePaymentConfirmFailed    = "PAYMENT_CONFIRMATION_FAILED"
	ErrCodeUnsupportedAdapter      = "UNSUPPORTED_PAYMENT_ADAPTER"
	ErrCodeInvalidWebhook          = "INVALID_WEBHOOK"
	ErrCodeInvalidOrderKey         = "INVALID_ORDER_KEY"
	ErrCodeUnauthorised            = "UNAUTHORIZED"
	ErrCodeInternalError           = "INTERNAL_ERROR"
)

// DomainError is a business error carrying its taxonomy kind and a user-facing message.
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a domain error with the same code, so wrapped
// copies still match their sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Wrap returns a copy of e that carries cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	c := *e
	c.Err = cause
	return &c
}

// WithMessage returns a copy of e with a different user-facing message.
func (e *DomainError) WithMessage(message string) *DomainError {
	c := *e
	c.Message = message
	return &c
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// AsDomainError extracts the first DomainError in err's chain.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Common domain errors
var (
	ErrInvalidCart             = NewDomainError(KindValidation, ErrCodeInvalidCart, "cart must contain at least one item with a positive quantity")
	ErrInvalidCurrency         = NewDomainError(KindValidation, ErrCodeInvalidCurrency, "currency code is not a valid ISO 4217 code")
	ErrCountryRequired         = NewDomainError(KindValidation, ErrCodeCountryRequired, "destination country is required")
	ErrCityRequired            = NewDomainError(KindValidation, ErrCodeCityRequired, "a city is required for this shipping method")
	ErrCouponMinimumNotMet     = NewDomainError(KindValidation, ErrCodeCouponMinimumNotMet, "cart subtotal is below the coupon minimum purchase")
	ErrCouponInactive          = NewDomainError(KindValidation, ErrCodeCouponInactive, "coupon is not active")
	ErrCountryMismatch         = NewDomainError(KindValidation, ErrCodeCountryMismatch, "shipping method is not available for this country")
	ErrNoCitiesConfigured      = NewDomainError(KindValidation, ErrCodeNoCitiesConfigured, "shipping method has no cities configured")
	ErrCityUnavailable         = NewDomainError(KindValidation, ErrCodeCityUnavailable, "shipping is not available for this city")
	ErrNoCurrenciesConfigured  = NewDomainError(KindValidation, ErrCodeNoCurrenciesConfigured, "payment method has no supported currencies configured")
	ErrInvalidWebhook          = NewDomainError(KindValidation, ErrCodeInvalidWebhook, "webhook payload could not be verified")
	ErrCartNotFound            = NewDomainError(KindNotFound, ErrCodeCartNotFound, "cart not found")
	ErrCouponNotFound          = NewDomainError(KindNotFound, ErrCodeCouponNotFound, "coupon not found")
	ErrShippingMethodNotFound  = NewDomainError(KindNotFound, ErrCodeShippingNotFound, "shipping method not found")
	ErrSalesChannelNotFound    = NewDomainError(KindNotFound, ErrCodeSalesChannelNotFound, "no active sales channel")
	ErrExchangeRateUnavailable = NewDomainError(KindNotFound, ErrCodeExchangeRateUnavailable, "exchange rate unavailable")
	ErrOrderNotFound           = NewDomainError(KindNotFound, ErrCodeOrderNotFound, "order not found")
	ErrPaymentMethodMissing    = NewDomainError(KindNotFound, ErrCodePaymentMethodMissing, "payment method not found for order")
	ErrUsageLimitExceeded      = NewDomainError(KindConflict, ErrCodeUsageLimitExceeded, "coupon no longer available")
	ErrPromotionUnavailable    = NewDomainError(KindConflict, ErrCodePromotionUnavailable, "promotion no longer available")
	ErrDuplicateDefaultTax     = NewDomainError(KindConflict, ErrCodeDuplicateDefaultTax, "a default tax rate already exists")
	ErrDuplicateDefaultChannel = NewDomainError(KindConflict, ErrCodeDuplicateDefaultChannel, "a default sales channel already exists")
	ErrPaymentConfirmFailed    = NewDomainError(KindExternalAdapter, ErrCodePaymentConfirmFailed, "payment confirmation failed")
	ErrUnsupportedAdapter      = NewDomainError(KindExternalAdapter, ErrCodeUnsupportedAdapter, "payment adapter is not configured")
	ErrInvalidOrderKey         = NewDomainError(KindInvalidToken, ErrCodeInvalidOrderKey, "this link has expired")
)
