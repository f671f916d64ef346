package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Address is a postal address captured at checkout.
type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// Order is the immutable snapshot taken when checkout completes. Amounts are in
// CustomerCurrency; BaseTotal keeps the grand total in the store currency.
type Order struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	PublicID         string          `json:"orderId" db:"public_id"`
	CartID           uuid.UUID       `json:"cartId" db:"cart_id"`
	CustomerID       string          `json:"customerId,omitempty" db:"customer_id"`
	Items            []OrderItem     `json:"items"`
	Subtotal         decimal.Decimal `json:"subtotal" db:"subtotal"`
	DiscountTotal    decimal.Decimal `json:"discountTotal" db:"discount_total"`
	ShippingTotal    decimal.Decimal `json:"shippingTotal" db:"shipping_total"`
	TaxTotal         decimal.Decimal `json:"taxTotal" db:"tax_total"`
	Total            decimal.Decimal `json:"total" db:"total"`
	CustomerCurrency string          `json:"customerCurrency" db:"customer_currency"`
	ExchangeRate     decimal.Decimal `json:"exchangeRate" db:"exchange_rate"`
	BaseCurrency     string          `json:"baseCurrency" db:"base_currency"`
	BaseTotal        decimal.Decimal `json:"baseTotal" db:"base_total"`
	CouponCode       *string         `json:"couponCode,omitempty" db:"coupon_code"`
	CouponID         *uuid.UUID      `json:"-" db:"coupon_id"`
	AppliedRuleIDs   []uuid.UUID     `json:"appliedRuleIds" db:"applied_rule_ids"`
	PaymentMethodID  uuid.UUID       `json:"paymentMethodId" db:"payment_method_id"`
	Country          string          `json:"country" db:"country"`
	City             string          `json:"city,omitempty" db:"city"`
	BillingAddress   Address         `json:"billingAddress" db:"billing_address"`
	CreatedAt        time.Time       `json:"createdAt" db:"created_at"`
}

// OrderItem represents a line item in an order.
type OrderItem struct {
	ID          uuid.UUID       `json:"-" db:"id"`
	OrderID     uuid.UUID       `json:"-" db:"order_id"`
	ProductID   string          `json:"productId" db:"product_id"`
	VariantID   *string         `json:"variantId,omitempty" db:"variant_id"`
	VariantText string          `json:"variantText,omitempty" db:"variant_text"`
	ImageURL    string          `json:"imageUrl,omitempty" db:"image_url"`
	Quantity    int             `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice" db:"unit_price"`
	LineTotal   decimal.Decimal `json:"lineTotal" db:"line_total"`
	IsGift      bool            `json:"isGift,omitempty" db:"is_gift"`
}

// QuoteRequest is the payload of POST /checkout/quote.
type QuoteRequest struct {
	CartID           uuid.UUID  `json:"cartId"`
	ShippingMethodID *uuid.UUID `json:"shippingMethodId,omitempty"`
	Country          string     `json:"country"`
	City             string     `json:"city,omitempty"`
	CustomerCurrency string     `json:"customerCurrency,omitempty"`
}

// Quote is the full price breakdown for a cart. Monetary fields are in Currency.
type Quote struct {
	CartID         uuid.UUID       `json:"cartId"`
	Currency       string          `json:"currency"`
	ExchangeRate   decimal.Decimal `json:"exchangeRate"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	RuleDiscount   decimal.Decimal `json:"ruleDiscount"`
	CouponDiscount decimal.Decimal `json:"couponDiscount"`
	Discount       decimal.Decimal `json:"discount"`
	Shipping       ShippingQuote   `json:"shipping"`
	Tax            TaxBreakdown    `json:"tax"`
	Total          decimal.Decimal `json:"total"`
	BaseTotal      decimal.Decimal `json:"baseTotal"`
	BaseCurrency   string          `json:"baseCurrency"`
	Rules          RuleEvaluation  `json:"rules"`
	CouponCode     *string         `json:"couponCode,omitempty"`
	CouponID       *uuid.UUID      `json:"-"`
}

// PlaceOrderRequest is the payload of POST /checkout/orders.
type PlaceOrderRequest struct {
	QuoteRequest
	PaymentMethodID uuid.UUID `json:"paymentMethodId"`
	BillingAddress  Address   `json:"billingAddress"`
}

// PlaceOrderResponse identifies a newly created order.
type PlaceOrderResponse struct {
	OrderID  uuid.UUID `json:"orderId"`
	PublicID string    `json:"publicOrderId"`
	OrderKey string    `json:"orderKey"`
	Total    string    `json:"total"`
	Currency string    `json:"currency"`
}

// OrderKeyClaims is what an order key resolves to.
type OrderKeyClaims struct {
	OrderID   uuid.UUID
	PublicID  string
	ExpiresAt time.Time
}

// OrderReceipt is the order-received page payload.
type OrderReceipt struct {
	PublicID       string      `json:"orderId"`
	Currency       string      `json:"currency"`
	Subtotal       string      `json:"subtotal"`
	Discount       string      `json:"discount"`
	Shipping       string      `json:"shipping"`
	Tax            string      `json:"tax"`
	Total          string      `json:"total"`
	Items          []OrderItem `json:"items"`
	BillingAddress Address     `json:"billingAddress"`
	Payment        OrderStatus `json:"payment"`
	CreatedAt      time.Time   `json:"createdAt"`
}
