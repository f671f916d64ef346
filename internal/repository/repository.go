package repository

import (
	"context"

	"checkout-engine/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// CartRuleRepository defines data access for automatically applied promotions.
type CartRuleRepository interface {
	// ListActive returns rules whose stored status is active, in creation order.
	ListActive(ctx context.Context) ([]*model.CartRule, error)

	// GetByID retrieves a rule, or nil when it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.CartRule, error)

	// Save inserts or updates a rule after refreshing its status.
	Save(ctx context.Context, rule *model.CartRule) error

	// IncrementUsage atomically bumps times_used while the rule is still under its limit.
	// It returns ErrPromotionUnavailable when the rule can no longer be used.
	IncrementUsage(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

// CouponRepository defines data access for coupon codes.
type CouponRepository interface {
	// GetByCode looks a coupon up case-insensitively, returning nil when absent.
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)

	// Save inserts or updates a coupon after refreshing its status.
	Save(ctx context.Context, c *model.Coupon) error

	// CountCustomerRedemptions counts orders a customer has placed with the coupon.
	CountCustomerRedemptions(ctx context.Context, couponID uuid.UUID, customerID string) (int, error)

	// Redeem atomically consumes one use of the coupon inside tx.
	// It returns ErrUsageLimitExceeded when no use is left.
	Redeem(ctx context.Context, tx pgx.Tx, id uuid.UUID) (int, error)
}

// TaxRateRepository defines data access for tax rates.
type TaxRateRepository interface {
	ListSpecificByCountry(ctx context.Context, countryID string) ([]model.TaxRate, error)
	GetDefault(ctx context.Context) (*model.TaxRate, error)

	// Create inserts a rate. A second default rate fails with ErrDuplicateDefaultTax.
	Create(ctx context.Context, rate *model.TaxRate) error
}

// ShippingMethodRepository defines data access for shipping methods.
type ShippingMethodRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.ShippingMethod, error)
	Create(ctx context.Context, method *model.ShippingMethod) error
}

// SalesChannelRepository defines data access for sales channels and their currencies.
type SalesChannelRepository interface {
	// GetActive returns the active default channel, or nil when none is configured.
	GetActive(ctx context.Context) (*model.SalesChannel, error)

	// Create inserts a channel with its currencies. A second default channel
	// fails with ErrDuplicateDefaultChannel.
	Create(ctx context.Context, channel *model.SalesChannel) error
}

// CartRepository defines data access for carts.
type CartRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Cart, error)
	Create(ctx context.Context, cart *model.Cart) error

	// UpdateCoupon stores or clears the cart's coupon annotation.
	UpdateCoupon(ctx context.Context, id uuid.UUID, code *string, discount decimal.Decimal) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order by its ID along with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
}

// PaymentMethodRepository defines data access for payment methods.
type PaymentMethodRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.PaymentMethod, error)
	Create(ctx context.Context, method *model.PaymentMethod) error
}

// PaymentTransactionRepository defines data access for gateway transactions.
type PaymentTransactionRepository interface {
	// Upsert records a transaction keyed by gateway and reference. A succeeded
	// transaction is never moved back to another status.
	Upsert(ctx context.Context, txn *model.PaymentTransaction) (*model.PaymentTransaction, error)

	// ListForOrder returns an order's transactions, oldest first.
	ListForOrder(ctx context.Context, orderID uuid.UUID) ([]model.PaymentTransaction, error)
}
