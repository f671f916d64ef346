package repository

import (
	"context"
	"fmt"

	"checkout-engine/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts the order snapshot within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (
			id, public_id, cart_id, customer_id, subtotal, discount_total, shipping_total,
			tax_total, total, customer_currency, exchange_rate, base_currency, base_total,
			coupon_code, coupon_id, applied_rule_ids, payment_method_id, country, city,
			billing_address, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	ruleIDs := order.AppliedRuleIDs
	if ruleIDs == nil {
		ruleIDs = []uuid.UUID{}
	}

	_, err := tx.Exec(ctx, query,
		order.ID, order.PublicID, order.CartID, order.CustomerID, order.Subtotal, order.DiscountTotal, order.ShippingTotal,
		order.TaxTotal, order.Total, order.CustomerCurrency, order.ExchangeRate, order.BaseCurrency, order.BaseTotal,
		order.CouponCode, order.CouponID, ruleIDs, order.PaymentMethodID, order.Country, order.City,
		order.BillingAddress, order.CreatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("public_id", order.PublicID).
		Msg("order created successfully")

	return nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (id, order_id, product_id, variant_id, variant_text, image_url, quantity, unit_price, line_total, is_gift)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query,
			item.ID, item.OrderID, item.ProductID, item.VariantID, item.VariantText, item.ImageURL,
			item.Quantity, item.UnitPrice, item.LineTotal, item.IsGift,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("product_id", items[i].ProductID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	orderQuery := `
		SELECT id, public_id, cart_id, customer_id, subtotal, discount_total, shipping_total,
		       tax_total, total, customer_currency, exchange_rate, base_currency, base_total,
		       coupon_code, coupon_id, applied_rule_ids, payment_method_id, country, city,
		       billing_address, created_at
		FROM orders
		WHERE id = $1
	`

	var order model.Order
	err := r.pool.QueryRow(ctx, orderQuery, id).Scan(
		&order.ID, &order.PublicID, &order.CartID, &order.CustomerID, &order.Subtotal, &order.DiscountTotal, &order.ShippingTotal,
		&order.TaxTotal, &order.Total, &order.CustomerCurrency, &order.ExchangeRate, &order.BaseCurrency, &order.BaseTotal,
		&order.CouponCode, &order.CouponID, &order.AppliedRuleIDs, &order.PaymentMethodID, &order.Country, &order.City,
		&order.BillingAddress, &order.CreatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	itemsQuery := `
		SELECT id, order_id, product_id, variant_id, variant_text, image_url, quantity, unit_price, line_total, is_gift
		FROM order_items
		WHERE order_id = $1
		ORDER BY is_gift, product_id, id
	`

	rows, err := r.pool.Query(ctx, itemsQuery, id)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.VariantID, &item.VariantText, &item.ImageURL,
			&item.Quantity, &item.UnitPrice, &item.LineTotal, &item.IsGift,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return &order, nil
}
