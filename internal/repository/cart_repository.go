package repository

import (
	"context"
	"fmt"
	"time"

	"checkout-engine/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// cartRepository implements CartRepository using PostgreSQL.
type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

// GetByID retrieves a cart, or nil when it does not exist.
func (r *cartRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Cart, error) {
	query := `
		SELECT id, customer_id, customer_groups, currency, items, coupon_code, coupon_discount, created_at, updated_at
		FROM carts
		WHERE id = $1
	`

	var c model.Cart
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.CustomerID, &c.CustomerGroups, &c.Currency, &c.Items, &c.CouponCode, &c.CouponDiscount, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			r.logger.Debug().Str("cart_id", id.String()).Msg("cart not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("cart_id", id.String()).Msg("failed to query cart")
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}

	return &c, nil
}

// Create inserts a cart. Items are stored as JSONB.
func (r *cartRepository) Create(ctx context.Context, c *model.Cart) error {
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	items := c.Items
	if items == nil {
		items = []model.CartItem{}
	}

	query := `
		INSERT INTO carts (id, customer_id, customer_groups, currency, items, coupon_code, coupon_discount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.CustomerID, nonNil(c.CustomerGroups), c.Currency, items, c.CouponCode, c.CouponDiscount, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", c.ID.String()).Msg("failed to create cart")
		return fmt.Errorf("failed to create cart: %w", err)
	}
	return nil
}

// UpdateCoupon sets the cart's coupon annotation. A nil code clears it.
func (r *cartRepository) UpdateCoupon(ctx context.Context, id uuid.UUID, code *string, discount decimal.Decimal) error {
	query := `
		UPDATE carts
		SET coupon_code = $2, coupon_discount = $3, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, code, discount)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", id.String()).Msg("failed to update cart coupon")
		return fmt.Errorf("failed to update cart coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrCartNotFound
	}
	return nil
}
