package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"checkout-engine/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const couponColumns = `
	id, code, discount_type, discount_value, minimum_purchase, usage_limit,
	usage_per_customer, times_used, status, valid_from, valid_until, created_at, updated_at`

// couponRepository implements CouponRepository using PostgreSQL.
type couponRepository struct {
	pool   *pgxpool.Pool
	now    func() time.Time
	logger zerolog.Logger
}

// NewCouponRepository creates a new PostgreSQL-backed coupon repository.
func NewCouponRepository(pool *pgxpool.Pool, logger zerolog.Logger) CouponRepository {
	return &couponRepository{
		pool:   pool,
		now:    time.Now,
		logger: logger.With().Str("repository", "coupon").Logger(),
	}
}

// GetByCode retrieves a coupon by code, ignoring case.
func (r *couponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE LOWER(code) = LOWER($1)`

	var c model.Coupon
	err := r.pool.QueryRow(ctx, query, strings.TrimSpace(code)).Scan(
		&c.ID, &c.Code, &c.DiscountType, &c.DiscountValue, &c.MinimumPurchase, &c.UsageLimit,
		&c.UsagePerCustomer, &c.TimesUsed, &c.Status, &c.ValidFrom, &c.ValidUntil, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			r.logger.Debug().Str("coupon_code", code).Msg("coupon not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("coupon_code", code).Msg("failed to query coupon")
		return nil, fmt.Errorf("failed to query coupon: %w", err)
	}

	return &c, nil
}

// Save upserts a coupon after applying its status transitions.
func (r *couponRepository) Save(ctx context.Context, c *model.Coupon) error {
	now := r.now()
	c.RefreshStatus(now)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	query := `
		INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			code = EXCLUDED.code,
			discount_type = EXCLUDED.discount_type,
			discount_value = EXCLUDED.discount_value,
			minimum_purchase = EXCLUDED.minimum_purchase,
			usage_limit = EXCLUDED.usage_limit,
			usage_per_customer = EXCLUDED.usage_per_customer,
			times_used = EXCLUDED.times_used,
			status = EXCLUDED.status,
			valid_from = EXCLUDED.valid_from,
			valid_until = EXCLUDED.valid_until,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Code, c.DiscountType, c.DiscountValue, c.MinimumPurchase, c.UsageLimit,
		c.UsagePerCustomer, c.TimesUsed, c.Status, c.ValidFrom, c.ValidUntil, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("coupon_code", c.Code).Msg("failed to save coupon")
		return fmt.Errorf("failed to save coupon: %w", err)
	}
	return nil
}

// CountCustomerRedemptions counts the customer's orders placed with the coupon.
func (r *couponRepository) CountCustomerRedemptions(ctx context.Context, couponID uuid.UUID, customerID string) (int, error) {
	query := `SELECT COUNT(*) FROM orders WHERE coupon_id = $1 AND customer_id = $2`

	var n int
	if err := r.pool.QueryRow(ctx, query, couponID, customerID).Scan(&n); err != nil {
		r.logger.Error().Err(err).Str("coupon_id", couponID.String()).Msg("failed to count coupon redemptions")
		return 0, fmt.Errorf("failed to count coupon redemptions: %w", err)
	}
	return n, nil
}

// Redeem consumes one use of the coupon. The WHERE guard makes the check and
// the increment a single atomic step, so concurrent orders cannot overshoot
// the usage limit.
func (r *couponRepository) Redeem(ctx context.Context, tx pgx.Tx, id uuid.UUID) (int, error) {
	query := `
		UPDATE coupons
		SET times_used = times_used + 1,
		    status = CASE
		        WHEN usage_limit IS NOT NULL AND times_used + 1 >= usage_limit THEN 'inactive'
		        ELSE status
		    END,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'active'
		  AND (usage_limit IS NULL OR times_used < usage_limit)
		  AND (valid_until IS NULL OR valid_until >= NOW())
		RETURNING times_used
	`

	var used int
	if err := tx.QueryRow(ctx, query, id).Scan(&used); err != nil {
		if isNoRows(err) {
			r.logger.Info().Str("coupon_id", id.String()).Msg("coupon usage limit reached")
			return 0, model.ErrUsageLimitExceeded
		}
		r.logger.Error().Err(err).Str("coupon_id", id.String()).Msg("failed to redeem coupon")
		return 0, fmt.Errorf("failed to redeem coupon: %w", err)
	}

	r.logger.Debug().Str("coupon_id", id.String()).Int("times_used", used).Msg("coupon redeemed")
	return used, nil
}
