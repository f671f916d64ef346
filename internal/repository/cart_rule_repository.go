package repository

import (
	"context"
	"fmt"
	"time"

	"checkout-engine/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const cartRuleColumns = `
	id, name, rule_type, trigger_type, trigger_amount, trigger_quantity,
	trigger_products, trigger_collections, discount_type, discount_value,
	gift_product_id, gift_quantity, buy_product_id, buy_quantity,
	get_product_id, get_quantity, get_discount, applicability, customer_ids,
	customer_groups, priority, status, start_date, expiry_date, usage_limit,
	times_used, upsell_message, active_message, created_at, updated_at`

// cartRuleRepository implements CartRuleRepository using PostgreSQL.
type cartRuleRepository struct {
	pool   *pgxpool.Pool
	now    func() time.Time
	logger zerolog.Logger
}

// NewCartRuleRepository creates a new PostgreSQL-backed cart rule repository.
func NewCartRuleRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRuleRepository {
	return &cartRuleRepository{
		pool:   pool,
		now:    time.Now,
		logger: logger.With().Str("repository", "cart_rule").Logger(),
	}
}

// ListActive returns rules stored as active. Rows that no longer parse are
// logged and skipped so one bad rule cannot block checkout.
func (r *cartRuleRepository) ListActive(ctx context.Context) ([]*model.CartRule, error) {
	query := `SELECT ` + cartRuleColumns + `
		FROM cart_rules
		WHERE status = 'active'
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query active cart rules")
		return nil, fmt.Errorf("failed to query active cart rules: %w", err)
	}
	defer rows.Close()

	rules := make([]*model.CartRule, 0)
	for rows.Next() {
		rec, err := scanCartRule(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart rule row")
			return nil, fmt.Errorf("failed to scan cart rule: %w", err)
		}
		rule, err := model.NewCartRule(rec)
		if err != nil {
			r.logger.Warn().Err(err).Str("rule_id", rec.ID.String()).Msg("skipping malformed cart rule")
			continue
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating cart rule rows")
		return nil, fmt.Errorf("error iterating cart rules: %w", err)
	}

	return rules, nil
}

// GetByID retrieves a rule, or nil when it does not exist.
func (r *cartRuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.CartRule, error) {
	query := `SELECT ` + cartRuleColumns + ` FROM cart_rules WHERE id = $1`

	rec, err := scanCartRule(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			r.logger.Debug().Str("rule_id", id.String()).Msg("cart rule not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("rule_id", id.String()).Msg("failed to query cart rule")
		return nil, fmt.Errorf("failed to query cart rule: %w", err)
	}

	rule, err := model.NewCartRule(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to build cart rule: %w", err)
	}
	return rule, nil
}

// Save upserts the rule. Status transitions are applied first so a rule past
// its expiry or usage limit is never written back as active.
func (r *cartRuleRepository) Save(ctx context.Context, rule *model.CartRule) error {
	now := r.now()
	rule.RefreshStatus(now)
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	if rule.StartDate.IsZero() {
		rule.StartDate = rule.CreatedAt
	}
	rule.UpdatedAt = now
	rec := rule.Record()

	query := `
		INSERT INTO cart_rules (` + cartRuleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			rule_type = EXCLUDED.rule_type,
			trigger_type = EXCLUDED.trigger_type,
			trigger_amount = EXCLUDED.trigger_amount,
			trigger_quantity = EXCLUDED.trigger_quantity,
			trigger_products = EXCLUDED.trigger_products,
			trigger_collections = EXCLUDED.trigger_collections,
			discount_type = EXCLUDED.discount_type,
			discount_value = EXCLUDED.discount_value,
			gift_product_id = EXCLUDED.gift_product_id,
			gift_quantity = EXCLUDED.gift_quantity,
			buy_product_id = EXCLUDED.buy_product_id,
			buy_quantity = EXCLUDED.buy_quantity,
			get_product_id = EXCLUDED.get_product_id,
			get_quantity = EXCLUDED.get_quantity,
			get_discount = EXCLUDED.get_discount,
			applicability = EXCLUDED.applicability,
			customer_ids = EXCLUDED.customer_ids,
			customer_groups = EXCLUDED.customer_groups,
			priority = EXCLUDED.priority,
			status = EXCLUDED.status,
			start_date = EXCLUDED.start_date,
			expiry_date = EXCLUDED.expiry_date,
			usage_limit = EXCLUDED.usage_limit,
			times_used = EXCLUDED.times_used,
			upsell_message = EXCLUDED.upsell_message,
			active_message = EXCLUDED.active_message,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.Name, rec.RuleType, rec.TriggerType, nullDecimal(rec.TriggerAmount), rec.TriggerQuantity,
		nonNil(rec.TriggerProducts), nonNil(rec.TriggerCollections), rec.DiscountType, rec.DiscountValue,
		rec.GiftProductID, rec.GiftQuantity, rec.BuyProductID, rec.BuyQuantity,
		rec.GetProductID, rec.GetQuantity, rec.GetDiscount, rec.Applicability, nonNil(rec.CustomerIDs),
		nonNil(rec.CustomerGroups), rec.Priority, rec.Status, rec.StartDate, rec.ExpiryDate, rec.UsageLimit,
		rec.TimesUsed, rec.UpsellMessage, rec.ActiveMessage, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("rule_id", rec.ID.String()).Msg("failed to save cart rule")
		return fmt.Errorf("failed to save cart rule: %w", err)
	}

	r.logger.Debug().
		Str("rule_id", rec.ID.String()).
		Str("status", string(rec.Status)).
		Msg("cart rule saved")

	return nil
}

// IncrementUsage is a compare-and-swap on times_used. The rule flips to
// inactive in the same statement when the increment reaches the limit.
func (r *cartRuleRepository) IncrementUsage(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	query := `
		UPDATE cart_rules
		SET times_used = times_used + 1,
		    status = CASE
		        WHEN usage_limit IS NOT NULL AND times_used + 1 >= usage_limit THEN 'inactive'
		        ELSE status
		    END,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'active'
		  AND (usage_limit IS NULL OR times_used < usage_limit)
		  AND (expiry_date IS NULL OR expiry_date >= NOW())
		RETURNING times_used
	`

	var used int
	if err := tx.QueryRow(ctx, query, id).Scan(&used); err != nil {
		if isNoRows(err) {
			r.logger.Info().Str("rule_id", id.String()).Msg("cart rule usage limit reached")
			return model.ErrPromotionUnavailable
		}
		r.logger.Error().Err(err).Str("rule_id", id.String()).Msg("failed to increment cart rule usage")
		return fmt.Errorf("failed to increment cart rule usage: %w", err)
	}

	r.logger.Debug().Str("rule_id", id.String()).Int("times_used", used).Msg("cart rule usage incremented")
	return nil
}

func scanCartRule(row rowScanner) (model.CartRuleRecord, error) {
	var (
		rec           model.CartRuleRecord
		triggerAmount decimal.NullDecimal
	)
	err := row.Scan(
		&rec.ID, &rec.Name, &rec.RuleType, &rec.TriggerType, &triggerAmount, &rec.TriggerQuantity,
		&rec.TriggerProducts, &rec.TriggerCollections, &rec.DiscountType, &rec.DiscountValue,
		&rec.GiftProductID, &rec.GiftQuantity, &rec.BuyProductID, &rec.BuyQuantity,
		&rec.GetProductID, &rec.GetQuantity, &rec.GetDiscount, &rec.Applicability, &rec.CustomerIDs,
		&rec.CustomerGroups, &rec.Priority, &rec.Status, &rec.StartDate, &rec.ExpiryDate, &rec.UsageLimit,
		&rec.TimesUsed, &rec.UpsellMessage, &rec.ActiveMessage, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return model.CartRuleRecord{}, err
	}
	rec.TriggerAmount = decimalPtr(triggerAmount)
	return rec, nil
}
