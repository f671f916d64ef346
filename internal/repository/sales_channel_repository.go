package repository

import (
	"context"
	"fmt"
	"time"

	"checkout-engine/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// salesChannelRepository implements SalesChannelRepository using PostgreSQL.
type salesChannelRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewSalesChannelRepository creates a new PostgreSQL-backed sales channel repository.
func NewSalesChannelRepository(pool *pgxpool.Pool, logger zerolog.Logger) SalesChannelRepository {
	return &salesChannelRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "sales_channel").Logger(),
	}
}

// GetActive returns the active default channel and its currencies.
func (r *salesChannelRepository) GetActive(ctx context.Context) (*model.SalesChannel, error) {
	channelQuery := `
		SELECT id, name, is_default, active, created_at
		FROM sales_channels
		WHERE is_default AND active
	`

	var ch model.SalesChannel
	err := r.pool.QueryRow(ctx, channelQuery).Scan(&ch.ID, &ch.Name, &ch.IsDefault, &ch.Active, &ch.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			r.logger.Debug().Msg("no active sales channel")
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to query sales channel")
		return nil, fmt.Errorf("failed to query sales channel: %w", err)
	}

	currencyQuery := `
		SELECT code, exchange_rate, is_default
		FROM channel_currencies
		WHERE channel_id = $1
		ORDER BY is_default DESC, code
	`

	rows, err := r.pool.Query(ctx, currencyQuery, ch.ID)
	if err != nil {
		r.logger.Error().Err(err).Str("channel_id", ch.ID.String()).Msg("failed to query channel currencies")
		return nil, fmt.Errorf("failed to query channel currencies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c model.Currency
		if err := rows.Scan(&c.Code, &c.ExchangeRate, &c.IsDefault); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan channel currency row")
			return nil, fmt.Errorf("failed to scan channel currency: %w", err)
		}
		ch.Currencies = append(ch.Currencies, c)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating channel currency rows")
		return nil, fmt.Errorf("error iterating channel currencies: %w", err)
	}

	return &ch, nil
}

// Create inserts the channel and its currencies in one transaction.
func (r *salesChannelRepository) Create(ctx context.Context, ch *model.SalesChannel) (err error) {
	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = time.Now()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				r.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO sales_channels (id, name, is_default, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, ch.ID, ch.Name, ch.IsDefault, ch.Active, ch.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "sales_channels_single_default") {
			r.logger.Info().Str("channel_id", ch.ID.String()).Msg("rejected second default sales channel")
			return model.ErrDuplicateDefaultChannel
		}
		r.logger.Error().Err(err).Str("channel_id", ch.ID.String()).Msg("failed to create sales channel")
		return fmt.Errorf("failed to create sales channel: %w", err)
	}

	batch := &pgx.Batch{}
	for _, c := range ch.Currencies {
		batch.Queue(`
			INSERT INTO channel_currencies (channel_id, code, exchange_rate, is_default)
			VALUES ($1, $2, $3, $4)
		`, ch.ID, c.Code, c.ExchangeRate, c.IsDefault)
	}

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < len(ch.Currencies); i++ {
		if _, err = results.Exec(); err != nil {
			results.Close()
			if isUniqueViolation(err, "channel_currencies_single_default") {
				return model.NewDomainError(model.KindConflict, model.ErrCodeDuplicateDefaultChannel,
					"a sales channel can only have one default currency")
			}
			r.logger.Error().Err(err).Str("currency", ch.Currencies[i].Code).Msg("failed to create channel currency")
			return fmt.Errorf("failed to create channel currency: %w", err)
		}
	}
	if err = results.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Msg("failed to commit transaction")
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Info().
		Str("channel_id", ch.ID.String()).
		Int("currencies", len(ch.Currencies)).
		Msg("sales channel created")

	return nil
}
