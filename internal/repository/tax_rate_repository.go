package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"checkout-engine/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// taxRateRepository implements TaxRateRepository using PostgreSQL.
type taxRateRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewTaxRateRepository creates a new PostgreSQL-backed tax rate repository.
func NewTaxRateRepository(pool *pgxpool.Pool, logger zerolog.Logger) TaxRateRepository {
	return &taxRateRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "tax_rate").Logger(),
	}
}

// ListSpecificByCountry returns every specific rate whose country set contains countryID.
func (r *taxRateRepository) ListSpecificByCountry(ctx context.Context, countryID string) ([]model.TaxRate, error) {
	query := `
		SELECT id, name, tax_type, percentage, country_ids, created_at
		FROM tax_rates
		WHERE tax_type = 'specific' AND country_ids @> ARRAY[$1]::text[]
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query, strings.ToUpper(strings.TrimSpace(countryID)))
	if err != nil {
		r.logger.Error().Err(err).Str("country", countryID).Msg("failed to query tax rates")
		return nil, fmt.Errorf("failed to query tax rates: %w", err)
	}
	defer rows.Close()

	rates := make([]model.TaxRate, 0)
	for rows.Next() {
		var rate model.TaxRate
		if err := rows.Scan(&rate.ID, &rate.Name, &rate.Type, &rate.Percentage, &rate.CountryIDs, &rate.CreatedAt); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan tax rate row")
			return nil, fmt.Errorf("failed to scan tax rate: %w", err)
		}
		rates = append(rates, rate)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating tax rate rows")
		return nil, fmt.Errorf("error iterating tax rates: %w", err)
	}

	return rates, nil
}

// GetDefault returns the store-wide default rate, or nil when none exists.
func (r *taxRateRepository) GetDefault(ctx context.Context) (*model.TaxRate, error) {
	query := `
		SELECT id, name, tax_type, percentage, country_ids, created_at
		FROM tax_rates
		WHERE tax_type = 'default'
	`

	var rate model.TaxRate
	err := r.pool.QueryRow(ctx, query).Scan(&rate.ID, &rate.Name, &rate.Type, &rate.Percentage, &rate.CountryIDs, &rate.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to query default tax rate")
		return nil, fmt.Errorf("failed to query default tax rate: %w", err)
	}
	return &rate, nil
}

// Create inserts a tax rate. The partial unique index on default rows turns a
// second default into ErrDuplicateDefaultTax.
func (r *taxRateRepository) Create(ctx context.Context, rate *model.TaxRate) error {
	if rate.CreatedAt.IsZero() {
		rate.CreatedAt = time.Now()
	}
	countries := make([]string, len(rate.CountryIDs))
	for i, c := range rate.CountryIDs {
		countries[i] = strings.ToUpper(strings.TrimSpace(c))
	}

	query := `
		INSERT INTO tax_rates (id, name, tax_type, percentage, country_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query, rate.ID, rate.Name, rate.Type, rate.Percentage, countries, rate.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "tax_rates_single_default") {
			r.logger.Info().Str("tax_rate_id", rate.ID.String()).Msg("rejected second default tax rate")
			return model.ErrDuplicateDefaultTax
		}
		r.logger.Error().Err(err).Str("tax_rate_id", rate.ID.String()).Msg("failed to create tax rate")
		return fmt.Errorf("failed to create tax rate: %w", err)
	}
	rate.CountryIDs = countries
	return nil
}
