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

// shippingMethodRepository implements ShippingMethodRepository using PostgreSQL.
type shippingMethodRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewShippingMethodRepository creates a new PostgreSQL-backed shipping method repository.
func NewShippingMethodRepository(pool *pgxpool.Pool, logger zerolog.Logger) ShippingMethodRepository {
	return &shippingMethodRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "shipping_method").Logger(),
	}
}

// GetByID retrieves a shipping method with its city overrides, or nil when absent.
func (r *shippingMethodRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ShippingMethod, error) {
	query := `
		SELECT id, name, country_id, cost, free_threshold, taxable, tax_rate, cities_type, cities, created_at
		FROM shipping_methods
		WHERE id = $1
	`

	var (
		m         model.ShippingMethod
		threshold decimal.NullDecimal
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&m.ID, &m.Name, &m.CountryID, &m.Cost, &threshold, &m.Taxable, &m.TaxRate, &m.CitiesType, &m.Cities, &m.CreatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			r.logger.Debug().Str("shipping_method_id", id.String()).Msg("shipping method not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("shipping_method_id", id.String()).Msg("failed to query shipping method")
		return nil, fmt.Errorf("failed to query shipping method: %w", err)
	}
	m.FreeThreshold = decimalPtr(threshold)

	return &m, nil
}

// Create inserts a shipping method. Cities are stored as a JSONB array.
func (r *shippingMethodRepository) Create(ctx context.Context, m *model.ShippingMethod) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	if m.CitiesType == "" {
		m.CitiesType = model.CitiesAll
	}
	cities := m.Cities
	if cities == nil {
		cities = []model.ShippingCity{}
	}

	query := `
		INSERT INTO shipping_methods (id, name, country_id, cost, free_threshold, taxable, tax_rate, cities_type, cities, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		m.ID, m.Name, m.CountryID, m.Cost, nullDecimal(m.FreeThreshold), m.Taxable, m.TaxRate, m.CitiesType, cities, m.CreatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("shipping_method_id", m.ID.String()).Msg("failed to create shipping method")
		return fmt.Errorf("failed to create shipping method: %w", err)
	}
	return nil
}
