package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"checkout-engine/internal/model"
	"checkout-engine/internal/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// paymentMethodRepository implements PaymentMethodRepository using PostgreSQL.
type paymentMethodRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPaymentMethodRepository creates a new PostgreSQL-backed payment method repository.
func NewPaymentMethodRepository(pool *pgxpool.Pool, logger zerolog.Logger) PaymentMethodRepository {
	return &paymentMethodRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "payment_method").Logger(),
	}
}

// GetByID retrieves a payment method, or nil when absent.
func (r *paymentMethodRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PaymentMethod, error) {
	query := `
		SELECT id, name, adapter, supported_currencies, active, created_at
		FROM payment_methods
		WHERE id = $1
	`

	var m model.PaymentMethod
	err := r.pool.QueryRow(ctx, query, id).Scan(&m.ID, &m.Name, &m.Adapter, &m.SupportedCurrencies, &m.Active, &m.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			r.logger.Debug().Str("payment_method_id", id.String()).Msg("payment method not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("payment_method_id", id.String()).Msg("failed to query payment method")
		return nil, fmt.Errorf("failed to query payment method: %w", err)
	}
	for i, code := range m.SupportedCurrencies {
		m.SupportedCurrencies[i] = strings.ToUpper(strings.TrimSpace(code))
	}
	return &m, nil
}

// Create inserts a payment method. Currency order is preserved because the
// first supported currency is the settlement fallback.
func (r *paymentMethodRepository) Create(ctx context.Context, m *model.PaymentMethod) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	for i, code := range m.SupportedCurrencies {
		normalized, err := money.ParseCurrency(code)
		if err != nil {
			return model.ErrInvalidCurrency.Wrap(err)
		}
		m.SupportedCurrencies[i] = normalized
	}

	query := `
		INSERT INTO payment_methods (id, name, adapter, supported_currencies, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query, m.ID, m.Name, m.Adapter, nonNil(m.SupportedCurrencies), m.Active, m.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("payment_method_id", m.ID.String()).Msg("failed to create payment method")
		return fmt.Errorf("failed to create payment method: %w", err)
	}
	return nil
}

// paymentTransactionRepository implements PaymentTransactionRepository using PostgreSQL.
type paymentTransactionRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPaymentTransactionRepository creates a new PostgreSQL-backed transaction repository.
func NewPaymentTransactionRepository(pool *pgxpool.Pool, logger zerolog.Logger) PaymentTransactionRepository {
	return &paymentTransactionRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "payment_transaction").Logger(),
	}
}

// Upsert inserts or updates the transaction identified by gateway and reference.
// Webhooks may arrive out of order, so a succeeded row keeps its status.
func (r *paymentTransactionRepository) Upsert(ctx context.Context, txn *model.PaymentTransaction) (*model.PaymentTransaction, error) {
	now := time.Now()
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = now
	}
	if txn.UpdatedAt.IsZero() {
		txn.UpdatedAt = now
	}

	query := `
		INSERT INTO payment_transactions (id, order_id, gateway, reference, status, amount, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (gateway, reference) DO UPDATE SET
			status = CASE
				WHEN payment_transactions.status = 'succeeded' THEN payment_transactions.status
				ELSE EXCLUDED.status
			END,
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			updated_at = EXCLUDED.updated_at
		RETURNING id, order_id, gateway, reference, status, amount, currency, created_at, updated_at
	`

	var out model.PaymentTransaction
	err := r.pool.QueryRow(ctx, query,
		txn.ID, txn.OrderID, txn.Gateway, txn.Reference, txn.Status, txn.Amount, txn.Currency, txn.CreatedAt, txn.UpdatedAt,
	).Scan(&out.ID, &out.OrderID, &out.Gateway, &out.Reference, &out.Status, &out.Amount, &out.Currency, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", txn.OrderID.String()).
			Str("gateway", txn.Gateway).
			Str("reference", txn.Reference).
			Msg("failed to upsert payment transaction")
		return nil, fmt.Errorf("failed to upsert payment transaction: %w", err)
	}

	return &out, nil
}

// ListForOrder returns the order's transactions, oldest first.
func (r *paymentTransactionRepository) ListForOrder(ctx context.Context, orderID uuid.UUID) ([]model.PaymentTransaction, error) {
	query := `
		SELECT id, order_id, gateway, reference, status, amount, currency, created_at, updated_at
		FROM payment_transactions
		WHERE order_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to query payment transactions")
		return nil, fmt.Errorf("failed to query payment transactions: %w", err)
	}
	defer rows.Close()

	txns := make([]model.PaymentTransaction, 0)
	for rows.Next() {
		var t model.PaymentTransaction
		if err := rows.Scan(&t.ID, &t.OrderID, &t.Gateway, &t.Reference, &t.Status, &t.Amount, &t.Currency, &t.CreatedAt, &t.UpdatedAt); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan payment transaction row")
			return nil, fmt.Errorf("failed to scan payment transaction: %w", err)
		}
		txns = append(txns, t)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating payment transaction rows")
		return nil, fmt.Errorf("error iterating payment transactions: %w", err)
	}

	return txns, nil
}
