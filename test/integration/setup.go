package integration

import (
	"context"
	"testing"
	"time"

	"checkout-engine/internal/database"
	"checkout-engine/internal/model"
	"checkout-engine/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container with the checkout schema applied.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	// Create PostgreSQL container
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	// Get connection string
	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	if err := database.Migrate(ctx, pool, zerolog.Nop()); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// Fixtures holds the ids of the seeded checkout configuration.
type Fixtures struct {
	ShippingMethodID uuid.UUID
	BankTransferID   uuid.UUID
	CouponCode       string
}

// SeedCheckout inserts a USD/EUR sales channel, 5% UAE VAT, a flat AE shipping
// method, a single-use 10% coupon and a bank transfer payment method.
func SeedCheckout(t *testing.T, pool *pgxpool.Pool) Fixtures {
	t.Helper()

	ctx := context.Background()
	logger := zerolog.Nop()
	limit := 1

	channel := &model.SalesChannel{
		ID:        uuid.New(),
		Name:      "Web",
		IsDefault: true,
		Active:    true,
		Currencies: []model.Currency{
			{Code: "USD", ExchangeRate: decimal.NewFromInt(1), IsDefault: true},
			{Code: "EUR", ExchangeRate: decimal.RequireFromString("0.5")},
		},
	}
	vat := &model.TaxRate{
		ID:         uuid.New(),
		Name:       "UAE VAT",
		Type:       model.TaxTypeSpecific,
		Percentage: decimal.NewFromInt(5),
		CountryIDs: []string{"AE"},
	}
	method := &model.ShippingMethod{
		ID:         uuid.New(),
		Name:       "Courier",
		CountryID:  "AE",
		Cost:       decimal.NewFromInt(15),
		CitiesType: model.CitiesAll,
	}
	c := &model.Coupon{
		ID:              uuid.New(),
		Code:            "WELCOME10",
		DiscountType:    model.DiscountPercentage,
		DiscountValue:   decimal.NewFromInt(10),
		MinimumPurchase: decimal.NewFromInt(50),
		UsageLimit:      &limit,
		Status:          model.StatusActive,
	}
	bank := &model.PaymentMethod{
		ID:                  uuid.New(),
		Name:                "Bank transfer",
		Adapter:             "bank_transfer",
		SupportedCurrencies: []string{"USD"},
		Active:              true,
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"sales channel", func() error { return repository.NewSalesChannelRepository(pool, logger).Create(ctx, channel) }},
		{"tax rate", func() error { return repository.NewTaxRateRepository(pool, logger).Create(ctx, vat) }},
		{"shipping method", func() error { return repository.NewShippingMethodRepository(pool, logger).Create(ctx, method) }},
		{"coupon", func() error { return repository.NewCouponRepository(pool, logger).Save(ctx, c) }},
		{"payment method", func() error { return repository.NewPaymentMethodRepository(pool, logger).Create(ctx, bank) }},
	}
	for _, s := range steps {
		if err := s.run(); err != nil {
			t.Fatalf("failed to seed %s: %v", s.name, err)
		}
	}

	return Fixtures{
		ShippingMethodID: method.ID,
		BankTransferID:   bank.ID,
		CouponCode:       c.Code,
	}
}

// SeedCart inserts a 200 USD cart: two mugs at 40 and a tee at 120.
func SeedCart(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()

	cart := &model.Cart{
		ID:       uuid.New(),
		Currency: "USD",
		Items: []model.CartItem{
			{ProductID: "mug", Quantity: 2, UnitPrice: decimal.NewFromInt(40)},
			{ProductID: "tee", Quantity: 1, UnitPrice: decimal.NewFromInt(120)},
		},
	}
	if err := repository.NewCartRepository(pool, zerolog.Nop()).Create(context.Background(), cart); err != nil {
		t.Fatalf("failed to seed cart: %v", err)
	}
	return cart.ID
}
