package repository

import (
	"context"
	"testing"

	"checkout-engine/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaxRateRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewTaxRateRepository(pool, zerolog.Nop())

	none, err := repo.GetDefault(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	def := &model.TaxRate{ID: uuid.New(), Name: "Standard", Type: model.TaxTypeDefault, Percentage: decimal.NewFromInt(5)}
	vat := &model.TaxRate{ID: uuid.New(), Name: "VAT", Type: model.TaxTypeSpecific, Percentage: decimal.NewFromInt(5), CountryIDs: []string{"ae"}}
	levy := &model.TaxRate{ID: uuid.New(), Name: "Levy", Type: model.TaxTypeSpecific, Percentage: decimal.RequireFromString("2.5"), CountryIDs: []string{"AE", "SA"}}
	require.NoError(t, repo.Create(ctx, def))
	require.NoError(t, repo.Create(ctx, vat))
	require.NoError(t, repo.Create(ctx, levy))

	rates, err := repo.ListSpecificByCountry(ctx, "ae")
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, vat.ID, rates[0].ID)
	assert.Equal(t, levy.ID, rates[1].ID)

	rates, err = repo.ListSpecificByCountry(ctx, "US")
	require.NoError(t, err)
	assert.Empty(t, rates)

	got, err := repo.GetDefault(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, def.ID, got.ID)

	second := &model.TaxRate{ID: uuid.New(), Name: "Other", Type: model.TaxTypeDefault, Percentage: decimal.NewFromInt(7)}
	err = repo.Create(ctx, second)
	assert.ErrorIs(t, err, model.ErrDuplicateDefaultTax)
}

func TestShippingMethodRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewShippingMethodRepository(pool, zerolog.Nop())

	cost := decimal.NewFromInt(15)
	threshold := decimal.NewFromInt(100)
	m := &model.ShippingMethod{
		ID:         uuid.New(),
		Name:       "Same day",
		CountryID:  "AE",
		Cost:       decimal.NewFromInt(25),
		Taxable:    true,
		TaxRate:    decimal.NewFromInt(5),
		CitiesType: model.CitiesSpecific,
		Cities: []model.ShippingCity{
			{Name: "Dubai", Code: "DXB", Cost: &cost, FreeThreshold: &threshold, Active: true},
			{Name: "Sharjah", Active: false},
		},
	}
	require.NoError(t, repo.Create(ctx, m))

	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "AE", got.CountryID)
	assert.Nil(t, got.FreeThreshold)
	assert.True(t, got.Cost.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, model.CitiesSpecific, got.CitiesType)
	require.Len(t, got.Cities, 2)
	dubai, ok := got.MatchCity("dxb")
	require.True(t, ok)
	assert.True(t, dubai.FreeThreshold.Equal(threshold))

	missing, err := repo.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSalesChannelRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewSalesChannelRepository(pool, zerolog.Nop())

	none, err := repo.GetActive(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	ch := &model.SalesChannel{
		ID:        uuid.New(),
		Name:      "Web",
		IsDefault: true,
		Active:    true,
		Currencies: []model.Currency{
			{Code: "USD", ExchangeRate: decimal.NewFromInt(1), IsDefault: true},
			{Code: "EUR", ExchangeRate: decimal.RequireFromString("0.92592593")},
		},
	}
	require.NoError(t, repo.Create(ctx, ch))

	got, err := repo.GetActive(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ch.ID, got.ID)
	require.Len(t, got.Currencies, 2)
	assert.Equal(t, "USD", got.Currencies[0].Code)
	eur, ok := got.Currency("EUR")
	require.True(t, ok)
	assert.True(t, eur.ExchangeRate.Equal(decimal.RequireFromString("0.92592593")))

	dup := &model.SalesChannel{ID: uuid.New(), Name: "App", IsDefault: true, Active: true}
	err = repo.Create(ctx, dup)
	assert.ErrorIs(t, err, model.ErrDuplicateDefaultChannel)

	twoDefaults := &model.SalesChannel{
		ID:     uuid.New(),
		Name:   "Wholesale",
		Active: true,
		Currencies: []model.Currency{
			{Code: "USD", ExchangeRate: decimal.NewFromInt(1), IsDefault: true},
			{Code: "GBP", ExchangeRate: decimal.RequireFromString("0.79"), IsDefault: true},
		},
	}
	err = repo.Create(ctx, twoDefaults)
	assert.ErrorIs(t, err, model.ErrDuplicateDefaultChannel)

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales_channels WHERE id = $1`, twoDefaults.ID).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestCartRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewCartRepository(pool, zerolog.Nop())

	variant := "red-m"
	cart := &model.Cart{
		ID:         uuid.New(),
		CustomerID: "alice",
		Currency:   "USD",
		Items: []model.CartItem{
			{ProductID: "shirt", Quantity: 2, UnitPrice: decimal.RequireFromString("19.99"), VariantID: &variant, CollectionIDs: []string{"summer"}},
		},
	}
	require.NoError(t, repo.Create(ctx, cart))

	got, err := repo.GetByID(ctx, cart.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Subtotal().Equal(decimal.RequireFromString("39.98")))
	assert.Equal(t, "red-m", *got.Items[0].VariantID)
	assert.Nil(t, got.CouponCode)

	code := "SAVE10"
	require.NoError(t, repo.UpdateCoupon(ctx, cart.ID, &code, decimal.RequireFromString("4.00")))

	got, err = repo.GetByID(ctx, cart.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CouponCode)
	assert.Equal(t, "SAVE10", *got.CouponCode)
	assert.True(t, got.CouponDiscount.Equal(decimal.NewFromInt(4)))

	err = repo.UpdateCoupon(ctx, uuid.New(), nil, decimal.Zero)
	assert.ErrorIs(t, err, model.ErrCartNotFound)
}
