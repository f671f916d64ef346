package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"checkout-engine/internal/coupon"
	"checkout-engine/internal/currency"
	"checkout-engine/internal/model"
	"checkout-engine/internal/orderkey"
	"checkout-engine/internal/retry"
	"checkout-engine/internal/rules"
	"checkout-engine/internal/shipping"
	"checkout-engine/internal/tax"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	fixedNow      = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	flatMethodID  = uuid.MustParse("6a0c2f7e-1d7b-4c55-9a55-0d1f8e5d2b01")
	dubaiMethodID = uuid.MustParse("6a0c2f7e-1d7b-4c55-9a55-0d1f8e5d2b02")
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decRef(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

type checkoutFixture struct {
	carts   *MockCartRepository
	orders  *MockOrderRepository
	coupons *MockCouponRepository
	rules   *MockCartRuleRepository
	methods *MockPaymentMethodRepository
	keys    *orderkey.Codec
	svc     CheckoutService
}

// newCheckoutFixture wires the real pricing components over mocked storage.
func newCheckoutFixture(t *testing.T, active []*model.CartRule) *checkoutFixture {
	t.Helper()
	logger := zerolog.Nop()
	clock := func() time.Time { return fixedNow }

	f := &checkoutFixture{
		carts:   new(MockCartRepository),
		orders:  new(MockOrderRepository),
		coupons: new(MockCouponRepository),
		rules:   new(MockCartRuleRepository),
		methods: new(MockPaymentMethodRepository),
	}
	f.rules.On("ListActive", mock.Anything).Return(active, nil).Maybe()

	keys, err := orderkey.NewCodec("test-secret", orderkey.WithClock(clock))
	require.NoError(t, err)
	f.keys = keys

	cityCost := dec("15")
	methods := staticShipping{
		flatMethodID: {ID: flatMethodID, Name: "Standard", CountryID: "AE", Cost: dec("15"), CitiesType: model.CitiesAll},
		dubaiMethodID: {
			ID: dubaiMethodID, Name: "Same day", CountryID: "AE", Cost: dec("20"), CitiesType: model.CitiesSpecific,
			Cities: []model.ShippingCity{{Name: "Dubai", Cost: &cityCost, FreeThreshold: decRef("100"), Active: true}},
		},
	}
	taxes := staticTaxRates{specific: map[string][]model.TaxRate{
		"AE": {{ID: uuid.New(), Name: "VAT", Type: model.TaxTypeSpecific, Percentage: dec("5"), CountryIDs: []string{"AE"}}},
	}}
	fastRetry := retry.Config{MaxAttempts: 1, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}

	f.svc = NewCheckoutService(CheckoutDeps{
		Carts:          f.carts,
		Orders:         f.orders,
		Coupons:        f.coupons,
		Rules:          f.rules,
		PaymentMethods: f.methods,
		Validator:      coupon.NewValidator(f.coupons, clock, logger),
		Engine:         rules.NewEngine(f.rules, rules.UnknownTriggerDeny, clock, logger),
		Shipping:       shipping.NewCalculator(methods, logger),
		Tax:            tax.NewResolver(taxes, fastRetry, logger),
		Rates: currency.NewResolver(nil, "USD", logger,
			currency.WithSnapshot(currency.Snapshot{"EUR": dec("0.5")}),
			currency.WithRetry(fastRetry)),
		Keys:        keys,
		OrderKeyTTL: 24 * time.Hour,
		Now:         clock,
	}, logger)
	return f
}

func (f *checkoutFixture) withCart(cart *model.Cart) *model.Cart {
	f.carts.On("GetByID", mock.Anything, cart.ID).Return(cart, nil)
	return cart
}

func newCart(items ...model.CartItem) *model.Cart {
	return &model.Cart{ID: uuid.New(), CustomerID: "alice", Currency: "USD", Items: items}
}

func item(product string, qty int, price string) model.CartItem {
	return model.CartItem{ProductID: product, Quantity: qty, UnitPrice: dec(price)}
}

func amountRule(threshold *decimal.Decimal, effect model.Effect) *model.CartRule {
	return &model.CartRule{
		ID:            uuid.New(),
		Name:          "rule",
		Trigger:       model.MinAmountTrigger{Threshold: threshold},
		Effect:        effect,
		Applicability: model.ApplicabilityAll,
		Status:        model.StatusActive,
	}
}

func percentCoupon(code, value, minimum string) *model.Coupon {
	return &model.Coupon{
		ID:              uuid.New(),
		Code:            code,
		DiscountType:    model.DiscountPercentage,
		DiscountValue:   dec(value),
		MinimumPurchase: dec(minimum),
		Status:          model.StatusActive,
	}
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "%s: want %s, got %s", field, want, got)
}

func TestCheckoutService_Quote_FullBreakdown(t *testing.T) {
	fiveOff := amountRule(decRef("100"), model.DiscountEffect{DiscountType: model.DiscountPercentage, Value: dec("5")})
	f := newCheckoutFixture(t, []*model.CartRule{fiveOff})

	code := "SAVE10"
	cart := newCart(item("mug", 2, "25"), item("shirt", 1, "150"))
	cart.CouponCode = &code
	f.withCart(cart)
	save10 := percentCoupon("SAVE10", "10", "0")
	f.coupons.On("GetByCode", mock.Anything, "SAVE10").Return(save10, nil)

	quote, err := f.svc.Quote(context.Background(), &model.QuoteRequest{
		CartID:           cart.ID,
		ShippingMethodID: &flatMethodID,
		Country:          "ae",
	})
	require.NoError(t, err)

	assert.Equal(t, "USD", quote.Currency)
	assertMoney(t, "1", quote.ExchangeRate, "rate")
	assertMoney(t, "200", quote.Subtotal, "subtotal")
	assertMoney(t, "10", quote.RuleDiscount, "rule discount")
	assertMoney(t, "20", quote.CouponDiscount, "coupon discount")
	assertMoney(t, "30", quote.Discount, "discount")
	assertMoney(t, "15", quote.Shipping.Total, "shipping")
	assert.False(t, quote.Shipping.IsFree)
	assert.Equal(t, model.TaxTypeSpecific, quote.Tax.Type)
	assertMoney(t, "9.25", quote.Tax.Amount, "tax")
	assertMoney(t, "194.25", quote.Total, "total")
	assertMoney(t, "194.25", quote.BaseTotal, "base total")
	assert.Equal(t, []uuid.UUID{fiveOff.ID}, quote.Rules.ApplicableRuleIDs)
	require.NotNil(t, quote.CouponID)
	assert.Equal(t, save10.ID, *quote.CouponID)
}

func TestCheckoutService_Quote_ConvertsToCustomerCurrency(t *testing.T) {
	fiveOff := amountRule(decRef("100"), model.DiscountEffect{DiscountType: model.DiscountPercentage, Value: dec("5")})
	f := newCheckoutFixture(t, []*model.CartRule{fiveOff})

	code := "SAVE10"
	cart := newCart(item("mug", 2, "25"), item("shirt", 1, "150"))
	cart.CouponCode = &code
	f.withCart(cart)
	f.coupons.On("GetByCode", mock.Anything, "SAVE10").Return(percentCoupon("SAVE10", "10", "0"), nil)

	quote, err := f.svc.Quote(context.Background(), &model.QuoteRequest{
		CartID:           cart.ID,
		ShippingMethodID: &flatMethodID,
		Country:          "AE",
		CustomerCurrency: "eur",
	})
	require.NoError(t, err)

	assert.Equal(t, "EUR", quote.Currency)
	assertMoney(t, "0.5", quote.ExchangeRate, "rate")
	assertMoney(t, "100", quote.Subtotal, "subtotal")
	assertMoney(t, "15", quote.Discount, "discount")
	assertMoney(t, "7.5", quote.Shipping.Total, "shipping")
	assertMoney(t, "4.63", quote.Tax.Amount, "tax")
	assertMoney(t, "97.13", quote.Total, "total")
	assertMoney(t, "194.25", quote.BaseTotal, "base total")
	assert.Equal(t, "USD", quote.BaseCurrency)
}

func TestCheckoutService_Quote_UpsellBelowThreshold(t *testing.T) {
	freeDelivery := amountRule(decRef("50"), model.FreeDeliveryEffect{})
	freeDelivery.UpsellMessage = "Spend {amount} more for free delivery"
	f := newCheckoutFixture(t, []*model.CartRule{freeDelivery})
	cart := f.withCart(newCart(item("mug", 1, "40")))

	quote, err := f.svc.Quote(context.Background(), &model.QuoteRequest{
		CartID: cart.ID, ShippingMethodID: &flatMethodID, Country: "AE",
	})
	require.NoError(t, err)

	assert.Empty(t, quote.Rules.ApplicableRuleIDs)
	assert.False(t, quote.Rules.FreeDelivery)
	require.Len(t, quote.Rules.UpsellMessages, 1)
	assertMoney(t, "10", quote.Rules.UpsellMessages[0].Shortfall, "shortfall")
	assert.Equal(t, "Spend 10.00 more for free delivery", quote.Rules.UpsellMessages[0].Message)
	assertMoney(t, "15", quote.Shipping.Total, "shipping")
	assertMoney(t, "2.75", quote.Tax.Amount, "tax")
	assertMoney(t, "57.75", quote.Total, "total")
}

func TestCheckoutService_Quote_FreeDeliveryRule(t *testing.T) {
	freeDelivery := amountRule(decRef("50"), model.FreeDeliveryEffect{})
	f := newCheckoutFixture(t, []*model.CartRule{freeDelivery})
	cart := f.withCart(newCart(item("mug", 3, "20")))

	quote, err := f.svc.Quote(context.Background(), &model.QuoteRequest{
		CartID: cart.ID, ShippingMethodID: &flatMethodID, Country: "AE",
	})
	require.NoError(t, err)

	assert.True(t, quote.Shipping.IsFree)
	assert.True(t, quote.Shipping.Total.IsZero())
	assertMoney(t, "3", quote.Tax.Amount, "tax")
	assertMoney(t, "63", quote.Total, "total")
}

func TestCheckoutService_Quote_CityThresholdMakesShippingFree(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	cart := f.withCart(newCart(item("lamp", 1, "120")))

	quote, err := f.svc.Quote(context.Background(), &model.QuoteRequest{
		CartID: cart.ID, ShippingMethodID: &dubaiMethodID, Country: "AE", City: "Dubai",
	})
	require.NoError(t, err)

	assert.True(t, quote.Shipping.IsFree)
	assert.True(t, quote.Shipping.Total.IsZero())
	assertMoney(t, "126", quote.Total, "total")
}

func TestCheckoutService_Quote_DiscountNeverExceedsSubtotal(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	code := "BIG"
	cart := newCart(item("mug", 1, "40"))
	cart.CouponCode = &code
	f.withCart(cart)
	big := &model.Coupon{ID: uuid.New(), Code: "BIG", DiscountType: model.DiscountFixed, DiscountValue: dec("100"), Status: model.StatusActive}
	f.coupons.On("GetByCode", mock.Anything, "BIG").Return(big, nil)

	quote, err := f.svc.Quote(context.Background(), &model.QuoteRequest{
		CartID: cart.ID, ShippingMethodID: &flatMethodID, Country: "AE",
	})
	require.NoError(t, err)

	assertMoney(t, "100", quote.CouponDiscount, "coupon discount")
	assertMoney(t, "40", quote.Discount, "discount")
	assertMoney(t, "0.75", quote.Tax.Amount, "tax")
	assertMoney(t, "15.75", quote.Total, "total")
}

func TestCheckoutService_Quote_CouponBelowMinimumGivesNoDiscount(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	code := "SAVE10"
	cart := newCart(item("mug", 1, "40"))
	cart.CouponCode = &code
	f.withCart(cart)
	f.coupons.On("GetByCode", mock.Anything, "SAVE10").Return(percentCoupon("SAVE10", "10", "500"), nil)

	quote, err := f.svc.Quote(context.Background(), &model.QuoteRequest{CartID: cart.ID, Country: "AE"})
	require.NoError(t, err)

	assert.True(t, quote.CouponDiscount.IsZero())
	assert.Nil(t, quote.CouponID)
	require.NotNil(t, quote.CouponCode)
	assert.Equal(t, "SAVE10", *quote.CouponCode)
	assertMoney(t, "42", quote.Total, "total")
}

func TestCheckoutService_Quote_Errors(t *testing.T) {
	tests := []struct {
		name    string
		req     func(cartID uuid.UUID) *model.QuoteRequest
		missing bool
		wantErr error
	}{
		{
			name:    "cart not found",
			req:     func(id uuid.UUID) *model.QuoteRequest { return &model.QuoteRequest{CartID: id, Country: "AE"} },
			missing: true,
			wantErr: model.ErrCartNotFound,
		},
		{
			name:    "country required",
			req:     func(id uuid.UUID) *model.QuoteRequest { return &model.QuoteRequest{CartID: id, Country: " "} },
			wantErr: model.ErrCountryRequired,
		},
		{
			name: "invalid currency",
			req: func(id uuid.UUID) *model.QuoteRequest {
				return &model.QuoteRequest{CartID: id, Country: "AE", CustomerCurrency: "EURO"}
			},
			wantErr: model.ErrInvalidCurrency,
		},
		{
			name: "city not served",
			req: func(id uuid.UUID) *model.QuoteRequest {
				return &model.QuoteRequest{CartID: id, ShippingMethodID: &dubaiMethodID, Country: "AE", City: "Abu Dhabi"}
			},
			wantErr: model.ErrCityUnavailable,
		},
		{
			name: "country mismatch",
			req: func(id uuid.UUID) *model.QuoteRequest {
				return &model.QuoteRequest{CartID: id, ShippingMethodID: &flatMethodID, Country: "SA"}
			},
			wantErr: model.ErrCountryMismatch,
		},
		{
			name: "no exchange rate",
			req: func(id uuid.UUID) *model.QuoteRequest {
				return &model.QuoteRequest{CartID: id, Country: "AE", CustomerCurrency: "JPY"}
			},
			wantErr: model.ErrExchangeRateUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture(t, nil)
			cartID := uuid.New()
			if tt.missing {
				f.carts.On("GetByID", mock.Anything, cartID).Return(nil, nil)
			} else {
				cart := newCart(item("mug", 1, "40"))
				cart.ID = cartID
				f.withCart(cart)
			}

			quote, err := f.svc.Quote(context.Background(), tt.req(cartID))
			assert.Nil(t, quote)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCheckoutService_Quote_EmptyCartRejected(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	cart := f.withCart(&model.Cart{ID: uuid.New(), Currency: "USD"})

	_, err := f.svc.Quote(context.Background(), &model.QuoteRequest{CartID: cart.ID, Country: "AE"})
	assert.ErrorIs(t, err, model.ErrInvalidCart)
}

func TestCheckoutService_ApplyCoupon(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	cart := f.withCart(newCart(item("mug", 2, "100")))
	f.coupons.On("GetByCode", mock.Anything, "save10").Return(percentCoupon("SAVE10", "10", "0"), nil)
	f.carts.On("UpdateCoupon", mock.Anything, cart.ID,
		mock.MatchedBy(func(code *string) bool { return code != nil && *code == "SAVE10" }),
		mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(dec("20")) }),
	).Return(nil)

	got, err := f.svc.ApplyCoupon(context.Background(), &model.ApplyCouponRequest{CartID: cart.ID, Code: " save10 "})
	require.NoError(t, err)

	require.NotNil(t, got.CouponCode)
	assert.Equal(t, "SAVE10", *got.CouponCode)
	assertMoney(t, "20", got.CouponDiscount, "coupon discount")
	f.carts.AssertExpectations(t)
}

func TestCheckoutService_ApplyCoupon_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		coupon  *model.Coupon
		wantErr error
	}{
		{name: "blank code", code: "  ", wantErr: model.ErrCouponNotFound},
		{name: "unknown code", code: "NOPE", wantErr: model.ErrCouponNotFound},
		{name: "below minimum", code: "BIGSPEND", coupon: percentCoupon("BIGSPEND", "10", "500"), wantErr: model.ErrCouponMinimumNotMet},
		{
			name:    "inactive",
			code:    "PAUSED",
			coupon:  &model.Coupon{ID: uuid.New(), Code: "PAUSED", DiscountType: model.DiscountFixed, DiscountValue: dec("5"), Status: model.StatusInactive},
			wantErr: model.ErrCouponInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture(t, nil)
			cart := f.withCart(newCart(item("mug", 1, "40")))
			if tt.coupon != nil {
				f.coupons.On("GetByCode", mock.Anything, tt.code).Return(tt.coupon, nil)
			} else {
				f.coupons.On("GetByCode", mock.Anything, mock.Anything).Return(nil, nil)
			}

			_, err := f.svc.ApplyCoupon(context.Background(), &model.ApplyCouponRequest{CartID: cart.ID, Code: tt.code})
			assert.ErrorIs(t, err, tt.wantErr)
			f.carts.AssertNotCalled(t, "UpdateCoupon", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCheckoutService_TaxRates(t *testing.T) {
	f := newCheckoutFixture(t, nil)

	rates, err := f.svc.TaxRates(context.Background(), "AE")
	require.NoError(t, err)
	assert.Equal(t, model.TaxTypeSpecific, rates.Type)
	require.Len(t, rates.Rates, 1)

	rates, err = f.svc.TaxRates(context.Background(), "US")
	require.NoError(t, err)
	assert.Equal(t, model.TaxTypeNone, rates.Type)

	_, err = f.svc.TaxRates(context.Background(), "")
	assert.ErrorIs(t, err, model.ErrCountryRequired)
}

// placeOrderSetup prepares a cart with a coupon, a limited discount rule and a gift rule.
func placeOrderSetup(t *testing.T) (*checkoutFixture, *model.PlaceOrderRequest, *model.Coupon, *model.CartRule, *MockTx) {
	t.Helper()
	limited := amountRule(decRef("100"), model.DiscountEffect{DiscountType: model.DiscountPercentage, Value: dec("5")})
	limited.UsageLimit = intRef(10)
	gift := amountRule(nil, model.FreeGiftEffect{ProductID: "sticker", Quantity: 1})

	f := newCheckoutFixture(t, []*model.CartRule{limited, gift})

	code := "SAVE10"
	cart := newCart(item("mug", 2, "25"), item("shirt", 1, "150"))
	cart.CouponCode = &code
	f.withCart(cart)
	save10 := percentCoupon("SAVE10", "10", "0")
	f.coupons.On("GetByCode", mock.Anything, "SAVE10").Return(save10, nil)

	method := &model.PaymentMethod{ID: uuid.New(), Name: "Card", Adapter: "stripe", SupportedCurrencies: []string{"USD"}, Active: true}
	f.methods.On("GetByID", mock.Anything, method.ID).Return(method, nil)

	tx := new(MockTx)
	f.orders.On("BeginTx", mock.Anything).Return(tx, nil)

	req := &model.PlaceOrderRequest{
		QuoteRequest:    model.QuoteRequest{CartID: cart.ID, ShippingMethodID: &flatMethodID, Country: "AE"},
		PaymentMethodID: method.ID,
		BillingAddress:  model.Address{Name: "Alice", Line1: "1 Palm St", City: "Dubai", Country: "AE"},
	}
	return f, req, save10, limited, tx
}

func intRef(i int) *int { return &i }

func TestCheckoutService_PlaceOrder_Success(t *testing.T) {
	f, req, save10, limited, tx := placeOrderSetup(t)

	f.coupons.On("Redeem", mock.Anything, tx, save10.ID).Return(1, nil)
	f.rules.On("IncrementUsage", mock.Anything, tx, limited.ID).Return(nil)
	f.orders.On("CreateOrder", mock.Anything, tx, mock.MatchedBy(func(o *model.Order) bool {
		return o.Total.Equal(dec("194.25")) &&
			o.CustomerCurrency == "USD" &&
			o.CouponID != nil && *o.CouponID == save10.ID &&
			len(o.AppliedRuleIDs) == 2 &&
			o.Country == "AE" &&
			o.BillingAddress.Name == "Alice"
	})).Return(nil)
	f.orders.On("CreateOrderItems", mock.Anything, tx, mock.MatchedBy(func(items []model.OrderItem) bool {
		return len(items) == 3 && items[2].IsGift && items[2].ProductID == "sticker" && items[2].LineTotal.IsZero()
	})).Return(nil)
	tx.On("Commit", mock.Anything).Return(nil)

	resp, err := f.svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, resp.OrderID)
	assert.True(t, strings.HasPrefix(resp.PublicID, "ORD-"))
	assert.Equal(t, "194.25", resp.Total)
	assert.Equal(t, "USD", resp.Currency)

	claims, err := f.keys.Resolve(resp.OrderKey)
	require.NoError(t, err)
	assert.Equal(t, resp.OrderID, claims.OrderID)
	assert.Equal(t, resp.PublicID, claims.PublicID)
	assert.Equal(t, fixedNow.Add(24*time.Hour).UnixMilli(), claims.ExpiresAt.UnixMilli())

	f.coupons.AssertExpectations(t)
	f.rules.AssertExpectations(t)
	f.orders.AssertExpectations(t)
	tx.AssertExpectations(t)
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
}

func TestCheckoutService_PlaceOrder_CouponExhausted(t *testing.T) {
	f, req, save10, _, tx := placeOrderSetup(t)

	f.coupons.On("Redeem", mock.Anything, tx, save10.ID).Return(0, model.ErrUsageLimitExceeded)
	tx.On("Rollback", mock.Anything).Return(nil)

	resp, err := f.svc.PlaceOrder(context.Background(), req)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, model.ErrUsageLimitExceeded)
	assert.Equal(t, "coupon no longer available", err.Error())

	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
	f.rules.AssertNotCalled(t, "IncrementUsage", mock.Anything, mock.Anything, mock.Anything)
	f.orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckoutService_PlaceOrder_RuleExhausted(t *testing.T) {
	f, req, save10, limited, tx := placeOrderSetup(t)

	f.coupons.On("Redeem", mock.Anything, tx, save10.ID).Return(1, nil)
	f.rules.On("IncrementUsage", mock.Anything, tx, limited.ID).Return(model.ErrPromotionUnavailable)
	tx.On("Rollback", mock.Anything).Return(nil)

	_, err := f.svc.PlaceOrder(context.Background(), req)
	assert.ErrorIs(t, err, model.ErrPromotionUnavailable)
	assert.True(t, tx.rolledBack)
	f.orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckoutService_PlaceOrder_ItemInsertFailureRollsBack(t *testing.T) {
	f, req, save10, limited, tx := placeOrderSetup(t)

	f.coupons.On("Redeem", mock.Anything, tx, save10.ID).Return(1, nil)
	f.rules.On("IncrementUsage", mock.Anything, tx, limited.ID).Return(nil)
	f.orders.On("CreateOrder", mock.Anything, tx, mock.Anything).Return(nil)
	f.orders.On("CreateOrderItems", mock.Anything, tx, mock.Anything).Return(errors.New("connection reset"))
	tx.On("Rollback", mock.Anything).Return(nil)

	_, err := f.svc.PlaceOrder(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create order items")
	assert.True(t, tx.rolledBack)
	tx.AssertNotCalled(t, "Commit", mock.Anything)
}

func TestCheckoutService_PlaceOrder_PaymentMethodMissing(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	cart := f.withCart(newCart(item("mug", 1, "40")))
	missing := uuid.New()
	f.methods.On("GetByID", mock.Anything, missing).Return(nil, nil)

	_, err := f.svc.PlaceOrder(context.Background(), &model.PlaceOrderRequest{
		QuoteRequest:    model.QuoteRequest{CartID: cart.ID, Country: "AE"},
		PaymentMethodID: missing,
	})
	assert.ErrorIs(t, err, model.ErrPaymentMethodMissing)

	_, err = f.svc.PlaceOrder(context.Background(), &model.PlaceOrderRequest{
		QuoteRequest: model.QuoteRequest{CartID: cart.ID, Country: "AE"},
	})
	assert.ErrorIs(t, err, model.ErrPaymentMethodMissing)
	f.orders.AssertNotCalled(t, "BeginTx", mock.Anything)
}
