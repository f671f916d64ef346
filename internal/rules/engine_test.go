package rules

import (
	"context"
	"errors"
	"testing"
	"time"

	"checkout-engine/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSource is a mock implementation of Source.
type MockSource struct {
	mock.Mock
}

func (m *MockSource) ListActive(ctx context.Context) ([]*model.CartRule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.CartRule), args.Error(1)
}

var fixedNow = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func intPtr(i int) *int { return &i }

func newRule(priority int, trigger model.Trigger, effect model.Effect) *model.CartRule {
	return &model.CartRule{
		ID:            uuid.New(),
		Trigger:       trigger,
		Effect:        effect,
		Applicability: model.ApplicabilityAll,
		Priority:      priority,
		Status:        model.StatusActive,
		StartDate:     fixedNow.Add(-24 * time.Hour),
	}
}

func cartInput(subtotal string, items ...model.CartItem) Input {
	if len(items) == 0 {
		items = []model.CartItem{{ProductID: "P1", Quantity: 1, UnitPrice: dec(subtotal)}}
	}
	return Input{Items: items, Subtotal: dec(subtotal)}
}

func TestEvaluate_MinAmountUpsell(t *testing.T) {
	rule := newRule(1, model.MinAmountTrigger{Threshold: decPtr("50")}, model.FreeDeliveryEffect{})
	rule.UpsellMessage = "Spend {amount} more for free delivery"

	out := NewEngine(nil, UnknownTriggerDeny, clock, zerolog.Nop()).Evaluate(cartInput("40"), []*model.CartRule{rule})

	assert.Empty(t, out.ApplicableRuleIDs)
	assert.False(t, out.FreeDelivery)
	require.Len(t, out.UpsellMessages, 1)
	assert.True(t, dec("10").Equal(out.UpsellMessages[0].Shortfall))
	assert.Equal(t, "Spend 10.00 more for free delivery", out.UpsellMessages[0].Message)
}

func TestEvaluate_Triggers(t *testing.T) {
	items := []model.CartItem{
		{ProductID: "P1", Quantity: 2, UnitPrice: dec("10"), CollectionIDs: []string{"summer"}},
		{ProductID: "P2", Quantity: 1, UnitPrice: dec("30")},
	}

	tests := []struct {
		name    string
		trigger model.Trigger
		applies bool
	}{
		{name: "Min amount met", trigger: model.MinAmountTrigger{Threshold: decPtr("50")}, applies: true},
		{name: "Min amount not met", trigger: model.MinAmountTrigger{Threshold: decPtr("50.01")}, applies: false},
		{name: "Min amount without threshold never blocks", trigger: model.MinAmountTrigger{}, applies: true},
		{name: "Min quantity met", trigger: model.MinQuantityTrigger{Threshold: intPtr(3)}, applies: true},
		{name: "Min quantity not met", trigger: model.MinQuantityTrigger{Threshold: intPtr(4)}, applies: false},
		{name: "Min quantity without threshold never blocks", trigger: model.MinQuantityTrigger{}, applies: true},
		{name: "Specific product present", trigger: model.SpecificProductTrigger{ProductIDs: []string{"P9", "P2"}}, applies: true},
		{name: "Specific product absent", trigger: model.SpecificProductTrigger{ProductIDs: []string{"P9"}}, applies: false},
		{name: "Collection present", trigger: model.CollectionTrigger{CollectionIDs: []string{"summer"}}, applies: true},
		{name: "Collection absent", trigger: model.CollectionTrigger{CollectionIDs: []string{"winter"}}, applies: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := newRule(0, tt.trigger, model.FreeDeliveryEffect{})
			out := NewEngine(nil, UnknownTriggerDeny, clock, zerolog.Nop()).
				Evaluate(Input{Items: items, Subtotal: dec("50")}, []*model.CartRule{rule})

			assert.Equal(t, tt.applies, out.FreeDelivery)
			if tt.applies {
				assert.Equal(t, []uuid.UUID{rule.ID}, out.ApplicableRuleIDs)
			}
		})
	}
}

func TestEvaluate_PriorityOrderAndStacking(t *testing.T) {
	low := newRule(1, model.MinAmountTrigger{Threshold: decPtr("10")}, model.DiscountEffect{DiscountType: model.DiscountFixed, Value: dec("5")})
	low.ActiveMessage = "low"
	high := newRule(10, model.MinAmountTrigger{Threshold: decPtr("10")}, model.DiscountEffect{DiscountType: model.DiscountPercentage, Value: dec("10")})
	high.ActiveMessage = "high"
	tieA := newRule(5, model.MinAmountTrigger{}, model.FreeGiftEffect{ProductID: "GIFT-A", Quantity: 1})
	tieA.ActiveMessage = "tie-a"
	tieB := newRule(5, model.MinAmountTrigger{}, model.FreeGiftEffect{ProductID: "GIFT-B", Quantity: 2})
	tieB.ActiveMessage = "tie-b"
	delivery := newRule(3, model.MinAmountTrigger{}, model.FreeDeliveryEffect{})
	delivery2 := newRule(2, model.MinAmountTrigger{}, model.FreeDeliveryEffect{})

	engine := NewEngine(nil, UnknownTriggerDeny, clock, zerolog.Nop())
	rules := []*model.CartRule{low, tieA, delivery2, high, tieB, delivery}
	out := engine.Evaluate(cartInput("200"), rules)

	assert.Equal(t, []uuid.UUID{high.ID, tieA.ID, tieB.ID, delivery.ID, delivery2.ID, low.ID}, out.ApplicableRuleIDs)
	assert.Equal(t, []string{"high", "tie-a", "tie-b", "low"}, out.ActiveMessages)
	assert.True(t, dec("25").Equal(out.TotalDiscount), "discounts stack: 20 + 5, got %s", out.TotalDiscount)
	assert.True(t, out.FreeDelivery)
	require.Len(t, out.FreeGifts, 2)
	assert.Equal(t, "GIFT-A", out.FreeGifts[0].ProductID)
	assert.Equal(t, 2, out.FreeGifts[1].Quantity)

	again := engine.Evaluate(cartInput("200"), rules)
	assert.Equal(t, out, again)
}

func TestEvaluate_SkipsIneligibleRules(t *testing.T) {
	past := fixedNow.Add(-time.Hour)

	expiredByDate := newRule(1, model.MinAmountTrigger{}, model.FreeDeliveryEffect{})
	expiredByDate.ExpiryDate = &past

	overLimit := newRule(1, model.MinAmountTrigger{}, model.FreeDeliveryEffect{})
	overLimit.UsageLimit = intPtr(3)
	overLimit.TimesUsed = 3

	notStarted := newRule(1, model.MinAmountTrigger{}, model.FreeDeliveryEffect{})
	notStarted.StartDate = fixedNow.Add(time.Hour)

	inactive := newRule(1, model.MinAmountTrigger{}, model.FreeDeliveryEffect{})
	inactive.Status = model.StatusInactive

	statusExpired := newRule(1, model.MinAmountTrigger{}, model.FreeDeliveryEffect{})
	statusExpired.Status = model.StatusExpired

	out := NewEngine(nil, UnknownTriggerDeny, clock, zerolog.Nop()).
		Evaluate(cartInput("100"), []*model.CartRule{expiredByDate, overLimit, notStarted, inactive, statusExpired})

	assert.Empty(t, out.ApplicableRuleIDs)
	assert.False(t, out.FreeDelivery)
}

func TestEvaluate_LimitedRulesAreReported(t *testing.T) {
	limited := newRule(1, model.MinAmountTrigger{}, model.FreeDeliveryEffect{})
	limited.UsageLimit = intPtr(10)
	unlimited := newRule(1, model.MinAmountTrigger{}, model.FreeDeliveryEffect{})

	out := NewEngine(nil, UnknownTriggerDeny, clock, zerolog.Nop()).
		Evaluate(cartInput("100"), []*model.CartRule{limited, unlimited})

	assert.Equal(t, []uuid.UUID{limited.ID}, out.LimitedRuleIDs)
}

func TestEvaluate_UnknownTriggerPolicy(t *testing.T) {
	rule := newRule(1, model.UnknownTrigger{Raw: "weather"}, model.FreeDeliveryEffect{})

	denied := NewEngine(nil, UnknownTriggerDeny, clock, zerolog.Nop()).Evaluate(cartInput("10"), []*model.CartRule{rule})
	assert.False(t, denied.FreeDelivery)

	allowed := NewEngine(nil, UnknownTriggerAllow, clock, zerolog.Nop()).Evaluate(cartInput("10"), []*model.CartRule{rule})
	assert.True(t, allowed.FreeDelivery)

	defaulted := NewEngine(nil, "", clock, zerolog.Nop()).Evaluate(cartInput("10"), []*model.CartRule{rule})
	assert.False(t, defaulted.FreeDelivery)
}

func TestEvaluate_Applicability(t *testing.T) {
	vip := newRule(1, model.MinAmountTrigger{}, model.FreeDeliveryEffect{})
	vip.Applicability = model.ApplicabilityCustomerGroups
	vip.CustomerGroups = []string{"vip"}

	named := newRule(1, model.MinAmountTrigger{}, model.FreeDeliveryEffect{})
	named.Applicability = model.ApplicabilitySpecificCustomers
	named.CustomerIDs = []string{"cust-7"}

	tests := []struct {
		name     string
		customer model.Customer
		expected []uuid.UUID
	}{
		{name: "Guest matches neither", customer: model.Customer{}, expected: []uuid.UUID{}},
		{name: "Group member", customer: model.Customer{ID: "cust-1", Groups: []string{"vip"}}, expected: []uuid.UUID{vip.ID}},
		{name: "Named customer", customer: model.Customer{ID: "cust-7"}, expected: []uuid.UUID{named.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := cartInput("10")
			in.Customer = tt.customer
			out := NewEngine(nil, UnknownTriggerDeny, clock, zerolog.Nop()).Evaluate(in, []*model.CartRule{vip, named})
			assert.Equal(t, tt.expected, out.ApplicableRuleIDs)
		})
	}
}

func TestEvaluate_BuyXGetYIsOnlyMarked(t *testing.T) {
	rule := newRule(1, model.SpecificProductTrigger{ProductIDs: []string{"P1"}}, model.BuyXGetYEffect{
		BuyProductID: "P1", BuyQuantity: 2, GetProductID: "P2", GetQuantity: 1, GetDiscount: dec("100"),
	})

	out := NewEngine(nil, UnknownTriggerDeny, clock, zerolog.Nop()).Evaluate(cartInput("20"), []*model.CartRule{rule})

	require.Len(t, out.BuyXGetY, 1)
	assert.Equal(t, "P2", out.BuyXGetY[0].GetProductID)
	assert.True(t, out.TotalDiscount.IsZero())
}

func TestEngine_EvaluateActive(t *testing.T) {
	ctx := context.Background()
	rule := newRule(1, model.MinAmountTrigger{Threshold: decPtr("20")}, model.FreeDeliveryEffect{})

	src := new(MockSource)
	src.On("ListActive", ctx).Return([]*model.CartRule{rule}, nil)

	out, err := NewEngine(src, UnknownTriggerDeny, clock, zerolog.Nop()).EvaluateActive(ctx, cartInput("25"))

	require.NoError(t, err)
	assert.True(t, out.FreeDelivery)
	src.AssertExpectations(t)
}

func TestEngine_EvaluateActive_SourceError(t *testing.T) {
	ctx := context.Background()
	src := new(MockSource)
	src.On("ListActive", ctx).Return(nil, errors.New("connection refused"))

	_, err := NewEngine(src, UnknownTriggerDeny, clock, zerolog.Nop()).EvaluateActive(ctx, cartInput("25"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load cart rules")
}
