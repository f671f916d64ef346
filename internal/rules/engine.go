// Package rules evaluates cart-wide promotional rules against a cart.
package rules

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"checkout-engine/internal/coupon"
	"checkout-engine/internal/model"
	"checkout-engine/internal/money"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// UnknownTriggerPolicy decides what happens to rules whose trigger type is not recognised.
type UnknownTriggerPolicy string

const (
	// UnknownTriggerDeny makes such rules never apply.
	UnknownTriggerDeny UnknownTriggerPolicy = "deny"
	// UnknownTriggerAllow makes such rules always apply.
	UnknownTriggerAllow UnknownTriggerPolicy = "allow"
)

// amountPlaceholder is replaced with the shortfall in upsell messages.
const amountPlaceholder = "{amount}"

// Source lists active rules in a stable fetch order.
type Source interface {
	ListActive(ctx context.Context) ([]*model.CartRule, error)
}

// Input is everything rule evaluation looks at.
type Input struct {
	Items    []model.CartItem
	Subtotal decimal.Decimal
	Customer model.Customer
}

// Engine evaluates rules.
type Engine struct {
	source Source
	policy UnknownTriggerPolicy
	now    func() time.Time
	logger zerolog.Logger
}

// NewEngine creates a rule engine. A nil clock uses time.Now.
func NewEngine(source Source, policy UnknownTriggerPolicy, now func() time.Time, logger zerolog.Logger) *Engine {
	if now == nil {
		now = time.Now
	}
	if policy != UnknownTriggerAllow {
		policy = UnknownTriggerDeny
	}
	return &Engine{
		source: source,
		policy: policy,
		now:    now,
		logger: logger.With().Str("component", "rule-engine").Logger(),
	}
}

// EvaluateActive fetches the active rules and evaluates them.
func (e *Engine) EvaluateActive(ctx context.Context, in Input) (model.RuleEvaluation, error) {
	active, err := e.source.ListActive(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("failed to load active cart rules")
		return model.RuleEvaluation{}, fmt.Errorf("failed to load cart rules: %w", err)
	}
	return e.Evaluate(in, active), nil
}

// Evaluate applies rules to the input. Rules are visited by descending
// priority; equal priorities keep the order they were given in. The result
// depends only on the inputs and the clock.
func (e *Engine) Evaluate(in Input, rules []*model.CartRule) model.RuleEvaluation {
	now := e.now()

	ordered := make([]*model.CartRule, 0, len(rules))
	for _, r := range rules {
		if r != nil && r.Status == model.StatusActive {
			ordered = append(ordered, r)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	out := model.RuleEvaluation{
		ApplicableRuleIDs: []uuid.UUID{},
		TotalDiscount:     decimal.Zero,
		FreeGifts:         []model.FreeGift{},
		BuyXGetY:          []model.BuyXGetYOffer{},
		UpsellMessages:    []model.UpsellMessage{},
		ActiveMessages:    []string{},
		LimitedRuleIDs:    []uuid.UUID{},
	}

	quantity := model.Cart{Items: in.Items}.TotalQuantity()

	for _, r := range ordered {
		if !r.Eligible(now) || !r.AppliesTo(in.Customer) {
			continue
		}

		if !e.triggerMet(r, in, quantity) {
			if msg, ok := upsell(r, in.Subtotal); ok {
				out.UpsellMessages = append(out.UpsellMessages, msg)
			}
			continue
		}

		out.ApplicableRuleIDs = append(out.ApplicableRuleIDs, r.ID)
		if r.UsageLimit != nil {
			out.LimitedRuleIDs = append(out.LimitedRuleIDs, r.ID)
		}

		switch eff := r.Effect.(type) {
		case model.FreeDeliveryEffect:
			out.FreeDelivery = true
		case model.DiscountEffect:
			out.TotalDiscount = out.TotalDiscount.Add(coupon.Amount(eff.DiscountType, eff.Value, in.Subtotal))
		case model.FreeGiftEffect:
			out.FreeGifts = append(out.FreeGifts, model.FreeGift{RuleID: r.ID, ProductID: eff.ProductID, Quantity: eff.Quantity})
		case model.BuyXGetYEffect:
			out.BuyXGetY = append(out.BuyXGetY, model.BuyXGetYOffer{
				RuleID:       r.ID,
				BuyProductID: eff.BuyProductID,
				BuyQuantity:  eff.BuyQuantity,
				GetProductID: eff.GetProductID,
				GetQuantity:  eff.GetQuantity,
				GetDiscount:  eff.GetDiscount,
			})
		}

		if r.ActiveMessage != "" {
			out.ActiveMessages = append(out.ActiveMessages, r.ActiveMessage)
		}
	}

	out.TotalDiscount = money.Round(out.TotalDiscount)
	return out
}

func (e *Engine) triggerMet(r *model.CartRule, in Input, quantity int) bool {
	switch t := r.Trigger.(type) {
	case model.MinAmountTrigger:
		return t.Threshold == nil || in.Subtotal.GreaterThanOrEqual(*t.Threshold)
	case model.MinQuantityTrigger:
		return t.Threshold == nil || quantity >= *t.Threshold
	case model.SpecificProductTrigger:
		for _, item := range in.Items {
			if slices.Contains(t.ProductIDs, item.ProductID) {
				return true
			}
		}
		return false
	case model.CollectionTrigger:
		for _, item := range in.Items {
			for _, c := range item.CollectionIDs {
				if slices.Contains(t.CollectionIDs, c) {
					return true
				}
			}
		}
		return false
	default:
		e.logger.Warn().
			Str("rule_id", r.ID.String()).
			Str("trigger_type", string(r.Trigger.Type())).
			Str("policy", string(e.policy)).
			Msg("cart rule has unrecognised trigger type")
		return e.policy == UnknownTriggerAllow
	}
}

// upsell builds the shortfall message for an unmet amount threshold.
func upsell(r *model.CartRule, subtotal decimal.Decimal) (model.UpsellMessage, bool) {
	t, ok := r.Trigger.(model.MinAmountTrigger)
	if !ok || t.Threshold == nil {
		return model.UpsellMessage{}, false
	}

	shortfall := money.Round(t.Threshold.Sub(subtotal))
	return model.UpsellMessage{
		RuleID:    r.ID,
		Shortfall: shortfall,
		Message:   strings.ReplaceAll(r.UpsellMessage, amountPlaceholder, shortfall.StringFixed(money.Places)),
	}, true
}
