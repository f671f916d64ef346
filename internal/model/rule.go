package model

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RuleType is the effect family of a cart rule.
type RuleType string

const (
	RuleTypeFreeDelivery RuleType = "free_delivery"
	RuleTypeDiscount     RuleType = "discount"
	RuleTypeFreeGift     RuleType = "free_gift"
	RuleTypeBuyXGetY     RuleType = "buy_x_get_y"
)

// TriggerType is the condition family of a cart rule.
type TriggerType string

const (
	TriggerMinAmount       TriggerType = "min_amount"
	TriggerMinQuantity     TriggerType = "min_quantity"
	TriggerSpecificProduct TriggerType = "specific_product"
	TriggerCollection      TriggerType = "collection"
)

// Applicability restricts which customers a rule targets.
type Applicability string

const (
	ApplicabilityAll               Applicability = "all"
	ApplicabilitySpecificCustomers Applicability = "specific_customers"
	ApplicabilityCustomerGroups    Applicability = "customer_groups"
)

// PromotionStatus is shared by cart rules and coupons.
type PromotionStatus string

const (
	StatusActive   PromotionStatus = "active"
	StatusInactive PromotionStatus = "inactive"
	StatusExpired  PromotionStatus = "expired"
)

// Trigger decides whether a rule fires for a cart.
type Trigger interface {
	Type() TriggerType
	isTrigger()
}

// MinAmountTrigger fires when the subtotal reaches Threshold. A nil threshold never blocks.
type MinAmountTrigger struct {
	Threshold *decimal.Decimal
}

// MinQuantityTrigger fires when the total item quantity reaches Threshold. A nil threshold never blocks.
type MinQuantityTrigger struct {
	Threshold *int
}

// SpecificProductTrigger fires when any cart item is one of ProductIDs.
type SpecificProductTrigger struct {
	ProductIDs []string
}

// CollectionTrigger fires when any cart item belongs to one of CollectionIDs.
type CollectionTrigger struct {
	CollectionIDs []string
}

// UnknownTrigger preserves a trigger type this engine does not recognise.
type UnknownTrigger struct {
	Raw string
}

func (MinAmountTrigger) Type() TriggerType       { return TriggerMinAmount }
func (MinQuantityTrigger) Type() TriggerType     { return TriggerMinQuantity }
func (SpecificProductTrigger) Type() TriggerType { return TriggerSpecificProduct }
func (CollectionTrigger) Type() TriggerType      { return TriggerCollection }
func (t UnknownTrigger) Type() TriggerType       { return TriggerType(t.Raw) }

func (MinAmountTrigger) isTrigger()       {}
func (MinQuantityTrigger) isTrigger()     {}
func (SpecificProductTrigger) isTrigger() {}
func (CollectionTrigger) isTrigger()      {}
func (UnknownTrigger) isTrigger()         {}

// Effect is what a rule does once it applies.
type Effect interface {
	Type() RuleType
	isEffect()
}

// FreeDeliveryEffect zeroes the shipping charge.
type FreeDeliveryEffect struct{}

// DiscountEffect reduces the order by a fixed amount or a percentage of the subtotal.
type DiscountEffect struct {
	DiscountType DiscountType
	Value        decimal.Decimal
}

// FreeGiftEffect adds a complimentary product.
type FreeGiftEffect struct {
	ProductID string
	Quantity  int
}

// BuyXGetYEffect describes a buy-X-get-Y offer. Adding the "get" line is left to the caller.
type BuyXGetYEffect struct {
	BuyProductID string
	BuyQuantity  int
	GetProductID string
	GetQuantity  int
	GetDiscount  decimal.Decimal // percentage off the "get" line, 100 = free
}

func (FreeDeliveryEffect) Type() RuleType { return RuleTypeFreeDelivery }
func (DiscountEffect) Type() RuleType     { return RuleTypeDiscount }
func (FreeGiftEffect) Type() RuleType     { return RuleTypeFreeGift }
func (BuyXGetYEffect) Type() RuleType     { return RuleTypeBuyXGetY }

func (FreeDeliveryEffect) isEffect() {}
func (DiscountEffect) isEffect()     {}
func (FreeGiftEffect) isEffect()     {}
func (BuyXGetYEffect) isEffect()     {}

// CartRule is an automatically applied promotion.
type CartRule struct {
	ID             uuid.UUID
	Name           string
	Trigger        Trigger
	Effect         Effect
	Applicability  Applicability
	CustomerIDs    []string
	CustomerGroups []string
	Priority       int
	Status         PromotionStatus
	StartDate      time.Time
	ExpiryDate     *time.Time
	UsageLimit     *int
	TimesUsed      int
	UpsellMessage  string
	ActiveMessage  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CartRuleRecord is the flat, storage-shaped form of a cart rule.
type CartRuleRecord struct {
	ID                 uuid.UUID        `json:"id"`
	Name               string           `json:"name"`
	RuleType           RuleType         `json:"ruleType"`
	TriggerType        TriggerType      `json:"triggerType"`
	TriggerAmount      *decimal.Decimal `json:"triggerAmount,omitempty"`
	TriggerQuantity    *int             `json:"triggerQuantity,omitempty"`
	TriggerProducts    []string         `json:"triggerProducts,omitempty"`
	TriggerCollections []string         `json:"triggerCollections,omitempty"`
	DiscountType       DiscountType     `json:"discountType,omitempty"`
	DiscountValue      decimal.Decimal  `json:"discountValue"`
	GiftProductID      string           `json:"giftProductId,omitempty"`
	GiftQuantity       int              `json:"giftQuantity,omitempty"`
	BuyProductID       string           `json:"buyProductId,omitempty"`
	BuyQuantity        int              `json:"buyQuantity,omitempty"`
	GetProductID       string           `json:"getProductId,omitempty"`
	GetQuantity        int              `json:"getQuantity,omitempty"`
	GetDiscount        decimal.Decimal  `json:"getDiscount"`
	Applicability      Applicability    `json:"applicability"`
	CustomerIDs        []string         `json:"customerIds,omitempty"`
	CustomerGroups     []string         `json:"customerGroups,omitempty"`
	Priority           int              `json:"priority"`
	Status             PromotionStatus  `json:"status"`
	StartDate          time.Time        `json:"startDate"`
	ExpiryDate         *time.Time       `json:"expiryDate,omitempty"`
	UsageLimit         *int             `json:"usageLimit,omitempty"`
	TimesUsed          int              `json:"timesUsed"`
	UpsellMessage      string           `json:"upsellMessage,omitempty"`
	ActiveMessage      string           `json:"activeMessage,omitempty"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

// NewCartRule builds a typed rule from its stored record, checking the fields each variant needs.
func NewCartRule(rec CartRuleRecord) (*CartRule, error) {
	trigger, err := buildTrigger(rec)
	if err != nil {
		return nil, err
	}
	effect, err := buildEffect(rec)
	if err != nil {
		return nil, err
	}

	applicability := rec.Applicability
	switch applicability {
	case "":
		applicability = ApplicabilityAll
	case ApplicabilityAll, ApplicabilitySpecificCustomers, ApplicabilityCustomerGroups:
	default:
		return nil, fmt.Errorf("rule %s: unknown applicability %q", rec.ID, rec.Applicability)
	}

	status := rec.Status
	if status == "" {
		status = StatusActive
	}

	return &CartRule{
		ID:             rec.ID,
		Name:           rec.Name,
		Trigger:        trigger,
		Effect:         effect,
		Applicability:  applicability,
		CustomerIDs:    rec.CustomerIDs,
		CustomerGroups: rec.CustomerGroups,
		Priority:       rec.Priority,
		Status:         status,
		StartDate:      rec.StartDate,
		ExpiryDate:     rec.ExpiryDate,
		UsageLimit:     rec.UsageLimit,
		TimesUsed:      rec.TimesUsed,
		UpsellMessage:  rec.UpsellMessage,
		ActiveMessage:  rec.ActiveMessage,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}, nil
}

func buildTrigger(rec CartRuleRecord) (Trigger, error) {
	switch rec.TriggerType {
	case TriggerMinAmount:
		return MinAmountTrigger{Threshold: rec.TriggerAmount}, nil
	case TriggerMinQuantity:
		return MinQuantityTrigger{Threshold: rec.TriggerQuantity}, nil
	case TriggerSpecificProduct:
		if len(rec.TriggerProducts) == 0 {
			return nil, fmt.Errorf("rule %s: specific_product trigger needs at least one product", rec.ID)
		}
		return SpecificProductTrigger{ProductIDs: rec.TriggerProducts}, nil
	case TriggerCollection:
		if len(rec.TriggerCollections) == 0 {
			return nil, fmt.Errorf("rule %s: collection trigger needs at least one collection", rec.ID)
		}
		return CollectionTrigger{CollectionIDs: rec.TriggerCollections}, nil
	default:
		return UnknownTrigger{Raw: string(rec.TriggerType)}, nil
	}
}

func buildEffect(rec CartRuleRecord) (Effect, error) {
	switch rec.RuleType {
	case RuleTypeFreeDelivery:
		return FreeDeliveryEffect{}, nil
	case RuleTypeDiscount:
		if rec.DiscountType != DiscountFixed && rec.DiscountType != DiscountPercentage {
			return nil, fmt.Errorf("rule %s: discount rule has invalid discount type %q", rec.ID, rec.DiscountType)
		}
		if rec.DiscountValue.IsNegative() {
			return nil, fmt.Errorf("rule %s: discount value cannot be negative", rec.ID)
		}
		return DiscountEffect{DiscountType: rec.DiscountType, Value: rec.DiscountValue}, nil
	case RuleTypeFreeGift:
		if rec.GiftProductID == "" {
			return nil, fmt.Errorf("rule %s: free_gift rule needs a gift product", rec.ID)
		}
		qty := rec.GiftQuantity
		if qty < 1 {
			qty = 1
		}
		return FreeGiftEffect{ProductID: rec.GiftProductID, Quantity: qty}, nil
	case RuleTypeBuyXGetY:
		if rec.BuyProductID == "" || rec.GetProductID == "" || rec.BuyQuantity < 1 || rec.GetQuantity < 1 {
			return nil, fmt.Errorf("rule %s: buy_x_get_y rule needs buy and get products with quantities", rec.ID)
		}
		return BuyXGetYEffect{
			BuyProductID: rec.BuyProductID,
			BuyQuantity:  rec.BuyQuantity,
			GetProductID: rec.GetProductID,
			GetQuantity:  rec.GetQuantity,
			GetDiscount:  rec.GetDiscount,
		}, nil
	default:
		return nil, fmt.Errorf("rule %s: unknown rule type %q", rec.ID, rec.RuleType)
	}
}

// Record flattens the rule back into its storage shape.
func (r *CartRule) Record() CartRuleRecord {
	rec := CartRuleRecord{
		ID:             r.ID,
		Name:           r.Name,
		RuleType:       r.Effect.Type(),
		TriggerType:    r.Trigger.Type(),
		Applicability:  r.Applicability,
		CustomerIDs:    r.CustomerIDs,
		CustomerGroups: r.CustomerGroups,
		Priority:       r.Priority,
		Status:         r.Status,
		StartDate:      r.StartDate,
		ExpiryDate:     r.ExpiryDate,
		UsageLimit:     r.UsageLimit,
		TimesUsed:      r.TimesUsed,
		UpsellMessage:  r.UpsellMessage,
		ActiveMessage:  r.ActiveMessage,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}

	switch t := r.Trigger.(type) {
	case MinAmountTrigger:
		rec.TriggerAmount = t.Threshold
	case MinQuantityTrigger:
		rec.TriggerQuantity = t.Threshold
	case SpecificProductTrigger:
		rec.TriggerProducts = t.ProductIDs
	case CollectionTrigger:
		rec.TriggerCollections = t.CollectionIDs
	}

	switch e := r.Effect.(type) {
	case DiscountEffect:
		rec.DiscountType = e.DiscountType
		rec.DiscountValue = e.Value
	case FreeGiftEffect:
		rec.GiftProductID = e.ProductID
		rec.GiftQuantity = e.Quantity
	case BuyXGetYEffect:
		rec.BuyProductID = e.BuyProductID
		rec.BuyQuantity = e.BuyQuantity
		rec.GetProductID = e.GetProductID
		rec.GetQuantity = e.GetQuantity
		rec.GetDiscount = e.GetDiscount
	}

	return rec
}

// RefreshStatus moves an active rule to expired or inactive when its window or usage limit is exhausted.
func (r *CartRule) RefreshStatus(now time.Time) {
	r.Status = refreshStatus(r.Status, now, r.ExpiryDate, r.UsageLimit, r.TimesUsed)
}

// Eligible reports whether the rule may apply at now, independent of the cart.
func (r *CartRule) Eligible(now time.Time) bool {
	if refreshStatus(r.Status, now, r.ExpiryDate, r.UsageLimit, r.TimesUsed) != StatusActive {
		return false
	}
	return r.StartDate.IsZero() || !now.Before(r.StartDate)
}

// AppliesTo reports whether the rule targets the customer. Guests only match "all".
func (r *CartRule) AppliesTo(customer Customer) bool {
	switch r.Applicability {
	case ApplicabilityAll:
		return true
	case ApplicabilitySpecificCustomers:
		return customer.ID != "" && slices.Contains(r.CustomerIDs, customer.ID)
	case ApplicabilityCustomerGroups:
		if customer.ID == "" {
			return false
		}
		for _, g := range customer.Groups {
			if slices.Contains(r.CustomerGroups, g) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func refreshStatus(status PromotionStatus, now time.Time, expiry *time.Time, limit *int, used int) PromotionStatus {
	if status != StatusActive {
		return status
	}
	if expiry != nil && now.After(*expiry) {
		return StatusExpired
	}
	if limit != nil && used >= *limit {
		return StatusInactive
	}
	return status
}

// FreeGift is a complimentary line granted by a rule.
type FreeGift struct {
	RuleID    uuid.UUID `json:"ruleId"`
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
}

// BuyXGetYOffer marks an applicable buy-X-get-Y rule for the caller to realise.
type BuyXGetYOffer struct {
	RuleID       uuid.UUID       `json:"ruleId"`
	BuyProductID string          `json:"buyProductId"`
	BuyQuantity  int             `json:"buyQuantity"`
	GetProductID string          `json:"getProductId"`
	GetQuantity  int             `json:"getQuantity"`
	GetDiscount  decimal.Decimal `json:"getDiscount"`
}

// UpsellMessage nudges the customer toward a rule they have not reached yet.
type UpsellMessage struct {
	RuleID    uuid.UUID       `json:"ruleId"`
	Shortfall decimal.Decimal `json:"shortfall"`
	Message   string          `json:"message"`
}

// RuleEvaluation is the combined outcome of all active rules for one cart.
type RuleEvaluation struct {
	ApplicableRuleIDs []uuid.UUID     `json:"applicableRuleIds"`
	TotalDiscount     decimal.Decimal `json:"totalDiscount"`
	FreeDelivery      bool            `json:"freeDelivery"`
	FreeGifts         []FreeGift      `json:"freeGifts"`
	BuyXGetY          []BuyXGetYOffer `json:"buyXGetY"`
	UpsellMessages    []UpsellMessage `json:"upsellMessages"`
	ActiveMessages    []string        `json:"activeMessages"`
	LimitedRuleIDs    []uuid.UUID     `json:"-"`
}
