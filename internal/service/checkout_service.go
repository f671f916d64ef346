package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"checkout-engine/internal/coupon"
	"checkout-engine/internal/model"
	"checkout-engine/internal/money"
	"checkout-engine/internal/repository"
	"checkout-engine/internal/rules"
	"checkout-engine/internal/tax"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// publicIDPrefix prefixes the customer-facing order number.
const publicIDPrefix = "ORD-"

// CheckoutDeps groups the collaborators of the checkout service.
type CheckoutDeps struct {
	Carts          repository.CartRepository
	Orders         repository.OrderRepository
	Coupons        repository.CouponRepository
	Rules          repository.CartRuleRepository
	PaymentMethods repository.PaymentMethodRepository
	Validator      coupon.Validator
	Engine         RuleEvaluator
	Shipping       ShippingQuoter
	Tax            TaxRateResolver
	Rates          ExchangeRates
	Keys           OrderKeys
	OrderKeyTTL    time.Duration
	Now            func() time.Time
}

// checkoutService implements CheckoutService.
type checkoutService struct {
	deps   CheckoutDeps
	logger zerolog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(deps CheckoutDeps, logger zerolog.Logger) CheckoutService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &checkoutService{
		deps:   deps,
		logger: logger.With().Str("service", "checkout").Logger(),
	}
}

// ApplyCoupon validates the code against the current cart and stores it with its discount.
func (s *checkoutService) ApplyCoupon(ctx context.Context, req *model.ApplyCouponRequest) (*model.Cart, error) {
	ctx, span := tracer.Start(ctx, "checkout.ApplyCoupon")
	defer span.End()
	span.SetAttributes(attribute.String("cart.id", req.CartID.String()))

	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, failSpan(span, model.ErrCouponNotFound)
	}

	cart, err := s.loadCart(ctx, req.CartID)
	if err != nil {
		return nil, failSpan(span, err)
	}

	redemption, err := s.deps.Validator.Validate(ctx, code, cart.CustomerID, cart.Subtotal())
	if err != nil {
		s.logger.Warn().Str("coupon_code", code).Str("cart_id", cart.ID.String()).Err(err).Msg("coupon rejected")
		return nil, failSpan(span, err)
	}
	if !redemption.MinimumMet {
		return nil, failSpan(span, model.ErrCouponMinimumNotMet)
	}

	stored := redemption.Coupon.Code
	if err := s.deps.Carts.UpdateCoupon(ctx, cart.ID, &stored, redemption.Discount); err != nil {
		return nil, failSpan(span, err)
	}
	cart.CouponCode = &stored
	cart.CouponDiscount = redemption.Discount

	s.logger.Info().
		Str("cart_id", cart.ID.String()).
		Str("coupon_code", stored).
		Str("discount", redemption.Discount.String()).
		Msg("coupon applied")

	return cart, nil
}

// TaxRates returns the rates for a destination country.
func (s *checkoutService) TaxRates(ctx context.Context, country string) (model.TaxRates, error) {
	if strings.TrimSpace(country) == "" {
		return model.TaxRates{}, model.ErrCountryRequired
	}
	return s.deps.Tax.Rates(ctx, country)
}

// Quote prices the cart in the customer's currency.
func (s *checkoutService) Quote(ctx context.Context, req *model.QuoteRequest) (*model.Quote, error) {
	ctx, span := tracer.Start(ctx, "checkout.Quote")
	defer span.End()
	span.SetAttributes(attribute.String("cart.id", req.CartID.String()))

	cart, err := s.loadCart(ctx, req.CartID)
	if err != nil {
		return nil, failSpan(span, err)
	}
	quote, err := s.price(ctx, cart, req)
	if err != nil {
		return nil, failSpan(span, err)
	}
	span.SetAttributes(
		attribute.String("quote.currency", quote.Currency),
		attribute.String("quote.total", quote.Total.String()),
	)
	return quote, nil
}

// PlaceOrder prices the cart and, in one transaction, consumes coupon and rule
// usage and stores the order with its items.
func (s *checkoutService) PlaceOrder(ctx context.Context, req *model.PlaceOrderRequest) (*model.PlaceOrderResponse, error) {
	ctx, span := tracer.Start(ctx, "checkout.PlaceOrder")
	defer span.End()
	span.SetAttributes(attribute.String("cart.id", req.CartID.String()))

	resp, err := s.placeOrder(ctx, req)
	if err != nil {
		return nil, failSpan(span, err)
	}
	span.SetAttributes(attribute.String("order.public_id", resp.PublicID))
	return resp, nil
}

func (s *checkoutService) placeOrder(ctx context.Context, req *model.PlaceOrderRequest) (resp *model.PlaceOrderResponse, err error) {
	if req.PaymentMethodID == uuid.Nil {
		return nil, model.ErrPaymentMethodMissing
	}

	cart, err := s.loadCart(ctx, req.CartID)
	if err != nil {
		return nil, err
	}

	method, err := s.deps.PaymentMethods.GetByID(ctx, req.PaymentMethodID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment method: %w", err)
	}
	if method == nil || !method.Active {
		return nil, model.ErrPaymentMethodMissing
	}

	quote, err := s.price(ctx, cart, &req.QuoteRequest)
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		ID:               uuid.New(),
		PublicID:         publicIDPrefix + ulid.Make().String(),
		CartID:           cart.ID,
		CustomerID:       cart.CustomerID,
		Subtotal:         quote.Subtotal,
		DiscountTotal:    quote.Discount,
		ShippingTotal:    quote.Shipping.Total,
		TaxTotal:         quote.Tax.Amount,
		Total:            quote.Total,
		CustomerCurrency: quote.Currency,
		ExchangeRate:     quote.ExchangeRate,
		BaseCurrency:     quote.BaseCurrency,
		BaseTotal:        quote.BaseTotal,
		CouponCode:       quote.CouponCode,
		CouponID:         quote.CouponID,
		AppliedRuleIDs:   quote.Rules.ApplicableRuleIDs,
		PaymentMethodID:  method.ID,
		Country:          strings.ToUpper(strings.TrimSpace(req.Country)),
		City:             strings.TrimSpace(req.City),
		BillingAddress:   req.BillingAddress,
		CreatedAt:        s.deps.Now().UTC(),
	}
	order.Items = orderItems(order.ID, cart.Items, quote.Rules.FreeGifts, quote.ExchangeRate)

	// Start transaction
	tx, err := s.deps.Orders.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	// Ensure transaction is rolled back on error
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if quote.CouponID != nil {
		if _, err = s.deps.Coupons.Redeem(ctx, tx, *quote.CouponID); err != nil {
			s.logger.Warn().Err(err).Str("coupon_id", quote.CouponID.String()).Msg("coupon redemption refused")
			return nil, err
		}
	}

	for _, ruleID := range quote.Rules.LimitedRuleIDs {
		if err = s.deps.Rules.IncrementUsage(ctx, tx, ruleID); err != nil {
			s.logger.Warn().Err(err).Str("rule_id", ruleID.String()).Msg("rule usage refused")
			return nil, err
		}
	}

	if err = s.deps.Orders.CreateOrder(ctx, tx, order); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to create order")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err = s.deps.Orders.CreateOrderItems(ctx, tx, order.Items); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Int("item_count", len(order.Items)).
			Msg("failed to create order items")
		return nil, fmt.Errorf("failed to create order items: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}

	key, keyErr := s.deps.Keys.Mint(order.ID, order.PublicID, s.deps.OrderKeyTTL)
	if keyErr != nil {
		// the order is committed; the storefront can still confirm payment by id
		s.logger.Error().Err(keyErr).Str("order_id", order.ID.String()).Msg("failed to mint order key")
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("public_id", order.PublicID).
		Str("total", order.Total.String()).
		Str("currency", order.CustomerCurrency).
		Int("item_count", len(order.Items)).
		Msg("order placed")

	return &model.PlaceOrderResponse{
		OrderID:  order.ID,
		PublicID: order.PublicID,
		OrderKey: key,
		Total:    order.Total.StringFixed(money.Places),
		Currency: order.CustomerCurrency,
	}, nil
}

func (s *checkoutService) loadCart(ctx context.Context, id uuid.UUID) (*model.Cart, error) {
	cart, err := s.deps.Carts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if cart == nil {
		return nil, model.ErrCartNotFound
	}
	if err := cart.Validate(); err != nil {
		return nil, err
	}
	return cart, nil
}

// price runs the pricing pipeline in the base currency and converts the
// result for display. Any failure aborts the whole quote.
func (s *checkoutService) price(ctx context.Context, cart *model.Cart, req *model.QuoteRequest) (*model.Quote, error) {
	country := strings.ToUpper(strings.TrimSpace(req.Country))
	if country == "" {
		return nil, model.ErrCountryRequired
	}

	base := s.deps.Rates.Base()
	target, err := s.customerCurrency(req.CustomerCurrency, cart.Currency, base)
	if err != nil {
		return nil, err
	}

	subtotal := cart.Subtotal()

	evaluation, err := s.deps.Engine.EvaluateActive(ctx, rules.Input{
		Items:    cart.Items,
		Subtotal: subtotal,
		Customer: model.Customer{ID: cart.CustomerID, Groups: cart.CustomerGroups},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate cart rules: %w", err)
	}

	couponDiscount := decimal.Zero
	var couponCode *string
	var couponID *uuid.UUID
	if cart.CouponCode != nil && *cart.CouponCode != "" {
		redemption, err := s.deps.Validator.Validate(ctx, *cart.CouponCode, cart.CustomerID, subtotal)
		if err != nil {
			return nil, err
		}
		couponCode = &redemption.Coupon.Code
		if redemption.MinimumMet {
			couponDiscount = redemption.Discount
			couponID = &redemption.Coupon.ID
		}
	}

	discount := money.Min(evaluation.TotalDiscount.Add(couponDiscount), subtotal)

	shipping := model.ShippingQuote{BaseCost: decimal.Zero, Tax: decimal.Zero, Total: decimal.Zero}
	if req.ShippingMethodID != nil {
		shipping, err = s.deps.Shipping.Cost(ctx, *req.ShippingMethodID, country, req.City, subtotal)
		if err != nil {
			return nil, err
		}
		if evaluation.FreeDelivery {
			shipping = model.FreeShipping()
		}
	}

	rates, err := s.deps.Tax.Rates(ctx, country)
	if err != nil {
		return nil, err
	}
	taxable := subtotal.Sub(discount).Add(shipping.Total)
	breakdown := tax.Compute(rates, taxable)

	baseTotal := money.ClampZero(subtotal.Sub(discount).Add(shipping.Total).Add(breakdown.Amount))

	rate, err := s.deps.Rates.Rate(ctx, base, target)
	if err != nil {
		return nil, err
	}
	convert := func(d decimal.Decimal) decimal.Decimal { return money.Round(d.Mul(rate)) }

	quote := &model.Quote{
		CartID:         cart.ID,
		Currency:       target,
		ExchangeRate:   rate,
		Subtotal:       convert(subtotal),
		RuleDiscount:   convert(evaluation.TotalDiscount),
		CouponDiscount: convert(couponDiscount),
		Discount:       convert(discount),
		Shipping: model.ShippingQuote{
			BaseCost: convert(shipping.BaseCost),
			Tax:      convert(shipping.Tax),
			Total:    convert(shipping.Total),
			IsFree:   shipping.IsFree,
		},
		Tax:          breakdown,
		BaseTotal:    baseTotal,
		BaseCurrency: base,
		Rules:        evaluation,
		CouponCode:   couponCode,
		CouponID:     couponID,
	}
	quote.Tax.Amount = convert(breakdown.Amount)
	quote.Total = money.ClampZero(quote.Subtotal.Sub(quote.Discount).Add(quote.Shipping.Total).Add(quote.Tax.Amount))

	s.logger.Debug().
		Str("cart_id", cart.ID.String()).
		Str("subtotal", subtotal.String()).
		Str("discount", discount.String()).
		Str("shipping", shipping.Total.String()).
		Str("tax", breakdown.Amount.String()).
		Str("base_total", baseTotal.String()).
		Str("currency", target).
		Msg("cart priced")

	return quote, nil
}

// customerCurrency picks the requested currency, then the cart's, then the base.
func (s *checkoutService) customerCurrency(requested, cartCurrency, base string) (string, error) {
	code := requested
	if strings.TrimSpace(code) == "" {
		code = cartCurrency
	}
	if strings.TrimSpace(code) == "" {
		return base, nil
	}
	parsed, err := money.ParseCurrency(code)
	if err != nil {
		return "", model.ErrInvalidCurrency.Wrap(err)
	}
	return parsed, nil
}

// orderItems snapshots cart lines in the customer currency and appends free gifts.
func orderItems(orderID uuid.UUID, items []model.CartItem, gifts []model.FreeGift, rate decimal.Decimal) []model.OrderItem {
	out := make([]model.OrderItem, 0, len(items)+len(gifts))
	for _, item := range items {
		unit := money.Round(item.UnitPrice.Mul(rate))
		out = append(out, model.OrderItem{
			ID:          uuid.New(),
			OrderID:     orderID,
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			VariantText: item.VariantText,
			ImageURL:    item.ImageURL,
			Quantity:    item.Quantity,
			UnitPrice:   unit,
			LineTotal:   money.Round(unit.Mul(decimal.NewFromInt(int64(item.Quantity)))),
		})
	}
	for _, gift := range gifts {
		out = append(out, model.OrderItem{
			ID:        uuid.New(),
			OrderID:   orderID,
			ProductID: gift.ProductID,
			Quantity:  gift.Quantity,
			UnitPrice: decimal.Zero,
			LineTotal: decimal.Zero,
			IsGift:    true,
		})
	}
	return out
}
