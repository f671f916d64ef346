package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is a line in a customer's cart. Unit prices are in the store base currency.
type CartItem struct {
	ProductID     string          `json:"productId"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	VariantID     *string         `json:"variantId,omitempty"`
	VariantText   string          `json:"variantText,omitempty"`
	ImageURL      string          `json:"imageUrl,omitempty"`
	CollectionIDs []string        `json:"collectionIds,omitempty"`
}

// LineTotal returns unit price times quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart represents a customer's cart together with its coupon annotation.
type Cart struct {
	ID             uuid.UUID       `json:"id"`
	CustomerID     string          `json:"customerId,omitempty"`
	CustomerGroups []string        `json:"customerGroups,omitempty"`
	Currency       string          `json:"currency"`
	Items          []CartItem      `json:"items"`
	CouponCode     *string         `json:"couponCode,omitempty"`
	CouponDiscount decimal.Decimal `json:"couponDiscount"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Subtotal sums the line totals of every item.
func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// TotalQuantity sums item quantities.
func (c Cart) TotalQuantity() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// Validate checks that the cart can be priced.
func (c Cart) Validate() error {
	if len(c.Items) == 0 {
		return ErrInvalidCart
	}
	for _, item := range c.Items {
		if item.ProductID == "" || item.Quantity < 1 || item.UnitPrice.IsNegative() {
			return ErrInvalidCart
		}
	}
	return nil
}

// Customer identifies who is checking out. A zero value is a guest.
type Customer struct {
	ID     string
	Groups []string
}
