package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Currency is a channel currency with its rate against the base currency.
type Currency struct {
	Code         string          `json:"code"`
	ExchangeRate decimal.Decimal `json:"exchangeRate"`
	IsDefault    bool            `json:"isDefault"`
}

// SalesChannel owns the currencies a storefront sells in.
type SalesChannel struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	IsDefault  bool       `json:"isDefault"`
	Active     bool       `json:"active"`
	Currencies []Currency `json:"currencies"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Currency looks up a channel currency by ISO code.
func (s *SalesChannel) Currency(code string) (Currency, bool) {
	for _, c := range s.Currencies {
		if c.Code == code {
			return c, true
		}
	}
	return Currency{}, false
}

// DefaultCurrency returns the channel's default currency.
func (s *SalesChannel) DefaultCurrency() (Currency, bool) {
	for _, c := range s.Currencies {
		if c.IsDefault {
			return c, true
		}
	}
	return Currency{}, false
}
