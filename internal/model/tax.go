package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxType distinguishes the store-wide fallback rate from country-bound rates.
type TaxType string

const (
	TaxTypeDefault  TaxType = "default"
	TaxTypeSpecific TaxType = "specific"
	TaxTypeNone     TaxType = "none"
)

// TaxRate is a configured tax. Specific rates bind to CountryIDs.
type TaxRate struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Type       TaxType         `json:"taxType"`
	Percentage decimal.Decimal `json:"percentage"`
	CountryIDs []string        `json:"countryIds,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// TaxRates is the rate lookup result for a country.
type TaxRates struct {
	Type  TaxType   `json:"type"`
	Rates []TaxRate `json:"rates"`
}

// TotalPercentage sums the percentages of all rates.
func (t TaxRates) TotalPercentage() decimal.Decimal {
	total := decimal.Zero
	for _, r := range t.Rates {
		total = total.Add(r.Percentage)
	}
	return total
}

// TaxBreakdown is the resolved tax for an amount.
type TaxBreakdown struct {
	Type            TaxType         `json:"type"`
	Rates           []TaxRate       `json:"rates"`
	TotalPercentage decimal.Decimal `json:"totalPercentage"`
	Amount          decimal.Decimal `json:"taxAmount"`
}
