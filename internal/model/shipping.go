package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CitiesType says whether a shipping method serves a whole country or a list of cities.
type CitiesType string

const (
	CitiesAll      CitiesType = "all"
	CitiesSpecific CitiesType = "specific"
)

// ShippingCity is a per-city override. Nil cost or threshold falls back to the method's values.
type ShippingCity struct {
	Name          string           `json:"name"`
	Code          string           `json:"code,omitempty"`
	Cost          *decimal.Decimal `json:"cost,omitempty"`
	FreeThreshold *decimal.Decimal `json:"freeThreshold,omitempty"`
	Active        bool             `json:"active"`
}

// ShippingMethod is a delivery option bound to one country.
type ShippingMethod struct {
	ID            uuid.UUID        `json:"id"`
	Name          string           `json:"name"`
	CountryID     string           `json:"countryId"`
	Cost          decimal.Decimal  `json:"cost"`
	FreeThreshold *decimal.Decimal `json:"freeThreshold,omitempty"`
	Taxable       bool             `json:"taxable"`
	TaxRate       decimal.Decimal  `json:"taxRate"`
	CitiesType    CitiesType       `json:"citiesType"`
	Cities        []ShippingCity   `json:"cities,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// MatchCity finds an active city entry by name or code, ignoring case.
func (m *ShippingMethod) MatchCity(city string) (*ShippingCity, bool) {
	city = strings.TrimSpace(city)
	for i := range m.Cities {
		c := &m.Cities[i]
		if !c.Active {
			continue
		}
		if strings.EqualFold(c.Name, city) || (c.Code != "" && strings.EqualFold(c.Code, city)) {
			return c, true
		}
	}
	return nil, false
}

// ShippingQuote is the resolved delivery charge.
type ShippingQuote struct {
	BaseCost decimal.Decimal `json:"baseCost"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
	IsFree   bool            `json:"isFree"`
}

// FreeShipping is the zero quote used for thresholds and free-delivery rules.
func FreeShipping() ShippingQuote {
	return ShippingQuote{BaseCost: decimal.Zero, Tax: decimal.Zero, Total: decimal.Zero, IsFree: true}
}
