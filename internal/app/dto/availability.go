package dto

import domainpricing "staybook/internal/domain/pricing"

// Quote is the price of a stay with its inputs.
type Quote struct {
	Nights  int      `json:"nights"`
	Nightly MoneyDTO `json:"nightly"`
	Total   MoneyDTO `json:"total"`
}

func MapQuote(b domainpricing.PriceBreakdown) Quote {
	return Quote{Nights: b.Nights, Nightly: MapMoney(b.Nightly), Total: MapMoney(b.Total)}
}

// Availability answers whether a property can take a stay for the range.
type Availability struct {
	PropertyID string    `json:"property_id"`
	CheckIn    string    `json:"check_in"`
	CheckOut   string    `json:"check_out"`
	Available  bool      `json:"available"`
	Nights     int       `json:"nights"`
	Quote      *Quote `json:"quote,omitempty"`
}
