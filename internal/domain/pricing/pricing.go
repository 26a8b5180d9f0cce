// Package pricing computes what a stay costs. It is pure: callers validate the
// range beforehand and round only when presenting.
package pricing

import (
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

type PriceBreakdown struct {
	Nights  int
	Nightly money.Money
	Total   money.Money
}

// ComputePrice returns nightly × nights for a range whose check-out is after check-in.
func ComputePrice(nightly money.Money, dr daterange.DateRange) money.Money {
	return nightly.Multiply(int64(dr.Nights()))
}

// Quote is ComputePrice with the inputs kept alongside the total.
func Quote(nightly money.Money, dr daterange.DateRange) PriceBreakdown {
	return PriceBreakdown{
		Nights:  dr.Nights(),
		Nightly: nightly,
		Total:   ComputePrice(nightly, dr),
	}
}
