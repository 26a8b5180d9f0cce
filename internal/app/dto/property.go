package dto

import (
	"math"

	domainproperty "staybook/internal/domain/property"
)

type Property struct {
	ID            string   `json:"id"`
	OwnerID       string   `json:"owner_id"`
	Title         string   `json:"title"`
	PricePerNight MoneyDTO `json:"price_per_night"`
	MaxGuests     int      `json:"max_guests"`
	Available     bool     `json:"available"`
	AvgRating     float64  `json:"avg_rating"`
	TotalRatings  int      `json:"total_ratings"`
}

func MapProperty(p *domainproperty.Property) Property {
	if p == nil {
		return Property{}
	}
	return Property{
		ID:            string(p.ID),
		OwnerID:       string(p.Owner),
		Title:         p.Title,
		PricePerNight: MapMoney(p.PricePerNight),
		MaxGuests:     p.MaxGuests,
		Available:     p.Available,
		AvgRating:     math.Round(p.AvgRating*10) / 10,
		TotalRatings:  p.TotalRatings,
	}
}
