package property

import "time"

type RatingRecalculated struct {
	PropertyID   ID
	AvgRating    float64
	TotalRatings int
	At           time.Time
}

func (e RatingRecalculated) EventName() string     { return "property.rating_recalculated" }
func (e RatingRecalculated) AggregateID() string   { return string(e.PropertyID) }
func (e RatingRecalculated) OccurredAt() time.Time { return e.At }

type AvailabilityChanged struct {
	PropertyID ID
	Available  bool
	At         time.Time
}

func (e AvailabilityChanged) EventName() string     { return "property.availability_changed" }
func (e AvailabilityChanged) AggregateID() string   { return string(e.PropertyID) }
func (e AvailabilityChanged) OccurredAt() time.Time { return e.At }
