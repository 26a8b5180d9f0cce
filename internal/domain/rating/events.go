package rating

import (
	"time"

	"staybook/internal/domain/property"
	"staybook/internal/domain/user"
)

type RatingSubmitted struct {
	RatingID   ID
	PropertyID property.ID
	UserID     user.ID
	Value      float64
	At         time.Time
}

func (e RatingSubmitted) EventName() string     { return "rating.submitted" }
func (e RatingSubmitted) AggregateID() string   { return string(e.RatingID) }
func (e RatingSubmitted) OccurredAt() time.Time { return e.At }

type RatingUpdated struct {
	RatingID   ID
	PropertyID property.ID
	Value      float64
	At         time.Time
}

func (e RatingUpdated) EventName() string     { return "rating.updated" }
func (e RatingUpdated) AggregateID() string   { return string(e.RatingID) }
func (e RatingUpdated) OccurredAt() time.Time { return e.At }

type RatingRemoved struct {
	RatingID   ID
	PropertyID property.ID
	UserID     user.ID
	At         time.Time
}

func (e RatingRemoved) EventName() string     { return "rating.removed" }
func (e RatingRemoved) AggregateID() string   { return string(e.RatingID) }
func (e RatingRemoved) OccurredAt() time.Time { return e.At }
