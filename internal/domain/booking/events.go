package booking

import (
	"time"

	"staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
	"staybook/internal/domain/user"
)

type BookingRequested struct {
	BookingID  ID
	PropertyID property.ID
	GuestID    user.ID
	Range      daterange.DateRange
	Guests     int
	TotalPrice money.Money
	At         time.Time
}

func (e BookingRequested) EventName() string     { return "booking.requested" }
func (e BookingRequested) AggregateID() string   { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingRescheduled struct {
	BookingID  ID
	PropertyID property.ID
	Previous   daterange.DateRange
	Range      daterange.DateRange
	TotalPrice money.Money
	At         time.Time
}

func (e BookingRescheduled) EventName() string     { return "booking.rescheduled" }
func (e BookingRescheduled) AggregateID() string   { return string(e.BookingID) }
func (e BookingRescheduled) OccurredAt() time.Time { return e.At }

type BookingConfirmed struct {
	BookingID  ID
	PropertyID property.ID
	Range      daterange.DateRange
	TotalPrice money.Money
	At         time.Time
}

func (e BookingConfirmed) EventName() string     { return "booking.confirmed" }
func (e BookingConfirmed) AggregateID() string   { return string(e.BookingID) }
func (e BookingConfirmed) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID  ID
	PropertyID property.ID
	Range      daterange.DateRange
	Reason     string
	At         time.Time
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type MessagePosted struct {
	ConversationID ConversationID
	BookingID      ID
	From           user.ID
	To             user.ID
	Index          int
	At             time.Time
}

func (e MessagePosted) EventName() string     { return "conversation.message_posted" }
func (e MessagePosted) AggregateID() string   { return string(e.BookingID) }
func (e MessagePosted) OccurredAt() time.Time { return e.At }

type ConversationRead struct {
	ConversationID ConversationID
	BookingID      ID
	ReaderID       user.ID
	Count          int
	At             time.Time
}

func (e ConversationRead) EventName() string     { return "conversation.read" }
func (e ConversationRead) AggregateID() string   { return string(e.BookingID) }
func (e ConversationRead) OccurredAt() time.Time { return e.At }
