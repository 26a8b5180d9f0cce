package dto

import (
	"time"

	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/shared/money"
)

const DateLayout = "2006-01-02"

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Display  string `json:"display"`
}

type Booking struct {
	ID             string       `json:"id"`
	PropertyID     string       `json:"property_id"`
	GuestID        string       `json:"guest_id"`
	CheckIn        string       `json:"check_in"`
	CheckOut       string       `json:"check_out"`
	Nights         int          `json:"nights"`
	NumberOfGuests int          `json:"number_of_guests"`
	TotalPrice     MoneyDTO     `json:"total_price"`
	Status         string       `json:"status"`
	CancelReason   string       `json:"cancel_reason,omitempty"`
	Conversation   Conversation `json:"conversation"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

type BookingCollection struct {
	Items []Booking `json:"items"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{
		Amount:   value.Amount,
		Currency: value.Currency,
		Display:  value.Decimal(),
	}
}

// MapBooking builds the booking payload. viewer selects whose unread count the
// embedded conversation reports.
func MapBooking(b *domainbooking.Booking, viewer string) Booking {
	if b == nil {
		return Booking{}
	}
	return Booking{
		ID:             string(b.ID),
		PropertyID:     string(b.PropertyID),
		GuestID:        string(b.GuestID),
		CheckIn:        b.Range.CheckIn.Format(DateLayout),
		CheckOut:       b.Range.CheckOut.Format(DateLayout),
		Nights:         b.Range.Nights(),
		NumberOfGuests: b.Guests,
		TotalPrice:     MapMoney(b.TotalPrice),
		Status:         string(b.Status),
		CancelReason:   b.CancelReason,
		Conversation:   MapConversation(b, viewer),
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}

// GuestBooking is a booking as listed for its guest.
type GuestBooking struct {
	Booking
	PropertyTitle string `json:"property_title,omitempty"`
}

type GuestBookingCollection struct {
	Items []GuestBooking `json:"items"`
}
