package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/errs"
	"staybook/internal/domain/shared/money"
)

var now = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func newPending(t *testing.T) *Booking {
	t.Helper()
	dr, err := daterange.Parse("2024-02-01", "2024-02-05")
	require.NoError(t, err)
	b, err := NewBooking(CreateParams{
		ID:             "b1",
		ConversationID: "c1",
		PropertyID:     "p1",
		GuestID:        "guest",
		Range:          dr,
		Guests:         2,
		TotalPrice:     pricing.ComputePrice(money.Must(10000, "USD"), dr),
		CreatedAt:      now,
	})
	require.NoError(t, err)
	return b
}

func TestNewBookingStartsPendingWithOpenConversation(t *testing.T) {
	b := newPending(t)
	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, int64(40000), b.TotalPrice.Amount)
	assert.True(t, b.Conversation.Active)
	assert.Empty(t, b.Conversation.Messages)
	assert.Equal(t, ConversationID("c1"), b.Conversation.ID)

	evts := b.Drain()
	require.Len(t, evts, 1)
	assert.Equal(t, "booking.requested", evts[0].EventName())
}

func TestNewBookingValidation(t *testing.T) {
	dr, _ := daterange.Parse("2024-02-01", "2024-02-05")
	_, err := NewBooking(CreateParams{GuestID: "", Guests: 1, Range: dr})
	assert.ErrorIs(t, err, ErrGuestRequired)
	_, err = NewBooking(CreateParams{GuestID: "g", Guests: 0, Range: dr})
	assert.ErrorIs(t, err, ErrInvalidGuests)
	_, err = NewBooking(CreateParams{GuestID: "g", Guests: 1, Range: daterange.DateRange{CheckIn: dr.CheckOut, CheckOut: dr.CheckIn}})
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)
}

func TestCheckCapacity(t *testing.T) {
	assert.NoError(t, CheckCapacity(4, 4))
	err := CheckCapacity(6, 4)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
	assert.NotErrorIs(t, err, ErrDatesConflict)
	assert.ErrorIs(t, CheckCapacity(0, 4), ErrInvalidGuests)
}

func TestLifecycleTransitions(t *testing.T) {
	b := newPending(t)
	require.NoError(t, b.Confirm(now))
	assert.Equal(t, StatusConfirmed, b.Status)
	require.NoError(t, b.Confirm(now), "confirmed to confirmed is allowed")

	require.NoError(t, b.Cancel("plans changed", now))
	assert.Equal(t, StatusCancelled, b.Status)
	assert.False(t, b.Conversation.Active)
	assert.False(t, b.Reservation().Active)

	assert.ErrorIs(t, b.Confirm(now), ErrInvalidTransition)
	assert.ErrorIs(t, b.Cancel("again", now), ErrInvalidTransition)
	assert.ErrorIs(t, b.TransitionTo(StatusPending, "", now), ErrInvalidTransition)
	assert.ErrorIs(t, b.Reschedule(b.Range, b.TotalPrice, now), ErrInvalidTransition)
}

func TestPendingCanBeCancelledDirectly(t *testing.T) {
	b := newPending(t)
	require.NoError(t, b.TransitionTo(StatusCancelled, "", now))
	assert.Equal(t, StatusCancelled, b.Status)
}

func TestConfirmedCannotReturnToPending(t *testing.T) {
	b := newPending(t)
	require.NoError(t, b.TransitionTo(StatusConfirmed, "", now))
	assert.ErrorIs(t, b.TransitionTo(StatusPending, "", now), ErrInvalidTransition)
	assert.ErrorIs(t, b.TransitionTo("archived", "", now), ErrInvalidStatus)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" Confirmed ")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, s)
	_, err = ParseStatus("done")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestRescheduleRecomputesPrice(t *testing.T) {
	b := newPending(t)
	b.Drain()
	dr, _ := daterange.Parse("2024-03-01", "2024-03-03")
	total := pricing.ComputePrice(money.Must(10000, "USD"), dr)
	require.NoError(t, b.Reschedule(dr, total, now))
	assert.Equal(t, int64(20000), b.TotalPrice.Amount)
	assert.True(t, b.Range.Equal(dr))

	evts := b.Drain()
	require.Len(t, evts, 1)
	assert.Equal(t, "booking.rescheduled", evts[0].EventName())
}

func TestChangeGuests(t *testing.T) {
	b := newPending(t)
	assert.ErrorIs(t, b.ChangeGuests(5, 4, now), ErrCapacityExceeded)
	assert.Equal(t, 2, b.Guests)
	require.NoError(t, b.ChangeGuests(3, 4, now))
	assert.Equal(t, 3, b.Guests)
}
