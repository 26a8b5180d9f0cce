package me

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookinghandlers "staybook/internal/app/handlers/booking"
	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
	domainuser "staybook/internal/domain/user"
	"staybook/internal/infra/storage/memory"
)

var now = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func TestGuestSeesOwnBookingsWithTitles(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	for _, id := range []domainproperty.ID{"p1", "p2"} {
		p, err := domainproperty.NewProperty(domainproperty.CreateParams{
			ID: id, Owner: "owner", Title: "Stay " + string(id), PricePerNight: money.Must(10000, "USD"), MaxGuests: 4, Available: true, Now: now,
		})
		require.NoError(t, err)
		require.NoError(t, store.SeedProperty(ctx, p))
	}
	for _, id := range []domainuser.ID{"guest", "other"} {
		u, err := domainuser.NewUser(domainuser.CreateParams{ID: id})
		require.NoError(t, err)
		require.NoError(t, store.SeedUser(ctx, u))
	}

	create := &bookinghandlers.CreateBookingHandler{UoWFactory: store, Outbox: memory.Outbox{}}
	book := func(property, guest, in, out string) {
		ci, _ := daterange.ParseDay(in)
		co, _ := daterange.ParseDay(out)
		_, err := create.Handle(ctx, bookinghandlers.CreateBookingCommand{PropertyID: property, GuestID: guest, CheckIn: ci, CheckOut: co, NumberOfGuests: 1, Now: now})
		require.NoError(t, err)
	}
	book("p2", "guest", "2024-03-01", "2024-03-03")
	book("p1", "guest", "2024-02-01", "2024-02-03")
	book("p1", "other", "2024-02-10", "2024-02-12")

	h := &ListGuestBookingsHandler{UoWFactory: store}
	out, err := h.Handle(ctx, ListGuestBookingsQuery{GuestID: "guest"})
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	assert.Equal(t, "Stay p1", out.Items[0].PropertyTitle)
	assert.Equal(t, "Stay p2", out.Items[1].PropertyTitle)

	none, err := h.Handle(ctx, ListGuestBookingsQuery{GuestID: "guest", Status: "confirmed"})
	require.NoError(t, err)
	assert.Empty(t, none.Items)

	_, err = h.Handle(ctx, ListGuestBookingsQuery{GuestID: "guest", Status: "archived"})
	assert.ErrorIs(t, err, domainbooking.ErrInvalidStatus)
}
