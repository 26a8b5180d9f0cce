package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	bookingapp "staybook/internal/app/handlers/booking"
	"staybook/internal/app/policies"
	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/errs"
	"staybook/internal/domain/shared/money"
	domainuser "staybook/internal/domain/user"
	"staybook/internal/infra/storage/memory"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func newBuses(t *testing.T) Buses {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	p, err := domainproperty.NewProperty(domainproperty.CreateParams{
		ID: "p1", Owner: "owner", Title: "Loft", PricePerNight: money.Must(10000, "USD"), MaxGuests: 4, Available: true,
	})
	require.NoError(t, err)
	require.NoError(t, store.SeedProperty(ctx, p))
	for _, id := range []domainuser.ID{"guest", "owner"} {
		u, err := domainuser.NewUser(domainuser.CreateParams{ID: id})
		require.NoError(t, err)
		require.NoError(t, store.SeedUser(ctx, u))
	}
	return NewBuses(Deps{
		UoWFactory:  store,
		Outbox:      memory.Outbox{},
		Idempotency: memory.NewIdempotencyStore(time.Hour),
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestCreateBookingReportsFirstFailingCheck(t *testing.T) {
	buses := newBuses(t)
	ctx := policies.ContextWithPrincipal(context.Background(), policies.Principal{UserID: "guest"})
	create := func(property, in, out string, guests int) error {
		_, err := commands.Dispatch[bookingapp.CreateBookingCommand, dto.Booking](ctx, buses.Commands, bookingapp.CreateBookingCommand{
			PropertyID: property, GuestID: "guest", CheckIn: day(in), CheckOut: day(out), NumberOfGuests: guests,
		})
		return err
	}

	err := create("p1", "2024-02-05", "2024-02-01", 0)
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)

	err = create("missing", "2024-02-01", "2024-02-05", 0)
	assert.ErrorIs(t, err, domainproperty.ErrNotFound)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	err = create("p1", "2024-02-01", "2024-02-05", 0)
	assert.ErrorIs(t, err, domainbooking.ErrInvalidGuests)

	require.NoError(t, create("p1", "2024-02-01", "2024-02-05", 2))
	err = create("p1", "2024-02-03", "2024-02-06", 9)
	assert.ErrorIs(t, err, domainbooking.ErrDatesConflict)

	err = create("p1", "2024-02-05", "2024-02-08", 9)
	assert.ErrorIs(t, err, domainbooking.ErrCapacityExceeded)
}
