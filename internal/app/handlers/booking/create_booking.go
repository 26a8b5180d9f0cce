package booking

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/middleware"
	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domainpricing "staybook/internal/domain/pricing"
	domainproperty "staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
	domainuser "staybook/internal/domain/user"
)

const createBookingKey = "booking.create"

type CreateBookingCommand struct {
	PropertyID      string    `json:"property_id" validate:"required"`
	GuestID         string    `json:"guest_id" validate:"required"`
	CheckIn         time.Time `json:"check_in"`
	CheckOut        time.Time `json:"check_out"`
	NumberOfGuests  int       `json:"number_of_guests"`
	IdempotencyKeyV string    `json:"-"`
	Now             time.Time `json:"-"`
}

func (c CreateBookingCommand) Key() string { return createBookingKey }

func (c CreateBookingCommand) Actor() string { return c.GuestID }

func (c CreateBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateBookingCommand) ResultPrototype() any { return &dto.Booking{} }

// CreateBookingHandler admits a booking request against the property's calendar.
type CreateBookingHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

// Handle runs the admission checks in a fixed order so the first failure is the
// reported one: dates, property, guest, calendar, capacity.
func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (dto.Booking, error) {
	unit, err := handlersupport.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Booking{}, err
	}
	defer unit.Close()
	ctx = unit.Ctx

	now := cmd.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	dr, err := daterange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return dto.Booking{}, err
	}

	property, err := unit.Properties().ByID(ctx, domainproperty.ID(cmd.PropertyID))
	if err != nil {
		return dto.Booking{}, err
	}
	if !property.Bookable() {
		return dto.Booking{}, domainproperty.ErrNotBookable
	}

	guest, err := unit.Users().ByID(ctx, domainuser.ID(cmd.GuestID))
	if err != nil {
		return dto.Booking{}, err
	}

	if _, err := unit.Calendars().Touch(ctx, property.ID, now); err != nil {
		return dto.Booking{}, err
	}
	free, err := domainavailability.NewGuard(unit.Bookings()).IsAvailable(ctx, property.ID, dr, "")
	if err != nil {
		return dto.Booking{}, err
	}
	if !free {
		return dto.Booking{}, domainbooking.ErrDatesConflict
	}

	if err := domainbooking.CheckCapacity(cmd.NumberOfGuests, property.MaxGuests); err != nil {
		return dto.Booking{}, err
	}

	booking, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:             domainbooking.ID(uuid.NewString()),
		ConversationID: domainbooking.ConversationID(uuid.NewString()),
		PropertyID:     property.ID,
		GuestID:        guest.ID,
		Range:          dr,
		Guests:         cmd.NumberOfGuests,
		TotalPrice:     domainpricing.ComputePrice(property.PricePerNight, dr),
		CreatedAt:      now,
	})
	if err != nil {
		return dto.Booking{}, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return dto.Booking{}, err
	}
	if err := outbox.RecordAggregates(ctx, h.Outbox, h.Encoder, booking); err != nil {
		return dto.Booking{}, err
	}
	if err := unit.Finish(); err != nil {
		return dto.Booking{}, err
	}

	if h.Logger != nil {
		h.Logger.Info("booking requested",
			"booking_id", booking.ID,
			"property_id", booking.PropertyID,
			"guest_id", booking.GuestID,
			"range", booking.Range.String(),
			"total", booking.TotalPrice.String(),
		)
	}
	return dto.MapBooking(booking, cmd.GuestID), nil
}

var _ commands.Handler[CreateBookingCommand, dto.Booking] = (*CreateBookingHandler)(nil)
var _ middleware.IdempotentCommand = CreateBookingCommand{}
