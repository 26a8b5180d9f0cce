package booking

import (
	"context"
	"log/slog"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domainpricing "staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/errs"
)

const updateBookingKey = "booking.update"

var ErrNothingToUpdate = errs.New(errs.ErrInvalidInput, "booking: nothing to update")

// UpdateBookingCommand carries a partial update. Nil fields stay as they are.
// Property and guest are fixed at creation and cannot be changed here.
type UpdateBookingCommand struct {
	BookingID      string     `json:"booking_id" validate:"required"`
	ActorID        string     `json:"actor_id" validate:"required"`
	CheckIn        *time.Time `json:"check_in,omitempty"`
	CheckOut       *time.Time `json:"check_out,omitempty"`
	NumberOfGuests *int       `json:"number_of_guests,omitempty"`
	Status         *string    `json:"status,omitempty"`
	CancelReason   string     `json:"cancel_reason,omitempty"`
	Now            time.Time  `json:"-"`
}

func (c UpdateBookingCommand) Key() string { return updateBookingKey }

func (c UpdateBookingCommand) Actor() string { return c.ActorID }

func (c UpdateBookingCommand) empty() bool {
	return c.CheckIn == nil && c.CheckOut == nil && c.NumberOfGuests == nil && c.Status == nil
}

type UpdateBookingHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *UpdateBookingHandler) Handle(ctx context.Context, cmd UpdateBookingCommand) (dto.Booking, error) {
	if cmd.empty() {
		return dto.Booking{}, ErrNothingToUpdate
	}
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

	booking, err := unit.Bookings().ByID(ctx, domainbooking.ID(cmd.BookingID))
	if err != nil {
		return dto.Booking{}, err
	}
	property, err := unit.Properties().ByID(ctx, booking.PropertyID)
	if err != nil {
		return dto.Booking{}, err
	}
	if !booking.IsParticipant(cmd.ActorID, property.Owner) {
		return dto.Booking{}, domainbooking.ErrNotParticipant
	}

	if cmd.CheckIn != nil || cmd.CheckOut != nil {
		if err := booking.CanReschedule(); err != nil {
			return dto.Booking{}, err
		}
		checkIn, checkOut := booking.Range.CheckIn, booking.Range.CheckOut
		if cmd.CheckIn != nil {
			checkIn = *cmd.CheckIn
		}
		if cmd.CheckOut != nil {
			checkOut = *cmd.CheckOut
		}
		dr, err := daterange.New(checkIn, checkOut)
		if err != nil {
			return dto.Booking{}, err
		}
		if !dr.Equal(booking.Range) {
			if _, err := unit.Calendars().Touch(ctx, property.ID, now); err != nil {
				return dto.Booking{}, err
			}
			free, err := domainavailability.NewGuard(unit.Bookings()).IsAvailable(ctx, property.ID, dr, string(booking.ID))
			if err != nil {
				return dto.Booking{}, err
			}
			if !free {
				return dto.Booking{}, domainbooking.ErrDatesConflict
			}
			if err := booking.Reschedule(dr, domainpricing.ComputePrice(property.PricePerNight, dr), now); err != nil {
				return dto.Booking{}, err
			}
		}
	}

	if cmd.NumberOfGuests != nil {
		if err := booking.ChangeGuests(*cmd.NumberOfGuests, property.MaxGuests, now); err != nil {
			return dto.Booking{}, err
		}
	}

	if cmd.Status != nil {
		target, err := domainbooking.ParseStatus(*cmd.Status)
		if err != nil {
			return dto.Booking{}, err
		}
		if err := applyStatus(ctx, unit, booking, property.Owner, cmd.ActorID, target, cmd.CancelReason, now); err != nil {
			return dto.Booking{}, err
		}
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
		h.Logger.Info("booking updated", "booking_id", booking.ID, "property_id", booking.PropertyID, "status", booking.Status, "actor_id", cmd.ActorID)
	}
	return dto.MapBooking(booking, cmd.ActorID), nil
}

var _ commands.Handler[UpdateBookingCommand, dto.Booking] = (*UpdateBookingHandler)(nil)
