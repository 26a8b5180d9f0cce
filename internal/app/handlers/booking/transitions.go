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
	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
	domainuser "staybook/internal/domain/user"
)

const (
	confirmBookingKey = "booking.confirm"
	cancelBookingKey  = "booking.cancel"
	deleteBookingKey  = "booking.delete"
)

// applyStatus enforces who may drive each transition. Confirmation belongs to
// the property owner; either participant may cancel.
func applyStatus(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking, owner domainproperty.OwnerID, actor string, target domainbooking.Status, reason string, now time.Time) error {
	switch target {
	case domainbooking.StatusConfirmed:
		if string(owner) != actor {
			return domainbooking.ErrNotPropertyOwner
		}
	case domainbooking.StatusCancelled:
		if !b.IsParticipant(actor, owner) {
			return domainbooking.ErrNotParticipant
		}
		if b.Status.Blocking() {
			if _, err := unit.Calendars().Touch(ctx, b.PropertyID, now); err != nil {
				return err
			}
		}
	}
	return b.TransitionTo(target, reason, now)
}

type ConfirmBookingCommand struct {
	BookingID string    `json:"booking_id" validate:"required"`
	ActorID   string    `json:"actor_id" validate:"required"`
	Now       time.Time `json:"-"`
}

func (c ConfirmBookingCommand) Key() string   { return confirmBookingKey }
func (c ConfirmBookingCommand) Actor() string { return c.ActorID }

type CancelBookingCommand struct {
	BookingID string    `json:"booking_id" validate:"required"`
	ActorID   string    `json:"actor_id" validate:"required"`
	Reason    string    `json:"reason" validate:"max=500"`
	Now       time.Time `json:"-"`
}

func (c CancelBookingCommand) Key() string   { return cancelBookingKey }
func (c CancelBookingCommand) Actor() string { return c.ActorID }

// TransitionHandler serves the confirm and cancel commands.
type TransitionHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *TransitionHandler) Confirm() commands.Handler[ConfirmBookingCommand, dto.Booking] {
	return commands.HandlerFunc[ConfirmBookingCommand, dto.Booking](func(ctx context.Context, cmd ConfirmBookingCommand) (dto.Booking, error) {
		return h.transition(ctx, cmd.BookingID, cmd.ActorID, domainbooking.StatusConfirmed, "", cmd.Now)
	})
}

func (h *TransitionHandler) Cancel() commands.Handler[CancelBookingCommand, dto.Booking] {
	return commands.HandlerFunc[CancelBookingCommand, dto.Booking](func(ctx context.Context, cmd CancelBookingCommand) (dto.Booking, error) {
		return h.transition(ctx, cmd.BookingID, cmd.ActorID, domainbooking.StatusCancelled, cmd.Reason, cmd.Now)
	})
}

func (h *TransitionHandler) transition(ctx context.Context, bookingID, actor string, target domainbooking.Status, reason string, now time.Time) (dto.Booking, error) {
	unit, err := handlersupport.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Booking{}, err
	}
	defer unit.Close()
	ctx = unit.Ctx

	if now.IsZero() {
		now = time.Now().UTC()
	}
	booking, err := unit.Bookings().ByID(ctx, domainbooking.ID(bookingID))
	if err != nil {
		return dto.Booking{}, err
	}
	property, err := unit.Properties().ByID(ctx, booking.PropertyID)
	if err != nil {
		return dto.Booking{}, err
	}
	if err := applyStatus(ctx, unit, booking, property.Owner, actor, target, reason, now); err != nil {
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
		h.Logger.Info("booking status changed", "booking_id", booking.ID, "property_id", booking.PropertyID, "status", booking.Status, "actor_id", actor)
	}
	return dto.MapBooking(booking, actor), nil
}

// DeleteBookingCommand hard-removes a booking. It is an administrative cleanup
// path; guests and owners cancel instead.
type DeleteBookingCommand struct {
	BookingID string `json:"booking_id" validate:"required"`
	ActorID   string `json:"actor_id" validate:"required"`
}

func (c DeleteBookingCommand) Key() string                   { return deleteBookingKey }
func (c DeleteBookingCommand) Actor() string                 { return c.ActorID }
func (c DeleteBookingCommand) RequiredRole() domainuser.Role { return domainuser.RoleAdmin }

type DeleteBookingHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *DeleteBookingHandler) Handle(ctx context.Context, cmd DeleteBookingCommand) (struct{}, error) {
	unit, err := handlersupport.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return struct{}{}, err
	}
	defer unit.Close()
	ctx = unit.Ctx

	booking, err := unit.Bookings().ByID(ctx, domainbooking.ID(cmd.BookingID))
	if err != nil {
		return struct{}{}, err
	}
	if _, err := unit.Calendars().Touch(ctx, booking.PropertyID, time.Now().UTC()); err != nil {
		return struct{}{}, err
	}
	if err := unit.Bookings().Delete(ctx, booking.ID); err != nil {
		return struct{}{}, err
	}
	if err := unit.Finish(); err != nil {
		return struct{}{}, err
	}
	if h.Logger != nil {
		h.Logger.Warn("booking deleted", "booking_id", booking.ID, "property_id", booking.PropertyID, "actor_id", cmd.ActorID)
	}
	return struct{}{}, nil
}

var _ commands.Handler[DeleteBookingCommand, struct{}] = (*DeleteBookingHandler)(nil)
