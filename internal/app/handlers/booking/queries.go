package booking

import (
	"context"
	"log/slog"

	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/policies"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
	domainuser "staybook/internal/domain/user"
)

const (
	getBookingKey           = "booking.get"
	listPropertyBookingsKey = "booking.list_by_property"

	defaultListLimit = 50
	maxListLimit     = 200
)

type GetBookingQuery struct {
	BookingID string `validate:"required"`
	ViewerID  string `validate:"required"`
}

func (q GetBookingQuery) Key() string { return getBookingKey }

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

// Handle returns the booking to its guest, the property owner or an admin.
func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.Booking, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Booking{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	booking, err := unit.Bookings().ByID(execCtx, domainbooking.ID(q.BookingID))
	if err != nil {
		return dto.Booking{}, err
	}
	property, err := unit.Properties().ByID(execCtx, booking.PropertyID)
	if err != nil {
		return dto.Booking{}, err
	}
	if !booking.IsParticipant(q.ViewerID, property.Owner) && !isAdmin(ctx) {
		return dto.Booking{}, domainbooking.ErrNotParticipant
	}
	return dto.MapBooking(booking, q.ViewerID), nil
}

type ListPropertyBookingsQuery struct {
	PropertyID string `validate:"required"`
	ViewerID   string `validate:"required"`
	Status     string
	Limit      int `validate:"gte=0"`
	Offset     int `validate:"gte=0"`
}

func (q ListPropertyBookingsQuery) Key() string { return listPropertyBookingsKey }

type ListPropertyBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

// Handle lists a property's bookings by check-in for its owner.
func (h *ListPropertyBookingsHandler) Handle(ctx context.Context, q ListPropertyBookingsQuery) (dto.BookingCollection, error) {
	filter := domainbooking.ListFilter{Limit: q.Limit, Offset: q.Offset}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if q.Status != "" {
		status, err := domainbooking.ParseStatus(q.Status)
		if err != nil {
			return dto.BookingCollection{}, err
		}
		filter.Status = status
	}

	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	property, err := unit.Properties().ByID(execCtx, domainproperty.ID(q.PropertyID))
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if !property.IsOwnedBy(q.ViewerID) && !isAdmin(ctx) {
		return dto.BookingCollection{}, domainproperty.ErrNotOwner
	}
	bookings, err := unit.Bookings().ListByProperty(execCtx, property.ID, filter)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	items := make([]dto.Booking, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, dto.MapBooking(b, q.ViewerID))
	}
	return dto.BookingCollection{Items: items}, nil
}

func isAdmin(ctx context.Context) bool {
	p, ok := policies.PrincipalFromContext(ctx)
	return ok && p.HasRole(domainuser.RoleAdmin)
}

var _ queries.Handler[GetBookingQuery, dto.Booking] = (*GetBookingHandler)(nil)
var _ queries.Handler[ListPropertyBookingsQuery, dto.BookingCollection] = (*ListPropertyBookingsHandler)(nil)
