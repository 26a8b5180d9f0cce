package me

import (
	"context"
	"log/slog"

	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
	domainuser "staybook/internal/domain/user"
)

const listGuestBookingsKey = "me.bookings.list"

type ListGuestBookingsQuery struct {
	GuestID string `validate:"required"`
	Status  string
}

func (q ListGuestBookingsQuery) Key() string { return listGuestBookingsKey }

type ListGuestBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

// Handle lists the caller's own stays with a title snapshot of each property.
func (h *ListGuestBookingsHandler) Handle(ctx context.Context, q ListGuestBookingsQuery) (dto.GuestBookingCollection, error) {
	filter := domainbooking.ListFilter{}
	if q.Status != "" {
		status, err := domainbooking.ParseStatus(q.Status)
		if err != nil {
			return dto.GuestBookingCollection{}, err
		}
		filter.Status = status
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.GuestBookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	bookings, err := unit.Bookings().ListByGuest(execCtx, domainuser.ID(q.GuestID), filter)
	if err != nil {
		return dto.GuestBookingCollection{}, err
	}

	cache := make(map[domainproperty.ID]*domainproperty.Property)
	items := make([]dto.GuestBooking, 0, len(bookings))
	for _, booking := range bookings {
		item := dto.GuestBooking{Booking: dto.MapBooking(booking, q.GuestID)}
		property, err := loadProperty(execCtx, unit.Properties(), booking.PropertyID, cache)
		if err != nil {
			if h.Logger != nil {
				h.Logger.Warn("property snapshot missing for booking", "booking_id", booking.ID, "property_id", booking.PropertyID, "error", err)
			}
		} else {
			item.PropertyTitle = property.Title
		}
		items = append(items, item)
	}
	return dto.GuestBookingCollection{Items: items}, nil
}

func loadProperty(ctx context.Context, repo domainproperty.Repository, id domainproperty.ID, cache map[domainproperty.ID]*domainproperty.Property) (*domainproperty.Property, error) {
	if p, ok := cache[id]; ok {
		return p, nil
	}
	p, err := repo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cache[id] = p
	return p, nil
}

var _ queries.Handler[ListGuestBookingsQuery, dto.GuestBookingCollection] = (*ListGuestBookingsHandler)(nil)
