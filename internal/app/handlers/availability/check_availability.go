package availability

import (
	"context"
	"log/slog"
	"time"

	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainpricing "staybook/internal/domain/pricing"
	domainproperty "staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
)

const checkAvailabilityKey = "availability.check"

type CheckAvailabilityQuery struct {
	PropertyID string `validate:"required"`
	CheckIn    time.Time
	CheckOut   time.Time
}

func (q CheckAvailabilityQuery) Key() string { return checkAvailabilityKey }

// CheckAvailabilityHandler answers whether a stay could be booked without
// creating anything. A property that is switched off reports unavailable.
type CheckAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (dto.Availability, error) {
	dr, err := daterange.New(q.CheckIn, q.CheckOut)
	if err != nil {
		return dto.Availability{}, err
	}

	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Availability{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	property, err := unit.Properties().ByID(execCtx, domainproperty.ID(q.PropertyID))
	if err != nil {
		return dto.Availability{}, err
	}
	out := dto.Availability{
		PropertyID: string(property.ID),
		CheckIn:    dr.CheckIn.Format(dto.DateLayout),
		CheckOut:   dr.CheckOut.Format(dto.DateLayout),
		Nights:     dr.Nights(),
	}
	if !property.Bookable() {
		return out, nil
	}
	free, err := domainavailability.NewGuard(unit.Bookings()).IsAvailable(execCtx, property.ID, dr, "")
	if err != nil {
		return dto.Availability{}, err
	}
	out.Available = free
	if free {
		quote := dto.MapQuote(domainpricing.Quote(property.PricePerNight, dr))
		out.Quote = &quote
	}
	return out, nil
}

var _ queries.Handler[CheckAvailabilityQuery, dto.Availability] = (*CheckAvailabilityHandler)(nil)
