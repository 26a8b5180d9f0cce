package properties

import (
	"context"
	"log/slog"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/outbox"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainproperty "staybook/internal/domain/property"
)

const (
	getPropertyKey     = "properties.get"
	setAvailabilityKey = "properties.set_availability"
)

type GetPropertyQuery struct {
	PropertyID string `validate:"required"`
}

func (q GetPropertyQuery) Key() string { return getPropertyKey }

type GetPropertyHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetPropertyHandler) Handle(ctx context.Context, q GetPropertyQuery) (dto.Property, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Property{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	property, err := unit.Properties().ByID(execCtx, domainproperty.ID(q.PropertyID))
	if err != nil {
		return dto.Property{}, err
	}
	return dto.MapProperty(property), nil
}

// SetAvailabilityCommand switches whether the property accepts new bookings.
// Existing bookings are untouched.
type SetAvailabilityCommand struct {
	PropertyID string    `json:"property_id" validate:"required"`
	ActorID    string    `json:"actor_id" validate:"required"`
	Available  bool      `json:"available"`
	Now        time.Time `json:"-"`
}

func (c SetAvailabilityCommand) Key() string   { return setAvailabilityKey }
func (c SetAvailabilityCommand) Actor() string { return c.ActorID }

type SetAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *SetAvailabilityHandler) Handle(ctx context.Context, cmd SetAvailabilityCommand) (dto.Property, error) {
	unit, err := handlersupport.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Property{}, err
	}
	defer unit.Close()
	ctx = unit.Ctx

	now := cmd.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	property, err := unit.Properties().ByID(ctx, domainproperty.ID(cmd.PropertyID))
	if err != nil {
		return dto.Property{}, err
	}
	changed, err := property.SetAvailability(cmd.ActorID, cmd.Available, now)
	if err != nil {
		return dto.Property{}, err
	}
	if changed {
		if err := unit.Properties().Save(ctx, property); err != nil {
			return dto.Property{}, err
		}
		if err := outbox.RecordAggregates(ctx, h.Outbox, h.Encoder, property); err != nil {
			return dto.Property{}, err
		}
	}
	if err := unit.Finish(); err != nil {
		return dto.Property{}, err
	}
	if changed && h.Logger != nil {
		h.Logger.Info("property availability changed", "property_id", property.ID, "available", property.Available)
	}
	return dto.MapProperty(property), nil
}

var _ queries.Handler[GetPropertyQuery, dto.Property] = (*GetPropertyHandler)(nil)
var _ commands.Handler[SetAvailabilityCommand, dto.Property] = (*SetAvailabilityHandler)(nil)
