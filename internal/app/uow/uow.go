package uow

import (
	"context"
	"errors"

	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
	domainrating "staybook/internal/domain/rating"
	domainuser "staybook/internal/domain/user"
)

// UnitOfWork coordinates repositories inside a transaction boundary. Nothing
// written through a unit is visible to others until Commit succeeds.
type UnitOfWork interface {
	Properties() domainproperty.Repository
	Users() domainuser.Directory
	Bookings() domainbooking.Repository
	Calendars() domainavailability.CalendarRepository
	Ratings() domainrating.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}

// ContextInjector is implemented by units that carry driver state (a mongo
// session) which repositories pick up from the context.
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}

// Bind returns ctx carrying unit, plus whatever driver state the unit injects.
func Bind(ctx context.Context, unit UnitOfWork) context.Context {
	if injector, ok := unit.(ContextInjector); ok {
		ctx = injector.InjectContext(ctx)
	}
	return ContextWithUnitOfWork(ctx, unit)
}

// ErrUnitOfWorkMissing is returned by helpers that need a bound unit and find none.
var ErrUnitOfWorkMissing = errors.New("uow: no unit of work bound to context")

type unitKey struct{}

// ContextWithUnitOfWork stores unit without running its ContextInjector. Most
// callers want Bind.
func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, unitKey{}, unit)
}

func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(unitKey{}).(UnitOfWork)
	return unit, ok && unit != nil
}
