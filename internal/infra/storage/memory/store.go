// Package memory is the in-process storage backend. It gives the same
// guarantees the mongo backend gets from transactions: write units are
// serialized, reads never see uncommitted writes, and a unit that does not
// commit leaves no trace.
package memory

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
	domainrating "staybook/internal/domain/rating"
	"staybook/internal/domain/shared/errs"
	domainuser "staybook/internal/domain/user"
)

// writeWeight is the full capacity of the gate: a write unit excludes everyone,
// read units take one slot each.
const writeWeight = 1 << 16

type ratingKey struct {
	property domainproperty.ID
	user     domainuser.ID
}

// Store holds committed state. Maps are only touched by a unit holding the gate.
type Store struct {
	gate *semaphore.Weighted

	properties map[domainproperty.ID]*domainproperty.Property
	users      map[domainuser.ID]*domainuser.User
	bookings   map[domainbooking.ID]*domainbooking.Booking
	calendars  map[domainproperty.ID]domainavailability.CalendarLock
	ratings    map[domainrating.ID]*domainrating.Rating
	ratingKeys map[ratingKey]domainrating.ID

	relay *Relay
}

func NewStore() *Store {
	return &Store{
		gate:       semaphore.NewWeighted(writeWeight),
		properties: make(map[domainproperty.ID]*domainproperty.Property),
		users:      make(map[domainuser.ID]*domainuser.User),
		bookings:   make(map[domainbooking.ID]*domainbooking.Booking),
		calendars:  make(map[domainproperty.ID]domainavailability.CalendarLock),
		ratings:    make(map[domainrating.ID]*domainrating.Rating),
		ratingKeys: make(map[ratingKey]domainrating.ID),
		relay:      newRelay(),
	}
}

// Relay is the committed outbox the publishing worker drains.
func (s *Store) Relay() *Relay {
	return s.relay
}

// Begin waits for the gate and opens a unit. It gives up when ctx ends.
func (s *Store) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	weight := int64(writeWeight)
	if opts.ReadOnly {
		weight = 1
	}
	if err := s.gate.Acquire(ctx, weight); err != nil {
		return nil, errs.Unavailable("memory: begin", err)
	}
	return &Unit{store: s, readOnly: opts.ReadOnly, weight: weight}, nil
}

// SeedProperty stores a property outside of any request flow.
func (s *Store) SeedProperty(ctx context.Context, p *domainproperty.Property) error {
	return s.seed(ctx, func(u *Unit) error { return u.Properties().Save(ctx, p) })
}

// SeedUser stores a directory entry outside of any request flow.
func (s *Store) SeedUser(ctx context.Context, usr *domainuser.User) error {
	return s.seed(ctx, func(u *Unit) error { return u.putUser(usr) })
}

func (s *Store) seed(ctx context.Context, fn func(u *Unit) error) error {
	unit, err := s.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return err
	}
	u := unit.(*Unit)
	if err := fn(u); err != nil {
		_ = u.Rollback(ctx)
		return err
	}
	return u.Commit(ctx)
}

func live(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return errs.Unavailable("memory: "+op, err)
	}
	return nil
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

var _ uow.UoWFactory = (*Store)(nil)
