package memory

import (
	"context"
	"errors"
	"time"

	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
	domainrating "staybook/internal/domain/rating"
	"staybook/internal/domain/shared/errs"
	domainuser "staybook/internal/domain/user"
)

var (
	ErrUnitClosed   = errors.New("memory: unit of work already finished")
	ErrReadOnlyUnit = errors.New("memory: write attempted in a read-only unit")
)

// Unit applies writes to the store as they happen and keeps an undo log.
// Holding the gate for its whole life keeps those writes invisible to others
// until Commit; Rollback replays the log backwards.
type Unit struct {
	store    *Store
	readOnly bool
	weight   int64
	undo     []func()
	staged   []appoutbox.EventRecord
	done     bool
}

func (u *Unit) Properties() domainproperty.Repository            { return propertyRepo{u} }
func (u *Unit) Users() domainuser.Directory                      { return userDirectory{u} }
func (u *Unit) Bookings() domainbooking.Repository                { return bookingRepo{u} }
func (u *Unit) Calendars() domainavailability.CalendarRepository { return calendarRepo{u} }
func (u *Unit) Ratings() domainrating.Repository                  { return ratingRepo{u} }

// Commit publishes staged outbox records and releases the gate. A cancelled
// context turns the commit into a rollback.
func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return ErrUnitClosed
	}
	if err := ctx.Err(); err != nil {
		u.rollback()
		return errs.Unavailable("memory: commit", err)
	}
	u.store.relay.enqueue(u.staged)
	u.finish()
	return nil
}

func (u *Unit) Rollback(context.Context) error {
	if u.done {
		return nil
	}
	u.rollback()
	return nil
}

func (u *Unit) rollback() {
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.finish()
}

func (u *Unit) finish() {
	u.done = true
	u.undo = nil
	u.staged = nil
	u.store.gate.Release(u.weight)
}

func (u *Unit) read(ctx context.Context, op string) error {
	if u.done {
		return ErrUnitClosed
	}
	return live(ctx, op)
}

func (u *Unit) write(ctx context.Context, op string) error {
	if u.done {
		return ErrUnitClosed
	}
	if u.readOnly {
		return ErrReadOnlyUnit
	}
	return live(ctx, op)
}

func (u *Unit) remember(fn func()) {
	u.undo = append(u.undo, fn)
}

func (u *Unit) stage(rec appoutbox.EventRecord) error {
	if u.done {
		return ErrUnitClosed
	}
	u.staged = append(u.staged, rec)
	return nil
}

func (u *Unit) putUser(usr *domainuser.User) error {
	if err := u.write(context.Background(), "users.put"); err != nil {
		return err
	}
	prev, existed := u.store.users[usr.ID]
	u.store.users[usr.ID] = cloneUser(usr)
	u.remember(func() {
		if existed {
			u.store.users[usr.ID] = prev
			return
		}
		delete(u.store.users, usr.ID)
	})
	return nil
}

type userDirectory struct{ u *Unit }

func (r userDirectory) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	if err := r.u.read(ctx, "users.by_id"); err != nil {
		return nil, err
	}
	usr, ok := r.u.store.users[id]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	return cloneUser(usr), nil
}

type calendarRepo struct{ u *Unit }

func (r calendarRepo) Touch(ctx context.Context, id domainproperty.ID, now time.Time) (int64, error) {
	if err := r.u.write(ctx, "calendars.touch"); err != nil {
		return 0, err
	}
	prev, existed := r.u.store.calendars[id]
	next := prev
	next.PropertyID = id
	next.Version++
	next.UpdatedAt = stamp(now)
	r.u.store.calendars[id] = next
	r.u.remember(func() {
		if existed {
			r.u.store.calendars[id] = prev
			return
		}
		delete(r.u.store.calendars, id)
	})
	return next.Version, nil
}

var _ uow.UnitOfWork = (*Unit)(nil)
