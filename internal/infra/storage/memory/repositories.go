package memory

import (
	"context"
	"sort"

	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
	domainrating "staybook/internal/domain/rating"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/errs"
	domainuser "staybook/internal/domain/user"
)

type propertyRepo struct{ u *Unit }

func (r propertyRepo) ByID(ctx context.Context, id domainproperty.ID) (*domainproperty.Property, error) {
	if err := r.u.read(ctx, "properties.by_id"); err != nil {
		return nil, err
	}
	p, ok := r.u.store.properties[id]
	if !ok {
		return nil, domainproperty.ErrNotFound
	}
	return cloneProperty(p), nil
}

func (r propertyRepo) Save(ctx context.Context, p *domainproperty.Property) error {
	if err := r.u.write(ctx, "properties.save"); err != nil {
		return err
	}
	prev, existed := r.u.store.properties[p.ID]
	if existed && prev.Version != p.Version || !existed && p.Version != 0 {
		return errs.ErrConcurrentUpdate
	}
	stored := cloneProperty(p)
	stored.Version = p.Version + 1
	r.u.store.properties[p.ID] = stored
	p.Version = stored.Version
	r.u.remember(func() {
		if existed {
			r.u.store.properties[p.ID] = prev
			return
		}
		delete(r.u.store.properties, p.ID)
	})
	return nil
}

type bookingRepo struct{ u *Unit }

func (r bookingRepo) ByID(ctx context.Context, id domainbooking.ID) (*domainbooking.Booking, error) {
	if err := r.u.read(ctx, "bookings.by_id"); err != nil {
		return nil, err
	}
	b, ok := r.u.store.bookings[id]
	if !ok {
		return nil, domainbooking.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (r bookingRepo) ByConversation(ctx context.Context, id domainbooking.ConversationID) (*domainbooking.Booking, error) {
	if err := r.u.read(ctx, "bookings.by_conversation"); err != nil {
		return nil, err
	}
	for _, b := range r.u.store.bookings {
		if b.Conversation.ID == id {
			return cloneBooking(b), nil
		}
	}
	return nil, domainbooking.ErrConversationNotFound
}

func (r bookingRepo) Reservations(ctx context.Context, propertyID domainproperty.ID, window daterange.DateRange) ([]domainavailability.Reservation, error) {
	if err := r.u.read(ctx, "bookings.reservations"); err != nil {
		return nil, err
	}
	var out []domainavailability.Reservation
	for _, b := range r.u.store.bookings {
		if b.PropertyID != propertyID || !b.Status.Blocking() {
			continue
		}
		if !window.CheckIn.IsZero() && !b.Range.Overlaps(window) {
			continue
		}
		out = append(out, b.Reservation())
	}
	return out, nil
}

func (r bookingRepo) ListByProperty(ctx context.Context, propertyID domainproperty.ID, filter domainbooking.ListFilter) ([]*domainbooking.Booking, error) {
	if err := r.u.read(ctx, "bookings.list_by_property"); err != nil {
		return nil, err
	}
	return r.list(func(b *domainbooking.Booking) bool { return b.PropertyID == propertyID }, filter), nil
}

func (r bookingRepo) ListByGuest(ctx context.Context, guestID domainuser.ID, filter domainbooking.ListFilter) ([]*domainbooking.Booking, error) {
	if err := r.u.read(ctx, "bookings.list_by_guest"); err != nil {
		return nil, err
	}
	return r.list(func(b *domainbooking.Booking) bool { return b.GuestID == guestID }, filter), nil
}

func (r bookingRepo) list(match func(*domainbooking.Booking) bool, filter domainbooking.ListFilter) []*domainbooking.Booking {
	var out []*domainbooking.Booking
	for _, b := range r.u.store.bookings {
		if !match(b) {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		out = append(out, cloneBooking(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Range.CheckIn.Equal(out[j].Range.CheckIn) {
			return out[i].Range.CheckIn.Before(out[j].Range.CheckIn)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, filter.Limit, filter.Offset)
}

func (r bookingRepo) Save(ctx context.Context, b *domainbooking.Booking) error {
	if err := r.u.write(ctx, "bookings.save"); err != nil {
		return err
	}
	prev, existed := r.u.store.bookings[b.ID]
	if existed && prev.Version != b.Version || !existed && b.Version != 0 {
		return errs.ErrConcurrentUpdate
	}
	stored := cloneBooking(b)
	stored.Version = b.Version + 1
	r.u.store.bookings[b.ID] = stored
	b.Version = stored.Version
	r.u.remember(func() {
		if existed {
			r.u.store.bookings[b.ID] = prev
			return
		}
		delete(r.u.store.bookings, b.ID)
	})
	return nil
}

func (r bookingRepo) Delete(ctx context.Context, id domainbooking.ID) error {
	if err := r.u.write(ctx, "bookings.delete"); err != nil {
		return err
	}
	prev, ok := r.u.store.bookings[id]
	if !ok {
		return domainbooking.ErrNotFound
	}
	delete(r.u.store.bookings, id)
	r.u.remember(func() { r.u.store.bookings[id] = prev })
	return nil
}

type ratingRepo struct{ u *Unit }

func (r ratingRepo) ByID(ctx context.Context, id domainrating.ID) (*domainrating.Rating, error) {
	if err := r.u.read(ctx, "ratings.by_id"); err != nil {
		return nil, err
	}
	rt, ok := r.u.store.ratings[id]
	if !ok {
		return nil, domainrating.ErrNotFound
	}
	return cloneRating(rt), nil
}

// ListByProperty returns the newest ratings first.
func (r ratingRepo) ListByProperty(ctx context.Context, propertyID domainproperty.ID, limit, offset int) ([]*domainrating.Rating, error) {
	if err := r.u.read(ctx, "ratings.list_by_property"); err != nil {
		return nil, err
	}
	var out []*domainrating.Rating
	for _, rt := range r.u.store.ratings {
		if rt.PropertyID == propertyID {
			out = append(out, cloneRating(rt))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, limit, offset), nil
}

func (r ratingRepo) Values(ctx context.Context, propertyID domainproperty.ID) ([]float64, error) {
	if err := r.u.read(ctx, "ratings.values"); err != nil {
		return nil, err
	}
	var out []float64
	for _, rt := range r.u.store.ratings {
		if rt.PropertyID == propertyID {
			out = append(out, rt.Value)
		}
	}
	return out, nil
}

func (r ratingRepo) Save(ctx context.Context, rt *domainrating.Rating) error {
	if err := r.u.write(ctx, "ratings.save"); err != nil {
		return err
	}
	key := ratingKey{property: rt.PropertyID, user: rt.UserID}
	prev, existed := r.u.store.ratings[rt.ID]
	if owner, taken := r.u.store.ratingKeys[key]; taken && owner != rt.ID {
		return domainrating.ErrDuplicate
	}
	if existed && prev.Version != rt.Version || !existed && rt.Version != 0 {
		return errs.ErrConcurrentUpdate
	}
	stored := cloneRating(rt)
	stored.Version = rt.Version + 1
	r.u.store.ratings[rt.ID] = stored
	r.u.store.ratingKeys[key] = rt.ID
	rt.Version = stored.Version
	r.u.remember(func() {
		if existed {
			r.u.store.ratings[rt.ID] = prev
			return
		}
		delete(r.u.store.ratings, rt.ID)
		delete(r.u.store.ratingKeys, key)
	})
	return nil
}

func (r ratingRepo) Delete(ctx context.Context, id domainrating.ID) error {
	if err := r.u.write(ctx, "ratings.delete"); err != nil {
		return err
	}
	prev, ok := r.u.store.ratings[id]
	if !ok {
		return domainrating.ErrNotFound
	}
	key := ratingKey{property: prev.PropertyID, user: prev.UserID}
	delete(r.u.store.ratings, id)
	delete(r.u.store.ratingKeys, key)
	r.u.remember(func() {
		r.u.store.ratings[id] = prev
		r.u.store.ratingKeys[key] = id
	})
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
