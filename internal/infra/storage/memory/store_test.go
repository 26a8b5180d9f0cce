package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/middleware"
	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
	domainrating "staybook/internal/domain/rating"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/errs"
	"staybook/internal/domain/shared/money"
	domainuser "staybook/internal/domain/user"
)

var now = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func seeded(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	p, err := domainproperty.NewProperty(domainproperty.CreateParams{
		ID: "p1", Owner: "owner", Title: "Loft", PricePerNight: money.Must(10000, "USD"), MaxGuests: 4, Available: true, Now: now,
	})
	require.NoError(t, err)
	require.NoError(t, s.SeedProperty(context.Background(), p))
	u, err := domainuser.NewUser(domainuser.CreateParams{ID: "guest", Name: "Gia"})
	require.NoError(t, err)
	require.NoError(t, s.SeedUser(context.Background(), u))
	return s
}

func booking(t *testing.T, id, in, out string) *domainbooking.Booking {
	t.Helper()
	dr, err := daterange.Parse(in, out)
	require.NoError(t, err)
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID: domainbooking.ID(id), ConversationID: domainbooking.ConversationID("c-" + id), PropertyID: "p1",
		GuestID: "guest", Range: dr, Guests: 1, TotalPrice: money.Must(1, "USD"), CreatedAt: now,
	})
	require.NoError(t, err)
	return b
}

func begin(t *testing.T, s *Store, readOnly bool) *Unit {
	t.Helper()
	unit, err := s.Begin(context.Background(), uow.TxOptions{ReadOnly: readOnly})
	require.NoError(t, err)
	return unit.(*Unit)
}

func TestRollbackUndoesEveryWrite(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	u := begin(t, s, false)
	require.NoError(t, u.Bookings().Save(ctx, booking(t, "b1", "2024-02-01", "2024-02-05")))
	_, err := u.Calendars().Touch(ctx, "p1", now)
	require.NoError(t, err)
	p, err := u.Properties().ByID(ctx, "p1")
	require.NoError(t, err)
	p.ApplyRatingRollup(4.5, 2, now)
	require.NoError(t, u.Properties().Save(ctx, p))
	require.NoError(t, u.Rollback(ctx))

	r := begin(t, s, true)
	defer r.Rollback(ctx)
	_, err = r.Bookings().ByID(ctx, "b1")
	assert.ErrorIs(t, err, domainbooking.ErrNotFound)
	p, err = r.Properties().ByID(ctx, "p1")
	require.NoError(t, err)
	assert.Zero(t, p.TotalRatings)
	assert.Empty(t, s.calendars)
}

func TestCommitWithCancelledContextRollsBack(t *testing.T) {
	s := seeded(t)
	ctx, cancel := context.WithCancel(context.Background())

	u := begin(t, s, false)
	require.NoError(t, u.Bookings().Save(ctx, booking(t, "b1", "2024-02-01", "2024-02-05")))
	require.NoError(t, Outbox{}.Add(uow.ContextWithUnitOfWork(ctx, u), appoutbox.EventRecord{ID: "e1", Name: "booking.requested"}))
	cancel()

	err := u.Commit(ctx)
	assert.ErrorIs(t, err, errs.ErrUnavailable)
	assert.Empty(t, s.bookings)
	assert.Empty(t, s.Relay().Pending())
}

func TestStagedEventsReachRelayOnCommit(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	u := begin(t, s, false)
	require.NoError(t, Outbox{}.Add(uow.ContextWithUnitOfWork(ctx, u), appoutbox.EventRecord{ID: "e1", Name: "booking.requested"}))
	assert.Empty(t, s.Relay().Pending())
	require.NoError(t, u.Commit(ctx))
	assert.Equal(t, []string{"booking.requested"}, s.Relay().Pending())

	entry, err := s.Relay().Claim(ctx, "w")
	require.NoError(t, err)
	require.NotNil(t, entry)
	none, err := s.Relay().Claim(ctx, "w")
	require.NoError(t, err)
	assert.Nil(t, none, "claimed entries are not handed out twice")

	require.NoError(t, s.Relay().MarkFailed(ctx, "e1", now.Add(-time.Second), "boom"))
	again, err := s.Relay().Claim(ctx, "w")
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, 1, again.Attempts)
	require.NoError(t, s.Relay().MarkSent(ctx, "e1"))
	assert.Empty(t, s.Relay().Pending())
}

func TestOutboxRequiresUnit(t *testing.T) {
	err := Outbox{}.Add(context.Background(), appoutbox.EventRecord{ID: "e1"})
	assert.ErrorIs(t, err, ErrOutboxOutsideUnit)
}

func TestReadOnlyUnitRejectsWrites(t *testing.T) {
	s := seeded(t)
	u := begin(t, s, true)
	defer u.Rollback(context.Background())
	err := u.Bookings().Save(context.Background(), booking(t, "b1", "2024-02-01", "2024-02-05"))
	assert.ErrorIs(t, err, ErrReadOnlyUnit)
}

func TestFinishedUnitIsClosed(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	u := begin(t, s, false)
	require.NoError(t, u.Commit(ctx))
	assert.ErrorIs(t, u.Commit(ctx), ErrUnitClosed)
	assert.NoError(t, u.Rollback(ctx))
	_, err := u.Properties().ByID(ctx, "p1")
	assert.ErrorIs(t, err, ErrUnitClosed)
}

func TestStaleVersionIsRejected(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	u := begin(t, s, false)
	defer u.Rollback(ctx)

	a, err := u.Properties().ByID(ctx, "p1")
	require.NoError(t, err)
	b, err := u.Properties().ByID(ctx, "p1")
	require.NoError(t, err)
	require.NoError(t, u.Properties().Save(ctx, a))
	assert.ErrorIs(t, u.Properties().Save(ctx, b), errs.ErrConcurrentUpdate)
}

func TestReservationsOnlyReturnBlockingOverlaps(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	u := begin(t, s, false)
	defer u.Rollback(ctx)

	b1 := booking(t, "b1", "2024-02-01", "2024-02-05")
	b2 := booking(t, "b2", "2024-02-05", "2024-02-08")
	require.NoError(t, b2.Cancel("", now))
	b3 := booking(t, "b3", "2024-03-01", "2024-03-04")
	for _, b := range []*domainbooking.Booking{b1, b2, b3} {
		require.NoError(t, u.Bookings().Save(ctx, b))
	}

	window, _ := daterange.Parse("2024-02-03", "2024-02-10")
	got, err := u.Bookings().Reservations(ctx, "p1", window)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b1", got[0].BookingID)

	list, err := u.Bookings().ListByProperty(ctx, "p1", domainbooking.ListFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domainbooking.ID("b2"), list[0].ID)
	assert.Equal(t, domainbooking.ID("b3"), list[1].ID)

	byConv, err := u.Bookings().ByConversation(ctx, "c-b3")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.ID("b3"), byConv.ID)
}

func TestRatingPairIsUnique(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	u := begin(t, s, false)
	defer u.Rollback(ctx)

	first, err := domainrating.NewRating(domainrating.CreateParams{ID: "r1", PropertyID: "p1", UserID: "guest", Value: 4, Review: "Lovely quiet place", CreatedAt: now})
	require.NoError(t, err)
	require.NoError(t, u.Ratings().Save(ctx, first))

	second, err := domainrating.NewRating(domainrating.CreateParams{ID: "r2", PropertyID: "p1", UserID: "guest", Value: 2, Review: "Changed my mind", CreatedAt: now})
	require.NoError(t, err)
	assert.ErrorIs(t, u.Ratings().Save(ctx, second), domainrating.ErrDuplicate)

	require.NoError(t, u.Ratings().Delete(ctx, "r1"))
	require.NoError(t, u.Ratings().Save(ctx, second), "pair is free again after delete")
	values, err := u.Ratings().Values(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, values)
}

func TestReadsReturnCopies(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	u := begin(t, s, false)
	defer u.Rollback(ctx)

	b := booking(t, "b1", "2024-02-01", "2024-02-05")
	require.NoError(t, u.Bookings().Save(ctx, b))
	_, err := b.PostMessage("guest", "owner", "hello there", now)
	require.NoError(t, err)

	stored, err := u.Bookings().ByID(ctx, "b1")
	require.NoError(t, err)
	assert.Empty(t, stored.Conversation.Messages)
	assert.Empty(t, stored.PendingEvents())
}

func TestBeginHonoursContext(t *testing.T) {
	s := seeded(t)
	held := begin(t, s, false)
	defer held.Rollback(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Begin(ctx, uow.TxOptions{ReadOnly: true})
	assert.ErrorIs(t, err, errs.ErrUnavailable)
}

func TestIdempotencyStoreExpires(t *testing.T) {
	store := NewIdempotencyStore(time.Minute)
	clock := now
	store.now = func() time.Time { return clock }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, middlewareRecord("k", now)))
	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	clock = now.Add(2 * time.Minute)
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func middlewareRecord(key string, at time.Time) middleware.IdempotencyRecord {
	return middleware.IdempotencyRecord{Key: key, Payload: []byte(`{}`), OccurredAt: at}
}
