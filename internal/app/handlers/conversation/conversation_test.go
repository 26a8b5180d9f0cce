package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookinghandlers "staybook/internal/app/handlers/booking"
	"staybook/internal/app/outbox"
	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/errs"
	"staybook/internal/domain/shared/money"
	domainuser "staybook/internal/domain/user"
	"staybook/internal/infra/storage/memory"
)

var now = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store        *memory.Store
	handler      *Handler
	transitions  *bookinghandlers.TransitionHandler
	bookingID    string
	conversation string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	p, err := domainproperty.NewProperty(domainproperty.CreateParams{
		ID: "p1", Owner: "owner", PricePerNight: money.Must(10000, "USD"), MaxGuests: 4, Available: true, Now: now,
	})
	require.NoError(t, err)
	require.NoError(t, store.SeedProperty(ctx, p))
	for _, id := range []domainuser.ID{"guest", "owner", "stranger"} {
		u, err := domainuser.NewUser(domainuser.CreateParams{ID: id})
		require.NoError(t, err)
		require.NoError(t, store.SeedUser(ctx, u))
	}

	box, enc := memory.Outbox{}, outbox.JSONEventEncoder{}
	in, _ := daterange.ParseDay("2024-02-01")
	out, _ := daterange.ParseDay("2024-02-05")
	create := &bookinghandlers.CreateBookingHandler{UoWFactory: store, Outbox: box, Encoder: enc}
	b, err := create.Handle(ctx, bookinghandlers.CreateBookingCommand{PropertyID: "p1", GuestID: "guest", CheckIn: in, CheckOut: out, NumberOfGuests: 2, Now: now})
	require.NoError(t, err)

	return &fixture{
		store:        store,
		handler:      &Handler{UoWFactory: store, Outbox: box, Encoder: enc},
		transitions:  &bookinghandlers.TransitionHandler{UoWFactory: store, Outbox: box, Encoder: enc},
		bookingID:    b.ID,
		conversation: b.Conversation.ID,
	}
}

func (f *fixture) send(t *testing.T, from, content string) error {
	t.Helper()
	_, err := f.handler.Append().Handle(context.Background(), AppendMessageCommand{ConversationID: f.conversation, SenderID: from, Content: content, Now: now})
	return err
}

func (f *fixture) view(t *testing.T, viewer string) (unread int, read []bool) {
	t.Helper()
	conv, err := f.handler.Get().Handle(context.Background(), GetConversationQuery{ConversationID: f.conversation, ViewerID: viewer})
	require.NoError(t, err)
	for _, m := range conv.Messages {
		read = append(read, m.Read)
	}
	return conv.UnreadCount, read
}

func TestMessagesFlowBetweenParticipants(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.send(t, "guest", "Can we check in at noon?"))
	require.NoError(t, f.send(t, "owner", "Sure, see you then."))

	conv, err := f.handler.Get().Handle(context.Background(), GetConversationQuery{ConversationID: f.conversation, ViewerID: "guest"})
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "owner", conv.Messages[0].To)
	assert.Equal(t, "guest", conv.Messages[1].To)
	assert.Equal(t, f.bookingID, conv.BookingID)
	assert.Equal(t, 1, conv.UnreadCount)

	read, err := f.handler.MarkRead().Handle(context.Background(), MarkReadCommand{ConversationID: f.conversation, ActorID: "owner", Now: now})
	require.NoError(t, err)
	assert.Zero(t, read.UnreadCount)
	for _, m := range read.Messages {
		assert.True(t, m.Read)
	}
}

func TestMarkReadByOutsiderIsForbiddenAndChangesNothing(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.send(t, "guest", "First message"))
	require.NoError(t, f.send(t, "owner", "Second message"))
	_, before := f.view(t, "guest")

	_, err := f.handler.MarkRead().Handle(context.Background(), MarkReadCommand{ConversationID: f.conversation, ActorID: "stranger", Now: now})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, after := f.view(t, "guest")
	assert.Equal(t, before, after)
	assert.Equal(t, []bool{false, false}, after)
}

func TestAppendRejections(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.send(t, "stranger", "hello"), domainbooking.ErrNotParticipant)
	assert.ErrorIs(t, f.send(t, "guest", "  "), domainbooking.ErrEmptyMessage)

	_, err := f.handler.Append().Handle(context.Background(), AppendMessageCommand{ConversationID: "nope", SenderID: "guest", Content: "hi"})
	assert.ErrorIs(t, err, domainbooking.ErrConversationNotFound)

	_, err = f.transitions.Cancel().Handle(context.Background(), bookinghandlers.CancelBookingCommand{BookingID: f.bookingID, ActorID: "guest", Now: now})
	require.NoError(t, err)
	assert.ErrorIs(t, f.send(t, "guest", "anyone?"), domainbooking.ErrConversationInactive)
}

func TestOutsiderCannotViewConversation(t *testing.T) {
	f := newFixture(t)
	_, err := f.handler.Get().Handle(context.Background(), GetConversationQuery{ConversationID: f.conversation, ViewerID: "stranger"})
	assert.ErrorIs(t, err, domainbooking.ErrNotParticipant)
}
