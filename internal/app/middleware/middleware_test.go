package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/commands"
	"staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/app/uow"
	"staybook/internal/domain/shared/errs"
	domainuser "staybook/internal/domain/user"
)

type result struct {
	ID string `json:"id"`
}

type createThing struct {
	Name    string
	Actor   string
	IdemKey string
}

func (c createThing) Key() string            { return "things.create" }
func (c createThing) IdempotencyKey() string { return c.IdemKey }
func (c createThing) ResultPrototype() any   { return &result{} }
func (c createThing) name() string           { return c.Name }

type countingBus struct {
	calls int
	err   error
}

func (b *countingBus) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	return result{ID: cmd.(interface{ name() string }).name()}, nil
}

type storeMock struct {
	mock.Mock
}

func (m *storeMock) Get(ctx context.Context, key string) (IdempotencyRecord, bool, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(IdempotencyRecord), args.Bool(1), args.Error(2)
}

func (m *storeMock) Save(ctx context.Context, rec IdempotencyRecord) error {
	return m.Called(ctx, rec).Error(0)
}

type mapStore map[string]IdempotencyRecord

func (s mapStore) Get(_ context.Context, key string) (IdempotencyRecord, bool, error) {
	rec, ok := s[key]
	return rec, ok, nil
}

func (s mapStore) Save(_ context.Context, rec IdempotencyRecord) error {
	s[rec.Key] = rec
	return nil
}

func TestIdempotencyReplaysSuccess(t *testing.T) {
	base := &countingBus{}
	bus := ChainCommands(base, Idempotency(mapStore{}, nil))
	ctx := context.Background()

	first, err := commands.Dispatch[createThing, result](ctx, bus, createThing{Name: "a", IdemKey: "k1"})
	require.NoError(t, err)
	again, err := commands.Dispatch[createThing, result](ctx, bus, createThing{Name: "ignored", IdemKey: "k1"})
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, base.calls)

	_, err = commands.Dispatch[createThing, result](ctx, bus, createThing{Name: "b"})
	require.NoError(t, err)
	_, err = commands.Dispatch[createThing, result](ctx, bus, createThing{Name: "b"})
	require.NoError(t, err)
	assert.Equal(t, 3, base.calls)
}

func TestIdempotencyReplaysDomainRejection(t *testing.T) {
	conflict := errs.New(errs.ErrConflict, "dates taken")
	base := &countingBus{err: conflict}
	bus := ChainCommands(base, Idempotency(mapStore{}, nil))

	_, err := bus.Dispatch(context.Background(), createThing{IdemKey: "k"})
	require.ErrorIs(t, err, errs.ErrConflict)
	base.err = nil
	_, err = bus.Dispatch(context.Background(), createThing{IdemKey: "k"})
	assert.ErrorIs(t, err, errs.ErrConflict)
	assert.Equal(t, "dates taken", err.Error())
	assert.Equal(t, 1, base.calls)
}

func TestIdempotencyDoesNotStoreTransientFailures(t *testing.T) {
	store := &storeMock{}
	store.On("Get", mock.Anything, "things.create:k").Return(IdempotencyRecord{}, false, nil).Twice()
	store.On("Save", mock.Anything, mock.MatchedBy(func(rec IdempotencyRecord) bool {
		return rec.Key == "things.create:k" && rec.Error == ""
	})).Return(nil).Once()

	base := &countingBus{err: errs.Unavailable("store", errors.New("timeout"))}
	bus := ChainCommands(base, Idempotency(store, nil))

	_, err := bus.Dispatch(context.Background(), createThing{IdemKey: "k"})
	require.ErrorIs(t, err, errs.ErrUnavailable)

	base.err = nil
	_, err = bus.Dispatch(context.Background(), createThing{Name: "x", IdemKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, 2, base.calls)
	store.AssertExpectations(t)
}

type fakeUnit struct {
	uow.UnitOfWork
	committed  bool
	rolledBack bool
}

func (u *fakeUnit) Commit(context.Context) error   { u.committed = true; return nil }
func (u *fakeUnit) Rollback(context.Context) error { u.rolledBack = true; return nil }

type fakeFactory struct {
	units []*fakeUnit
}

func (f *fakeFactory) Begin(context.Context, uow.TxOptions) (uow.UnitOfWork, error) {
	u := &fakeUnit{}
	f.units = append(f.units, u)
	return u, nil
}

func TestTransactionCommitsOnlyOnSuccess(t *testing.T) {
	factory := &fakeFactory{}
	var sawUnit bool
	inner := commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		_, sawUnit = uow.FromContext(ctx)
		if cmd.(createThing).Name == "fail" {
			return nil, errs.New(errs.ErrInvalidInput, "bad")
		}
		return result{}, nil
	})
	bus := ChainCommands(inner, Transaction(factory, nil))

	_, err := bus.Dispatch(context.Background(), createThing{Name: "ok"})
	require.NoError(t, err)
	assert.True(t, sawUnit)
	assert.True(t, factory.units[0].committed)

	_, err = bus.Dispatch(context.Background(), createThing{Name: "fail"})
	require.Error(t, err)
	assert.False(t, factory.units[1].committed)
	assert.True(t, factory.units[1].rolledBack)
}

func TestTransactionRollsBackWhenCallerGoesAway(t *testing.T) {
	factory := &fakeFactory{}
	ctx, cancel := context.WithCancel(context.Background())
	inner := commandFunc(func(context.Context, commands.Command) (any, error) {
		cancel()
		return result{}, nil
	})
	bus := ChainCommands(inner, Transaction(factory, nil))

	_, err := bus.Dispatch(ctx, createThing{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, factory.units[0].committed)
	assert.True(t, factory.units[0].rolledBack)
}

type actorThing struct {
	createThing
}

func (a actorThing) Actor() string                 { return a.createThing.Actor }
func (a actorThing) RequiredRole() domainuser.Role { return domainuser.RoleAdmin }

func TestAuthorizationRunsBeforeHandler(t *testing.T) {
	base := &countingBus{}
	bus := ChainCommands(base, Authorization(policies.Authorizer{}))
	admin := policies.ContextWithPrincipal(context.Background(), policies.Principal{UserID: "u1", Roles: []domainuser.Role{domainuser.RoleAdmin}})
	guest := policies.ContextWithPrincipal(context.Background(), policies.Principal{UserID: "u1"})

	_, err := bus.Dispatch(context.Background(), actorThing{createThing{Actor: "u1"}})
	assert.ErrorIs(t, err, policies.ErrUnauthenticated)
	_, err = bus.Dispatch(guest, actorThing{createThing{Actor: "u1"}})
	assert.ErrorIs(t, err, errs.ErrForbidden)
	_, err = bus.Dispatch(admin, actorThing{createThing{Actor: "u1"}})
	assert.NoError(t, err)
	assert.Equal(t, 1, base.calls)
}

type flakyOutbox struct {
	flushes int
	err     error
}

func (b *flakyOutbox) Add(context.Context, outbox.EventRecord) error { return nil }

func (b *flakyOutbox) Flush(context.Context) error {
	b.flushes++
	return b.err
}

func TestOutboxFlushAfterSuccessOnly(t *testing.T) {
	box := &flakyOutbox{}
	base := &countingBus{}
	bus := ChainCommands(base, OutboxFlush(box))

	_, err := bus.Dispatch(context.Background(), createThing{Name: "a"})
	require.NoError(t, err)
	assert.Equal(t, 1, box.flushes)

	base.err = errs.New(errs.ErrConflict, "taken")
	_, err = bus.Dispatch(context.Background(), createThing{Name: "b"})
	require.ErrorIs(t, err, errs.ErrConflict)
	assert.Equal(t, 1, box.flushes)

	base.err = nil
	box.err = errs.Unavailable("outbox", errors.New("down"))
	_, err = bus.Dispatch(context.Background(), createThing{Name: "c"})
	assert.ErrorIs(t, err, errs.ErrUnavailable)
}

func TestOutboxFlushWithoutBoxPassesThrough(t *testing.T) {
	base := &countingBus{}
	bus := ChainCommands(base, OutboxFlush(nil))
	assert.Same(t, base, bus)
}

func TestChainOrderIsOutermostFirst(t *testing.T) {
	var seen []string
	tag := func(name string) CommandMiddleware {
		return func(next commands.Bus) commands.Bus {
			return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
				seen = append(seen, name)
				return next.Dispatch(ctx, cmd)
			})
		}
	}
	bus := ChainCommands(&countingBus{}, tag("outer"), tag("inner"))
	_, err := bus.Dispatch(context.Background(), createThing{})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, seen)
}
