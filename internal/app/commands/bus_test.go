package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type renameCmd struct{ To string }

func (renameCmd) Key() string { return "things.rename" }

type otherCmd struct{}

func (otherCmd) Key() string { return "things.rename" }

func TestDispatchRoutesByKey(t *testing.T) {
	bus := NewInMemoryBus()
	Register(bus, renameCmd{}.Key(), HandlerFunc[renameCmd, string](func(_ context.Context, c renameCmd) (string, error) {
		return "renamed to " + c.To, nil
	}))

	out, err := Dispatch[renameCmd, string](context.Background(), bus, renameCmd{To: "loft"})
	require.NoError(t, err)
	assert.Equal(t, "renamed to loft", out)
	assert.Equal(t, []string{"things.rename"}, bus.Keys())
}

func TestDispatchErrors(t *testing.T) {
	ctx := context.Background()
	bus := NewInMemoryBus()

	_, err := bus.Dispatch(ctx, renameCmd{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)
	assert.Contains(t, err.Error(), "things.rename")

	Register(bus, renameCmd{}.Key(), HandlerFunc[renameCmd, string](func(context.Context, renameCmd) (string, error) {
		return "ok", nil
	}))
	_, err = bus.Dispatch(ctx, otherCmd{})
	assert.ErrorIs(t, err, ErrInvalidCommand)

	_, err = Dispatch[renameCmd, int](ctx, bus, renameCmd{})
	assert.ErrorIs(t, err, ErrResultType)

	_, err = Dispatch[renameCmd, string](ctx, nil, renameCmd{})
	assert.ErrorIs(t, err, ErrNilBus)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	bus := NewInMemoryBus()
	h := HandlerFunc[renameCmd, string](func(context.Context, renameCmd) (string, error) { return "", nil })
	Register(bus, "k", h)
	assert.Panics(t, func() { Register(bus, "k", h) })
	assert.Panics(t, func() { Register(bus, "", h) })
}
