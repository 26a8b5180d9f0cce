package queries

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countQuery struct{ N int }

func (countQuery) Key() string { return "things.count" }

func TestAskReturnsTypedResult(t *testing.T) {
	bus := NewInMemoryBus()
	Register(bus, countQuery{}.Key(), HandlerFunc[countQuery, int](func(_ context.Context, q countQuery) (int, error) {
		return q.N * 2, nil
	}))

	out, err := Ask[countQuery, int](context.Background(), bus, countQuery{N: 21})
	require.NoError(t, err)
	assert.Equal(t, 42, out)

	_, err = Ask[countQuery, string](context.Background(), bus, countQuery{})
	assert.ErrorIs(t, err, ErrResultType)
	assert.Contains(t, err.Error(), "int")
}

func TestAskUnknownKey(t *testing.T) {
	_, err := NewInMemoryBus().Ask(context.Background(), countQuery{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)
	assert.Empty(t, NewInMemoryBus().Keys())
}
