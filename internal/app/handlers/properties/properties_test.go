package properties

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/outbox"
	domainproperty "staybook/internal/domain/property"
	"staybook/internal/domain/shared/money"
	"staybook/internal/infra/storage/memory"
)

var now = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func TestSetAvailabilityIsOwnerOnly(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	p, err := domainproperty.NewProperty(domainproperty.CreateParams{
		ID: "p1", Owner: "owner", Title: "Cabin", PricePerNight: money.Must(8000, "EUR"), MaxGuests: 2, Available: true, Now: now,
	})
	require.NoError(t, err)
	require.NoError(t, store.SeedProperty(ctx, p))

	set := &SetAvailabilityHandler{UoWFactory: store, Outbox: memory.Outbox{}, Encoder: outbox.JSONEventEncoder{}}
	get := &GetPropertyHandler{UoWFactory: store}

	_, err = set.Handle(ctx, SetAvailabilityCommand{PropertyID: "p1", ActorID: "someone", Available: false, Now: now})
	assert.ErrorIs(t, err, domainproperty.ErrNotOwner)

	out, err := set.Handle(ctx, SetAvailabilityCommand{PropertyID: "p1", ActorID: "owner", Available: false, Now: now})
	require.NoError(t, err)
	assert.False(t, out.Available)
	assert.Equal(t, []string{"property.availability_changed"}, store.Relay().Pending())

	_, err = set.Handle(ctx, SetAvailabilityCommand{PropertyID: "p1", ActorID: "owner", Available: false, Now: now})
	require.NoError(t, err)
	assert.Len(t, store.Relay().Pending(), 1, "no event when nothing changed")

	got, err := get.Handle(ctx, GetPropertyQuery{PropertyID: "p1"})
	require.NoError(t, err)
	assert.False(t, got.Available)
	assert.Equal(t, "Cabin", got.Title)
	assert.Equal(t, int64(8000), got.PricePerNight.Amount)

	_, err = get.Handle(ctx, GetPropertyQuery{PropertyID: "missing"})
	assert.ErrorIs(t, err, domainproperty.ErrNotFound)
}
