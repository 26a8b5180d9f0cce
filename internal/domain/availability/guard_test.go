package availability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
)

type staticSource struct {
	items []Reservation
	err   error
	asked property.ID
}

func (s *staticSource) Reservations(_ context.Context, propertyID property.ID, _ daterange.DateRange) ([]Reservation, error) {
	s.asked = propertyID
	return s.items, s.err
}

func rng(t *testing.T, in, out string) daterange.DateRange {
	t.Helper()
	dr, err := daterange.Parse(in, out)
	require.NoError(t, err)
	return dr
}

func TestConflicts(t *testing.T) {
	existing := []Reservation{
		{BookingID: "a", Range: rng(t, "2024-02-01", "2024-02-05"), Active: true},
		{BookingID: "b", Range: rng(t, "2024-02-10", "2024-02-12"), Active: false},
	}

	cases := []struct {
		name      string
		candidate daterange.DateRange
		excluding string
		want      bool
	}{
		{"inside", rng(t, "2024-02-02", "2024-02-03"), "", true},
		{"straddles end", rng(t, "2024-02-03", "2024-02-06"), "", true},
		{"back to back after", rng(t, "2024-02-05", "2024-02-08"), "", false},
		{"back to back before", rng(t, "2024-01-28", "2024-02-01"), "", false},
		{"covers", rng(t, "2024-01-30", "2024-02-07"), "", true},
		{"cancelled range ignored", rng(t, "2024-02-10", "2024-02-12"), "", false},
		{"own booking excluded", rng(t, "2024-02-02", "2024-02-06"), "a", false},
		{"other id does not exclude", rng(t, "2024-02-02", "2024-02-06"), "zzz", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Conflicts(tc.candidate, existing, tc.excluding))
		})
	}
}

func TestGuardIsAvailable(t *testing.T) {
	src := &staticSource{items: []Reservation{
		{BookingID: "a", Range: rng(t, "2024-02-01", "2024-02-05"), Active: true},
	}}
	guard := NewGuard(src)

	ok, err := guard.IsAvailable(context.Background(), "p1", rng(t, "2024-02-03", "2024-02-06"), "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, property.ID("p1"), src.asked)

	ok, err = guard.IsAvailable(context.Background(), "p1", rng(t, "2024-02-05", "2024-02-08"), "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGuardPropagatesSourceError(t *testing.T) {
	boom := errors.New("store down")
	guard := NewGuard(&staticSource{err: boom})
	ok, err := guard.IsAvailable(context.Background(), "p1", rng(t, "2024-02-03", "2024-02-06"), "")
	assert.ErrorIs(t, err, boom)
	assert.False(t, ok)
}
