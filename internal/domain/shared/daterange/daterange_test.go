package daterange

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain/shared/errs"
)

func day(s string) time.Time {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func mustRange(t *testing.T, in, out string) DateRange {
	t.Helper()
	dr, err := Parse(in, out)
	require.NoError(t, err)
	return dr
}

func TestNewRejectsInvertedAndEmptyRanges(t *testing.T) {
	_, err := New(day("2024-02-05"), day("2024-02-05"))
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))

	_, err = New(day("2024-02-06"), day("2024-02-05"))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(time.Time{}, day("2024-02-05"))
	assert.ErrorIs(t, err, ErrMissingDate)
}

func TestNewAnchorsAtMidnight(t *testing.T) {
	in := time.Date(2024, 2, 1, 15, 30, 0, 0, time.UTC)
	out := time.Date(2024, 2, 5, 10, 0, 0, 0, time.UTC)
	dr, err := New(in, out)
	require.NoError(t, err)
	assert.Equal(t, day("2024-02-01"), dr.CheckIn)
	assert.Equal(t, day("2024-02-05"), dr.CheckOut)
	assert.Equal(t, 4, dr.Nights())
}

func TestParse(t *testing.T) {
	_, err := Parse("2024-02-01", "")
	assert.ErrorIs(t, err, ErrMissingDate)

	_, err = Parse("02/01/2024", "2024-02-05")
	assert.ErrorIs(t, err, ErrInvalidDate)

	dr := mustRange(t, "2024-02-27", "2024-03-02")
	assert.Equal(t, 4, dr.Nights(), "leap day counts as a night")
	assert.Equal(t, "2024-02-27/2024-03-02", dr.String())
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	base := mustRange(t, "2024-02-01", "2024-02-05")

	cases := []struct {
		name string
		in   string
		out  string
		want bool
	}{
		{"inside", "2024-02-02", "2024-02-03", true},
		{"straddles end", "2024-02-03", "2024-02-06", true},
		{"straddles start", "2024-01-30", "2024-02-02", true},
		{"covers", "2024-01-30", "2024-02-10", true},
		{"identical", "2024-02-01", "2024-02-05", true},
		{"back to back after", "2024-02-05", "2024-02-08", false},
		{"back to back before", "2024-01-28", "2024-02-01", false},
		{"disjoint", "2024-03-01", "2024-03-04", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			other := mustRange(t, tc.in, tc.out)
			assert.Equal(t, tc.want, base.Overlaps(other))
			assert.Equal(t, tc.want, other.Overlaps(base), "overlap must be symmetric")
		})
	}
}
