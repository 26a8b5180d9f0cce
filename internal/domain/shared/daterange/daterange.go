package daterange

import (
	"time"

	"staybook/internal/domain/shared/errs"
)

const dayLayout = "2006-01-02"

var (
	ErrInvalidRange = errs.New(errs.ErrInvalidInput, "daterange: check-out must be after check-in")
	ErrMissingDate  = errs.New(errs.ErrInvalidInput, "daterange: check-in and check-out are required")
	ErrInvalidDate  = errs.New(errs.ErrInvalidInput, "daterange: dates must use YYYY-MM-DD")
)

// DateRange represents a half-open interval [checkIn, checkOut) of calendar days.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// New anchors both ends at UTC midnight and validates ordering.
func New(checkIn, checkOut time.Time) (DateRange, error) {
	if checkIn.IsZero() || checkOut.IsZero() {
		return DateRange{}, ErrMissingDate
	}
	dr := DateRange{CheckIn: Day(checkIn), CheckOut: Day(checkOut)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// Parse builds a range from two YYYY-MM-DD strings.
func Parse(checkIn, checkOut string) (DateRange, error) {
	if checkIn == "" || checkOut == "" {
		return DateRange{}, ErrMissingDate
	}
	in, err := ParseDay(checkIn)
	if err != nil {
		return DateRange{}, err
	}
	out, err := ParseDay(checkOut)
	if err != nil {
		return DateRange{}, err
	}
	return New(in, out)
}

// ParseDay reads a single YYYY-MM-DD date at UTC midnight.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// Day drops the clock part of t, keeping its calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (dr DateRange) Validate() error {
	if dr.CheckOut.IsZero() || dr.CheckIn.IsZero() {
		return ErrMissingDate
	}
	if !dr.CheckOut.After(dr.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

// Nights counts whole calendar days between check-in and check-out.
func (dr DateRange) Nights() int {
	return int(Day(dr.CheckOut).Sub(Day(dr.CheckIn)) / (24 * time.Hour))
}

// Overlaps reports whether two half-open ranges share at least one night.
// Back-to-back ranges (one ends the day the other starts) do not overlap.
func (dr DateRange) Overlaps(other DateRange) bool {
	return other.CheckOut.After(dr.CheckIn) && other.CheckIn.Before(dr.CheckOut)
}

func (dr DateRange) Equal(other DateRange) bool {
	return dr.CheckIn.Equal(other.CheckIn) && dr.CheckOut.Equal(other.CheckOut)
}

func (dr DateRange) String() string {
	return dr.CheckIn.Format(dayLayout) + "/" + dr.CheckOut.Format(dayLayout)
}
