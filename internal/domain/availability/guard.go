package availability

import (
	"context"

	"staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
)

// Reservation is the part of a booking that occupies a property's calendar.
type Reservation struct {
	BookingID string
	Range     daterange.DateRange
	// Active is false for cancelled bookings; those never block the calendar.
	Active bool
}

// Source lists reservations for a property whose range may intersect window.
// Implementations may return a superset; the guard filters again.
type Source interface {
	Reservations(ctx context.Context, propertyID property.ID, window daterange.DateRange) ([]Reservation, error)
}

type Guard struct {
	source Source
}

func NewGuard(source Source) *Guard {
	return &Guard{source: source}
}

// IsAvailable reports whether candidate fits into the property's calendar.
// excludingBookingID is skipped so a booking can be moved without colliding with itself.
func (g *Guard) IsAvailable(ctx context.Context, propertyID property.ID, candidate daterange.DateRange, excludingBookingID string) (bool, error) {
	existing, err := g.source.Reservations(ctx, propertyID, candidate)
	if err != nil {
		return false, err
	}
	return !Conflicts(candidate, existing, excludingBookingID), nil
}

// Conflicts is the pure half-open overlap scan behind IsAvailable.
func Conflicts(candidate daterange.DateRange, existing []Reservation, excludingBookingID string) bool {
	for _, r := range existing {
		if !r.Active {
			continue
		}
		if excludingBookingID != "" && r.BookingID == excludingBookingID {
			continue
		}
		if r.Range.Overlaps(candidate) {
			return true
		}
	}
	return false
}
