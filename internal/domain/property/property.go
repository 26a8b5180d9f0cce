package property

import (
	"context"
	"strings"
	"time"

	"staybook/internal/domain/shared/errs"
	"staybook/internal/domain/shared/events"
	"staybook/internal/domain/shared/money"
)

var (
	ErrNotFound     = errs.New(errs.ErrNotFound, "property: not found")
	ErrNotBookable  = errs.New(errs.ErrNotFound, "property: not available for booking")
	ErrNotOwner     = errs.New(errs.ErrForbidden, "property: only the owner may change this property")
	ErrGuestsLimit  = errs.New(errs.ErrInvalidInput, "property: max guests must be at least 1")
	ErrNightlyRate  = errs.New(errs.ErrInvalidInput, "property: price per night must be non-negative")
	ErrOwnerMissing = errs.New(errs.ErrInvalidInput, "property: owner is required")
	ErrIDMissing    = errs.New(errs.ErrInvalidInput, "property: id is required")
)

type ID string
type OwnerID string

// Property is the slice of the property directory the booking engine reads, plus
// the rating rollup it maintains.
type Property struct {
	ID            ID
	Owner         OwnerID
	Title         string
	PricePerNight money.Money
	MaxGuests     int
	Available     bool
	AvgRating     float64
	TotalRatings  int
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Property, error)
	Save(ctx context.Context, property *Property) error
}

type CreateParams struct {
	ID            ID
	Owner         OwnerID
	Title         string
	PricePerNight money.Money
	MaxGuests     int
	Available     bool
	Now           time.Time
}

func NewProperty(params CreateParams) (*Property, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDMissing
	}
	if strings.TrimSpace(string(params.Owner)) == "" {
		return nil, ErrOwnerMissing
	}
	if params.MaxGuests < 1 {
		return nil, ErrGuestsLimit
	}
	if params.PricePerNight.IsNegative() {
		return nil, ErrNightlyRate
	}
	if params.PricePerNight.Currency == "" {
		return nil, money.ErrInvalidCurrency
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	return &Property{
		ID:            params.ID,
		Owner:         params.Owner,
		Title:         strings.TrimSpace(params.Title),
		PricePerNight: params.PricePerNight,
		MaxGuests:     params.MaxGuests,
		Available:     params.Available,
		CreatedAt:     now.UTC(),
		UpdatedAt:     now.UTC(),
	}, nil
}

func (p *Property) IsOwnedBy(userID string) bool {
	return userID != "" && string(p.Owner) == userID
}

// Bookable reports whether the owner currently accepts bookings.
func (p *Property) Bookable() bool {
	return p.Available
}

// SetAvailability flips the owner-controlled flag; it reports whether anything changed.
func (p *Property) SetAvailability(actorID string, available bool, now time.Time) (bool, error) {
	if !p.IsOwnedBy(actorID) {
		return false, ErrNotOwner
	}
	if p.Available == available {
		return false, nil
	}
	p.Available = available
	p.UpdatedAt = now.UTC()
	p.Record(AvailabilityChanged{PropertyID: p.ID, Available: available, At: p.UpdatedAt})
	return true, nil
}

// ApplyRatingRollup overwrites the derived rating fields with a freshly computed summary.
func (p *Property) ApplyRatingRollup(average float64, count int, now time.Time) {
	p.AvgRating = average
	p.TotalRatings = count
	p.UpdatedAt = now.UTC()
	p.Record(RatingRecalculated{PropertyID: p.ID, AvgRating: average, TotalRatings: count, At: p.UpdatedAt})
}
