package booking

import (
	"context"
	"strings"
	"time"

	"staybook/internal/domain/availability"
	"staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/errs"
	"staybook/internal/domain/shared/events"
	"staybook/internal/domain/shared/money"
	"staybook/internal/domain/user"
)

var (
	ErrNotFound          = errs.New(errs.ErrNotFound, "booking: not found")
	ErrDatesConflict     = errs.New(errs.ErrConflict, "booking: dates conflict with an existing booking")
	ErrCapacityExceeded  = errs.New(errs.ErrInvalidInput, "booking: number of guests exceeds property capacity")
	ErrInvalidGuests     = errs.New(errs.ErrInvalidInput, "booking: number of guests must be at least 1")
	ErrGuestRequired     = errs.New(errs.ErrInvalidInput, "booking: guest is required")
	ErrNegativePrice     = errs.New(errs.ErrInvalidInput, "booking: total price must be non-negative")
	ErrInvalidTransition = errs.New(errs.ErrConflict, "booking: invalid status transition")
	ErrInvalidStatus     = errs.New(errs.ErrInvalidInput, "booking: unknown status")
	ErrNotParticipant    = errs.New(errs.ErrForbidden, "booking: only the guest or the property owner may do this")
	ErrNotPropertyOwner  = errs.New(errs.ErrForbidden, "booking: only the property owner may do this")
)

type ID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return s, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Blocking reports whether a booking in this status occupies the calendar.
func (s Status) Blocking() bool {
	return s == StatusPending || s == StatusConfirmed
}

type Booking struct {
	ID           ID
	PropertyID   property.ID
	GuestID      user.ID
	Range        daterange.DateRange
	Guests       int
	TotalPrice   money.Money
	Status       Status
	CancelReason string
	Conversation Conversation
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int64
	events.EventRecorder
}

// Repository persists bookings. Reservations must include every non-cancelled
// booking of the property whose range intersects the window.
type Repository interface {
	availability.Source
	ByID(ctx context.Context, id ID) (*Booking, error)
	ByConversation(ctx context.Context, id ConversationID) (*Booking, error)
	ListByProperty(ctx context.Context, propertyID property.ID, filter ListFilter) ([]*Booking, error)
	ListByGuest(ctx context.Context, guestID user.ID, filter ListFilter) ([]*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	Delete(ctx context.Context, id ID) error
}

// ListFilter narrows listings by status; zero Limit means no limit.
// Results are ordered by check-in.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

type CreateParams struct {
	ID             ID
	ConversationID ConversationID
	PropertyID     property.ID
	GuestID        user.ID
	Range          daterange.DateRange
	Guests         int
	TotalPrice     money.Money
	CreatedAt      time.Time
}

// NewBooking builds a pending booking with an empty, active conversation.
// Calendar and capacity checks belong to the caller.
func NewBooking(params CreateParams) (*Booking, error) {
	if strings.TrimSpace(string(params.GuestID)) == "" {
		return nil, ErrGuestRequired
	}
	if params.Guests < 1 {
		return nil, ErrInvalidGuests
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if params.TotalPrice.IsNegative() {
		return nil, ErrNegativePrice
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:         params.ID,
		PropertyID: params.PropertyID,
		GuestID:    params.GuestID,
		Range:      params.Range,
		Guests:     params.Guests,
		TotalPrice: params.TotalPrice,
		Status:     StatusPending,
		Conversation: Conversation{
			ID:     params.ConversationID,
			Active: true,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.Record(BookingRequested{
		BookingID:  b.ID,
		PropertyID: b.PropertyID,
		GuestID:    b.GuestID,
		Range:      b.Range,
		Guests:     b.Guests,
		TotalPrice: b.TotalPrice,
		At:         now,
	})
	return b, nil
}

// CheckCapacity validates a guest count against the property's current limit.
func CheckCapacity(guests, maxGuests int) error {
	if guests < 1 {
		return ErrInvalidGuests
	}
	if guests > maxGuests {
		return ErrCapacityExceeded
	}
	return nil
}

func (b *Booking) Reservation() availability.Reservation {
	return availability.Reservation{BookingID: string(b.ID), Range: b.Range, Active: b.Status.Blocking()}
}

func (b *Booking) IsGuest(userID string) bool {
	return userID != "" && string(b.GuestID) == userID
}

// IsParticipant reports whether userID is this booking's guest or the owner of its property.
func (b *Booking) IsParticipant(userID string, owner property.OwnerID) bool {
	return b.IsGuest(userID) || (userID != "" && string(owner) == userID)
}

// Reschedule moves the stay and replaces the price. The caller has already
// checked the new range against the calendar with this booking excluded.
// CanReschedule reports whether the dates may still move. Cancelled stays are final.
func (b *Booking) CanReschedule() error {
	if b.Status == StatusCancelled {
		return ErrInvalidTransition
	}
	return nil
}

func (b *Booking) Reschedule(dr daterange.DateRange, total money.Money, now time.Time) error {
	if err := b.CanReschedule(); err != nil {
		return err
	}
	if err := dr.Validate(); err != nil {
		return err
	}
	if total.IsNegative() {
		return ErrNegativePrice
	}
	previous := b.Range
	b.Range = dr
	b.TotalPrice = total
	b.UpdatedAt = now.UTC()
	b.Record(BookingRescheduled{BookingID: b.ID, PropertyID: b.PropertyID, Previous: previous, Range: dr, TotalPrice: total, At: b.UpdatedAt})
	return nil
}

func (b *Booking) ChangeGuests(guests, maxGuests int, now time.Time) error {
	if b.Status == StatusCancelled {
		return ErrInvalidTransition
	}
	if err := CheckCapacity(guests, maxGuests); err != nil {
		return err
	}
	b.Guests = guests
	b.UpdatedAt = now.UTC()
	return nil
}

// Confirm moves pending to confirmed. Confirming a confirmed booking is a no-op.
func (b *Booking) Confirm(now time.Time) error {
	switch b.Status {
	case StatusConfirmed:
		return nil
	case StatusPending:
	default:
		return ErrInvalidTransition
	}
	b.Status = StatusConfirmed
	b.UpdatedAt = now.UTC()
	b.Record(BookingConfirmed{BookingID: b.ID, PropertyID: b.PropertyID, Range: b.Range, TotalPrice: b.TotalPrice, At: b.UpdatedAt})
	return nil
}

// Cancel releases the calendar and closes the conversation.
func (b *Booking) Cancel(reason string, now time.Time) error {
	if !b.Status.Blocking() {
		return ErrInvalidTransition
	}
	b.Status = StatusCancelled
	b.CancelReason = strings.TrimSpace(reason)
	b.Conversation.Active = false
	b.UpdatedAt = now.UTC()
	b.Record(BookingCancelled{BookingID: b.ID, PropertyID: b.PropertyID, Range: b.Range, Reason: b.CancelReason, At: b.UpdatedAt})
	return nil
}

// TransitionTo routes a requested status through the lifecycle rules.
func (b *Booking) TransitionTo(target Status, reason string, now time.Time) error {
	switch target {
	case StatusConfirmed:
		return b.Confirm(now)
	case StatusCancelled:
		return b.Cancel(reason, now)
	case StatusPending:
		if b.Status == StatusPending {
			return nil
		}
		return ErrInvalidTransition
	default:
		return ErrInvalidStatus
	}
}
