package rating

import (
	"context"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"staybook/internal/domain/property"
	"staybook/internal/domain/shared/errs"
	"staybook/internal/domain/shared/events"
	"staybook/internal/domain/user"
)

const (
	MinValue        = 1.0
	MaxValue        = 5.0
	MinReviewLength = 10
	MaxReviewLength = 1000
)

var (
	ErrNotFound      = errs.New(errs.ErrNotFound, "rating: not found")
	ErrDuplicate     = errs.New(errs.ErrConflict, "rating: user already rated this property")
	ErrInvalidValue  = errs.New(errs.ErrInvalidInput, "rating: value must be a whole number between 1 and 5")
	ErrInvalidReview = errs.New(errs.ErrInvalidInput, "rating: review must be between 10 and 1000 characters")
	ErrSelfHelpful   = errs.New(errs.ErrForbidden, "rating: authors cannot mark their own rating helpful")
	ErrNotAuthor     = errs.New(errs.ErrForbidden, "rating: only the author may change this rating")
	ErrUserRequired  = errs.New(errs.ErrInvalidInput, "rating: user is required")
	ErrEmptyUpdate   = errs.New(errs.ErrInvalidInput, "rating: nothing to update")
)

type ID string

type Rating struct {
	ID         ID
	PropertyID property.ID
	UserID     user.ID
	Value      float64
	Review     string
	// Helpful is a set; membership and size are O(1).
	Helpful   map[user.ID]struct{}
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
	events.EventRecorder
}

// Repository persists ratings. Save must refuse a second rating for the same
// (property, user) pair with ErrDuplicate.
type Repository interface {
	ByID(ctx context.Context, id ID) (*Rating, error)
	ListByProperty(ctx context.Context, propertyID property.ID, limit, offset int) ([]*Rating, error)
	Values(ctx context.Context, propertyID property.ID) ([]float64, error)
	Save(ctx context.Context, rating *Rating) error
	Delete(ctx context.Context, id ID) error
}

type CreateParams struct {
	ID         ID
	PropertyID property.ID
	UserID     user.ID
	Value      float64
	Review     string
	CreatedAt  time.Time
}

func NewRating(params CreateParams) (*Rating, error) {
	if strings.TrimSpace(string(params.UserID)) == "" {
		return nil, ErrUserRequired
	}
	value, err := normalizeValue(params.Value)
	if err != nil {
		return nil, err
	}
	review, err := normalizeReview(params.Review)
	if err != nil {
		return nil, err
	}
	now := params.CreatedAt.UTC()
	r := &Rating{
		ID:         params.ID,
		PropertyID: params.PropertyID,
		UserID:     params.UserID,
		Value:      value,
		Review:     review,
		Helpful:    make(map[user.ID]struct{}),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.Record(RatingSubmitted{RatingID: r.ID, PropertyID: r.PropertyID, UserID: r.UserID, Value: r.Value, At: now})
	return r, nil
}

func (r *Rating) IsAuthor(userID string) bool {
	return userID != "" && string(r.UserID) == userID
}

// Update changes value and/or review; nil leaves a field untouched.
func (r *Rating) Update(actor string, value *float64, review *string, now time.Time) error {
	if !r.IsAuthor(actor) {
		return ErrNotAuthor
	}
	if value == nil && review == nil {
		return ErrEmptyUpdate
	}
	nextValue, nextReview := r.Value, r.Review
	var err error
	if value != nil {
		if nextValue, err = normalizeValue(*value); err != nil {
			return err
		}
	}
	if review != nil {
		if nextReview, err = normalizeReview(*review); err != nil {
			return err
		}
	}
	r.Value, r.Review = nextValue, nextReview
	r.UpdatedAt = now.UTC()
	r.Record(RatingUpdated{RatingID: r.ID, PropertyID: r.PropertyID, Value: r.Value, At: r.UpdatedAt})
	return nil
}

// Remove records the removal; the repository performs the delete.
func (r *Rating) Remove(now time.Time) {
	r.Record(RatingRemoved{RatingID: r.ID, PropertyID: r.PropertyID, UserID: r.UserID, At: now.UTC()})
}

// ToggleHelpful flips userID's membership and reports whether it is now a member.
func (r *Rating) ToggleHelpful(userID user.ID, now time.Time) (bool, error) {
	if strings.TrimSpace(string(userID)) == "" {
		return false, ErrUserRequired
	}
	if userID == r.UserID {
		return false, ErrSelfHelpful
	}
	if r.Helpful == nil {
		r.Helpful = make(map[user.ID]struct{})
	}
	_, member := r.Helpful[userID]
	if member {
		delete(r.Helpful, userID)
	} else {
		r.Helpful[userID] = struct{}{}
	}
	r.UpdatedAt = now.UTC()
	return !member, nil
}

func (r *Rating) HelpfulCount() int {
	return len(r.Helpful)
}

func (r *Rating) MarkedHelpfulBy(userID user.ID) bool {
	_, ok := r.Helpful[userID]
	return ok
}

// HelpfulIDs returns the set as a slice for storage and transport; order is unspecified.
func (r *Rating) HelpfulIDs() []user.ID {
	out := make([]user.ID, 0, len(r.Helpful))
	for id := range r.Helpful {
		out = append(out, id)
	}
	return out
}

// HelpfulSet builds the set from stored ids, dropping blanks, duplicates and the author.
func HelpfulSet(author user.ID, ids []user.ID) map[user.ID]struct{} {
	set := make(map[user.ID]struct{}, len(ids))
	for _, id := range ids {
		if id == "" || id == author {
			continue
		}
		set[id] = struct{}{}
	}
	return set
}

// Round1 rounds half away from zero to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// normalizeValue accepts whole stars only. Storage keeps one decimal so
// fractional ratings can be admitted later without a migration.
func normalizeValue(v float64) (float64, error) {
	if math.IsNaN(v) || v < MinValue || v > MaxValue || v != math.Trunc(v) {
		return 0, ErrInvalidValue
	}
	return Round1(v), nil
}

func normalizeReview(text string) (string, error) {
	text = strings.TrimSpace(text)
	n := utf8.RuneCountInString(text)
	if n < MinReviewLength || n > MaxReviewLength {
		return "", ErrInvalidReview
	}
	return text, nil
}
