package ratings

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/middleware"
	"staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/app/uow"
	domainproperty "staybook/internal/domain/property"
	domainrating "staybook/internal/domain/rating"
	domainuser "staybook/internal/domain/user"
)

const (
	createRatingKey  = "ratings.create"
	updateRatingKey  = "ratings.update"
	deleteRatingKey  = "ratings.delete"
	toggleHelpfulKey = "ratings.toggle_helpful"
)

type CreateRatingCommand struct {
	PropertyID      string    `json:"property_id" validate:"required"`
	UserID          string    `json:"user_id" validate:"required"`
	Rating          float64   `json:"rating"`
	Review          string    `json:"review"`
	IdempotencyKeyV string    `json:"-"`
	Now             time.Time `json:"-"`
}

func (c CreateRatingCommand) Key() string            { return createRatingKey }
func (c CreateRatingCommand) Actor() string          { return c.UserID }
func (c CreateRatingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }
func (c CreateRatingCommand) ResultPrototype() any   { return &dto.Rating{} }

type UpdateRatingCommand struct {
	RatingID string    `json:"rating_id" validate:"required"`
	ActorID  string    `json:"actor_id" validate:"required"`
	Rating   *float64  `json:"rating,omitempty"`
	Review   *string   `json:"review,omitempty"`
	Now      time.Time `json:"-"`
}

func (c UpdateRatingCommand) Key() string   { return updateRatingKey }
func (c UpdateRatingCommand) Actor() string { return c.ActorID }

type DeleteRatingCommand struct {
	RatingID string    `json:"rating_id" validate:"required"`
	ActorID  string    `json:"actor_id" validate:"required"`
	Now      time.Time `json:"-"`
}

func (c DeleteRatingCommand) Key() string   { return deleteRatingKey }
func (c DeleteRatingCommand) Actor() string { return c.ActorID }

type ToggleHelpfulCommand struct {
	RatingID string    `json:"rating_id" validate:"required"`
	UserID   string    `json:"user_id" validate:"required"`
	Now      time.Time `json:"-"`
}

func (c ToggleHelpfulCommand) Key() string   { return toggleHelpfulKey }
func (c ToggleHelpfulCommand) Actor() string { return c.UserID }

// Handler serves every rating write. Writes that change the rating set or a
// value recompute the property rollup before the unit commits.
type Handler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *Handler) Create() commands.Handler[CreateRatingCommand, dto.Rating] {
	return commands.HandlerFunc[CreateRatingCommand, dto.Rating](h.create)
}

func (h *Handler) Update() commands.Handler[UpdateRatingCommand, dto.Rating] {
	return commands.HandlerFunc[UpdateRatingCommand, dto.Rating](h.update)
}

func (h *Handler) Delete() commands.Handler[DeleteRatingCommand, dto.Property] {
	return commands.HandlerFunc[DeleteRatingCommand, dto.Property](h.delete)
}

func (h *Handler) ToggleHelpful() commands.Handler[ToggleHelpfulCommand, dto.HelpfulToggle] {
	return commands.HandlerFunc[ToggleHelpfulCommand, dto.HelpfulToggle](h.toggleHelpful)
}

func (h *Handler) create(ctx context.Context, cmd CreateRatingCommand) (dto.Rating, error) {
	unit, err := handlersupport.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Rating{}, err
	}
	defer unit.Close()
	ctx = unit.Ctx

	now := nowOr(cmd.Now)
	property, err := unit.Properties().ByID(ctx, domainproperty.ID(cmd.PropertyID))
	if err != nil {
		return dto.Rating{}, err
	}
	author, err := unit.Users().ByID(ctx, domainuser.ID(cmd.UserID))
	if err != nil {
		return dto.Rating{}, err
	}
	rating, err := domainrating.NewRating(domainrating.CreateParams{
		ID:         domainrating.ID(uuid.NewString()),
		PropertyID: property.ID,
		UserID:     author.ID,
		Value:      cmd.Rating,
		Review:     cmd.Review,
		CreatedAt:  now,
	})
	if err != nil {
		return dto.Rating{}, err
	}
	if err := unit.Ratings().Save(ctx, rating); err != nil {
		return dto.Rating{}, err
	}
	property, err = recalculatePropertyRating(ctx, unit, property.ID, now)
	if err != nil {
		return dto.Rating{}, err
	}
	if err := outbox.RecordAggregates(ctx, h.Outbox, h.Encoder, rating, property); err != nil {
		return dto.Rating{}, err
	}
	if err := unit.Finish(); err != nil {
		return dto.Rating{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("rating submitted",
			"rating_id", rating.ID,
			"property_id", property.ID,
			"user_id", rating.UserID,
			"rating", rating.Value,
			"avg_rating", property.AvgRating,
			"total_ratings", property.TotalRatings,
		)
	}
	return dto.MapRating(rating, cmd.UserID), nil
}

func (h *Handler) update(ctx context.Context, cmd UpdateRatingCommand) (dto.Rating, error) {
	unit, err := handlersupport.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Rating{}, err
	}
	defer unit.Close()
	ctx = unit.Ctx

	now := nowOr(cmd.Now)
	rating, err := unit.Ratings().ByID(ctx, domainrating.ID(cmd.RatingID))
	if err != nil {
		return dto.Rating{}, err
	}
	if err := rating.Update(cmd.ActorID, cmd.Rating, cmd.Review, now); err != nil {
		return dto.Rating{}, err
	}
	if err := unit.Ratings().Save(ctx, rating); err != nil {
		return dto.Rating{}, err
	}
	property, err := recalculatePropertyRating(ctx, unit, rating.PropertyID, now)
	if err != nil {
		return dto.Rating{}, err
	}
	if err := outbox.RecordAggregates(ctx, h.Outbox, h.Encoder, rating, property); err != nil {
		return dto.Rating{}, err
	}
	if err := unit.Finish(); err != nil {
		return dto.Rating{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("rating updated", "rating_id", rating.ID, "property_id", property.ID, "rating", rating.Value, "avg_rating", property.AvgRating)
	}
	return dto.MapRating(rating, cmd.ActorID), nil
}

// delete removes a rating by its author or an admin and returns the property
// with its recomputed rollup.
func (h *Handler) delete(ctx context.Context, cmd DeleteRatingCommand) (dto.Property, error) {
	unit, err := handlersupport.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Property{}, err
	}
	defer unit.Close()
	ctx = unit.Ctx

	now := nowOr(cmd.Now)
	rating, err := unit.Ratings().ByID(ctx, domainrating.ID(cmd.RatingID))
	if err != nil {
		return dto.Property{}, err
	}
	if !rating.IsAuthor(cmd.ActorID) && !isAdmin(ctx) {
		return dto.Property{}, domainrating.ErrNotAuthor
	}
	rating.Remove(now)
	if err := unit.Ratings().Delete(ctx, rating.ID); err != nil {
		return dto.Property{}, err
	}
	property, err := recalculatePropertyRating(ctx, unit, rating.PropertyID, now)
	if err != nil {
		return dto.Property{}, err
	}
	if err := outbox.RecordAggregates(ctx, h.Outbox, h.Encoder, rating, property); err != nil {
		return dto.Property{}, err
	}
	if err := unit.Finish(); err != nil {
		return dto.Property{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("rating removed", "rating_id", rating.ID, "property_id", property.ID, "avg_rating", property.AvgRating, "total_ratings", property.TotalRatings)
	}
	return dto.MapProperty(property), nil
}

// toggleHelpful flips one voter's membership. Helpful votes do not feed the
// rollup, so the property is left alone.
func (h *Handler) toggleHelpful(ctx context.Context, cmd ToggleHelpfulCommand) (dto.HelpfulToggle, error) {
	unit, err := handlersupport.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.HelpfulToggle{}, err
	}
	defer unit.Close()
	ctx = unit.Ctx

	rating, err := unit.Ratings().ByID(ctx, domainrating.ID(cmd.RatingID))
	if err != nil {
		return dto.HelpfulToggle{}, err
	}
	member, err := rating.ToggleHelpful(domainuser.ID(cmd.UserID), nowOr(cmd.Now))
	if err != nil {
		return dto.HelpfulToggle{}, err
	}
	if err := unit.Ratings().Save(ctx, rating); err != nil {
		return dto.HelpfulToggle{}, err
	}
	if err := unit.Finish(); err != nil {
		return dto.HelpfulToggle{}, err
	}
	return dto.HelpfulToggle{RatingID: string(rating.ID), Helpful: member, HelpfulCount: rating.HelpfulCount()}, nil
}

func nowOr(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func isAdmin(ctx context.Context) bool {
	p, ok := policies.PrincipalFromContext(ctx)
	return ok && p.HasRole(domainuser.RoleAdmin)
}

var _ middleware.IdempotentCommand = CreateRatingCommand{}
