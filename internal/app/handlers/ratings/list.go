package ratings

import (
	"context"
	"log/slog"

	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainproperty "staybook/internal/domain/property"
)

const (
	listPropertyRatingsKey = "ratings.list_by_property"

	defaultLimit = 20
	maxLimit     = 100
)

// ListPropertyRatingsQuery pages through a property's ratings, newest first.
type ListPropertyRatingsQuery struct {
	PropertyID string `validate:"required"`
	Limit      int
	Offset     int
	ViewerID   string
}

func (q ListPropertyRatingsQuery) Key() string { return listPropertyRatingsKey }

type ListPropertyRatingsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListPropertyRatingsHandler) Handle(ctx context.Context, q ListPropertyRatingsQuery) (dto.RatingCollection, error) {
	limit := normalizeLimit(q.Limit)
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.RatingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	propertyID := domainproperty.ID(q.PropertyID)
	if _, err := unit.Properties().ByID(execCtx, propertyID); err != nil {
		return dto.RatingCollection{}, err
	}
	page, err := unit.Ratings().ListByProperty(execCtx, propertyID, limit, offset)
	if err != nil {
		return dto.RatingCollection{}, err
	}
	items := make([]dto.Rating, 0, len(page))
	for _, r := range page {
		items = append(items, dto.MapRating(r, q.ViewerID))
	}
	return dto.RatingCollection{Items: items, Limit: limit, Offset: offset}, nil
}

func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultLimit
	case limit > maxLimit:
		return maxLimit
	default:
		return limit
	}
}

var _ queries.Handler[ListPropertyRatingsQuery, dto.RatingCollection] = (*ListPropertyRatingsHandler)(nil)
