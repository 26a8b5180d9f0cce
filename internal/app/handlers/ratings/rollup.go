package ratings

import (
	"context"
	"time"

	"staybook/internal/app/uow"
	domainproperty "staybook/internal/domain/property"
	domainrating "staybook/internal/domain/rating"
)

// recalculatePropertyRating rebuilds the property's rollup from every stored
// rating, inside the same unit as the rating write that triggered it.
func recalculatePropertyRating(ctx context.Context, unit uow.UnitOfWork, propertyID domainproperty.ID, now time.Time) (*domainproperty.Property, error) {
	values, err := unit.Ratings().Values(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	summary := domainrating.Summarize(values)

	property, err := unit.Properties().ByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	property.ApplyRatingRollup(summary.Average, summary.Count, now)
	if err := unit.Properties().Save(ctx, property); err != nil {
		return nil, err
	}
	return property, nil
}
