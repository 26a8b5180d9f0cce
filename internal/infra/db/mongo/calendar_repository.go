package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainproperty "staybook/internal/domain/property"
)

// CalendarRepository bumps one lock document per property. Inside a
// transaction the bump is what makes concurrent calendar writers conflict.
type CalendarRepository struct {
	col *mongo.Collection
}

func NewCalendarRepository(db *mongo.Database) *CalendarRepository {
	return &CalendarRepository{col: db.Collection(calendarsCollection)}
}

func (r *CalendarRepository) Touch(ctx context.Context, propertyID domainproperty.ID, now time.Time) (int64, error) {
	update := bson.M{
		"$inc": bson.M{"version": int64(1)},
		"$set": bson.M{"updated_at": now.UTC().UnixMilli()},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc struct {
		Version int64 `bson:"version"`
	}
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": string(propertyID)}, update, opts).Decode(&doc); err != nil {
		return 0, classify("calendars.touch", err)
	}
	return doc.Version, nil
}
