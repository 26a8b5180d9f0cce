package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainproperty "staybook/internal/domain/property"
	domainrating "staybook/internal/domain/rating"
	"staybook/internal/domain/shared/errs"
	domainuser "staybook/internal/domain/user"
)

type RatingRepository struct {
	col *mongo.Collection
}

func NewRatingRepository(db *mongo.Database) *RatingRepository {
	return &RatingRepository{col: db.Collection(ratingsCollection)}
}

func (r *RatingRepository) ByID(ctx context.Context, id domainrating.ID) (*domainrating.Rating, error) {
	var doc ratingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainrating.ErrNotFound
		}
		return nil, classify("ratings.by_id", err)
	}
	return doc.toAggregate(), nil
}

func (r *RatingRepository) ListByProperty(ctx context.Context, propertyID domainproperty.ID, limit, offset int) ([]*domainrating.Rating, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.col.Find(ctx, bson.M{"property_id": string(propertyID)}, opts)
	if err != nil {
		return nil, classify("ratings.list_by_property", err)
	}
	var docs []ratingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify("ratings.list_by_property", err)
	}
	out := make([]*domainrating.Rating, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

func (r *RatingRepository) Values(ctx context.Context, propertyID domainproperty.ID) ([]float64, error) {
	opts := options.Find().SetProjection(bson.M{"value": 1})
	cur, err := r.col.Find(ctx, bson.M{"property_id": string(propertyID)}, opts)
	if err != nil {
		return nil, classify("ratings.values", err)
	}
	var docs []struct {
		Value float64 `bson:"value"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify("ratings.values", err)
	}
	out := make([]float64, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Value)
	}
	return out, nil
}

// Save maps a violation of the (property, user) index to ErrDuplicate.
func (r *RatingRepository) Save(ctx context.Context, rt *domainrating.Rating) error {
	doc := newRatingDocument(rt)
	doc.Version = rt.Version + 1
	var err error
	if rt.Version == 0 {
		_, err = r.col.InsertOne(ctx, doc)
	} else {
		err = saveVersioned(ctx, r.col, doc.ID, rt.Version, doc)
	}
	if err != nil {
		if duplicateOn(err, ratingPairIndex) {
			return domainrating.ErrDuplicate
		}
		if mongo.IsDuplicateKeyError(err) {
			return errs.ErrConcurrentUpdate
		}
		return classify("ratings.save", err)
	}
	rt.Version = doc.Version
	return nil
}

func (r *RatingRepository) Delete(ctx context.Context, id domainrating.ID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return classify("ratings.delete", err)
	}
	if res.DeletedCount == 0 {
		return domainrating.ErrNotFound
	}
	return nil
}

type ratingDocument struct {
	ID         string   `bson:"_id"`
	PropertyID string   `bson:"property_id"`
	UserID     string   `bson:"user_id"`
	Value      float64  `bson:"value"`
	Review     string   `bson:"review"`
	Helpful    []string `bson:"helpful"`
	CreatedAt  int64    `bson:"created_at"`
	UpdatedAt  int64    `bson:"updated_at"`
	Version    int64    `bson:"version"`
}

func newRatingDocument(rt *domainrating.Rating) ratingDocument {
	ids := rt.HelpfulIDs()
	helpful := make([]string, 0, len(ids))
	for _, id := range ids {
		helpful = append(helpful, string(id))
	}
	return ratingDocument{
		ID:         string(rt.ID),
		PropertyID: string(rt.PropertyID),
		UserID:     string(rt.UserID),
		Value:      rt.Value,
		Review:     rt.Review,
		Helpful:    helpful,
		CreatedAt:  rt.CreatedAt.UnixMilli(),
		UpdatedAt:  rt.UpdatedAt.UnixMilli(),
		Version:    rt.Version,
	}
}

func (d ratingDocument) toAggregate() *domainrating.Rating {
	ids := make([]domainuser.ID, 0, len(d.Helpful))
	for _, id := range d.Helpful {
		ids = append(ids, domainuser.ID(id))
	}
	author := domainuser.ID(d.UserID)
	return &domainrating.Rating{
		ID:         domainrating.ID(d.ID),
		PropertyID: domainproperty.ID(d.PropertyID),
		UserID:     author,
		Value:      d.Value,
		Review:     d.Review,
		Helpful:    domainrating.HelpfulSet(author, ids),
		CreatedAt:  timestampToTime(d.CreatedAt),
		UpdatedAt:  timestampToTime(d.UpdatedAt),
		Version:    d.Version,
	}
}
