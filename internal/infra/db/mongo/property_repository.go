package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	domainproperty "staybook/internal/domain/property"
)

type PropertyRepository struct {
	col *mongo.Collection
}

func NewPropertyRepository(db *mongo.Database) *PropertyRepository {
	return &PropertyRepository{col: db.Collection(propertiesCollection)}
}

func (r *PropertyRepository) ByID(ctx context.Context, id domainproperty.ID) (*domainproperty.Property, error) {
	var doc propertyDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainproperty.ErrNotFound
		}
		return nil, classify("properties.by_id", err)
	}
	return doc.toAggregate(), nil
}

func (r *PropertyRepository) Save(ctx context.Context, p *domainproperty.Property) error {
	doc := newPropertyDocument(p)
	doc.Version = p.Version + 1
	if err := saveVersioned(ctx, r.col, doc.ID, p.Version, doc); err != nil {
		return classify("properties.save", err)
	}
	p.Version = doc.Version
	return nil
}

type propertyDocument struct {
	ID            string        `bson:"_id"`
	OwnerID       string        `bson:"owner_id"`
	Title         string        `bson:"title"`
	PricePerNight moneyDocument `bson:"price_per_night"`
	MaxGuests     int           `bson:"max_guests"`
	Available     bool          `bson:"available"`
	AvgRating     float64       `bson:"avg_rating"`
	TotalRatings  int           `bson:"total_ratings"`
	CreatedAt     int64         `bson:"created_at"`
	UpdatedAt     int64         `bson:"updated_at"`
	Version       int64         `bson:"version"`
}

func newPropertyDocument(p *domainproperty.Property) propertyDocument {
	return propertyDocument{
		ID:            string(p.ID),
		OwnerID:       string(p.Owner),
		Title:         p.Title,
		PricePerNight: newMoneyDocument(p.PricePerNight),
		MaxGuests:     p.MaxGuests,
		Available:     p.Available,
		AvgRating:     p.AvgRating,
		TotalRatings:  p.TotalRatings,
		CreatedAt:     p.CreatedAt.UnixMilli(),
		UpdatedAt:     p.UpdatedAt.UnixMilli(),
		Version:       p.Version,
	}
}

func (d propertyDocument) toAggregate() *domainproperty.Property {
	return &domainproperty.Property{
		ID:            domainproperty.ID(d.ID),
		Owner:         domainproperty.OwnerID(d.OwnerID),
		Title:         d.Title,
		PricePerNight: d.PricePerNight.toMoney(),
		MaxGuests:     d.MaxGuests,
		Available:     d.Available,
		AvgRating:     d.AvgRating,
		TotalRatings:  d.TotalRatings,
		CreatedAt:     timestampToTime(d.CreatedAt),
		UpdatedAt:     timestampToTime(d.UpdatedAt),
		Version:       d.Version,
	}
}
