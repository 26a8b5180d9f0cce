package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	propertiesCollection = "properties"
	usersCollection      = "users"
	bookingsCollection   = "bookings"
	calendarsCollection  = "calendar_locks"
	ratingsCollection    = "ratings"

	ratingPairIndex = "property_user_unique"
)

type Client struct {
	DB *mongo.Database
}

// New connects and pings. Transactions need a replica set or sharded cluster.
func New(ctx context.Context, uri, database string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true).SetTimeout(timeout)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := m.Ping(ctx, nil); err != nil {
		_ = m.Disconnect(context.Background())
		return nil, err
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

func (c *Client) Close(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}

// EnsureIndexes creates the indexes the repositories rely on, including the
// unique (property, user) constraint on ratings.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for name, models := range indexSpecs() {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}

// indexSpecs keys follow the stored document paths; the booking range is
// nested under "range".
func indexSpecs() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		bookingsCollection: {
			{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "range.check_in", Value: 1}}},
			{Keys: bson.D{{Key: "guest_id", Value: 1}, {Key: "range.check_in", Value: 1}}},
			{Keys: bson.D{{Key: "conversation.id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		ratingsCollection: {
			{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName(ratingPairIndex)},
			{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}
}
