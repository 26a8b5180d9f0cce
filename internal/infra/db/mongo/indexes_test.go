package mongo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	domainbooking "staybook/internal/domain/booking"
	domainrating "staybook/internal/domain/rating"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

func storedShape(t *testing.T, doc any) bson.M {
	t.Helper()
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	var out bson.M
	require.NoError(t, bson.Unmarshal(raw, &out))
	return out
}

func hasPath(doc bson.M, path string) bool {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		var m map[string]any
		switch v := cur.(type) {
		case bson.M:
			m = v
		case bson.D:
			m = v.Map()
		default:
			return false
		}
		next, ok := m[part]
		if !ok {
			return false
		}
		cur = next
	}
	return true
}

func TestIndexKeysMatchStoredFields(t *testing.T) {
	dr, err := daterange.Parse("2024-02-01", "2024-02-05")
	require.NoError(t, err)
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID: "b1", ConversationID: "c1", PropertyID: "p1", GuestID: "guest", Range: dr, Guests: 2, TotalPrice: money.Must(40000, "USD"), CreatedAt: now,
	})
	require.NoError(t, err)
	r, err := domainrating.NewRating(domainrating.CreateParams{ID: "r1", PropertyID: "p1", UserID: "u1", Value: 4, Review: "Clean and quiet flat", CreatedAt: now})
	require.NoError(t, err)

	shapes := map[string]bson.M{
		bookingsCollection: storedShape(t, newBookingDocument(b)),
		ratingsCollection:  storedShape(t, newRatingDocument(r)),
	}
	for collection, models := range indexSpecs() {
		shape, ok := shapes[collection]
		require.True(t, ok, collection)
		for _, model := range models {
			for _, key := range model.Keys.(bson.D) {
				assert.True(t, hasPath(shape, key.Key), "%s index key %q is not a stored field", collection, key.Key)
			}
		}
	}
}
