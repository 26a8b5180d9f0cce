package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
	domainuser "staybook/internal/domain/user"
)

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection(bookingsCollection)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.ID) (*domainbooking.Booking, error) {
	return r.findOne(ctx, "bookings.by_id", bson.M{"_id": string(id)}, domainbooking.ErrNotFound)
}

func (r *BookingRepository) ByConversation(ctx context.Context, id domainbooking.ConversationID) (*domainbooking.Booking, error) {
	return r.findOne(ctx, "bookings.by_conversation", bson.M{"conversation.id": string(id)}, domainbooking.ErrConversationNotFound)
}

func (r *BookingRepository) findOne(ctx context.Context, op string, filter bson.M, missing error) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, missing
		}
		return nil, classify(op, err)
	}
	return doc.toAggregate(), nil
}

// Reservations returns blocking bookings whose range intersects window.
func (r *BookingRepository) Reservations(ctx context.Context, propertyID domainproperty.ID, window daterange.DateRange) ([]domainavailability.Reservation, error) {
	filter := bson.M{
		"property_id": string(propertyID),
		"status":      bson.M{"$in": []string{string(domainbooking.StatusPending), string(domainbooking.StatusConfirmed)}},
	}
	if !window.CheckIn.IsZero() {
		filter["range.check_in"] = bson.M{"$lt": window.CheckOut.UnixMilli()}
		filter["range.check_out"] = bson.M{"$gt": window.CheckIn.UnixMilli()}
	}
	docs, err := r.find(ctx, "bookings.reservations", filter, options.Find())
	if err != nil {
		return nil, err
	}
	out := make([]domainavailability.Reservation, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate().Reservation())
	}
	return out, nil
}

func (r *BookingRepository) ListByProperty(ctx context.Context, propertyID domainproperty.ID, filter domainbooking.ListFilter) ([]*domainbooking.Booking, error) {
	return r.list(ctx, "bookings.list_by_property", bson.M{"property_id": string(propertyID)}, filter)
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID domainuser.ID, filter domainbooking.ListFilter) ([]*domainbooking.Booking, error) {
	return r.list(ctx, "bookings.list_by_guest", bson.M{"guest_id": string(guestID)}, filter)
}

func (r *BookingRepository) list(ctx context.Context, op string, match bson.M, filter domainbooking.ListFilter) ([]*domainbooking.Booking, error) {
	if filter.Status != "" {
		match["status"] = string(filter.Status)
	}
	opts := options.Find().SetSort(bson.D{{Key: "range.check_in", Value: 1}, {Key: "_id", Value: 1}})
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	docs, err := r.find(ctx, op, match, opts)
	if err != nil {
		return nil, err
	}
	out := make([]*domainbooking.Booking, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

func (r *BookingRepository) find(ctx context.Context, op string, filter bson.M, opts *options.FindOptions) ([]bookingDocument, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, classify(op, err)
	}
	var docs []bookingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify(op, err)
	}
	return docs, nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	doc.Version = b.Version + 1
	if err := saveVersioned(ctx, r.col, doc.ID, b.Version, doc); err != nil {
		return classify("bookings.save", err)
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) Delete(ctx context.Context, id domainbooking.ID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return classify("bookings.delete", err)
	}
	if res.DeletedCount == 0 {
		return domainbooking.ErrNotFound
	}
	return nil
}

type bookingDocument struct {
	ID           string               `bson:"_id"`
	PropertyID   string               `bson:"property_id"`
	GuestID      string               `bson:"guest_id"`
	Range        rangeDocument        `bson:"range"`
	Guests       int                  `bson:"guests"`
	TotalPrice   moneyDocument        `bson:"total_price"`
	Status       string               `bson:"status"`
	CancelReason string               `bson:"cancel_reason,omitempty"`
	Conversation conversationDocument `bson:"conversation"`
	CreatedAt    int64                `bson:"created_at"`
	UpdatedAt    int64                `bson:"updated_at"`
	Version      int64                `bson:"version"`
}

type conversationDocument struct {
	ID       string            `bson:"id"`
	Active   bool              `bson:"active"`
	Messages []messageDocument `bson:"messages"`
}

type messageDocument struct {
	From    string `bson:"from"`
	To      string `bson:"to"`
	Content string `bson:"content"`
	Read    bool   `bson:"read"`
	SentAt  int64  `bson:"sent_at"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	messages := make([]messageDocument, 0, len(b.Conversation.Messages))
	for _, m := range b.Conversation.Messages {
		messages = append(messages, messageDocument{
			From:    string(m.From),
			To:      string(m.To),
			Content: m.Content,
			Read:    m.Read,
			SentAt:  m.SentAt.UnixMilli(),
		})
	}
	return bookingDocument{
		ID:           string(b.ID),
		PropertyID:   string(b.PropertyID),
		GuestID:      string(b.GuestID),
		Range:        rangeDocument{CheckIn: b.Range.CheckIn.UnixMilli(), CheckOut: b.Range.CheckOut.UnixMilli()},
		Guests:       b.Guests,
		TotalPrice:   newMoneyDocument(b.TotalPrice),
		Status:       string(b.Status),
		CancelReason: b.CancelReason,
		Conversation: conversationDocument{
			ID:       string(b.Conversation.ID),
			Active:   b.Conversation.Active,
			Messages: messages,
		},
		CreatedAt: b.CreatedAt.UnixMilli(),
		UpdatedAt: b.UpdatedAt.UnixMilli(),
		Version:   b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	messages := make([]domainbooking.Message, 0, len(d.Conversation.Messages))
	for _, m := range d.Conversation.Messages {
		messages = append(messages, domainbooking.Message{
			From:    domainuser.ID(m.From),
			To:      domainuser.ID(m.To),
			Content: m.Content,
			Read:    m.Read,
			SentAt:  timestampToTime(m.SentAt),
		})
	}
	return &domainbooking.Booking{
		ID:           domainbooking.ID(d.ID),
		PropertyID:   domainproperty.ID(d.PropertyID),
		GuestID:      domainuser.ID(d.GuestID),
		Range:        daterange.DateRange{CheckIn: timestampToTime(d.Range.CheckIn), CheckOut: timestampToTime(d.Range.CheckOut)},
		Guests:       d.Guests,
		TotalPrice:   d.TotalPrice.toMoney(),
		Status:       domainbooking.Status(d.Status),
		CancelReason: d.CancelReason,
		Conversation: domainbooking.Conversation{
			ID:       domainbooking.ConversationID(d.Conversation.ID),
			Active:   d.Conversation.Active,
			Messages: messages,
		},
		CreatedAt: timestampToTime(d.CreatedAt),
		UpdatedAt: timestampToTime(d.UpdatedAt),
		Version:   d.Version,
	}
}
