package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainuser "staybook/internal/domain/user"
)

// UserRepository reads the user directory. Put exists for fixture loading.
type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(usersCollection)}
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	var doc userDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainuser.ErrNotFound
		}
		return nil, classify("users.by_id", err)
	}
	roles := make([]domainuser.Role, 0, len(doc.Roles))
	for _, r := range doc.Roles {
		roles = append(roles, domainuser.Role(r))
	}
	return &domainuser.User{ID: domainuser.ID(doc.ID), Name: doc.Name, Roles: roles, CreatedAt: timestampToTime(doc.CreatedAt)}, nil
}

func (r *UserRepository) Put(ctx context.Context, u *domainuser.User) error {
	roles := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		roles = append(roles, string(role))
	}
	doc := userDocument{ID: string(u.ID), Name: u.Name, Roles: roles, CreatedAt: u.CreatedAt.UnixMilli()}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return classify("users.put", err)
}

type userDocument struct {
	ID        string   `bson:"_id"`
	Name      string   `bson:"name"`
	Roles     []string `bson:"roles"`
	CreatedAt int64    `bson:"created_at"`
}
