package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	domainproperty "staybook/internal/domain/property"
	domainuser "staybook/internal/domain/user"
)

// Seeder loads fixture documents outside of any unit of work. Existing
// properties are left as they are so restarts keep their rollups.
type Seeder struct {
	Properties *PropertyRepository
	Users      *UserRepository
}

func (s Seeder) SeedProperty(ctx context.Context, p *domainproperty.Property) error {
	if _, err := s.Properties.ByID(ctx, p.ID); err == nil {
		return nil
	}
	return s.Properties.Save(ctx, p)
}

func (s Seeder) SeedUser(ctx context.Context, u *domainuser.User) error {
	return s.Users.Put(ctx, u)
}

func NewSeeder(db *mongo.Database) Seeder {
	return Seeder{Properties: NewPropertyRepository(db), Users: NewUserRepository(db)}
}
