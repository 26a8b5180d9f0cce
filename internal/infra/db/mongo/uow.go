package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
	domainrating "staybook/internal/domain/rating"
	"staybook/internal/domain/shared/errs"
	domainuser "staybook/internal/domain/user"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	PropertiesRepo domainproperty.Repository
	UsersRepo      domainuser.Directory
	BookingsRepo   domainbooking.Repository
	CalendarsRepo  domainavailability.CalendarRepository
	RatingsRepo    domainrating.Repository
}

var (
	ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")
	errUnitFinished            = errors.New("mongo: unit of work already finished")
)

// NewFactory builds the factory with this package's repositories.
func NewFactory(db *mongo.Database) Factory {
	return Factory{
		DB:             db,
		PropertiesRepo: NewPropertyRepository(db),
		UsersRepo:      NewUserRepository(db),
		BookingsRepo:   NewBookingRepository(db),
		CalendarsRepo:  NewCalendarRepository(db),
		RatingsRepo:    NewRatingRepository(db),
	}
}

// Begin starts a MongoDB session/transaction. Snapshot reads plus majority
// writes make two units that touch the same calendar lock conflict.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, classify("start session", err)
	}
	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, classify("start transaction", err)
	}
	return &Unit{
		session:    session,
		properties: f.PropertiesRepo,
		users:      f.UsersRepo,
		bookings:   f.BookingsRepo,
		calendars:  f.CalendarsRepo,
		ratings:    f.RatingsRepo,
	}, nil
}

type Unit struct {
	session mongo.Session
	done    bool

	properties domainproperty.Repository
	users      domainuser.Directory
	bookings   domainbooking.Repository
	calendars  domainavailability.CalendarRepository
	ratings    domainrating.Repository
}

func (u *Unit) Properties() domainproperty.Repository            { return u.properties }
func (u *Unit) Users() domainuser.Directory                      { return u.users }
func (u *Unit) Bookings() domainbooking.Repository                { return u.bookings }
func (u *Unit) Calendars() domainavailability.CalendarRepository { return u.calendars }
func (u *Unit) Ratings() domainrating.Repository                  { return u.ratings }

// Commit aborts instead when ctx is already done.
func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return errUnitFinished
	}
	u.done = true
	defer u.session.EndSession(context.WithoutCancel(ctx))
	if err := ctx.Err(); err != nil {
		_ = u.session.AbortTransaction(context.WithoutCancel(ctx))
		return errs.Unavailable("mongo: commit", err)
	}
	if err := u.session.CommitTransaction(ctx); err != nil {
		if isConflict(err) {
			return errs.ErrConcurrentUpdate
		}
		var se mongo.ServerError
		if errors.As(err, &se) && se.HasErrorLabel("UnknownTransactionCommitResult") {
			return errs.Unavailable("mongo: commit result unknown", err)
		}
		return classify("commit", err)
	}
	return nil
}

// Rollback is a no-op once the unit has committed or ended.
func (u *Unit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	ctx = context.WithoutCancel(ctx)
	defer u.session.EndSession(ctx)
	return classify("abort", u.session.AbortTransaction(ctx))
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var (
	_ uow.UoWFactory      = Factory{}
	_ uow.ContextInjector = (*Unit)(nil)
)
