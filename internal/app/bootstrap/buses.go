// Package bootstrap registers every command and query handler and wraps the
// buses in the middleware chain the transports dispatch through.
package bootstrap

import (
	"log/slog"

	"staybook/internal/app/commands"
	availabilityapp "staybook/internal/app/handlers/availability"
	bookingapp "staybook/internal/app/handlers/booking"
	conversationapp "staybook/internal/app/handlers/conversation"
	meapp "staybook/internal/app/handlers/me"
	propertyapp "staybook/internal/app/handlers/properties"
	ratingapp "staybook/internal/app/handlers/ratings"
	"staybook/internal/app/middleware"
	"staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	"staybook/internal/app/validation"
)

type Deps struct {
	UoWFactory  uow.UoWFactory
	Outbox      outbox.Outbox
	Idempotency middleware.IdempotencyStore
	Logger      *slog.Logger
}

type Buses struct {
	Commands commands.Bus
	Queries  queries.Bus
}

// NewBuses wires the handlers. Commands pass, outermost first, through
// logging, validation, authorization, idempotency, the unit of work and the
// outbox flush.
func NewBuses(d Deps) Buses {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	encoder := outbox.JSONEventEncoder{}

	commandBus := commands.NewInMemoryBus()
	createBooking := &bookingapp.CreateBookingHandler{UoWFactory: d.UoWFactory, Outbox: d.Outbox, Encoder: encoder, Logger: logger}
	commands.Register(commandBus, bookingapp.CreateBookingCommand{}.Key(), createBooking)
	updateBooking := &bookingapp.UpdateBookingHandler{UoWFactory: d.UoWFactory, Outbox: d.Outbox, Encoder: encoder, Logger: logger}
	commands.Register(commandBus, bookingapp.UpdateBookingCommand{}.Key(), updateBooking)
	transitions := &bookingapp.TransitionHandler{UoWFactory: d.UoWFactory, Outbox: d.Outbox, Encoder: encoder, Logger: logger}
	commands.Register(commandBus, bookingapp.ConfirmBookingCommand{}.Key(), transitions.Confirm())
	commands.Register(commandBus, bookingapp.CancelBookingCommand{}.Key(), transitions.Cancel())
	deleteBooking := &bookingapp.DeleteBookingHandler{UoWFactory: d.UoWFactory, Logger: logger}
	commands.Register(commandBus, bookingapp.DeleteBookingCommand{}.Key(), deleteBooking)

	conversations := &conversationapp.Handler{UoWFactory: d.UoWFactory, Outbox: d.Outbox, Encoder: encoder, Logger: logger}
	commands.Register(commandBus, conversationapp.AppendMessageCommand{}.Key(), conversations.Append())
	commands.Register(commandBus, conversationapp.MarkReadCommand{}.Key(), conversations.MarkRead())

	ratings := &ratingapp.Handler{UoWFactory: d.UoWFactory, Outbox: d.Outbox, Encoder: encoder, Logger: logger}
	commands.Register(commandBus, ratingapp.CreateRatingCommand{}.Key(), ratings.Create())
	commands.Register(commandBus, ratingapp.UpdateRatingCommand{}.Key(), ratings.Update())
	commands.Register(commandBus, ratingapp.DeleteRatingCommand{}.Key(), ratings.Delete())
	commands.Register(commandBus, ratingapp.ToggleHelpfulCommand{}.Key(), ratings.ToggleHelpful())

	setAvailability := &propertyapp.SetAvailabilityHandler{UoWFactory: d.UoWFactory, Outbox: d.Outbox, Encoder: encoder, Logger: logger}
	commands.Register(commandBus, propertyapp.SetAvailabilityCommand{}.Key(), setAvailability)

	queryBus := queries.NewInMemoryBus()
	queries.Register(queryBus, bookingapp.GetBookingQuery{}.Key(), &bookingapp.GetBookingHandler{UoWFactory: d.UoWFactory, Logger: logger})
	queries.Register(queryBus, bookingapp.ListPropertyBookingsQuery{}.Key(), &bookingapp.ListPropertyBookingsHandler{UoWFactory: d.UoWFactory, Logger: logger})
	queries.Register(queryBus, conversationapp.GetConversationQuery{}.Key(), conversations.Get())
	queries.Register(queryBus, propertyapp.GetPropertyQuery{}.Key(), &propertyapp.GetPropertyHandler{UoWFactory: d.UoWFactory})
	queries.Register(queryBus, availabilityapp.CheckAvailabilityQuery{}.Key(), &availabilityapp.CheckAvailabilityHandler{UoWFactory: d.UoWFactory, Logger: logger})
	queries.Register(queryBus, ratingapp.ListPropertyRatingsQuery{}.Key(), &ratingapp.ListPropertyRatingsHandler{UoWFactory: d.UoWFactory, Logger: logger})
	queries.Register(queryBus, meapp.ListGuestBookingsQuery{}.Key(), &meapp.ListGuestBookingsHandler{UoWFactory: d.UoWFactory, Logger: logger})

	logger.Debug("bus handlers registered", "commands", commandBus.Keys(), "queries", queryBus.Keys())

	validator := validation.New()
	commandMiddleware := []middleware.CommandMiddleware{
		middleware.Logging(logger),
		middleware.Validation(validator),
		middleware.Authorization(policies.Authorizer{}),
	}
	if d.Idempotency != nil {
		commandMiddleware = append(commandMiddleware, middleware.Idempotency(d.Idempotency, nil))
	}
	commandMiddleware = append(commandMiddleware,
		middleware.Transaction(d.UoWFactory, nil),
		middleware.OutboxFlush(d.Outbox),
	)

	return Buses{
		Commands: middleware.ChainCommands(commandBus, commandMiddleware...),
		Queries: middleware.ChainQueries(queryBus,
			middleware.QueryValidation(validator),
			middleware.QueryAuthorization(policies.Authorizer{}),
		),
	}
}
