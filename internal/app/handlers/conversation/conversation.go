// Package conversation serves the message thread embedded in each booking.
// Threads have no store of their own; every operation resolves the owning
// booking by conversation id first.
package conversation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/outbox"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
)

const (
	appendMessageKey = "conversation.append_message"
	markReadKey      = "conversation.mark_read"
	getKey           = "conversation.get"
)

type AppendMessageCommand struct {
	ConversationID string    `json:"conversation_id" validate:"required"`
	SenderID       string    `json:"sender_id" validate:"required"`
	Content        string    `json:"content" validate:"required"`
	Now            time.Time `json:"-"`
}

func (c AppendMessageCommand) Key() string   { return appendMessageKey }
func (c AppendMessageCommand) Actor() string { return c.SenderID }

type MarkReadCommand struct {
	ConversationID string    `json:"conversation_id" validate:"required"`
	ActorID        string    `json:"actor_id" validate:"required"`
	Now            time.Time `json:"-"`
}

func (c MarkReadCommand) Key() string   { return markReadKey }
func (c MarkReadCommand) Actor() string { return c.ActorID }

type GetConversationQuery struct {
	ConversationID string `validate:"required"`
	ViewerID       string `validate:"required"`
}

func (q GetConversationQuery) Key() string { return getKey }

type Handler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *Handler) Append() commands.Handler[AppendMessageCommand, dto.Message] {
	return commands.HandlerFunc[AppendMessageCommand, dto.Message](h.append)
}

func (h *Handler) MarkRead() commands.Handler[MarkReadCommand, dto.Conversation] {
	return commands.HandlerFunc[MarkReadCommand, dto.Conversation](h.markRead)
}

func (h *Handler) Get() queries.Handler[GetConversationQuery, dto.Conversation] {
	return queries.HandlerFunc[GetConversationQuery, dto.Conversation](h.get)
}

func (h *Handler) append(ctx context.Context, cmd AppendMessageCommand) (dto.Message, error) {
	unit, err := handlersupport.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Message{}, err
	}
	defer unit.Close()
	ctx = unit.Ctx

	now := cmd.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	booking, property, err := resolve(ctx, unit, cmd.ConversationID)
	if err != nil {
		return dto.Message{}, err
	}
	msg, err := booking.PostMessage(cmd.SenderID, property.Owner, cmd.Content, now)
	if err != nil {
		return dto.Message{}, err
	}
	if _, err := unit.Users().ByID(ctx, msg.To); err != nil {
		return dto.Message{}, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return dto.Message{}, err
	}
	if err := outbox.RecordAggregates(ctx, h.Outbox, h.Encoder, booking); err != nil {
		return dto.Message{}, err
	}
	if err := unit.Finish(); err != nil {
		return dto.Message{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("message appended", "conversation_id", booking.Conversation.ID, "booking_id", booking.ID, "from", msg.From, "to", msg.To)
	}
	return dto.MapMessage(msg), nil
}

func (h *Handler) markRead(ctx context.Context, cmd MarkReadCommand) (dto.Conversation, error) {
	unit, err := handlersupport.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Conversation{}, err
	}
	defer unit.Close()
	ctx = unit.Ctx

	now := cmd.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	booking, property, err := resolve(ctx, unit, cmd.ConversationID)
	if err != nil {
		return dto.Conversation{}, err
	}
	changed, err := booking.MarkRead(cmd.ActorID, property.Owner, now)
	if err != nil {
		return dto.Conversation{}, err
	}
	if changed > 0 {
		if err := unit.Bookings().Save(ctx, booking); err != nil {
			return dto.Conversation{}, err
		}
		if err := outbox.RecordAggregates(ctx, h.Outbox, h.Encoder, booking); err != nil {
			return dto.Conversation{}, err
		}
	}
	if err := unit.Finish(); err != nil {
		return dto.Conversation{}, err
	}
	if h.Logger != nil && changed > 0 {
		h.Logger.Info("conversation read", "conversation_id", booking.Conversation.ID, "reader_id", cmd.ActorID, "messages", changed)
	}
	return dto.MapConversation(booking, cmd.ActorID), nil
}

func (h *Handler) get(ctx context.Context, q GetConversationQuery) (dto.Conversation, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Conversation{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	booking, property, err := resolve(execCtx, unit, q.ConversationID)
	if err != nil {
		return dto.Conversation{}, err
	}
	if !booking.IsParticipant(q.ViewerID, property.Owner) {
		return dto.Conversation{}, domainbooking.ErrNotParticipant
	}
	return dto.MapConversation(booking, q.ViewerID), nil
}

func resolve(ctx context.Context, unit uow.UnitOfWork, id string) (*domainbooking.Booking, *domainproperty.Property, error) {
	booking, err := unit.Bookings().ByConversation(ctx, domainbooking.ConversationID(id))
	if err != nil {
		if errors.Is(err, domainbooking.ErrNotFound) {
			return nil, nil, domainbooking.ErrConversationNotFound
		}
		return nil, nil, err
	}
	property, err := unit.Properties().ByID(ctx, booking.PropertyID)
	if err != nil {
		return nil, nil, err
	}
	return booking, property, nil
}
