package booking

import (
	"strings"
	"time"
	"unicode/utf8"

	"staybook/internal/domain/property"
	"staybook/internal/domain/shared/errs"
	"staybook/internal/domain/user"
)

const MaxMessageLength = 2000

var (
	ErrConversationNotFound = errs.New(errs.ErrNotFound, "conversation: not found")
	ErrConversationInactive = errs.New(errs.ErrInvalidInput, "conversation: closed for new messages")
	ErrEmptyMessage         = errs.New(errs.ErrInvalidInput, "conversation: message content is required")
	ErrMessageTooLong       = errs.New(errs.ErrInvalidInput, "conversation: message content is too long")
)

type ConversationID string

// Conversation is owned by its booking and has no lifecycle of its own.
// Messages keep insertion order.
type Conversation struct {
	ID       ConversationID
	Active   bool
	Messages []Message
}

type Message struct {
	From    user.ID
	To      user.ID
	Content string
	Read    bool
	SentAt  time.Time
}

// UnreadFor counts messages addressed to userID that are still unread.
func (c Conversation) UnreadFor(userID user.ID) int {
	n := 0
	for _, m := range c.Messages {
		if m.To == userID && !m.Read {
			n++
		}
	}
	return n
}

// PostMessage appends an unread message from one participant to the other.
func (b *Booking) PostMessage(from string, owner property.OwnerID, content string, now time.Time) (Message, error) {
	if !b.IsParticipant(from, owner) {
		return Message{}, ErrNotParticipant
	}
	if !b.Conversation.Active {
		return Message{}, ErrConversationInactive
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return Message{}, ErrMessageTooLong
	}
	to := b.GuestID
	if b.IsGuest(from) {
		to = user.ID(owner)
	}
	msg := Message{
		From:    user.ID(from),
		To:      to,
		Content: content,
		SentAt:  now.UTC(),
	}
	b.Conversation.Messages = append(b.Conversation.Messages, msg)
	b.UpdatedAt = msg.SentAt
	b.Record(MessagePosted{
		ConversationID: b.Conversation.ID,
		BookingID:      b.ID,
		From:           msg.From,
		To:             msg.To,
		Index:          len(b.Conversation.Messages) - 1,
		At:             msg.SentAt,
	})
	return msg, nil
}

// MarkRead flags every message of the thread as read and returns how many flipped.
// Only the guest or the property owner may do this; a rejected call changes nothing.
func (b *Booking) MarkRead(actor string, owner property.OwnerID, now time.Time) (int, error) {
	if !b.IsParticipant(actor, owner) {
		return 0, ErrNotParticipant
	}
	changed := 0
	for i := range b.Conversation.Messages {
		if !b.Conversation.Messages[i].Read {
			b.Conversation.Messages[i].Read = true
			changed++
		}
	}
	if changed == 0 {
		return 0, nil
	}
	b.UpdatedAt = now.UTC()
	b.Record(ConversationRead{ConversationID: b.Conversation.ID, BookingID: b.ID, ReaderID: user.ID(actor), Count: changed, At: b.UpdatedAt})
	return changed, nil
}
