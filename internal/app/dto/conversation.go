package dto

import (
	"time"

	domainbooking "staybook/internal/domain/booking"
	domainuser "staybook/internal/domain/user"
)

type Conversation struct {
	ID          string    `json:"id"`
	BookingID   string    `json:"booking_id"`
	Active      bool      `json:"active"`
	UnreadCount int       `json:"unread_count"`
	Messages    []Message `json:"messages"`
}

type Message struct {
	From    string    `json:"from"`
	To      string    `json:"to"`
	Content string    `json:"content"`
	Read    bool      `json:"read"`
	SentAt  time.Time `json:"sent_at"`
}

func MapConversation(b *domainbooking.Booking, viewer string) Conversation {
	if b == nil {
		return Conversation{}
	}
	msgs := make([]Message, 0, len(b.Conversation.Messages))
	for _, m := range b.Conversation.Messages {
		msgs = append(msgs, MapMessage(m))
	}
	return Conversation{
		ID:          string(b.Conversation.ID),
		BookingID:   string(b.ID),
		Active:      b.Conversation.Active,
		UnreadCount: b.Conversation.UnreadFor(domainuser.ID(viewer)),
		Messages:    msgs,
	}
}

func MapMessage(m domainbooking.Message) Message {
	return Message{
		From:    string(m.From),
		To:      string(m.To),
		Content: m.Content,
		Read:    m.Read,
		SentAt:  m.SentAt,
	}
}
