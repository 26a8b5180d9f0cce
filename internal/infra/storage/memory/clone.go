package memory

import (
	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
	domainrating "staybook/internal/domain/rating"
	"staybook/internal/domain/shared/events"
	domainuser "staybook/internal/domain/user"
)

// Clones never carry pending events; those belong to the caller's copy.

func cloneProperty(p *domainproperty.Property) *domainproperty.Property {
	cp := *p
	cp.EventRecorder = events.EventRecorder{}
	return &cp
}

func cloneUser(u *domainuser.User) *domainuser.User {
	cp := *u
	cp.Roles = append([]domainuser.Role(nil), u.Roles...)
	return &cp
}

func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	cp := *b
	cp.EventRecorder = events.EventRecorder{}
	cp.Conversation.Messages = append([]domainbooking.Message(nil), b.Conversation.Messages...)
	return &cp
}

func cloneRating(r *domainrating.Rating) *domainrating.Rating {
	cp := *r
	cp.EventRecorder = events.EventRecorder{}
	cp.Helpful = make(map[domainuser.ID]struct{}, len(r.Helpful))
	for id := range r.Helpful {
		cp.Helpful[id] = struct{}{}
	}
	return &cp
}
