// Package events defines the facts aggregates record while they change.
package events

import (
	"slices"
	"time"
)

type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// EventRecorder is embedded by aggregates. Events stay pending until the
// handler drains them into the outbox, in the order they were recorded.
type EventRecorder struct {
	pending []DomainEvent
}

func (r *EventRecorder) Record(evs ...DomainEvent) {
	for _, ev := range evs {
		if ev != nil {
			r.pending = append(r.pending, ev)
		}
	}
}

// PendingEvents returns a copy; the recorder keeps its events.
func (r *EventRecorder) PendingEvents() []DomainEvent {
	return slices.Clone(r.pending)
}

func (r *EventRecorder) Drain() []DomainEvent {
	out := r.pending
	r.pending = nil
	return out
}
