// Package outbox stages domain events next to the aggregate writes that
// produced them. A relay publishes them after the unit of work commits.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"staybook/internal/domain/shared/events"
)

const (
	HeaderAggregateType = "aggregate-type"
	HeaderSchema        = "schema-version"

	schemaVersion = "1"
)

// EventRecord is an encoded event waiting for the relay.
type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

// Outbox stages event records inside the caller's unit of work; they become
// visible to the relay only when that unit commits.
type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

// JSONEventEncoder marshals the event struct as the payload. The aggregate
// type header is the event name prefix, "booking" for "booking.confirmed".
type JSONEventEncoder struct {
	NewID func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, fmt.Errorf("encode %s: %w", ev.EventName(), err)
	}
	newID := e.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	name := ev.EventName()
	aggregateType, _, _ := strings.Cut(name, ".")
	return EventRecord{
		ID:         newID(),
		Name:       name,
		Payload:    payload,
		OccurredAt: ev.OccurredAt().UTC(),
		Aggregate:  ev.AggregateID(),
		Headers: map[string]string{
			HeaderAggregateType: aggregateType,
			HeaderSchema:        schemaVersion,
		},
	}, nil
}

// Emitter is an aggregate with recorded events.
type Emitter interface {
	Drain() []events.DomainEvent
}

// RecordAggregates drains each aggregate in argument order and stages what
// they recorded. With no outbox configured the events are dropped.
func RecordAggregates(ctx context.Context, box Outbox, encoder EventEncoder, aggregates ...Emitter) error {
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	for _, agg := range aggregates {
		if agg == nil {
			continue
		}
		for _, ev := range agg.Drain() {
			if box == nil {
				continue
			}
			rec, err := encoder.Encode(ev)
			if err != nil {
				return err
			}
			if err := box.Add(ctx, rec); err != nil {
				return fmt.Errorf("stage %s: %w", rec.Name, err)
			}
		}
	}
	return nil
}
