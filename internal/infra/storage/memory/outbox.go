package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	infraoutbox "staybook/internal/infra/outbox"
)

var ErrOutboxOutsideUnit = errors.New("memory: outbox used outside a unit of work")

// Outbox stages records in the unit found in ctx; the unit hands them to the
// relay when it commits.
type Outbox struct{}

func (Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return ErrOutboxOutsideUnit
	}
	u, ok := unit.(*Unit)
	if !ok {
		return ErrOutboxOutsideUnit
	}
	return u.stage(record)
}

func (Outbox) Flush(context.Context) error {
	return nil
}

type relayEntry struct {
	entry     infraoutbox.Entry
	claimed   bool
	sent      bool
	nextTry   time.Time
	lastError string
}

// Relay is the committed side of the memory outbox, drained by the worker.
type Relay struct {
	mu      sync.Mutex
	entries []*relayEntry
	byID    map[string]*relayEntry
}

func newRelay() *Relay {
	return &Relay{byID: make(map[string]*relayEntry)}
}

func (r *Relay) enqueue(records []appoutbox.EventRecord) {
	if len(records) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		e := &relayEntry{entry: infraoutbox.Entry{
			ID:         rec.ID,
			Name:       rec.Name,
			Payload:    rec.Payload,
			OccurredAt: rec.OccurredAt,
			Aggregate:  rec.Aggregate,
			Headers:    rec.Headers,
		}}
		r.entries = append(r.entries, e)
		r.byID[rec.ID] = e
	}
}

func (r *Relay) Claim(_ context.Context, _ string) (*infraoutbox.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, e := range r.entries {
		if e.sent || e.claimed || e.nextTry.After(now) {
			continue
		}
		e.claimed = true
		cp := e.entry
		return &cp, nil
	}
	return nil, nil
}

func (r *Relay) MarkSent(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return nil
	}
	e.sent = true
	r.compact()
	return nil
}

func (r *Relay) MarkFailed(_ context.Context, id string, next time.Time, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byID[id]; ok {
		e.claimed = false
		e.nextTry = next
		e.lastError = errMsg
		e.entry.Attempts++
	}
	return nil
}

// Pending returns committed names not yet published, in commit order.
func (r *Relay) Pending() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.entries {
		if !e.sent {
			out = append(out, e.entry.Name)
		}
	}
	return out
}

func (r *Relay) compact() {
	kept := r.entries[:0]
	for _, e := range r.entries {
		if e.sent {
			delete(r.byID, e.entry.ID)
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
}

var (
	_ appoutbox.Outbox  = Outbox{}
	_ infraoutbox.Queue = (*Relay)(nil)
)
