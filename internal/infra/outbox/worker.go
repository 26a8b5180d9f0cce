package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	appoutbox "staybook/internal/app/outbox"
)

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

const (
	defaultInterval  = 500 * time.Millisecond
	defaultBatchSize = 100
	defaultRetry     = 5 * time.Second
	defaultSource    = "urn:staybook:api"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Worker relays committed entries to the broker as CloudEvents, keyed by
// aggregate so one booking's events stay on one partition. A failed publish is
// retried with backoff; entries are never dropped.
type Worker struct {
	Queue       Queue
	Producer    Producer
	Interval    time.Duration
	BatchSize   int
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
	Logger      *slog.Logger
}

// cloudEvent is the structured-mode CloudEvents 1.0 envelope. The id is the
// outbox entry id, so a redelivered entry carries the same id.
type cloudEvent struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	Subject         string          `json:"subject,omitempty"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	Data            json.RawMessage `json:"data"`
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Queue == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	interval := w.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n, err := w.Drain(ctx); err != nil {
				w.logger().Warn("outbox relay stalled", "published", n, "err", err)
			} else if n > 0 {
				w.logger().Debug("outbox relayed", "published", n)
			}
		}
	}
}

// Drain publishes due entries until the queue is empty, a batch is done or a
// publish fails. It reports how many entries went out.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	limit := w.BatchSize
	if limit <= 0 {
		limit = defaultBatchSize
	}
	sent := 0
	for sent < limit {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		entry, err := w.Queue.Claim(ctx, w.ID)
		if err != nil {
			return sent, fmt.Errorf("claim: %w", err)
		}
		if entry == nil {
			return sent, nil
		}
		if err := w.publish(ctx, entry); err != nil {
			w.logger().Warn("outbox publish failed", "event", entry.Name, "id", entry.ID, "attempts", entry.Attempts, "err", err)
			if markErr := w.Queue.MarkFailed(ctx, entry.ID, w.nextRetry(entry.Attempts), err.Error()); markErr != nil {
				return sent, errors.Join(err, markErr)
			}
			return sent, err
		}
		if err := w.Queue.MarkSent(ctx, entry.ID); err != nil {
			return sent, fmt.Errorf("mark sent %s: %w", entry.ID, err)
		}
		sent++
	}
	return sent, nil
}

func (w *Worker) publish(ctx context.Context, entry *Entry) error {
	payload, err := w.envelope(entry)
	if err != nil {
		return err
	}
	headers := make(map[string]string, len(entry.Headers)+1)
	for k, v := range entry.Headers {
		headers[k] = v
	}
	headers["content-type"] = "application/cloudevents+json"
	return w.Producer.Publish(ctx, w.topicFor(entry), entry.Aggregate, payload, headers)
}

func (w *Worker) envelope(entry *Entry) ([]byte, error) {
	if !json.Valid(entry.Payload) {
		return nil, fmt.Errorf("outbox: entry %s has a malformed payload", entry.ID)
	}
	source := w.Source
	if source == "" {
		source = defaultSource
	}
	return json.Marshal(cloudEvent{
		SpecVersion:     "1.0",
		ID:              entry.ID,
		Type:            "staybook." + entry.Name + ".v1",
		Source:          source,
		Subject:         entry.Aggregate,
		Time:            entry.OccurredAt.UTC(),
		DataContentType: "application/json",
		Data:            entry.Payload,
	})
}

// topicFor routes by aggregate type: "<prefix><type>.events.v1".
func (w *Worker) topicFor(entry *Entry) string {
	kind := entry.Headers[appoutbox.HeaderAggregateType]
	if kind == "" {
		kind, _, _ = strings.Cut(entry.Name, ".")
	}
	return w.TopicPrefix + kind + ".events.v1"
}

func (w *Worker) nextRetry(attempts int) time.Time {
	delay := defaultRetry
	switch {
	case attempts < len(w.Backoff):
		delay = w.Backoff[attempts]
	case len(w.Backoff) > 0:
		delay = w.Backoff[len(w.Backoff)-1]
	}
	return time.Now().Add(delay)
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.Default()
	}
	return w.Logger
}
