package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"staybook/internal/app/middleware"
	"staybook/internal/domain/shared/errs"
)

const keyPrefix = "staybook:idempotency:"

// IdempotencyStore keeps command outcomes as JSON values that Redis expires.
type IdempotencyStore struct {
	rdb goredis.Cmdable
	ttl time.Duration
}

func NewIdempotencyStore(rdb goredis.Cmdable, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

type record struct {
	Payload    []byte    `json:"payload,omitempty"`
	Error      string    `json:"error,omitempty"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	raw, err := s.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return middleware.IdempotencyRecord{}, false, nil
		}
		return middleware.IdempotencyRecord{}, false, errs.Unavailable("redis: idempotency get", err)
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	return middleware.IdempotencyRecord{
		Key:        key,
		Payload:    rec.Payload,
		Error:      rec.Error,
		ErrorKind:  errs.Kind(rec.ErrorKind),
		OccurredAt: rec.OccurredAt,
	}, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	raw, err := json.Marshal(record{
		Payload:    rec.Payload,
		Error:      rec.Error,
		ErrorKind:  string(rec.ErrorKind),
		OccurredAt: rec.OccurredAt,
	})
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, keyPrefix+rec.Key, raw, s.ttl).Err(); err != nil {
		return errs.Unavailable("redis: idempotency save", err)
	}
	return nil
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
