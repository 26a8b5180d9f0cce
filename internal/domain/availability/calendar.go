package availability

import (
	"context"
	"time"

	"staybook/internal/domain/property"
)

// CalendarLock is the per-property version document every calendar-changing
// write bumps inside its unit of work. Two units that touch the same lock cannot
// both commit, which turns check-then-insert into a serializable step per property.
type CalendarLock struct {
	PropertyID property.ID
	Version    int64
	UpdatedAt  time.Time
}

type CalendarRepository interface {
	// Touch increments the lock for propertyID, creating it on first use, and
	// returns the new version.
	Touch(ctx context.Context, propertyID property.ID, now time.Time) (int64, error)
}
