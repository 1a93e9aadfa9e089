package entitlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UsageCounter provides fresh resource counts scoped to one organization.
// Implemented by the db layer with COUNT queries.
type UsageCounter interface {
	CountActiveStudents(ctx context.Context, orgID uuid.UUID) (int, error)
	CountTrainers(ctx context.Context, orgID uuid.UUID) (int, error)
	CountSessionsInMonth(ctx context.Context, orgID uuid.UUID, month time.Time) (int, error)
}

// Aggregator computes an organization's current consumption for a limited
// resource. Counts are always recomputed at decision time, never cached;
// limit decisions must see the true current state.
type Aggregator struct {
	counter UsageCounter
	now     func() time.Time
}

// NewAggregator creates an Aggregator backed by the given counter.
func NewAggregator(counter UsageCounter) *Aggregator {
	return &Aggregator{counter: counter, now: time.Now}
}

// CurrentUsage returns the organization's current count for the resource the
// limit key caps.
func (a *Aggregator) CurrentUsage(ctx context.Context, orgID uuid.UUID, key LimitKey) (int, error) {
	switch key {
	case LimitMaxStudents:
		return a.counter.CountActiveStudents(ctx, orgID)
	case LimitMaxTrainers:
		return a.counter.CountTrainers(ctx, orgID)
	case LimitMaxSessionsMonth:
		return a.counter.CountSessionsInMonth(ctx, orgID, a.now())
	default:
		return 0, fmt.Errorf("no usage source for limit key %q", key)
	}
}
