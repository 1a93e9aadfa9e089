package sync

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/gymkeep/gymkeep/internal/db"
)

// Event kinds accepted in a batch submission.
const (
	KindAttendance = "attendance"
	KindPayment    = "payment"
)

// BatchEvent is one event in a batch submission from an offline client.
type BatchEvent struct {
	Kind       string           `json:"kind"`
	Attendance *AttendanceEvent `json:"attendance,omitempty"`
	Payment    *PaymentEvent    `json:"payment,omitempty"`
}

// Batch outcome statuses.
const (
	OutcomeApplied  = "applied"
	OutcomeStale    = "stale"
	OutcomeReplayed = "replayed"
	OutcomeRejected = "rejected"
)

// BatchOutcome is the per-event result of a batch submission.
type BatchOutcome struct {
	Index      int               `json:"index"`
	Kind       string            `json:"kind"`
	Status     string            `json:"status"`
	Error      string            `json:"error,omitempty"`
	Attendance *AttendanceResult `json:"attendance,omitempty"`
	Payment    *PaymentResult    `json:"payment,omitempty"`
}

// SyncBatch processes a batch of offline events. The batch is not atomic as a
// group: each event is its own unit of work and a failure on one never rolls
// back the others. The returned slice has one outcome per input event, in
// order.
func (g *Gateway) SyncBatch(ctx context.Context, callerOrg, recordedBy uuid.UUID, events []BatchEvent) []BatchOutcome {
	outcomes := make([]BatchOutcome, len(events))
	for i, event := range events {
		outcomes[i] = g.applyBatchEvent(ctx, callerOrg, recordedBy, i, event)
	}
	return outcomes
}

func (g *Gateway) applyBatchEvent(ctx context.Context, callerOrg, recordedBy uuid.UUID, index int, event BatchEvent) BatchOutcome {
	outcome := BatchOutcome{Index: index, Kind: event.Kind}

	switch event.Kind {
	case KindAttendance:
		if event.Attendance == nil {
			outcome.Status = OutcomeRejected
			outcome.Error = "attendance payload is required"
			return outcome
		}
		result, err := g.SyncAttendance(ctx, callerOrg, recordedBy, *event.Attendance)
		if err != nil {
			outcome.Status = OutcomeRejected
			outcome.Error = batchErrorMessage(err)
			return outcome
		}
		outcome.Attendance = result
		if result.Applied {
			outcome.Status = OutcomeApplied
		} else {
			outcome.Status = OutcomeStale
		}

	case KindPayment:
		if event.Payment == nil {
			outcome.Status = OutcomeRejected
			outcome.Error = "payment payload is required"
			return outcome
		}
		result, err := g.SyncPayment(ctx, callerOrg, *event.Payment)
		if err != nil {
			outcome.Status = OutcomeRejected
			outcome.Error = batchErrorMessage(err)
			return outcome
		}
		outcome.Payment = result
		if result.Created {
			outcome.Status = OutcomeApplied
		} else {
			outcome.Status = OutcomeReplayed
		}

	default:
		outcome.Status = OutcomeRejected
		outcome.Error = "unknown event kind"
	}

	return outcome
}

// batchErrorMessage maps an event error to a caller-safe message. Tenant
// mismatches read as not-found, and internal faults carry no detail.
func batchErrorMessage(err error) string {
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		return validationErr.Error()
	case errors.Is(err, ErrTenantMismatch), errors.Is(err, db.ErrNotFound):
		return "not found"
	default:
		return "internal error"
	}
}
