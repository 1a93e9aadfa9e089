// Package sync ingests attendance and payment events recorded by offline
// kiosk and mobile clients and merges them into tenant state.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gymkeep/gymkeep/internal/db"
	"github.com/gymkeep/gymkeep/internal/metrics"
	"github.com/gymkeep/gymkeep/internal/models"
	"github.com/rs/zerolog"
)

// ErrTenantMismatch marks an event referencing an entity owned by another
// organization. The API boundary surfaces it as not-found so a caller can
// never confirm the existence of another tenant's resources.
var ErrTenantMismatch = errors.New("entity belongs to another organization")

// ValidationError reports a missing or malformed event field.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "invalid event: " + e.Msg
}

// Store is the persistence interface the gateway needs.
type Store interface {
	GetClassSessionByID(ctx context.Context, id uuid.UUID) (*models.ClassSession, error)
	GetStudentByID(ctx context.Context, orgID, id uuid.UUID) (*models.Student, error)
	UpsertAttendance(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, bool, error)
	InsertPayment(ctx context.Context, payment *models.PaymentRecord) (*models.PaymentRecord, bool, error)
}

// AttendanceEvent is an attendance check-in recorded while disconnected.
type AttendanceEvent struct {
	SessionID uuid.UUID               `json:"session_id"`
	StudentID uuid.UUID               `json:"student_id"`
	Status    models.AttendanceStatus `json:"status"`
	Timestamp time.Time               `json:"timestamp"`
}

// PaymentEvent is a payment recorded while disconnected. EventID is the
// client-generated idempotency token; when set, resubmitting the same event
// returns the originally created record instead of inserting a duplicate.
type PaymentEvent struct {
	StudentID     uuid.UUID            `json:"student_id"`
	AmountCents   int64                `json:"amount_cents"`
	PaymentType   models.PaymentType   `json:"payment_type"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	Notes         string               `json:"notes"`
	Timestamp     time.Time            `json:"timestamp"`
	EventID       *uuid.UUID           `json:"event_id,omitempty"`
}

// AttendanceResult is the outcome of an attendance event. Applied is false
// when the event was stale (older than the stored state) and was ignored;
// Record is the stored state either way.
type AttendanceResult struct {
	Record  *models.AttendanceRecord `json:"record"`
	Applied bool                     `json:"applied"`
}

// PaymentResult is the outcome of a payment event. Created is false when the
// event was a replay deduplicated by its idempotency token.
type PaymentResult struct {
	Record  *models.PaymentRecord `json:"record"`
	Created bool                  `json:"created"`
}

// Gateway validates offline events, enforces tenant ownership, and applies
// idempotent merge semantics. Each event is its own unit of work: it applies
// fully or not at all, and one event's failure never affects another.
type Gateway struct {
	store   Store
	metrics *metrics.SyncMetrics
	logger  zerolog.Logger
}

// NewGateway creates a Gateway.
func NewGateway(store Store, syncMetrics *metrics.SyncMetrics, logger zerolog.Logger) *Gateway {
	return &Gateway{
		store:   store,
		metrics: syncMetrics,
		logger:  logger.With().Str("component", "sync_gateway").Logger(),
	}
}

// SyncAttendance applies an attendance event on behalf of a caller
// authenticated to callerOrg. The referenced session and student must both
// belong to callerOrg. The write is a single atomic upsert on the
// (session, student) natural key; replaying an identical event leaves state
// unchanged, and an event older than the stored state is ignored.
func (g *Gateway) SyncAttendance(ctx context.Context, callerOrg, recordedBy uuid.UUID, event AttendanceEvent) (*AttendanceResult, error) {
	if err := validateAttendanceEvent(event); err != nil {
		return nil, err
	}

	session, err := g.store.GetClassSessionByID(ctx, event.SessionID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("load session for attendance event: %w", err)
	}
	if session.OrgID != callerOrg {
		g.logger.Warn().
			Str("caller_org", callerOrg.String()).
			Str("session_org", session.OrgID.String()).
			Str("session_id", event.SessionID.String()).
			Msg("attendance event rejected: session belongs to another organization")
		g.metrics.AttendanceRejected()
		return nil, ErrTenantMismatch
	}

	if _, err := g.store.GetStudentByID(ctx, callerOrg, event.StudentID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			g.metrics.AttendanceRejected()
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("load student for attendance event: %w", err)
	}

	record := &models.AttendanceRecord{
		ID:               uuid.New(),
		OrgID:            callerOrg,
		SessionID:        event.SessionID,
		StudentID:        event.StudentID,
		Status:           event.Status,
		CheckInTime:      event.Timestamp,
		RecordedByUserID: recordedBy,
		EventTime:        event.Timestamp,
	}

	stored, applied, err := g.store.UpsertAttendance(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("apply attendance event: %w", err)
	}

	if applied {
		g.metrics.AttendanceApplied()
	} else {
		g.metrics.AttendanceStale()
		g.logger.Debug().
			Str("session_id", event.SessionID.String()).
			Str("student_id", event.StudentID.String()).
			Time("event_time", event.Timestamp).
			Time("stored_event_time", stored.EventTime).
			Msg("stale attendance event ignored")
	}

	return &AttendanceResult{Record: stored, Applied: applied}, nil
}

// SyncPayment applies a payment event on behalf of a caller authenticated to
// callerOrg. Offline-originated payments are always created as paid with the
// due date equal to the paid date.
func (g *Gateway) SyncPayment(ctx context.Context, callerOrg uuid.UUID, event PaymentEvent) (*PaymentResult, error) {
	if err := validatePaymentEvent(event); err != nil {
		return nil, err
	}

	if _, err := g.store.GetStudentByID(ctx, callerOrg, event.StudentID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			g.logger.Warn().
				Str("caller_org", callerOrg.String()).
				Str("student_id", event.StudentID.String()).
				Msg("payment event rejected: student not found in caller organization")
			g.metrics.PaymentRejected()
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("load student for payment event: %w", err)
	}

	payment := &models.PaymentRecord{
		ID:            uuid.New(),
		OrgID:         callerOrg,
		StudentID:     event.StudentID,
		AmountCents:   event.AmountCents,
		PaymentType:   event.PaymentType,
		PaymentMethod: event.PaymentMethod,
		Status:        models.PaymentPaid,
		PaidDate:      event.Timestamp,
		DueDate:       event.Timestamp,
		Notes:         event.Notes,
		ClientEventID: event.EventID,
	}

	stored, created, err := g.store.InsertPayment(ctx, payment)
	if err != nil {
		return nil, fmt.Errorf("apply payment event: %w", err)
	}

	if created {
		g.metrics.PaymentApplied()
	} else {
		g.metrics.PaymentReplayed()
		g.logger.Debug().
			Str("student_id", event.StudentID.String()).
			Str("event_id", event.EventID.String()).
			Msg("replayed payment event deduplicated")
	}

	return &PaymentResult{Record: stored, Created: created}, nil
}

func validateAttendanceEvent(event AttendanceEvent) error {
	if event.SessionID == uuid.Nil {
		return &ValidationError{Msg: "session_id is required"}
	}
	if event.StudentID == uuid.Nil {
		return &ValidationError{Msg: "student_id is required"}
	}
	if !models.ValidAttendanceStatus(event.Status) {
		return &ValidationError{Msg: fmt.Sprintf("unknown attendance status %q", event.Status)}
	}
	if event.Timestamp.IsZero() {
		return &ValidationError{Msg: "timestamp is required"}
	}
	return nil
}

func validatePaymentEvent(event PaymentEvent) error {
	if event.StudentID == uuid.Nil {
		return &ValidationError{Msg: "student_id is required"}
	}
	if event.AmountCents <= 0 {
		return &ValidationError{Msg: "amount_cents must be positive"}
	}
	if event.PaymentType == "" {
		return &ValidationError{Msg: "payment_type is required"}
	}
	if event.PaymentMethod == "" {
		return &ValidationError{Msg: "payment_method is required"}
	}
	if event.Timestamp.IsZero() {
		return &ValidationError{Msg: "timestamp is required"}
	}
	return nil
}
