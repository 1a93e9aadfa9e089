package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageSnapshot is a nightly per-organization usage record used for dashboard
// history charts. Limit enforcement never reads snapshots; it always recounts.
type UsageSnapshot struct {
	ID             uuid.UUID `json:"id"`
	OrgID          uuid.UUID `json:"org_id"`
	SnapshotDate   time.Time `json:"snapshot_date"`
	ActiveStudents int       `json:"active_students"`
	Trainers       int       `json:"trainers"`
	SessionsMonth  int       `json:"sessions_month"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewUsageSnapshot creates a UsageSnapshot for the given date.
func NewUsageSnapshot(orgID uuid.UUID, date time.Time, students, trainers, sessions int) *UsageSnapshot {
	return &UsageSnapshot{
		ID:             uuid.New(),
		OrgID:          orgID,
		SnapshotDate:   date,
		ActiveStudents: students,
		Trainers:       trainers,
		SessionsMonth:  sessions,
		CreatedAt:      time.Now(),
	}
}
