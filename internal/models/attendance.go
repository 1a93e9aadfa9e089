package models

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceStatus is the recorded attendance state for a student at a session.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
)

// ValidAttendanceStatus reports whether s is a recognized attendance status.
func ValidAttendanceStatus(s AttendanceStatus) bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate:
		return true
	}
	return false
}

// AttendanceRecord records a student's attendance at a class session.
// At most one record exists per (session, student) pair; offline sync events
// upsert against that natural key. EventTime is the device-side timestamp of
// the event that produced the current state; an incoming event with an older
// EventTime never overwrites a newer one, so out-of-order kiosk syncs converge.
type AttendanceRecord struct {
	ID               uuid.UUID        `json:"id"`
	OrgID            uuid.UUID        `json:"org_id"`
	SessionID        uuid.UUID        `json:"session_id"`
	StudentID        uuid.UUID        `json:"student_id"`
	Status           AttendanceStatus `json:"status"`
	CheckInTime      time.Time        `json:"check_in_time"`
	RecordedByUserID uuid.UUID        `json:"recorded_by_user_id"`
	EventTime        time.Time        `json:"event_time"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}
