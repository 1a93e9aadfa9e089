package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gymkeep/gymkeep/internal/models"
	"github.com/jackc/pgx/v5"
)

// UpsertAttendance applies an attendance event against the natural key
// (session_id, student_id) as a single atomic statement: insert when absent,
// overwrite when present. The conflict update is guarded so an event older
// than the stored state is ignored, which makes out-of-order multi-device
// sync convergent. Returns the stored record and whether the event was
// applied (false means it was stale and the stored state is newer).
func (db *DB) UpsertAttendance(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, bool, error) {
	var stored models.AttendanceRecord
	var statusStr string
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO attendance_records
			(id, org_id, session_id, student_id, status, check_in_time, recorded_by_user_id, event_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (session_id, student_id) DO UPDATE SET
			status = EXCLUDED.status,
			check_in_time = EXCLUDED.check_in_time,
			recorded_by_user_id = EXCLUDED.recorded_by_user_id,
			event_time = EXCLUDED.event_time,
			updated_at = NOW()
		WHERE attendance_records.event_time <= EXCLUDED.event_time
		RETURNING id, org_id, session_id, student_id, status, check_in_time, recorded_by_user_id, event_time, created_at, updated_at
	`, record.ID, record.OrgID, record.SessionID, record.StudentID,
		string(record.Status), record.CheckInTime, record.RecordedByUserID, record.EventTime,
	).Scan(
		&stored.ID, &stored.OrgID, &stored.SessionID, &stored.StudentID, &statusStr,
		&stored.CheckInTime, &stored.RecordedByUserID, &stored.EventTime,
		&stored.CreatedAt, &stored.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Stale event: the guarded update matched nothing. Report the
			// newer stored state instead.
			current, getErr := db.GetAttendanceByKey(ctx, record.SessionID, record.StudentID)
			if getErr != nil {
				return nil, false, fmt.Errorf("fetch attendance after stale event: %w", getErr)
			}
			return current, false, nil
		}
		return nil, false, fmt.Errorf("upsert attendance: %w", err)
	}
	stored.Status = models.AttendanceStatus(statusStr)
	return &stored, true, nil
}

// GetAttendanceByKey returns the attendance record for a (session, student)
// pair, or ErrNotFound.
func (db *DB) GetAttendanceByKey(ctx context.Context, sessionID, studentID uuid.UUID) (*models.AttendanceRecord, error) {
	var r models.AttendanceRecord
	var statusStr string
	err := db.Pool.QueryRow(ctx, `
		SELECT id, org_id, session_id, student_id, status, check_in_time, recorded_by_user_id, event_time, created_at, updated_at
		FROM attendance_records
		WHERE session_id = $1 AND student_id = $2
	`, sessionID, studentID).Scan(
		&r.ID, &r.OrgID, &r.SessionID, &r.StudentID, &statusStr,
		&r.CheckInTime, &r.RecordedByUserID, &r.EventTime, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get attendance by key: %w", err)
	}
	r.Status = models.AttendanceStatus(statusStr)
	return &r, nil
}

// GetAttendanceBySessionID returns all attendance records for a session,
// scoped to the organization.
func (db *DB) GetAttendanceBySessionID(ctx context.Context, orgID, sessionID uuid.UUID) ([]*models.AttendanceRecord, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, org_id, session_id, student_id, status, check_in_time, recorded_by_user_id, event_time, created_at, updated_at
		FROM attendance_records
		WHERE org_id = $1 AND session_id = $2
		ORDER BY check_in_time
	`, orgID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list attendance by session: %w", err)
	}
	defer rows.Close()

	var records []*models.AttendanceRecord
	for rows.Next() {
		var r models.AttendanceRecord
		var statusStr string
		err := rows.Scan(
			&r.ID, &r.OrgID, &r.SessionID, &r.StudentID, &statusStr,
			&r.CheckInTime, &r.RecordedByUserID, &r.EventTime, &r.CreatedAt, &r.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		r.Status = models.AttendanceStatus(statusStr)
		records = append(records, &r)
	}

	return records, nil
}
