package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gymkeep/gymkeep/internal/models"
)

// Usage counting. These are the fresh counts limit decisions are made from;
// they are never cached.

// CountActiveStudents returns the number of non-archived students.
func (db *DB) CountActiveStudents(ctx context.Context, orgID uuid.UUID) (int, error) {
	var count int
	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM students WHERE org_id = $1 AND status = 'active'
	`, orgID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active students: %w", err)
	}
	return count, nil
}

// CountTrainers returns the number of users with trainer-class roles.
func (db *DB) CountTrainers(ctx context.Context, orgID uuid.UUID) (int, error) {
	var count int
	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM users WHERE org_id = $1 AND role = ANY($2)
	`, orgID, trainerRoleStrings()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count trainers: %w", err)
	}
	return count, nil
}

// CountSessionsInMonth returns the number of class sessions starting in the
// calendar month containing the given time.
func (db *DB) CountSessionsInMonth(ctx context.Context, orgID uuid.UUID, month time.Time) (int, error) {
	var count int
	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM class_sessions
		WHERE org_id = $1 AND date_trunc('month', starts_at) = date_trunc('month', $2::timestamptz)
	`, orgID, month).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count sessions in month: %w", err)
	}
	return count, nil
}

// Usage snapshots (dashboard history only)

// UpsertUsageSnapshot records a snapshot for the day, replacing any earlier
// snapshot taken the same day.
func (db *DB) UpsertUsageSnapshot(ctx context.Context, snapshot *models.UsageSnapshot) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO usage_snapshots (id, org_id, snapshot_date, active_students, trainers, sessions_month, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (org_id, snapshot_date) DO UPDATE SET
			active_students = EXCLUDED.active_students,
			trainers = EXCLUDED.trainers,
			sessions_month = EXCLUDED.sessions_month
	`, snapshot.ID, snapshot.OrgID, snapshot.SnapshotDate, snapshot.ActiveStudents,
		snapshot.Trainers, snapshot.SessionsMonth, snapshot.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert usage snapshot: %w", err)
	}
	return nil
}

// GetUsageSnapshots returns up to days of snapshot history, oldest first.
func (db *DB) GetUsageSnapshots(ctx context.Context, orgID uuid.UUID, days int) ([]*models.UsageSnapshot, error) {
	if days <= 0 {
		days = 30
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT id, org_id, snapshot_date, active_students, trainers, sessions_month, created_at
		FROM usage_snapshots
		WHERE org_id = $1 AND snapshot_date >= CURRENT_DATE - $2::int
		ORDER BY snapshot_date
	`, orgID, days)
	if err != nil {
		return nil, fmt.Errorf("list usage snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.UsageSnapshot
	for rows.Next() {
		var s models.UsageSnapshot
		err := rows.Scan(&s.ID, &s.OrgID, &s.SnapshotDate, &s.ActiveStudents, &s.Trainers, &s.SessionsMonth, &s.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan usage snapshot: %w", err)
		}
		snapshots = append(snapshots, &s)
	}

	return snapshots, nil
}
