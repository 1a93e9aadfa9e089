package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gymkeep/gymkeep/internal/models"
	"github.com/jackc/pgx/v5"
)

// CreateStudentGuarded creates a student inside a serializable transaction
// that recounts active students against the limit first, closing the window
// between a limit check and the insert. A limit of Unlimited (-1) skips the
// recount. Returns ErrLimitReached when the recount shows no headroom.
func (db *DB) CreateStudentGuarded(ctx context.Context, student *models.Student, studentLimit int) error {
	return db.ExecSerializableTx(ctx, func(tx pgx.Tx) error {
		if studentLimit >= 0 {
			var count int
			err := tx.QueryRow(ctx, `
				SELECT COUNT(*) FROM students WHERE org_id = $1 AND status = 'active'
			`, student.OrgID).Scan(&count)
			if err != nil {
				return fmt.Errorf("recount active students: %w", err)
			}
			if count >= studentLimit {
				return ErrLimitReached
			}
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO students (id, org_id, name, email, phone, status, joined_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, student.ID, student.OrgID, student.Name, student.Email, student.Phone,
			string(student.Status), student.JoinedAt, student.CreatedAt, student.UpdatedAt)
		if err != nil {
			return fmt.Errorf("create student: %w", err)
		}
		return nil
	})
}

// GetStudentByID returns a student by ID scoped to the organization.
// A student belonging to another organization is reported as ErrNotFound.
func (db *DB) GetStudentByID(ctx context.Context, orgID, id uuid.UUID) (*models.Student, error) {
	var s models.Student
	var statusStr string
	err := db.Pool.QueryRow(ctx, `
		SELECT id, org_id, name, email, phone, status, joined_at, created_at, updated_at
		FROM students
		WHERE id = $1 AND org_id = $2
	`, id, orgID).Scan(
		&s.ID, &s.OrgID, &s.Name, &s.Email, &s.Phone, &statusStr,
		&s.JoinedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get student by ID: %w", err)
	}
	s.Status = models.StudentStatus(statusStr)
	return &s, nil
}

// GetStudentsByOrgID returns the organization's students, active first.
func (db *DB) GetStudentsByOrgID(ctx context.Context, orgID uuid.UUID) ([]*models.Student, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, org_id, name, email, phone, status, joined_at, created_at, updated_at
		FROM students
		WHERE org_id = $1
		ORDER BY status, name
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list students by org: %w", err)
	}
	defer rows.Close()

	var students []*models.Student
	for rows.Next() {
		var s models.Student
		var statusStr string
		err := rows.Scan(
			&s.ID, &s.OrgID, &s.Name, &s.Email, &s.Phone, &statusStr,
			&s.JoinedAt, &s.CreatedAt, &s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		s.Status = models.StudentStatus(statusStr)
		students = append(students, &s)
	}

	return students, nil
}

// ArchiveStudent marks a student archived so they stop counting against the
// student limit. Scoped to the organization.
func (db *DB) ArchiveStudent(ctx context.Context, orgID, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE students SET status = 'archived', updated_at = NOW()
		WHERE id = $1 AND org_id = $2
	`, id, orgID)
	if err != nil {
		return fmt.Errorf("archive student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
