package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gymkeep/gymkeep/internal/models"
	"github.com/jackc/pgx/v5"
)

// CreateClassSessionGuarded creates a class session inside a serializable
// transaction that recounts sessions in the session's month against the
// limit. A limit of Unlimited (-1) skips the recount.
func (db *DB) CreateClassSessionGuarded(ctx context.Context, session *models.ClassSession, sessionLimit int) error {
	return db.ExecSerializableTx(ctx, func(tx pgx.Tx) error {
		if sessionLimit >= 0 {
			var count int
			err := tx.QueryRow(ctx, `
				SELECT COUNT(*) FROM class_sessions
				WHERE org_id = $1 AND date_trunc('month', starts_at) = date_trunc('month', $2::timestamptz)
			`, session.OrgID, session.StartsAt).Scan(&count)
			if err != nil {
				return fmt.Errorf("recount sessions in month: %w", err)
			}
			if count >= sessionLimit {
				return ErrLimitReached
			}
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO class_sessions (id, org_id, title, trainer_id, starts_at, ends_at, capacity, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, session.ID, session.OrgID, session.Title, session.TrainerID,
			session.StartsAt, session.EndsAt, session.Capacity, session.CreatedAt, session.UpdatedAt)
		if err != nil {
			return fmt.Errorf("create class session: %w", err)
		}
		return nil
	})
}

// GetClassSessionByID returns a class session by ID without tenant scoping.
// Callers owning the tenant check (the sync gateway) compare OrgID themselves.
func (db *DB) GetClassSessionByID(ctx context.Context, id uuid.UUID) (*models.ClassSession, error) {
	var s models.ClassSession
	err := db.Pool.QueryRow(ctx, `
		SELECT id, org_id, title, trainer_id, starts_at, ends_at, capacity, created_at, updated_at
		FROM class_sessions
		WHERE id = $1
	`, id).Scan(
		&s.ID, &s.OrgID, &s.Title, &s.TrainerID, &s.StartsAt, &s.EndsAt,
		&s.Capacity, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get class session by ID: %w", err)
	}
	return &s, nil
}

// GetClassSessionsByOrgID returns the organization's sessions, soonest first.
func (db *DB) GetClassSessionsByOrgID(ctx context.Context, orgID uuid.UUID) ([]*models.ClassSession, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, org_id, title, trainer_id, starts_at, ends_at, capacity, created_at, updated_at
		FROM class_sessions
		WHERE org_id = $1
		ORDER BY starts_at DESC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list class sessions by org: %w", err)
	}
	defer rows.Close()

	var sessions []*models.ClassSession
	for rows.Next() {
		var s models.ClassSession
		err := rows.Scan(
			&s.ID, &s.OrgID, &s.Title, &s.TrainerID, &s.StartsAt, &s.EndsAt,
			&s.Capacity, &s.CreatedAt, &s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan class session: %w", err)
		}
		sessions = append(sessions, &s)
	}

	return sessions, nil
}
