package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gymkeep/gymkeep/internal/models"
	"github.com/jackc/pgx/v5"
)

// InsertPayment inserts a payment record. When the record carries a client
// event ID and a row with that ID already exists for the organization, the
// insert is a no-op and the original record is returned with created=false,
// so retried offline submissions cannot produce duplicate rows.
func (db *DB) InsertPayment(ctx context.Context, payment *models.PaymentRecord) (*models.PaymentRecord, bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		INSERT INTO payment_records
			(id, org_id, student_id, amount_cents, payment_type, payment_method, status, paid_date, due_date, notes, client_event_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		ON CONFLICT (org_id, client_event_id) WHERE client_event_id IS NOT NULL DO NOTHING
	`, payment.ID, payment.OrgID, payment.StudentID, payment.AmountCents,
		string(payment.PaymentType), string(payment.PaymentMethod), string(payment.Status),
		payment.PaidDate, payment.DueDate, payment.Notes, payment.ClientEventID)
	if err != nil {
		return nil, false, fmt.Errorf("insert payment: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Replay: return the record the original submission created.
		existing, getErr := db.getPaymentByClientEventID(ctx, payment.OrgID, *payment.ClientEventID)
		if getErr != nil {
			return nil, false, fmt.Errorf("fetch payment after replay: %w", getErr)
		}
		return existing, false, nil
	}

	stored, err := db.GetPaymentByID(ctx, payment.OrgID, payment.ID)
	if err != nil {
		return nil, false, fmt.Errorf("fetch payment after insert: %w", err)
	}
	return stored, true, nil
}

// GetPaymentByID returns a payment by ID scoped to the organization.
func (db *DB) GetPaymentByID(ctx context.Context, orgID, id uuid.UUID) (*models.PaymentRecord, error) {
	return db.getPayment(ctx, "id = $1 AND org_id = $2", id, orgID)
}

func (db *DB) getPaymentByClientEventID(ctx context.Context, orgID, clientEventID uuid.UUID) (*models.PaymentRecord, error) {
	return db.getPayment(ctx, "org_id = $1 AND client_event_id = $2", orgID, clientEventID)
}

func (db *DB) getPayment(ctx context.Context, where string, args ...any) (*models.PaymentRecord, error) {
	var p models.PaymentRecord
	var typeStr, methodStr, statusStr string
	err := db.Pool.QueryRow(ctx, `
		SELECT id, org_id, student_id, amount_cents, payment_type, payment_method, status, paid_date, due_date, notes, client_event_id, created_at, updated_at
		FROM payment_records
		WHERE `+where, args...,
	).Scan(
		&p.ID, &p.OrgID, &p.StudentID, &p.AmountCents, &typeStr, &methodStr, &statusStr,
		&p.PaidDate, &p.DueDate, &p.Notes, &p.ClientEventID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	p.PaymentType = models.PaymentType(typeStr)
	p.PaymentMethod = models.PaymentMethod(methodStr)
	p.Status = models.PaymentStatus(statusStr)
	return &p, nil
}

// GetPaymentsByOrgID returns the organization's payments, newest first.
func (db *DB) GetPaymentsByOrgID(ctx context.Context, orgID uuid.UUID, limit int) ([]*models.PaymentRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT id, org_id, student_id, amount_cents, payment_type, payment_method, status, paid_date, due_date, notes, client_event_id, created_at, updated_at
		FROM payment_records
		WHERE org_id = $1
		ORDER BY paid_date DESC
		LIMIT $2
	`, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("list payments by org: %w", err)
	}
	defer rows.Close()

	var payments []*models.PaymentRecord
	for rows.Next() {
		var p models.PaymentRecord
		var typeStr, methodStr, statusStr string
		err := rows.Scan(
			&p.ID, &p.OrgID, &p.StudentID, &p.AmountCents, &typeStr, &methodStr, &statusStr,
			&p.PaidDate, &p.DueDate, &p.Notes, &p.ClientEventID, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.PaymentType = models.PaymentType(typeStr)
		p.PaymentMethod = models.PaymentMethod(methodStr)
		p.Status = models.PaymentStatus(statusStr)
		payments = append(payments, &p)
	}

	return payments, nil
}
