package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentType categorizes what a payment was for.
type PaymentType string

const (
	PaymentMembership PaymentType = "membership"
	PaymentDropIn     PaymentType = "drop_in"
	PaymentGear       PaymentType = "gear"
	PaymentOther      PaymentType = "other"
)

// PaymentMethod is how a payment was made.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodCard     PaymentMethod = "card"
	MethodTransfer PaymentMethod = "transfer"
	MethodOther    PaymentMethod = "other"
)

// PaymentStatus is the settlement state of a payment.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPending PaymentStatus = "pending"
	PaymentOverdue PaymentStatus = "overdue"
)

// PaymentRecord represents a payment made by a student. Offline-originated
// records are always created as paid with due date equal to paid date.
// ClientEventID is the client-generated idempotency token for offline sync;
// a resubmission with the same token returns the original record instead of
// inserting a duplicate.
type PaymentRecord struct {
	ID            uuid.UUID     `json:"id"`
	OrgID         uuid.UUID     `json:"org_id"`
	StudentID     uuid.UUID     `json:"student_id"`
	AmountCents   int64         `json:"amount_cents"`
	PaymentType   PaymentType   `json:"payment_type"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Status        PaymentStatus `json:"status"`
	PaidDate      time.Time     `json:"paid_date"`
	DueDate       time.Time     `json:"due_date"`
	Notes         string        `json:"notes,omitempty"`
	ClientEventID *uuid.UUID    `json:"client_event_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
