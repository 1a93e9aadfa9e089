package models

import (
	"time"

	"github.com/google/uuid"
)

// StudentStatus is the lifecycle state of a student.
type StudentStatus string

const (
	// StudentActive counts against the organization's student limit.
	StudentActive StudentStatus = "active"
	// StudentArchived is retained for history but not counted.
	StudentArchived StudentStatus = "archived"
)

// Student represents a member enrolled at a studio.
type Student struct {
	ID        uuid.UUID     `json:"id"`
	OrgID     uuid.UUID     `json:"org_id"`
	Name      string        `json:"name"`
	Email     string        `json:"email,omitempty"`
	Phone     string        `json:"phone,omitempty"`
	Status    StudentStatus `json:"status"`
	JoinedAt  time.Time     `json:"joined_at"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewStudent creates a new active Student in the given organization.
func NewStudent(orgID uuid.UUID, name, email, phone string) *Student {
	now := time.Now()
	return &Student{
		ID:        uuid.New(),
		OrgID:     orgID,
		Name:      name,
		Email:     email,
		Phone:     phone,
		Status:    StudentActive,
		JoinedAt:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
