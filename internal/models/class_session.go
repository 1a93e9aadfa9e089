package models

import (
	"time"

	"github.com/google/uuid"
)

// ClassSession represents a scheduled class at a studio.
type ClassSession struct {
	ID        uuid.UUID  `json:"id"`
	OrgID     uuid.UUID  `json:"org_id"`
	Title     string     `json:"title"`
	TrainerID *uuid.UUID `json:"trainer_id,omitempty"`
	StartsAt  time.Time  `json:"starts_at"`
	EndsAt    time.Time  `json:"ends_at"`
	Capacity  int        `json:"capacity"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewClassSession creates a new ClassSession in the given organization.
func NewClassSession(orgID uuid.UUID, title string, startsAt, endsAt time.Time, capacity int) *ClassSession {
	now := time.Now()
	return &ClassSession{
		ID:        uuid.New(),
		OrgID:     orgID,
		Title:     title,
		StartsAt:  startsAt,
		EndsAt:    endsAt,
		Capacity:  capacity,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
