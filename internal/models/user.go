package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole defines the role of a user within an organization.
type UserRole string

const (
	// RoleOwner is the organization owner with full access.
	RoleOwner UserRole = "owner"
	// RoleAdmin can manage students, staff, and billing settings.
	RoleAdmin UserRole = "admin"
	// RoleTrainer runs class sessions and records attendance.
	RoleTrainer UserRole = "trainer"
	// RoleFrontDesk handles check-ins and payments at the desk.
	RoleFrontDesk UserRole = "frontdesk"
)

// TrainerRoles are the roles counted against the trainer limit.
var TrainerRoles = []UserRole{RoleTrainer}

// User represents a staff member of an organization.
type User struct {
	ID           uuid.UUID `json:"id"`
	OrgID        uuid.UUID `json:"org_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         UserRole  `json:"role"`
	OIDCSubject  string    `json:"-"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser creates a new User in the given organization.
func NewUser(orgID uuid.UUID, email, name string, role UserRole) *User {
	now := time.Now()
	return &User{
		ID:        uuid.New(),
		OrgID:     orgID,
		Email:     email,
		Name:      name,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsAdmin returns true for roles allowed to manage organization settings.
func (u *User) IsAdmin() bool {
	return u.Role == RoleOwner || u.Role == RoleAdmin
}
