// Package models defines the domain models for GymKeep.
package models

import (
	"time"

	"github.com/google/uuid"
)

// LicenseTier is the subscription tier an organization is pinned to.
type LicenseTier string

const (
	// TierStarter is the entry tier for small studios.
	TierStarter LicenseTier = "starter"
	// TierProfessional is the mid tier for growing studios.
	TierProfessional LicenseTier = "professional"
	// TierEnterprise is the top tier for multi-location gyms.
	TierEnterprise LicenseTier = "enterprise"
)

// SubscriptionStatus is the billing state of an organization's subscription.
// It is owned by the billing/admin flows; this server only reads it.
type SubscriptionStatus string

const (
	SubscriptionTrial    SubscriptionStatus = "trial"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Organization represents a multi-tenant studio or gym.
type Organization struct {
	ID                 uuid.UUID          `json:"id"`
	Name               string             `json:"name"`
	Slug               string             `json:"slug"`
	LicenseTier        LicenseTier        `json:"license_tier"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
	TrialEndsAt        *time.Time         `json:"trial_ends_at,omitempty"`
	SetupCompletedAt   *time.Time         `json:"setup_completed_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// NewOrganization creates a new Organization on a 14-day starter trial.
func NewOrganization(name, slug string) *Organization {
	now := time.Now()
	trialEnd := now.Add(14 * 24 * time.Hour)
	return &Organization{
		ID:                 uuid.New(),
		Name:               name,
		Slug:               slug,
		LicenseTier:        TierStarter,
		SubscriptionStatus: SubscriptionTrial,
		TrialEndsAt:        &trialEnd,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// TrialDaysRemaining returns the whole days left in the trial, or 0 if the
// organization is not on a trial or the trial has ended.
func (o *Organization) TrialDaysRemaining() int {
	if o.SubscriptionStatus != SubscriptionTrial || o.TrialEndsAt == nil {
		return 0
	}
	remaining := time.Until(*o.TrialEndsAt)
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Hours()/24) + 1
}
