package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gymkeep/gymkeep/internal/models"
	"github.com/jackc/pgx/v5"
)

// Organization methods

// CreateOrganization creates a new organization.
func (db *DB) CreateOrganization(ctx context.Context, org *models.Organization) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO organizations (id, name, slug, license_tier, subscription_status, trial_ends_at, setup_completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, org.ID, org.Name, org.Slug, string(org.LicenseTier), string(org.SubscriptionStatus),
		org.TrialEndsAt, org.SetupCompletedAt, org.CreatedAt, org.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create organization: %w", err)
	}
	return nil
}

// GetOrganizationByID returns an organization by its ID.
func (db *DB) GetOrganizationByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	var tierStr, statusStr string
	err := db.Pool.QueryRow(ctx, `
		SELECT id, name, slug, license_tier, subscription_status, trial_ends_at, setup_completed_at, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`, id).Scan(
		&org.ID, &org.Name, &org.Slug, &tierStr, &statusStr,
		&org.TrialEndsAt, &org.SetupCompletedAt, &org.CreatedAt, &org.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get organization by ID: %w", err)
	}
	org.LicenseTier = models.LicenseTier(tierStr)
	org.SubscriptionStatus = models.SubscriptionStatus(statusStr)
	return &org, nil
}

// GetOrganizationBySlug returns an organization by its URL slug.
func (db *DB) GetOrganizationBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	var org models.Organization
	var tierStr, statusStr string
	err := db.Pool.QueryRow(ctx, `
		SELECT id, name, slug, license_tier, subscription_status, trial_ends_at, setup_completed_at, created_at, updated_at
		FROM organizations
		WHERE slug = $1
	`, slug).Scan(
		&org.ID, &org.Name, &org.Slug, &tierStr, &statusStr,
		&org.TrialEndsAt, &org.SetupCompletedAt, &org.CreatedAt, &org.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get organization by slug: %w", err)
	}
	org.LicenseTier = models.LicenseTier(tierStr)
	org.SubscriptionStatus = models.SubscriptionStatus(statusStr)
	return &org, nil
}

// GetAllOrganizations returns all organizations ordered by name.
func (db *DB) GetAllOrganizations(ctx context.Context) ([]*models.Organization, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, name, slug, license_tier, subscription_status, trial_ends_at, setup_completed_at, created_at, updated_at
		FROM organizations
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		var org models.Organization
		var tierStr, statusStr string
		err := rows.Scan(
			&org.ID, &org.Name, &org.Slug, &tierStr, &statusStr,
			&org.TrialEndsAt, &org.SetupCompletedAt, &org.CreatedAt, &org.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		org.LicenseTier = models.LicenseTier(tierStr)
		org.SubscriptionStatus = models.SubscriptionStatus(statusStr)
		orgs = append(orgs, &org)
	}

	return orgs, nil
}

// CompleteOrganizationSetup marks the organization's onboarding as finished.
func (db *DB) CompleteOrganizationSetup(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE organizations SET setup_completed_at = $2, updated_at = NOW()
		WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("complete organization setup: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// User methods

// CreateUser creates a new user.
func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO users (id, org_id, email, name, role, oidc_subject, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)
	`, user.ID, user.OrgID, user.Email, user.Name, string(user.Role),
		nullableString(user.OIDCSubject), user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByID returns a user by their ID.
func (db *DB) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return db.getUser(ctx, "id = $1", id)
}

// GetUserByEmail returns a user by email within an organization.
func (db *DB) GetUserByEmail(ctx context.Context, orgID uuid.UUID, email string) (*models.User, error) {
	return db.getUser(ctx, "org_id = $1 AND email = $2", orgID, email)
}

// GetUserByOIDCSubject returns a user by their OIDC subject.
func (db *DB) GetUserByOIDCSubject(ctx context.Context, subject string) (*models.User, error) {
	return db.getUser(ctx, "oidc_subject = $1", subject)
}

func (db *DB) getUser(ctx context.Context, where string, args ...any) (*models.User, error) {
	var user models.User
	var roleStr string
	var oidcSubject, passwordHash *string
	err := db.Pool.QueryRow(ctx, `
		SELECT id, org_id, email, name, role, oidc_subject, password_hash, created_at, updated_at
		FROM users
		WHERE `+where, args...,
	).Scan(
		&user.ID, &user.OrgID, &user.Email, &user.Name, &roleStr,
		&oidcSubject, &passwordHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	user.Role = models.UserRole(roleStr)
	if oidcSubject != nil {
		user.OIDCSubject = *oidcSubject
	}
	if passwordHash != nil {
		user.PasswordHash = *passwordHash
	}
	return &user, nil
}

// GetUsersByOrgID returns all users of an organization ordered by name.
func (db *DB) GetUsersByOrgID(ctx context.Context, orgID uuid.UUID) ([]*models.User, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, org_id, email, name, role, created_at, updated_at
		FROM users
		WHERE org_id = $1
		ORDER BY name
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list users by org: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var user models.User
		var roleStr string
		err := rows.Scan(&user.ID, &user.OrgID, &user.Email, &user.Name, &roleStr, &user.CreatedAt, &user.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		user.Role = models.UserRole(roleStr)
		users = append(users, &user)
	}

	return users, nil
}

// CreateUserGuarded creates a trainer-class user inside a serializable
// transaction that recounts trainers against the limit first. A limit of
// Unlimited (-1) skips the recount. Returns ErrLimitReached when the recount
// shows no headroom.
func (db *DB) CreateUserGuarded(ctx context.Context, user *models.User, trainerLimit int) error {
	return db.ExecSerializableTx(ctx, func(tx pgx.Tx) error {
		if trainerLimit >= 0 && isTrainerRole(user.Role) {
			var count int
			err := tx.QueryRow(ctx, `
				SELECT COUNT(*) FROM users WHERE org_id = $1 AND role = ANY($2)
			`, user.OrgID, trainerRoleStrings()).Scan(&count)
			if err != nil {
				return fmt.Errorf("recount trainers: %w", err)
			}
			if count >= trainerLimit {
				return ErrLimitReached
			}
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, org_id, email, name, role, oidc_subject, password_hash, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)
		`, user.ID, user.OrgID, user.Email, user.Name, string(user.Role),
			nullableString(user.OIDCSubject), user.PasswordHash, user.CreatedAt, user.UpdatedAt)
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
}

func isTrainerRole(role models.UserRole) bool {
	for _, r := range models.TrainerRoles {
		if r == role {
			return true
		}
	}
	return false
}

func trainerRoleStrings() []string {
	roles := make([]string, len(models.TrainerRoles))
	for i, r := range models.TrainerRoles {
		roles[i] = string(r)
	}
	return roles
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
