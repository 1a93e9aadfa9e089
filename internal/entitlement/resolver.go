package entitlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/gymkeep/gymkeep/internal/models"
	"github.com/rs/zerolog"
)

// OrgStore is the interface for reading organizations.
type OrgStore interface {
	GetOrganizationByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
}

// ResolvedTier is an organization's tier as resolved against the catalog.
// Degraded is true when the stored tier name had no catalog entry and the
// starter fallback was applied, so callers can tell the fallback apart from a
// genuine starter subscription.
type ResolvedTier struct {
	Tier               models.LicenseTier        `json:"tier"`
	SubscriptionStatus models.SubscriptionStatus `json:"subscription_status"`
	Degraded           bool                      `json:"degraded,omitempty"`
}

// Resolver answers feature and limit questions for organizations.
type Resolver struct {
	store   OrgStore
	catalog *Catalog
	logger  zerolog.Logger
}

// NewResolver creates a Resolver backed by the given store and catalog.
func NewResolver(store OrgStore, catalog *Catalog, logger zerolog.Logger) *Resolver {
	return &Resolver{
		store:   store,
		catalog: catalog,
		logger:  logger.With().Str("component", "entitlement_resolver").Logger(),
	}
}

// ResolveTier reads the organization and resolves its tier against the
// catalog. An unrecognized stored tier falls back to starter; the fallback is
// logged and reported via Degraded rather than silently swallowed.
func (r *Resolver) ResolveTier(ctx context.Context, orgID uuid.UUID) (ResolvedTier, error) {
	org, err := r.store.GetOrganizationByID(ctx, orgID)
	if err != nil {
		return ResolvedTier{}, fmt.Errorf("resolve tier: %w", err)
	}

	resolved := ResolvedTier{
		Tier:               org.LicenseTier,
		SubscriptionStatus: org.SubscriptionStatus,
	}

	if _, err := r.catalog.DefinitionFor(org.LicenseTier); err != nil {
		r.logger.Warn().
			Str("org_id", orgID.String()).
			Str("stored_tier", string(org.LicenseTier)).
			Msg("stored tier has no catalog entry, falling back to starter")
		resolved.Tier = models.TierStarter
		resolved.Degraded = true
	}

	return resolved, nil
}

// HasFeature reports whether the organization's resolved tier includes the
// feature. Subscription status is deliberately not interpreted here; whether
// an expired trial zeroes out features is a business-layer decision.
func (r *Resolver) HasFeature(ctx context.Context, orgID uuid.UUID, feature FeatureKey) (bool, error) {
	def, _, err := r.definition(ctx, orgID)
	if err != nil {
		return false, err
	}
	return def.HasFeature(feature), nil
}

// LimitFor returns the organization's limit for the given key. A key absent
// from the tier's limit map yields 0, so unknown limits fail closed.
func (r *Resolver) LimitFor(ctx context.Context, orgID uuid.UUID, key LimitKey) (int, error) {
	def, _, err := r.definition(ctx, orgID)
	if err != nil {
		return 0, err
	}
	return def.LimitFor(key), nil
}

// definition resolves the org's tier and returns its catalog definition.
func (r *Resolver) definition(ctx context.Context, orgID uuid.UUID) (TierDefinition, ResolvedTier, error) {
	resolved, err := r.ResolveTier(ctx, orgID)
	if err != nil {
		return TierDefinition{}, ResolvedTier{}, err
	}

	def, err := r.catalog.DefinitionFor(resolved.Tier)
	if err != nil {
		// Resolved tier is always a catalog tier after fallback.
		return TierDefinition{}, ResolvedTier{}, fmt.Errorf("resolve tier definition: %w", err)
	}
	return def, resolved, nil
}
