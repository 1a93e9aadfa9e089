package entitlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/gymkeep/gymkeep/internal/models"
	"github.com/rs/zerolog"
)

// LimitCheckResult is the outcome of a limit check. It is computed per request
// and never persisted. SuggestedTier is set on deny when upgrading would allow
// the operation: the lowest tier above the current one whose limit for the key
// is unlimited or greater than the current usage.
type LimitCheckResult struct {
	Allowed       bool                `json:"allowed"`
	Current       int                 `json:"current"`
	Limit         int                 `json:"limit"`
	LimitKey      LimitKey            `json:"limit_key"`
	CurrentTier   models.LicenseTier  `json:"current_tier"`
	SuggestedTier *models.LicenseTier `json:"suggested_tier,omitempty"`
}

// LimitExceededError is the recoverable, user-facing rejection produced when a
// limit check denies an operation. The embedded result carries the upsell
// details for the API response.
type LimitExceededError struct {
	Result LimitCheckResult
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("limit exceeded: %s at %d/%d on tier %s",
		e.Result.LimitKey, e.Result.Current, e.Result.Limit, e.Result.CurrentTier)
}

// Guard composes tier resolution and usage aggregation into allow/deny
// decisions for mutating operations.
//
// Guard.Check on its own is advisory: the count it reads can change before the
// subsequent write commits. Resource-creating writes must therefore re-validate
// the limit inside the same transaction (the db layer's guarded create methods
// do this with a serializable recount).
type Guard struct {
	resolver *Resolver
	usage    *Aggregator
	catalog  *Catalog
	logger   zerolog.Logger
}

// NewGuard creates a Guard from its collaborators.
func NewGuard(resolver *Resolver, usage *Aggregator, catalog *Catalog, logger zerolog.Logger) *Guard {
	return &Guard{
		resolver: resolver,
		usage:    usage,
		catalog:  catalog,
		logger:   logger.With().Str("component", "limit_guard").Logger(),
	}
}

// Check evaluates whether the organization may consume one more unit of the
// resource the limit key caps. An unlimited tier short-circuits without
// touching the usage query.
func (g *Guard) Check(ctx context.Context, orgID uuid.UUID, key LimitKey) (LimitCheckResult, error) {
	resolved, err := g.resolver.ResolveTier(ctx, orgID)
	if err != nil {
		return LimitCheckResult{}, err
	}

	def, err := g.catalog.DefinitionFor(resolved.Tier)
	if err != nil {
		return LimitCheckResult{}, fmt.Errorf("limit check: %w", err)
	}

	limit := def.LimitFor(key)
	result := LimitCheckResult{
		Limit:       limit,
		LimitKey:    key,
		CurrentTier: resolved.Tier,
	}

	if IsUnlimited(limit) {
		result.Allowed = true
		return result, nil
	}

	// A key the tier definition does not grant resolves to 0. Deny without a
	// usage query: there is nothing meaningful to count for it.
	if limit <= 0 {
		result.SuggestedTier = g.suggestTier(resolved.Tier, key, 0)
		g.logger.Info().
			Str("org_id", orgID.String()).
			Str("limit_key", string(key)).
			Int("limit", limit).
			Str("tier", string(resolved.Tier)).
			Msg("limit check denied")
		return result, nil
	}

	current, err := g.usage.CurrentUsage(ctx, orgID, key)
	if err != nil {
		return LimitCheckResult{}, fmt.Errorf("limit check: %w", err)
	}

	result.Current = current
	result.Allowed = current < limit

	if !result.Allowed {
		result.SuggestedTier = g.suggestTier(resolved.Tier, key, current)
		g.logger.Info().
			Str("org_id", orgID.String()).
			Str("limit_key", string(key)).
			Int("current", current).
			Int("limit", limit).
			Str("tier", string(resolved.Tier)).
			Msg("limit check denied")
	}

	return result, nil
}

// Allow is Check folded into an error: nil when allowed, *LimitExceededError
// when denied.
func (g *Guard) Allow(ctx context.Context, orgID uuid.UUID, key LimitKey) error {
	result, err := g.Check(ctx, orgID, key)
	if err != nil {
		return err
	}
	if !result.Allowed {
		return &LimitExceededError{Result: result}
	}
	return nil
}

// suggestTier finds the lowest tier above the current one whose limit for the
// key would admit the current usage. Returns nil when no tier fixes it.
func (g *Guard) suggestTier(current models.LicenseTier, key LimitKey, usage int) *models.LicenseTier {
	for _, tier := range TiersAbove(current) {
		def, err := g.catalog.DefinitionFor(tier)
		if err != nil {
			continue
		}
		limit := def.LimitFor(key)
		if IsUnlimited(limit) || limit > usage {
			t := tier
			return &t
		}
	}
	return nil
}
