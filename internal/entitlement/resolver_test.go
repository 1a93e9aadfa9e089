package entitlement

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/gymkeep/gymkeep/internal/models"
	"github.com/rs/zerolog"
)

type mockOrgStore struct {
	orgs map[uuid.UUID]*models.Organization
	err  error
}

func (m *mockOrgStore) GetOrganizationByID(_ context.Context, id uuid.UUID) (*models.Organization, error) {
	if m.err != nil {
		return nil, m.err
	}
	org, ok := m.orgs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return org, nil
}

func orgWithTier(tier models.LicenseTier) (*mockOrgStore, uuid.UUID) {
	id := uuid.New()
	return &mockOrgStore{
		orgs: map[uuid.UUID]*models.Organization{
			id: {
				ID:                 id,
				Name:               "Test Studio",
				LicenseTier:        tier,
				SubscriptionStatus: models.SubscriptionActive,
			},
		},
	}, id
}

func TestResolveTier(t *testing.T) {
	catalog := DefaultCatalog()

	t.Run("known tier", func(t *testing.T) {
		store, orgID := orgWithTier(models.TierProfessional)
		resolver := NewResolver(store, catalog, zerolog.Nop())

		resolved, err := resolver.ResolveTier(context.Background(), orgID)
		if err != nil {
			t.Fatal(err)
		}
		if resolved.Tier != models.TierProfessional {
			t.Errorf("tier = %s, want professional", resolved.Tier)
		}
		if resolved.Degraded {
			t.Error("known tier should not be degraded")
		}
	})

	t.Run("unknown tier falls back to starter degraded", func(t *testing.T) {
		store, orgID := orgWithTier("legacy_gold")
		resolver := NewResolver(store, catalog, zerolog.Nop())

		resolved, err := resolver.ResolveTier(context.Background(), orgID)
		if err != nil {
			t.Fatal(err)
		}
		if resolved.Tier != models.TierStarter {
			t.Errorf("tier = %s, want starter fallback", resolved.Tier)
		}
		if !resolved.Degraded {
			t.Error("fallback must be reported as degraded")
		}
	})

	t.Run("store error propagates", func(t *testing.T) {
		store := &mockOrgStore{err: errors.New("connection refused")}
		resolver := NewResolver(store, catalog, zerolog.Nop())

		if _, err := resolver.ResolveTier(context.Background(), uuid.New()); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestHasFeature(t *testing.T) {
	catalog := DefaultCatalog()

	t.Run("starter lacks online booking", func(t *testing.T) {
		store, orgID := orgWithTier(models.TierStarter)
		resolver := NewResolver(store, catalog, zerolog.Nop())

		has, err := resolver.HasFeature(context.Background(), orgID, FeatureOnlineBooking)
		if err != nil {
			t.Fatal(err)
		}
		if has {
			t.Error("starter should not have online_booking")
		}
	})

	t.Run("enterprise has white label", func(t *testing.T) {
		store, orgID := orgWithTier(models.TierEnterprise)
		resolver := NewResolver(store, catalog, zerolog.Nop())

		has, err := resolver.HasFeature(context.Background(), orgID, FeatureWhiteLabel)
		if err != nil {
			t.Fatal(err)
		}
		if !has {
			t.Error("enterprise should have white_label")
		}
	})

	t.Run("degraded org answers with starter features", func(t *testing.T) {
		store, orgID := orgWithTier("legacy_gold")
		resolver := NewResolver(store, catalog, zerolog.Nop())

		has, err := resolver.HasFeature(context.Background(), orgID, FeatureAttendanceKiosk)
		if err != nil {
			t.Fatal(err)
		}
		if !has {
			t.Error("degraded fallback should still include starter features")
		}
	})

	t.Run("subscription status does not gate features", func(t *testing.T) {
		id := uuid.New()
		store := &mockOrgStore{orgs: map[uuid.UUID]*models.Organization{
			id: {ID: id, LicenseTier: models.TierProfessional, SubscriptionStatus: models.SubscriptionPastDue},
		}}
		resolver := NewResolver(store, catalog, zerolog.Nop())

		has, err := resolver.HasFeature(context.Background(), id, FeatureOnlineBooking)
		if err != nil {
			t.Fatal(err)
		}
		if !has {
			t.Error("past_due must not strip features at this layer")
		}
	})
}

func TestLimitForResolver(t *testing.T) {
	catalog := DefaultCatalog()

	t.Run("starter student limit", func(t *testing.T) {
		store, orgID := orgWithTier(models.TierStarter)
		resolver := NewResolver(store, catalog, zerolog.Nop())

		limit, err := resolver.LimitFor(context.Background(), orgID, LimitMaxStudents)
		if err != nil {
			t.Fatal(err)
		}
		if limit != 25 {
			t.Errorf("limit = %d, want 25", limit)
		}
	})

	t.Run("unknown limit key fails closed", func(t *testing.T) {
		store, orgID := orgWithTier(models.TierEnterprise)
		resolver := NewResolver(store, catalog, zerolog.Nop())

		limit, err := resolver.LimitFor(context.Background(), orgID, "max_locations")
		if err != nil {
			t.Fatal(err)
		}
		if limit != 0 {
			t.Errorf("absent key = %d, want 0", limit)
		}
	})
}
