package entitlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gymkeep/gymkeep/internal/models"
	"github.com/rs/zerolog"
)

type mockCounter struct {
	students int
	trainers int
	sessions int
	calls    int
	err      error
}

func (m *mockCounter) CountActiveStudents(_ context.Context, _ uuid.UUID) (int, error) {
	m.calls++
	return m.students, m.err
}

func (m *mockCounter) CountTrainers(_ context.Context, _ uuid.UUID) (int, error) {
	m.calls++
	return m.trainers, m.err
}

func (m *mockCounter) CountSessionsInMonth(_ context.Context, _ uuid.UUID, _ time.Time) (int, error) {
	m.calls++
	return m.sessions, m.err
}

func newTestGuard(tier models.LicenseTier, counter *mockCounter) (*Guard, uuid.UUID) {
	catalog := DefaultCatalog()
	store, orgID := orgWithTier(tier)
	resolver := NewResolver(store, catalog, zerolog.Nop())
	guard := NewGuard(resolver, NewAggregator(counter), catalog, zerolog.Nop())
	return guard, orgID
}

func TestGuardCheck(t *testing.T) {
	t.Run("under limit allows", func(t *testing.T) {
		guard, orgID := newTestGuard(models.TierStarter, &mockCounter{students: 10})

		result, err := guard.Check(context.Background(), orgID, LimitMaxStudents)
		if err != nil {
			t.Fatal(err)
		}
		if !result.Allowed {
			t.Error("10/25 should be allowed")
		}
		if result.Current != 10 || result.Limit != 25 {
			t.Errorf("result = %d/%d, want 10/25", result.Current, result.Limit)
		}
	})

	t.Run("at limit denies with suggestion", func(t *testing.T) {
		guard, orgID := newTestGuard(models.TierStarter, &mockCounter{students: 25})

		result, err := guard.Check(context.Background(), orgID, LimitMaxStudents)
		if err != nil {
			t.Fatal(err)
		}
		if result.Allowed {
			t.Error("25/25 must be denied")
		}
		if result.SuggestedTier == nil || *result.SuggestedTier != models.TierProfessional {
			t.Errorf("suggested tier = %v, want professional", result.SuggestedTier)
		}
	})

	t.Run("suggestion skips tiers that do not help", func(t *testing.T) {
		// 300 students exceeds professional's 200 cap too, so the
		// suggestion must jump straight to enterprise.
		guard, orgID := newTestGuard(models.TierStarter, &mockCounter{students: 300})

		result, err := guard.Check(context.Background(), orgID, LimitMaxStudents)
		if err != nil {
			t.Fatal(err)
		}
		if result.Allowed {
			t.Error("expected denial")
		}
		if result.SuggestedTier == nil || *result.SuggestedTier != models.TierEnterprise {
			t.Errorf("suggested tier = %v, want enterprise", result.SuggestedTier)
		}
	})

	t.Run("absent limit key denies with no suggestion", func(t *testing.T) {
		// A catalog where no tier defines max_trainers: the limit reads
		// as 0, the check denies, and no upgrade helps.
		catalog := &Catalog{tiers: map[models.LicenseTier]TierDefinition{
			models.TierStarter: {Limits: map[LimitKey]int{LimitMaxStudents: 25}},
		}}
		store, orgID := orgWithTier(models.TierStarter)
		resolver := NewResolver(store, catalog, zerolog.Nop())
		guard := NewGuard(resolver, NewAggregator(&mockCounter{trainers: 0}), catalog, zerolog.Nop())

		result, err := guard.Check(context.Background(), orgID, LimitMaxTrainers)
		if err != nil {
			t.Fatal(err)
		}
		if result.Allowed {
			t.Error("absent limit key must fail closed")
		}
		if result.SuggestedTier != nil {
			t.Errorf("suggested tier = %v, want nil", *result.SuggestedTier)
		}
	})

	t.Run("unknown limit key denies without counting", func(t *testing.T) {
		// A key no tier and no usage source knows resolves to 0 and must
		// fail closed, not surface the aggregator's unknown-key error.
		counter := &mockCounter{}
		guard, orgID := newTestGuard(models.TierStarter, counter)

		result, err := guard.Check(context.Background(), orgID, "max_locations")
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		if result.Allowed {
			t.Error("unknown limit key must fail closed")
		}
		if result.Current != 0 || result.Limit != 0 {
			t.Errorf("result = %d/%d, want 0/0", result.Current, result.Limit)
		}
		if result.SuggestedTier != nil {
			t.Errorf("suggested tier = %v, want nil", *result.SuggestedTier)
		}
		if counter.calls != 0 {
			t.Errorf("usage was counted %d times, want 0", counter.calls)
		}
	})

	t.Run("unlimited short-circuits without counting", func(t *testing.T) {
		counter := &mockCounter{students: 1000000}
		guard, orgID := newTestGuard(models.TierEnterprise, counter)

		result, err := guard.Check(context.Background(), orgID, LimitMaxStudents)
		if err != nil {
			t.Fatal(err)
		}
		if !result.Allowed {
			t.Error("unlimited must always allow")
		}
		if counter.calls != 0 {
			t.Errorf("usage was counted %d times, want 0", counter.calls)
		}
	})

	t.Run("degraded org is checked against starter limits", func(t *testing.T) {
		catalog := DefaultCatalog()
		store, orgID := orgWithTier("legacy_gold")
		resolver := NewResolver(store, catalog, zerolog.Nop())
		guard := NewGuard(resolver, NewAggregator(&mockCounter{students: 25}), catalog, zerolog.Nop())

		result, err := guard.Check(context.Background(), orgID, LimitMaxStudents)
		if err != nil {
			t.Fatal(err)
		}
		if result.Allowed {
			t.Error("degraded fallback must enforce starter limits")
		}
		if result.CurrentTier != models.TierStarter {
			t.Errorf("current tier = %s, want starter", result.CurrentTier)
		}
	})

	t.Run("counter error propagates", func(t *testing.T) {
		guard, orgID := newTestGuard(models.TierStarter, &mockCounter{err: errors.New("db down")})

		if _, err := guard.Check(context.Background(), orgID, LimitMaxStudents); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestGuardAllow(t *testing.T) {
	t.Run("allowed returns nil", func(t *testing.T) {
		guard, orgID := newTestGuard(models.TierStarter, &mockCounter{trainers: 1})

		if err := guard.Allow(context.Background(), orgID, LimitMaxTrainers); err != nil {
			t.Fatalf("Allow: %v", err)
		}
	})

	t.Run("denied returns LimitExceededError", func(t *testing.T) {
		guard, orgID := newTestGuard(models.TierStarter, &mockCounter{trainers: 3})

		err := guard.Allow(context.Background(), orgID, LimitMaxTrainers)
		var limitErr *LimitExceededError
		if !errors.As(err, &limitErr) {
			t.Fatalf("err = %v, want LimitExceededError", err)
		}
		if limitErr.Result.Current != 3 || limitErr.Result.Limit != 3 {
			t.Errorf("result = %d/%d, want 3/3", limitErr.Result.Current, limitErr.Result.Limit)
		}
	})
}

func TestAggregatorUnknownKey(t *testing.T) {
	agg := NewAggregator(&mockCounter{})
	if _, err := agg.CurrentUsage(context.Background(), uuid.New(), "max_locations"); err == nil {
		t.Fatal("expected error for unknown limit key")
	}
}
