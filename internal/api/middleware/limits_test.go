package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gymkeep/gymkeep/internal/auth"
	"github.com/gymkeep/gymkeep/internal/db"
	"github.com/gymkeep/gymkeep/internal/entitlement"
	"github.com/gymkeep/gymkeep/internal/models"
	"github.com/rs/zerolog"
)

type staticOrgStore struct {
	org *models.Organization
}

func (s *staticOrgStore) GetOrganizationByID(_ context.Context, id uuid.UUID) (*models.Organization, error) {
	if s.org != nil && s.org.ID == id {
		return s.org, nil
	}
	return nil, db.ErrNotFound
}

type staticCounter struct {
	students int
}

func (s *staticCounter) CountActiveStudents(_ context.Context, _ uuid.UUID) (int, error) {
	return s.students, nil
}

func (s *staticCounter) CountTrainers(_ context.Context, _ uuid.UUID) (int, error) {
	return 0, nil
}

func (s *staticCounter) CountSessionsInMonth(_ context.Context, _ uuid.UUID, _ time.Time) (int, error) {
	return 0, nil
}

func setupLimitTestRouter(tier models.LicenseTier, students int) (*gin.Engine, uuid.UUID) {
	gin.SetMode(gin.TestMode)
	orgID := uuid.New()
	store := &staticOrgStore{org: &models.Organization{
		ID:                 orgID,
		LicenseTier:        tier,
		SubscriptionStatus: models.SubscriptionActive,
	}}
	catalog := entitlement.DefaultCatalog()
	resolver := entitlement.NewResolver(store, catalog, zerolog.Nop())
	guard := entitlement.NewGuard(resolver, entitlement.NewAggregator(&staticCounter{students: students}), catalog, zerolog.Nop())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(string(UserContextKey), &auth.SessionUser{ID: uuid.New(), OrgID: orgID})
		c.Next()
	})
	r.POST("/students",
		LimitMiddleware(guard, entitlement.LimitMaxStudents, nil, zerolog.Nop()),
		func(c *gin.Context) {
			c.JSON(http.StatusCreated, gin.H{"ok": true})
		})
	return r, orgID
}

func TestLimitMiddleware(t *testing.T) {
	t.Run("under limit passes through", func(t *testing.T) {
		r, _ := setupLimitTestRouter(models.TierStarter, 10)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/students", nil))

		if w.Code != http.StatusCreated {
			t.Errorf("status = %d, want 201", w.Code)
		}
	})

	t.Run("at limit rejects with upsell payload", func(t *testing.T) {
		r, _ := setupLimitTestRouter(models.TierStarter, 25)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/students", nil))

		if w.Code != http.StatusPaymentRequired {
			t.Fatalf("status = %d, want 402, body = %s", w.Code, w.Body.String())
		}

		var resp struct {
			Error         string `json:"error"`
			LimitKey      string `json:"limit_key"`
			Tier          string `json:"tier"`
			SuggestedTier string `json:"suggested_tier"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Error != "limit_exceeded" {
			t.Errorf("error = %q", resp.Error)
		}
		if resp.LimitKey != "max_students" {
			t.Errorf("limit_key = %q", resp.LimitKey)
		}
		if resp.Tier != "starter" || resp.SuggestedTier != "professional" {
			t.Errorf("tier/suggested = %q/%q", resp.Tier, resp.SuggestedTier)
		}
	})

	t.Run("unlimited tier always passes", func(t *testing.T) {
		r, _ := setupLimitTestRouter(models.TierEnterprise, 100000)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/students", nil))

		if w.Code != http.StatusCreated {
			t.Errorf("status = %d, want 201", w.Code)
		}
	})
}
