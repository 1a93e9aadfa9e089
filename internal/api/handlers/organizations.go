package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gymkeep/gymkeep/internal/api/middleware"
	"github.com/gymkeep/gymkeep/internal/db"
	"github.com/gymkeep/gymkeep/internal/models"
	"github.com/rs/zerolog"
)

// OrganizationStore defines the interface for organization persistence operations.
type OrganizationStore interface {
	GetOrganizationByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	CompleteOrganizationSetup(ctx context.Context, id uuid.UUID, at time.Time) error
}

// OrganizationsHandler handles organization HTTP endpoints. There is no
// generic organization CRUD; callers only see their own organization.
type OrganizationsHandler struct {
	store  OrganizationStore
	logger zerolog.Logger
}

// NewOrganizationsHandler creates a new OrganizationsHandler.
func NewOrganizationsHandler(store OrganizationStore, logger zerolog.Logger) *OrganizationsHandler {
	return &OrganizationsHandler{
		store:  store,
		logger: logger.With().Str("component", "organizations_handler").Logger(),
	}
}

// RegisterRoutes registers organization routes on the given router group.
func (h *OrganizationsHandler) RegisterRoutes(r *gin.RouterGroup) {
	orgs := r.Group("/organizations")
	{
		orgs.GET("/current", h.Current)
		orgs.POST("/current/complete-setup", middleware.RequireRole(models.RoleOwner, models.RoleAdmin), h.CompleteSetup)
	}
}

// Current returns the authenticated user's organization with trial status.
// GET /api/v1/organizations/current
func (h *OrganizationsHandler) Current(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	org, err := h.store.GetOrganizationByID(c.Request.Context(), user.OrgID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "organization not found"})
			return
		}
		h.logger.Error().Err(err).Str("org_id", user.OrgID.String()).Msg("failed to get organization")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get organization"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"organization":         org,
		"trial_days_remaining": org.TrialDaysRemaining(),
	})
}

// CompleteSetup marks the organization's onboarding as finished.
// POST /api/v1/organizations/current/complete-setup
func (h *OrganizationsHandler) CompleteSetup(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	if err := h.store.CompleteOrganizationSetup(c.Request.Context(), user.OrgID, time.Now()); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "organization not found"})
			return
		}
		h.logger.Error().Err(err).Str("org_id", user.OrgID.String()).Msg("failed to complete setup")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to complete setup"})
		return
	}

	h.logger.Info().Str("org_id", user.OrgID.String()).Msg("organization setup completed")
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}
