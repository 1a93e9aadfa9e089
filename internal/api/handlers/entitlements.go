package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gymkeep/gymkeep/internal/api/middleware"
	"github.com/gymkeep/gymkeep/internal/db"
	"github.com/gymkeep/gymkeep/internal/entitlement"
	"github.com/rs/zerolog"
)

// EntitlementsHandler answers tier, feature, and limit queries for the
// authenticated user's organization. The action is dispatched from a query
// parameter so offline clients can probe entitlements through one cached URL
// shape.
type EntitlementsHandler struct {
	resolver *entitlement.Resolver
	guard    *entitlement.Guard
	catalog  *entitlement.Catalog
	logger   zerolog.Logger
}

// NewEntitlementsHandler creates a new EntitlementsHandler.
func NewEntitlementsHandler(resolver *entitlement.Resolver, guard *entitlement.Guard, catalog *entitlement.Catalog, logger zerolog.Logger) *EntitlementsHandler {
	return &EntitlementsHandler{
		resolver: resolver,
		guard:    guard,
		catalog:  catalog,
		logger:   logger.With().Str("component", "entitlements_handler").Logger(),
	}
}

// RegisterRoutes registers entitlement routes on the given router group.
func (h *EntitlementsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/entitlements", h.Query)
}

// Query dispatches on the action query parameter.
// GET /api/v1/entitlements?action=currentTier|checkFeature|checkLimit
func (h *EntitlementsHandler) Query(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	switch c.Query("action") {
	case "currentTier":
		h.currentTier(c)
	case "checkFeature":
		h.checkFeature(c)
	case "checkLimit":
		h.checkLimit(c)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action"})
	}
}

func (h *EntitlementsHandler) currentTier(c *gin.Context) {
	user := middleware.GetUser(c)

	resolved, err := h.resolver.ResolveTier(c.Request.Context(), user.OrgID)
	if err != nil {
		h.fail(c, err, "failed to resolve tier")
		return
	}

	def, err := h.catalog.DefinitionFor(resolved.Tier)
	if err != nil {
		h.fail(c, err, "failed to resolve tier definition")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tier":                resolved.Tier,
		"subscription_status": resolved.SubscriptionStatus,
		"degraded":            resolved.Degraded,
		"features":            def.Features,
		"limits":              def.Limits,
	})
}

func (h *EntitlementsHandler) checkFeature(c *gin.Context) {
	user := middleware.GetUser(c)

	feature := entitlement.FeatureKey(c.Query("feature"))
	if feature == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "feature parameter required"})
		return
	}

	hasAccess, err := h.resolver.HasFeature(c.Request.Context(), user.OrgID, feature)
	if err != nil {
		h.fail(c, err, "failed to check feature")
		return
	}

	c.JSON(http.StatusOK, gin.H{"has_access": hasAccess})
}

func (h *EntitlementsHandler) checkLimit(c *gin.Context) {
	user := middleware.GetUser(c)

	key := entitlement.LimitKey(c.Query("limitType"))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limitType parameter required"})
		return
	}

	result, err := h.guard.Check(c.Request.Context(), user.OrgID, key)
	if err != nil {
		h.fail(c, err, "failed to check limit")
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *EntitlementsHandler) fail(c *gin.Context, err error, msg string) {
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "organization not found"})
		return
	}
	h.logger.Error().Err(err).Msg(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
