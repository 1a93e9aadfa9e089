package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gymkeep/gymkeep/internal/api/middleware"
	"github.com/gymkeep/gymkeep/internal/entitlement"
	"github.com/gymkeep/gymkeep/internal/models"
	"github.com/rs/zerolog"
)

// UsageStore defines the interface for usage snapshot reads.
type UsageStore interface {
	GetUsageSnapshots(ctx context.Context, orgID uuid.UUID, days int) ([]*models.UsageSnapshot, error)
}

// UsageHandler reports current usage against tier limits plus snapshot
// history for dashboard charts. Current numbers always come from live counts;
// snapshots are history only.
type UsageHandler struct {
	store    UsageStore
	usage    *entitlement.Aggregator
	resolver *entitlement.Resolver
	logger   zerolog.Logger
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(store UsageStore, usage *entitlement.Aggregator, resolver *entitlement.Resolver, logger zerolog.Logger) *UsageHandler {
	return &UsageHandler{
		store:    store,
		usage:    usage,
		resolver: resolver,
		logger:   logger.With().Str("component", "usage_handler").Logger(),
	}
}

// RegisterRoutes registers usage routes on the given router group.
func (h *UsageHandler) RegisterRoutes(r *gin.RouterGroup) {
	usage := r.Group("/usage")
	{
		usage.GET("/current", h.Current)
		usage.GET("/history", h.History)
	}
}

// Current returns live usage counts alongside the organization's limits.
// GET /api/v1/usage/current
func (h *UsageHandler) Current(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	ctx := c.Request.Context()
	keys := []entitlement.LimitKey{
		entitlement.LimitMaxStudents,
		entitlement.LimitMaxTrainers,
		entitlement.LimitMaxSessionsMonth,
	}

	usage := make(map[string]gin.H, len(keys))
	for _, key := range keys {
		current, err := h.usage.CurrentUsage(ctx, user.OrgID, key)
		if err != nil {
			h.logger.Error().Err(err).Str("limit_key", string(key)).Msg("failed to count usage")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute usage"})
			return
		}
		limit, err := h.resolver.LimitFor(ctx, user.OrgID, key)
		if err != nil {
			h.logger.Error().Err(err).Str("limit_key", string(key)).Msg("failed to resolve limit")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute usage"})
			return
		}
		usage[string(key)] = gin.H{
			"current":   current,
			"limit":     limit,
			"unlimited": entitlement.IsUnlimited(limit),
		}
	}

	c.JSON(http.StatusOK, gin.H{"usage": usage})
}

// History returns daily usage snapshots for the last N days (default 30).
// GET /api/v1/usage/history?days=N
func (h *UsageHandler) History(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	days := 0
	if param := c.Query("days"); param != "" {
		n, err := strconv.Atoi(param)
		if err != nil || n < 1 || n > 365 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 365"})
			return
		}
		days = n
	}

	snapshots, err := h.store.GetUsageSnapshots(c.Request.Context(), user.OrgID, days)
	if err != nil {
		h.logger.Error().Err(err).Str("org_id", user.OrgID.String()).Msg("failed to list usage snapshots")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list usage history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"snapshots": snapshots})
}
