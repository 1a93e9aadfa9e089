package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gymkeep/gymkeep/internal/api/middleware"
	"github.com/gymkeep/gymkeep/internal/db"
	gymsync "github.com/gymkeep/gymkeep/internal/sync"
	"github.com/rs/zerolog"
)

// SyncHandler exposes the offline sync endpoints. Validation failures map to
// 400, tenant mismatches and missing entities both map to 404 so callers
// cannot probe other tenants' data, and everything else is a 500.
type SyncHandler struct {
	gateway *gymsync.Gateway
	logger  zerolog.Logger
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(gateway *gymsync.Gateway, logger zerolog.Logger) *SyncHandler {
	return &SyncHandler{
		gateway: gateway,
		logger:  logger.With().Str("component", "sync_handler").Logger(),
	}
}

// RegisterRoutes registers sync routes on the given router group.
func (h *SyncHandler) RegisterRoutes(r *gin.RouterGroup) {
	sync := r.Group("/sync")
	{
		sync.POST("/attendance", h.Attendance)
		sync.POST("/payments", h.Payment)
		sync.POST("/batch", h.Batch)
	}
}

// BatchRequest is the payload for a batch sync submission.
type BatchRequest struct {
	Events []gymsync.BatchEvent `json:"events" binding:"required"`
}

// Attendance applies a single offline attendance event.
// POST /api/v1/sync/attendance
func (h *SyncHandler) Attendance(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var event gymsync.AttendanceEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.gateway.SyncAttendance(c.Request.Context(), user.OrgID, user.ID, event)
	if err != nil {
		h.syncError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Payment applies a single offline payment event.
// POST /api/v1/sync/payments
func (h *SyncHandler) Payment(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var event gymsync.PaymentEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.gateway.SyncPayment(c.Request.Context(), user.OrgID, event)
	if err != nil {
		h.syncError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Batch applies a batch of offline events, returning per-event outcomes.
// The response is always 200; individual failures are reported per event.
// POST /api/v1/sync/batch
func (h *SyncHandler) Batch(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcomes := h.gateway.SyncBatch(c.Request.Context(), user.OrgID, user.ID, req.Events)
	c.JSON(http.StatusOK, gin.H{"results": outcomes})
}

func (h *SyncHandler) syncError(c *gin.Context, err error) {
	var validationErr *gymsync.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Msg})
	case errors.Is(err, gymsync.ErrTenantMismatch), errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		h.logger.Error().Err(err).Msg("sync event failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
