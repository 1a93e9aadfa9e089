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
	"github.com/gymkeep/gymkeep/internal/entitlement"
	"github.com/gymkeep/gymkeep/internal/models"
	"github.com/rs/zerolog"
)

// ClassSessionStore defines the interface for class session persistence operations.
type ClassSessionStore interface {
	CreateClassSessionGuarded(ctx context.Context, session *models.ClassSession, sessionLimit int) error
	GetClassSessionByID(ctx context.Context, id uuid.UUID) (*models.ClassSession, error)
	GetClassSessionsByOrgID(ctx context.Context, orgID uuid.UUID) ([]*models.ClassSession, error)
	GetAttendanceBySessionID(ctx context.Context, orgID, sessionID uuid.UUID) ([]*models.AttendanceRecord, error)
}

// ClassSessionsHandler handles class session HTTP endpoints.
type ClassSessionsHandler struct {
	store    ClassSessionStore
	resolver *entitlement.Resolver
	guard    *entitlement.Guard
	logger   zerolog.Logger
}

// NewClassSessionsHandler creates a new ClassSessionsHandler.
func NewClassSessionsHandler(store ClassSessionStore, resolver *entitlement.Resolver, guard *entitlement.Guard, logger zerolog.Logger) *ClassSessionsHandler {
	return &ClassSessionsHandler{
		store:    store,
		resolver: resolver,
		guard:    guard,
		logger:   logger.With().Str("component", "class_sessions_handler").Logger(),
	}
}

// RegisterRoutes registers class session routes on the given router group.
// createGuards run before Create.
func (h *ClassSessionsHandler) RegisterRoutes(r *gin.RouterGroup, createGuards ...gin.HandlerFunc) {
	sessions := r.Group("/class-sessions")
	{
		sessions.GET("", h.List)
		sessions.POST("", append(createGuards, h.Create)...)
		sessions.GET("/:id", h.Get)
		sessions.GET("/:id/attendance", h.Attendance)
	}
}

// CreateClassSessionRequest is the payload for scheduling a class session.
type CreateClassSessionRequest struct {
	Title     string     `json:"title" binding:"required"`
	TrainerID *uuid.UUID `json:"trainer_id"`
	StartsAt  time.Time  `json:"starts_at" binding:"required"`
	EndsAt    time.Time  `json:"ends_at" binding:"required"`
	Capacity  int        `json:"capacity"`
}

// List returns all class sessions for the authenticated user's organization.
// GET /api/v1/class-sessions
func (h *ClassSessionsHandler) List(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	sessions, err := h.store.GetClassSessionsByOrgID(c.Request.Context(), user.OrgID)
	if err != nil {
		h.logger.Error().Err(err).Str("org_id", user.OrgID.String()).Msg("failed to list class sessions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list class sessions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"class_sessions": sessions})
}

// Get returns a specific class session by ID.
// GET /api/v1/class-sessions/:id
func (h *ClassSessionsHandler) Get(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	session, err := h.store.GetClassSessionByID(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			h.logger.Error().Err(err).Str("session_id", id.String()).Msg("failed to get class session")
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "class session not found"})
		return
	}

	// Cross-tenant lookups read as missing, same as sync
	if session.OrgID != user.OrgID {
		c.JSON(http.StatusNotFound, gin.H{"error": "class session not found"})
		return
	}

	c.JSON(http.StatusOK, session)
}

// Create schedules a new class session. The monthly session limit is
// rechecked inside the insert transaction.
// POST /api/v1/class-sessions
func (h *ClassSessionsHandler) Create(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req CreateClassSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !req.EndsAt.After(req.StartsAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ends_at must be after starts_at"})
		return
	}

	limit, err := h.resolver.LimitFor(c.Request.Context(), user.OrgID, entitlement.LimitMaxSessionsMonth)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to resolve session limit")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create class session"})
		return
	}

	session := models.NewClassSession(user.OrgID, req.Title, req.StartsAt, req.EndsAt, req.Capacity)
	session.TrainerID = req.TrainerID

	if err := h.store.CreateClassSessionGuarded(c.Request.Context(), session, limit); err != nil {
		if errors.Is(err, db.ErrLimitReached) {
			h.limitExceeded(c, user.OrgID)
			return
		}
		h.logger.Error().Err(err).Str("title", req.Title).Msg("failed to create class session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create class session"})
		return
	}

	h.logger.Info().Str("session_id", session.ID.String()).Str("org_id", user.OrgID.String()).Msg("class session created")
	c.JSON(http.StatusCreated, session)
}

// Attendance returns attendance records for a class session.
// GET /api/v1/class-sessions/:id/attendance
func (h *ClassSessionsHandler) Attendance(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	records, err := h.store.GetAttendanceBySessionID(c.Request.Context(), user.OrgID, id)
	if err != nil {
		h.logger.Error().Err(err).Str("session_id", id.String()).Msg("failed to list attendance")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list attendance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"attendance": records})
}

func (h *ClassSessionsHandler) limitExceeded(c *gin.Context, orgID uuid.UUID) {
	result, err := h.guard.Check(c.Request.Context(), orgID, entitlement.LimitMaxSessionsMonth)
	if err != nil {
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "limit_exceeded"})
		return
	}
	middleware.LimitExceededResponse(c, result)
}
