// Package handlers provides HTTP handlers for the GymKeep API.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gymkeep/gymkeep/internal/api/middleware"
	"github.com/gymkeep/gymkeep/internal/db"
	"github.com/gymkeep/gymkeep/internal/entitlement"
	"github.com/gymkeep/gymkeep/internal/models"
	"github.com/rs/zerolog"
)

// StudentStore defines the interface for student persistence operations.
type StudentStore interface {
	CreateStudentGuarded(ctx context.Context, student *models.Student, studentLimit int) error
	GetStudentByID(ctx context.Context, orgID, id uuid.UUID) (*models.Student, error)
	GetStudentsByOrgID(ctx context.Context, orgID uuid.UUID) ([]*models.Student, error)
	ArchiveStudent(ctx context.Context, orgID, id uuid.UUID) error
}

// StudentsHandler handles student-related HTTP endpoints.
type StudentsHandler struct {
	store    StudentStore
	resolver *entitlement.Resolver
	guard    *entitlement.Guard
	logger   zerolog.Logger
}

// NewStudentsHandler creates a new StudentsHandler.
func NewStudentsHandler(store StudentStore, resolver *entitlement.Resolver, guard *entitlement.Guard, logger zerolog.Logger) *StudentsHandler {
	return &StudentsHandler{
		store:    store,
		resolver: resolver,
		guard:    guard,
		logger:   logger.With().Str("component", "students_handler").Logger(),
	}
}

// RegisterRoutes registers student routes on the given router group.
// createGuards run before Create, typically a LimitMiddleware fast path that
// rejects over-limit requests before they reach the store.
func (h *StudentsHandler) RegisterRoutes(r *gin.RouterGroup, createGuards ...gin.HandlerFunc) {
	students := r.Group("/students")
	{
		students.GET("", h.List)
		students.POST("", append(createGuards, h.Create)...)
		students.GET("/:id", h.Get)
		students.POST("/:id/archive", h.Archive)
	}
}

// CreateStudentRequest is the payload for creating a student.
type CreateStudentRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// List returns all students for the authenticated user's organization.
// GET /api/v1/students
func (h *StudentsHandler) List(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	students, err := h.store.GetStudentsByOrgID(c.Request.Context(), user.OrgID)
	if err != nil {
		h.logger.Error().Err(err).Str("org_id", user.OrgID.String()).Msg("failed to list students")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list students"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"students": students})
}

// Get returns a specific student by ID. Students belonging to another
// organization are reported as not found.
// GET /api/v1/students/:id
func (h *StudentsHandler) Get(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student ID"})
		return
	}

	student, err := h.store.GetStudentByID(c.Request.Context(), user.OrgID, id)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			h.logger.Error().Err(err).Str("student_id", id.String()).Msg("failed to get student")
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
		return
	}

	c.JSON(http.StatusOK, student)
}

// Create creates a new student. The student limit is rechecked inside the
// insert transaction, so two concurrent creates cannot both land past the cap.
// POST /api/v1/students
func (h *StudentsHandler) Create(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit, err := h.resolver.LimitFor(c.Request.Context(), user.OrgID, entitlement.LimitMaxStudents)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to resolve student limit")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create student"})
		return
	}

	student := models.NewStudent(user.OrgID, req.Name, req.Email, req.Phone)

	if err := h.store.CreateStudentGuarded(c.Request.Context(), student, limit); err != nil {
		if errors.Is(err, db.ErrLimitReached) {
			h.limitExceeded(c, user.OrgID)
			return
		}
		h.logger.Error().Err(err).Str("name", req.Name).Msg("failed to create student")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create student"})
		return
	}

	h.logger.Info().Str("student_id", student.ID.String()).Str("org_id", user.OrgID.String()).Msg("student created")
	c.JSON(http.StatusCreated, student)
}

// Archive archives a student so they stop counting against the limit.
// POST /api/v1/students/:id/archive
func (h *StudentsHandler) Archive(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student ID"})
		return
	}

	if err := h.store.ArchiveStudent(c.Request.Context(), user.OrgID, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
			return
		}
		h.logger.Error().Err(err).Str("student_id", id.String()).Msg("failed to archive student")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to archive student"})
		return
	}

	h.logger.Info().Str("student_id", id.String()).Msg("student archived")
	c.JSON(http.StatusOK, gin.H{"status": "archived"})
}

// limitExceeded re-runs the limit check to build the upsell payload after the
// in-transaction recount rejected the insert.
func (h *StudentsHandler) limitExceeded(c *gin.Context, orgID uuid.UUID) {
	result, err := h.guard.Check(c.Request.Context(), orgID, entitlement.LimitMaxStudents)
	if err != nil {
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "limit_exceeded"})
		return
	}
	middleware.LimitExceededResponse(c, result)
}
