package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gymkeep/gymkeep/internal/api/middleware"
	"github.com/gymkeep/gymkeep/internal/auth"
	"github.com/gymkeep/gymkeep/internal/db"
	"github.com/gymkeep/gymkeep/internal/entitlement"
	"github.com/gymkeep/gymkeep/internal/models"
	"github.com/rs/zerolog"
)

// StaffStore defines the interface for staff user persistence operations.
type StaffStore interface {
	CreateUserGuarded(ctx context.Context, user *models.User, trainerLimit int) error
	GetUsersByOrgID(ctx context.Context, orgID uuid.UUID) ([]*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// StaffHandler handles staff user HTTP endpoints.
type StaffHandler struct {
	store    StaffStore
	resolver *entitlement.Resolver
	guard    *entitlement.Guard
	logger   zerolog.Logger
}

// NewStaffHandler creates a new StaffHandler.
func NewStaffHandler(store StaffStore, resolver *entitlement.Resolver, guard *entitlement.Guard, logger zerolog.Logger) *StaffHandler {
	return &StaffHandler{
		store:    store,
		resolver: resolver,
		guard:    guard,
		logger:   logger.With().Str("component", "staff_handler").Logger(),
	}
}

// RegisterRoutes registers staff routes on the given router group. Creation
// is restricted to owners and admins. The trainer limit has no middleware
// fast path here because only trainer-role staff count against it; the
// handler applies the limit after inspecting the requested role.
func (h *StaffHandler) RegisterRoutes(r *gin.RouterGroup) {
	staff := r.Group("/staff")
	{
		staff.GET("", h.List)
		staff.POST("", middleware.RequireRole(models.RoleOwner, models.RoleAdmin), h.Create)
		staff.GET("/:id", h.Get)
	}
}

// CreateStaffRequest is the payload for creating a staff member.
type CreateStaffRequest struct {
	Email    string          `json:"email" binding:"required,email"`
	Name     string          `json:"name" binding:"required"`
	Role     models.UserRole `json:"role" binding:"required"`
	Password string          `json:"password" binding:"required"`
}

// List returns all staff for the authenticated user's organization.
// GET /api/v1/staff
func (h *StaffHandler) List(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	users, err := h.store.GetUsersByOrgID(c.Request.Context(), user.OrgID)
	if err != nil {
		h.logger.Error().Err(err).Str("org_id", user.OrgID.String()).Msg("failed to list staff")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list staff"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"staff": users})
}

// Get returns a specific staff member by ID.
// GET /api/v1/staff/:id
func (h *StaffHandler) Get(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	staff, err := h.store.GetUserByID(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			h.logger.Error().Err(err).Str("user_id", id.String()).Msg("failed to get staff member")
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	if staff.OrgID != user.OrgID {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, staff)
}

// Create creates a new staff member. Trainer-role creation counts against the
// trainer limit, rechecked inside the insert transaction.
// POST /api/v1/staff
func (h *StaffHandler) Create(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch req.Role {
	case models.RoleOwner, models.RoleAdmin, models.RoleTrainer, models.RoleFrontDesk:
		// valid
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit, err := h.resolver.LimitFor(c.Request.Context(), user.OrgID, entitlement.LimitMaxTrainers)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to resolve trainer limit")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create staff member"})
		return
	}

	staff := models.NewUser(user.OrgID, req.Email, req.Name, req.Role)
	staff.PasswordHash = hash

	if err := h.store.CreateUserGuarded(c.Request.Context(), staff, limit); err != nil {
		if errors.Is(err, db.ErrLimitReached) {
			h.limitExceeded(c, user.OrgID)
			return
		}
		h.logger.Error().Err(err).Str("email", req.Email).Msg("failed to create staff member")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create staff member"})
		return
	}

	h.logger.Info().
		Str("user_id", staff.ID.String()).
		Str("role", string(staff.Role)).
		Msg("staff member created")
	c.JSON(http.StatusCreated, staff)
}

func (h *StaffHandler) limitExceeded(c *gin.Context, orgID uuid.UUID) {
	result, err := h.guard.Check(c.Request.Context(), orgID, entitlement.LimitMaxTrainers)
	if err != nil {
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "limit_exceeded"})
		return
	}
	middleware.LimitExceededResponse(c, result)
}
