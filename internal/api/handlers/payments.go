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

// PaymentStore defines the interface for payment persistence operations.
type PaymentStore interface {
	InsertPayment(ctx context.Context, payment *models.PaymentRecord) (*models.PaymentRecord, bool, error)
	GetPaymentByID(ctx context.Context, orgID, id uuid.UUID) (*models.PaymentRecord, error)
	GetPaymentsByOrgID(ctx context.Context, orgID uuid.UUID, limit int) ([]*models.PaymentRecord, error)
	GetStudentByID(ctx context.Context, orgID, id uuid.UUID) (*models.Student, error)
}

// PaymentsHandler handles payment HTTP endpoints for online (non-sync) use.
type PaymentsHandler struct {
	store  PaymentStore
	logger zerolog.Logger
}

// NewPaymentsHandler creates a new PaymentsHandler.
func NewPaymentsHandler(store PaymentStore, logger zerolog.Logger) *PaymentsHandler {
	return &PaymentsHandler{
		store:  store,
		logger: logger.With().Str("component", "payments_handler").Logger(),
	}
}

// RegisterRoutes registers payment routes on the given router group.
func (h *PaymentsHandler) RegisterRoutes(r *gin.RouterGroup) {
	payments := r.Group("/payments")
	{
		payments.GET("", h.List)
		payments.POST("", h.Create)
		payments.GET("/:id", h.Get)
	}
}

// CreatePaymentRequest is the payload for recording a payment.
type CreatePaymentRequest struct {
	StudentID     uuid.UUID            `json:"student_id" binding:"required"`
	AmountCents   int64                `json:"amount_cents" binding:"required"`
	PaymentType   models.PaymentType   `json:"payment_type" binding:"required"`
	PaymentMethod models.PaymentMethod `json:"payment_method" binding:"required"`
	Status        models.PaymentStatus `json:"status"`
	PaidDate      *time.Time           `json:"paid_date"`
	DueDate       *time.Time           `json:"due_date"`
	Notes         string               `json:"notes"`
}

// List returns recent payments for the authenticated user's organization.
// GET /api/v1/payments
func (h *PaymentsHandler) List(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	payments, err := h.store.GetPaymentsByOrgID(c.Request.Context(), user.OrgID, 0)
	if err != nil {
		h.logger.Error().Err(err).Str("org_id", user.OrgID.String()).Msg("failed to list payments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list payments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

// Get returns a specific payment by ID.
// GET /api/v1/payments/:id
func (h *PaymentsHandler) Get(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment ID"})
		return
	}

	payment, err := h.store.GetPaymentByID(c.Request.Context(), user.OrgID, id)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			h.logger.Error().Err(err).Str("payment_id", id.String()).Msg("failed to get payment")
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		return
	}

	c.JSON(http.StatusOK, payment)
}

// Create records a payment made at the front desk. Unlike the sync endpoint
// this path has no idempotency token; the client is online and sees the
// response directly.
// POST /api/v1/payments
func (h *PaymentsHandler) Create(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.AmountCents <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount_cents must be positive"})
		return
	}

	// Verify the student belongs to this organization
	if _, err := h.store.GetStudentByID(c.Request.Context(), user.OrgID, req.StudentID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
			return
		}
		h.logger.Error().Err(err).Str("student_id", req.StudentID.String()).Msg("failed to load student")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create payment"})
		return
	}

	now := time.Now()
	status := req.Status
	if status == "" {
		status = models.PaymentPaid
	}
	paidDate := now
	if req.PaidDate != nil {
		paidDate = *req.PaidDate
	}
	dueDate := paidDate
	if req.DueDate != nil {
		dueDate = *req.DueDate
	}

	payment := &models.PaymentRecord{
		ID:            uuid.New(),
		OrgID:         user.OrgID,
		StudentID:     req.StudentID,
		AmountCents:   req.AmountCents,
		PaymentType:   req.PaymentType,
		PaymentMethod: req.PaymentMethod,
		Status:        status,
		PaidDate:      paidDate,
		DueDate:       dueDate,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	created, _, err := h.store.InsertPayment(c.Request.Context(), payment)
	if err != nil {
		h.logger.Error().Err(err).Str("student_id", req.StudentID.String()).Msg("failed to create payment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create payment"})
		return
	}

	h.logger.Info().
		Str("payment_id", created.ID.String()).
		Int64("amount_cents", created.AmountCents).
		Msg("payment recorded")
	c.JSON(http.StatusCreated, created)
}
