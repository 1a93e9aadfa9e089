package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gymkeep/gymkeep/internal/auth"
	"github.com/gymkeep/gymkeep/internal/db"
	"github.com/gymkeep/gymkeep/internal/models"
	"github.com/rs/zerolog"
)

// AuthStore defines the interface for authentication lookups.
type AuthStore interface {
	GetOrganizationBySlug(ctx context.Context, slug string) (*models.Organization, error)
	GetUserByEmail(ctx context.Context, orgID uuid.UUID, email string) (*models.User, error)
	GetUserByOIDCSubject(ctx context.Context, subject string) (*models.User, error)
}

// AuthHandler handles login, logout, and the optional OIDC flow. The oidc
// field is nil when SSO is not configured; the routes then reject with 404.
type AuthHandler struct {
	store    AuthStore
	sessions *auth.SessionStore
	oidc     *auth.OIDCProvider
	logger   zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store AuthStore, sessions *auth.SessionStore, oidc *auth.OIDCProvider, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		store:    store,
		sessions: sessions,
		oidc:     oidc,
		logger:   logger.With().Str("component", "auth_handler").Logger(),
	}
}

// RegisterRoutes registers auth routes on the given router group.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)
	r.GET("/me", h.Me)
	r.GET("/oidc/login", h.OIDCLogin)
	r.GET("/oidc/callback", h.OIDCCallback)
}

// LoginRequest is the payload for password login. Emails are unique per
// organization, so the organization slug is part of the credentials.
type LoginRequest struct {
	Org      string `json:"org" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates a user with org slug, email, and password.
// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	org, err := h.store.GetOrganizationBySlug(c.Request.Context(), req.Org)
	if err != nil {
		h.rejectLogin(c, err, req.Email)
		return
	}

	user, err := h.store.GetUserByEmail(c.Request.Context(), org.ID, req.Email)
	if err != nil {
		h.rejectLogin(c, err, req.Email)
		return
	}

	if user.PasswordHash == "" || !auth.CheckPassword(user.PasswordHash, req.Password) {
		h.logger.Info().Str("email", req.Email).Msg("login rejected: bad credentials")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if err := h.establishSession(c, user); err != nil {
		h.logger.Error().Err(err).Msg("failed to establish session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	h.logger.Info().
		Str("user_id", user.ID.String()).
		Str("org_id", user.OrgID.String()).
		Msg("user logged in")
	c.JSON(http.StatusOK, user)
}

// Logout clears the session.
// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.ClearUser(c.Request, c.Writer); err != nil {
		h.logger.Warn().Err(err).Msg("failed to clear session")
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

// Me returns the current session identity.
// GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.sessions.GetUser(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":     user.ID,
		"org_id": user.OrgID,
		"email":  user.Email,
		"name":   user.Name,
		"role":   user.Role,
	})
}

// OIDCLogin starts the OIDC authorization flow.
// GET /auth/oidc/login
func (h *AuthHandler) OIDCLogin(c *gin.Context) {
	if h.oidc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "SSO not configured"})
		return
	}

	state, err := auth.GenerateState()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to generate OIDC state")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	if err := h.sessions.SetOIDCState(c.Request, c.Writer, state); err != nil {
		h.logger.Error().Err(err).Msg("failed to store OIDC state")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.Redirect(http.StatusFound, h.oidc.AuthorizationURL(state))
}

// OIDCCallback completes the OIDC flow. The subject claim must match an
// existing user; there is no just-in-time provisioning.
// GET /auth/oidc/callback
func (h *AuthHandler) OIDCCallback(c *gin.Context) {
	if h.oidc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "SSO not configured"})
		return
	}

	expectedState, err := h.sessions.GetOIDCState(c.Request, c.Writer)
	if err != nil || c.Query("state") != expectedState {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid state"})
		return
	}

	token, err := h.oidc.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		h.logger.Warn().Err(err).Msg("OIDC code exchange failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		return
	}

	claims, err := h.oidc.VerifyIDToken(c.Request.Context(), token)
	if err != nil {
		h.logger.Warn().Err(err).Msg("OIDC token verification failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		return
	}

	user, err := h.store.GetUserByOIDCSubject(c.Request.Context(), claims.Subject)
	if err != nil {
		h.logger.Info().Str("subject", claims.Subject).Msg("OIDC subject has no local account")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no account for this identity"})
		return
	}

	if err := h.establishSession(c, user); err != nil {
		h.logger.Error().Err(err).Msg("failed to establish session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	h.logger.Info().
		Str("user_id", user.ID.String()).
		Str("org_id", user.OrgID.String()).
		Msg("user logged in via SSO")
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) establishSession(c *gin.Context, user *models.User) error {
	return h.sessions.SetUser(c.Request, c.Writer, &auth.SessionUser{
		ID:              user.ID,
		OrgID:           user.OrgID,
		Role:            user.Role,
		Email:           user.Email,
		Name:            user.Name,
		AuthenticatedAt: time.Now(),
	})
}

// rejectLogin hides whether the org or the account was the missing piece.
func (h *AuthHandler) rejectLogin(c *gin.Context, err error, email string) {
	if !errors.Is(err, db.ErrNotFound) {
		h.logger.Error().Err(err).Msg("login lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	h.logger.Info().Str("email", email).Msg("login rejected: unknown account")
	c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
}
