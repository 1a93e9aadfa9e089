// Package api provides the HTTP API for the GymKeep server.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/gymkeep/gymkeep/internal/api/handlers"
	"github.com/gymkeep/gymkeep/internal/api/middleware"
	"github.com/gymkeep/gymkeep/internal/auth"
	"github.com/gymkeep/gymkeep/internal/config"
	"github.com/gymkeep/gymkeep/internal/db"
	"github.com/gymkeep/gymkeep/internal/entitlement"
	"github.com/gymkeep/gymkeep/internal/metrics"
	gymsync "github.com/gymkeep/gymkeep/internal/sync"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// Config holds configuration for the API router.
type Config struct {
	Environment config.Environment
	// AllowedOrigins for CORS. Empty means all origins allowed in dev mode.
	AllowedOrigins []string
	// RateLimit is the global request limit in limiter notation (e.g. "300-M").
	RateLimit string
	// SyncRateLimit is the tighter limit applied to the sync endpoints, which
	// can carry large offline batches.
	SyncRateLimit string
	// RedisURL backs rate limit counters when set.
	RedisURL string
	// Version information for the version endpoint.
	Version   string
	Commit    string
	BuildDate string
}

// DefaultConfig returns a Config with sensible defaults for development.
func DefaultConfig() Config {
	return Config{
		Environment:    config.EnvDevelopment,
		AllowedOrigins: []string{},
		RateLimit:      "300-M",
		SyncRateLimit:  "60-M",
		Version:        "dev",
		Commit:         "unknown",
		BuildDate:      "unknown",
	}
}

// Router wraps a Gin engine with configured middleware and routes.
type Router struct {
	Engine   *gin.Engine
	Registry *prometheus.Registry
	logger   zerolog.Logger
}

// NewRouter creates a new Router with the given dependencies. The oidc
// provider may be nil when SSO is not configured.
func NewRouter(
	cfg Config,
	database *db.DB,
	catalog *entitlement.Catalog,
	sessions *auth.SessionStore,
	oidc *auth.OIDCProvider,
	logger zerolog.Logger,
) (*Router, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	syncMetrics := metrics.NewSyncMetrics(registry)

	resolver := entitlement.NewResolver(database, catalog, logger)
	usage := entitlement.NewAggregator(database)
	guard := entitlement.NewGuard(resolver, usage, catalog, logger)
	gateway := gymsync.NewGateway(database, syncMetrics, logger)

	r := &Router{
		Engine:   gin.New(),
		Registry: registry,
		logger:   logger.With().Str("component", "router").Logger(),
	}

	// Global middleware
	r.Engine.Use(gin.Recovery())
	r.Engine.Use(middleware.RequestLogger(logger))
	r.Engine.Use(middleware.CORS(cfg.AllowedOrigins, cfg.Environment, logger))

	rateLimiter, err := middleware.NewRateLimiter(cfg.RateLimit, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	r.Engine.Use(rateLimiter)

	// Public endpoints
	healthHandler := handlers.NewHealthHandler(database, logger)
	healthHandler.RegisterPublicRoutes(r.Engine)

	metricsHandler := handlers.NewMetricsHandler(registry)
	metricsHandler.RegisterPublicRoutes(r.Engine)

	versionHandler := handlers.NewVersionHandler(cfg.Version, cfg.Commit, cfg.BuildDate, logger)
	versionHandler.RegisterPublicRoutes(r.Engine)

	// Auth routes (no auth required)
	authGroup := r.Engine.Group("/auth")
	authHandler := handlers.NewAuthHandler(database, sessions, oidc, logger)
	authHandler.RegisterRoutes(authGroup)

	// API v1 routes (session auth required)
	apiV1 := r.Engine.Group("/api/v1")
	apiV1.Use(middleware.AuthMiddleware(sessions, logger))
	apiV1.Use(middleware.UserVerifyMiddleware(database, sessions, logger))

	entitlementsHandler := handlers.NewEntitlementsHandler(resolver, guard, catalog, logger)
	entitlementsHandler.RegisterRoutes(apiV1)

	// Creation routes get an advisory limit check as a fast path; the
	// guarded store insert recounts authoritatively inside the transaction.
	studentsHandler := handlers.NewStudentsHandler(database, resolver, guard, logger)
	studentsHandler.RegisterRoutes(apiV1,
		middleware.LimitMiddleware(guard, entitlement.LimitMaxStudents, syncMetrics, logger))

	classSessionsHandler := handlers.NewClassSessionsHandler(database, resolver, guard, logger)
	classSessionsHandler.RegisterRoutes(apiV1,
		middleware.LimitMiddleware(guard, entitlement.LimitMaxSessionsMonth, syncMetrics, logger))

	paymentsHandler := handlers.NewPaymentsHandler(database, logger)
	paymentsHandler.RegisterRoutes(apiV1)

	staffHandler := handlers.NewStaffHandler(database, resolver, guard, logger)
	staffHandler.RegisterRoutes(apiV1)

	orgsHandler := handlers.NewOrganizationsHandler(database, logger)
	orgsHandler.RegisterRoutes(apiV1)

	usageHandler := handlers.NewUsageHandler(database, usage, resolver, logger)
	usageHandler.RegisterRoutes(apiV1)

	// Sync endpoints get their own, tighter rate limit
	syncLimiter, err := middleware.NewRateLimiter(cfg.SyncRateLimit, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	syncGroup := apiV1.Group("")
	syncGroup.Use(syncLimiter)

	syncHandler := handlers.NewSyncHandler(gateway, logger)
	syncHandler.RegisterRoutes(syncGroup)

	r.logger.Info().Msg("API router initialized")
	return r, nil
}
