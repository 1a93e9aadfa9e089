// Package main is the entrypoint for the GymKeep server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gymkeep/gymkeep/internal/api"
	"github.com/gymkeep/gymkeep/internal/auth"
	"github.com/gymkeep/gymkeep/internal/config"
	"github.com/gymkeep/gymkeep/internal/db"
	"github.com/gymkeep/gymkeep/internal/entitlement"
	"github.com/gymkeep/gymkeep/internal/metering"
	"github.com/rs/zerolog"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("version", Version).Logger()
	if os.Getenv("ENV") != string(config.EnvProduction) {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	logger.Info().
		Str("version", Version).
		Str("commit", Commit).
		Str("build_date", BuildDate).
		Msg("Starting GymKeep server")

	cfg, err := config.LoadServerConfig()
	if err != nil {
		logger.Error().Err(err).Msg("Invalid configuration")
		return 1
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	if cfg.Environment == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database and run migrations
	database, err := db.New(ctx, db.DefaultConfig(cfg.DatabaseURL), logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to connect to database")
		return 1
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to run database migrations")
		return 1
	}

	// Tier catalog (built-in defaults, optional YAML overrides)
	catalog, err := entitlement.LoadCatalog(cfg.TierCatalogFile)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.TierCatalogFile).Msg("Failed to load tier catalog")
		return 1
	}

	// Sessions
	sessionCfg := auth.DefaultSessionConfig(cfg.SessionSecret, cfg.SecureCookies, cfg.SessionMaxAge)
	sessions, err := auth.NewSessionStore(sessionCfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create session store")
		return 1
	}

	// Optional OIDC SSO
	var oidc *auth.OIDCProvider
	oidcCfg := auth.DefaultOIDCConfig(cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret, cfg.OIDCRedirectURL)
	if oidcCfg.Enabled() {
		oidc, err = auth.NewOIDCProvider(ctx, oidcCfg, logger)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to initialize OIDC provider")
			return 1
		}
	}

	// API router
	apiCfg := api.DefaultConfig()
	apiCfg.Environment = cfg.Environment
	apiCfg.AllowedOrigins = cfg.CORSOrigins
	apiCfg.RateLimit = cfg.RateLimit
	apiCfg.SyncRateLimit = cfg.SyncRateLimit
	apiCfg.RedisURL = cfg.RedisURL
	apiCfg.Version = Version
	apiCfg.Commit = Commit
	apiCfg.BuildDate = BuildDate

	router, err := api.NewRouter(apiCfg, database, catalog, sessions, oidc, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create API router")
		return 1
	}

	// Nightly usage snapshots
	var meter *metering.Meter
	if cfg.SnapshotSchedule != "" {
		meter = metering.NewMeter(database, cfg.SnapshotSchedule, logger)
		if err := meter.Start(); err != nil {
			logger.Error().Err(err).Msg("Failed to start metering")
			return 1
		}
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("HTTP server error")
			cancel()
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down server")
	case <-ctx.Done():
	}

	if meter != nil {
		<-meter.Stop().Done()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown error")
		return 1
	}

	logger.Info().Msg("Server stopped gracefully")
	return 0
}
