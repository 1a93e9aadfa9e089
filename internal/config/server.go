// Package config provides configuration management for GymKeep.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment represents the deployment environment.
type Environment string

const (
	// EnvDevelopment is the default local development environment.
	EnvDevelopment Environment = "development"
	// EnvStaging is the staging/pre-production environment.
	EnvStaging Environment = "staging"
	// EnvProduction is the production environment.
	EnvProduction Environment = "production"
)

// ServerConfig holds server-level configuration loaded from environment variables.
type ServerConfig struct {
	Environment Environment
	ListenAddr  string // default ":8080"
	DatabaseURL string
	LogLevel    string // zerolog level name (default "info")

	SessionSecret []byte
	SessionMaxAge int // session lifetime in seconds (default: 86400)
	SecureCookies bool

	// CORSOrigins lists the browser origins allowed to call the API.
	// Must be set in production; empty in development allows all origins.
	CORSOrigins []string

	// TierCatalogFile optionally overrides the built-in tier catalog.
	TierCatalogFile string

	// RedisURL, when set, backs the rate limiter with Redis instead of
	// in-process memory.
	RedisURL      string
	RateLimit     string // limiter format, e.g. "100-M"
	SyncRateLimit string // tighter limit for the offline sync endpoints

	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string

	// SnapshotSchedule is the cron expression for the nightly usage
	// snapshot job. Empty disables the job; set SNAPSHOT_SCHEDULE=off to
	// disable it explicitly.
	SnapshotSchedule string
}

// LoadServerConfig reads server configuration from environment variables.
// It returns an error for settings the server cannot run without.
func LoadServerConfig() (ServerConfig, error) {
	env := Environment(os.Getenv("ENV"))
	switch env {
	case EnvDevelopment, EnvStaging, EnvProduction:
		// valid
	default:
		env = EnvDevelopment
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return ServerConfig{}, fmt.Errorf("DATABASE_URL is required")
	}

	secret := os.Getenv("SESSION_SECRET")
	if len(secret) < 32 {
		return ServerConfig{}, fmt.Errorf("SESSION_SECRET must be at least 32 bytes")
	}

	sessionMaxAge := getEnvInt("SESSION_MAX_AGE", 86400)
	if sessionMaxAge < 0 {
		sessionMaxAge = 86400
	}

	var corsOrigins []string
	for _, origin := range strings.Split(os.Getenv("CORS_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			corsOrigins = append(corsOrigins, origin)
		}
	}

	snapshotSchedule := getEnvString("SNAPSHOT_SCHEDULE", "0 2 * * *")
	if strings.EqualFold(snapshotSchedule, "off") {
		snapshotSchedule = ""
	}

	return ServerConfig{
		Environment:      env,
		ListenAddr:       getEnvString("LISTEN_ADDR", ":8080"),
		DatabaseURL:      databaseURL,
		LogLevel:         getEnvString("LOG_LEVEL", "info"),
		SessionSecret:    []byte(secret),
		SessionMaxAge:    sessionMaxAge,
		SecureCookies:    getEnvBool("SECURE_COOKIES", env == EnvProduction),
		CORSOrigins:      corsOrigins,
		TierCatalogFile:  os.Getenv("TIER_CATALOG_FILE"),
		RedisURL:         os.Getenv("REDIS_URL"),
		RateLimit:        getEnvString("RATE_LIMIT", "300-M"),
		SyncRateLimit:    getEnvString("SYNC_RATE_LIMIT", "60-M"),
		OIDCIssuer:       os.Getenv("OIDC_ISSUER"),
		OIDCClientID:     os.Getenv("OIDC_CLIENT_ID"),
		OIDCClientSecret: os.Getenv("OIDC_CLIENT_SECRET"),
		OIDCRedirectURL:  os.Getenv("OIDC_REDIRECT_URL"),
		SnapshotSchedule: snapshotSchedule,
	}, nil
}

// getEnvString reads a string from an environment variable, returning the default if unset.
func getEnvString(key, defaultVal string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvBool reads a boolean from an environment variable, returning the default if unset or invalid.
func getEnvBool(key string, defaultVal bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultVal
	}
}

// getEnvInt reads an integer from an environment variable, returning the default if unset or invalid.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
