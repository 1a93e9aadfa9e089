// Package main provides the gymkeepctl admin CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gymkeep/gymkeep/internal/auth"
	"github.com/gymkeep/gymkeep/internal/db"
	"github.com/gymkeep/gymkeep/internal/metering"
	"github.com/gymkeep/gymkeep/internal/models"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	dbURL   string
	logger  zerolog.Logger
	rootCmd = &cobra.Command{
		Use:   "gymkeepctl",
		Short: "GymKeep server administration tool",
	}
)

func main() {
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger()

	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "database URL (or set DATABASE_URL)")
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createOrgCmd())
	rootCmd.AddCommand(createAdminCmd())
	rootCmd.AddCommand(snapshotCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// connect opens the database using the --db flag or DATABASE_URL.
func connect(ctx context.Context) (*db.DB, error) {
	url := dbURL
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		return nil, fmt.Errorf("database URL required: use --db or set DATABASE_URL")
	}

	cfg := db.DefaultConfig(url)
	cfg.MaxConns = 5
	cfg.MinConns = 1
	return db.New(ctx, cfg, logger)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			database, err := connect(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.Migrate(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			version, err := database.CurrentVersion(ctx)
			if err != nil {
				return err
			}
			logger.Info().Int("version", version).Msg("migrations complete")
			return nil
		},
	}
}

func createOrgCmd() *cobra.Command {
	var name, slug, tier string

	cmd := &cobra.Command{
		Use:   "create-org",
		Short: "Create an organization on a 14-day trial",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			database, err := connect(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			org := models.NewOrganization(name, slug)
			if tier != "" {
				org.LicenseTier = models.LicenseTier(tier)
			}

			if err := database.CreateOrganization(ctx, org); err != nil {
				return err
			}
			logger.Info().
				Str("org_id", org.ID.String()).
				Str("slug", org.Slug).
				Str("tier", string(org.LicenseTier)).
				Msg("organization created")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "organization name")
	cmd.Flags().StringVar(&slug, "slug", "", "URL slug")
	cmd.Flags().StringVar(&tier, "tier", "", "license tier (default starter)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("slug")
	return cmd
}

func createAdminCmd() *cobra.Command {
	var orgSlug, email, name, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an owner account in an organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			database, err := connect(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			org, err := database.GetOrganizationBySlug(ctx, orgSlug)
			if err != nil {
				return fmt.Errorf("load organization %q: %w", orgSlug, err)
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			user := models.NewUser(org.ID, email, name, models.RoleOwner)
			user.PasswordHash = hash

			if err := database.CreateUser(ctx, user); err != nil {
				return err
			}
			logger.Info().
				Str("user_id", user.ID.String()).
				Str("org_id", org.ID.String()).
				Str("email", email).
				Msg("owner account created")
			return nil
		},
	}

	cmd.Flags().StringVar(&orgSlug, "org", "", "organization slug")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func snapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Write a usage snapshot for every organization now",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			database, err := connect(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			meter := metering.NewMeter(database, "", logger)
			orgs, err := database.GetAllOrganizations(ctx)
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			for _, org := range orgs {
				if err := meter.SnapshotOrg(ctx, org.ID, now); err != nil {
					logger.Error().Err(err).Str("org_id", org.ID.String()).Msg("snapshot failed")
					continue
				}
				logger.Info().Str("org_id", org.ID.String()).Msg("snapshot written")
			}
			return nil
		},
	}
}
