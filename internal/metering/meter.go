// Package metering records daily usage snapshots for dashboard history.
// Snapshots are never consulted by limit enforcement, which always counts
// live.
package metering

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gymkeep/gymkeep/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Store defines the database operations needed by the metering service.
type Store interface {
	GetAllOrganizations(ctx context.Context) ([]*models.Organization, error)
	CountActiveStudents(ctx context.Context, orgID uuid.UUID) (int, error)
	CountTrainers(ctx context.Context, orgID uuid.UUID) (int, error)
	CountSessionsInMonth(ctx context.Context, orgID uuid.UUID, month time.Time) (int, error)
	UpsertUsageSnapshot(ctx context.Context, snapshot *models.UsageSnapshot) error
}

// Meter runs the nightly usage snapshot job across all organizations.
type Meter struct {
	store    Store
	schedule string
	cron     *cron.Cron
	logger   zerolog.Logger
	mu       sync.Mutex
	running  bool
}

// NewMeter creates a Meter with the given cron schedule (e.g. "0 2 * * *").
func NewMeter(store Store, schedule string, logger zerolog.Logger) *Meter {
	return &Meter{
		store:    store,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With().Str("component", "metering").Logger(),
	}
}

// Start begins the snapshot schedule.
func (m *Meter) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return errors.New("metering already running")
	}

	if _, err := m.cron.AddFunc(m.schedule, m.runSnapshot); err != nil {
		return err
	}

	m.cron.Start()
	m.running = true

	m.logger.Info().Str("schedule", m.schedule).Msg("metering started")
	return nil
}

// Stop stops the scheduler gracefully. The returned context is done when any
// in-flight snapshot run has finished.
func (m *Meter) Stop() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}

	m.running = false
	m.logger.Info().Msg("stopping metering")
	return m.cron.Stop()
}

// runSnapshot writes one snapshot per organization. A failure on one
// organization does not stop the others.
func (m *Meter) runSnapshot() {
	ctx := context.Background()
	now := time.Now().UTC()

	orgs, err := m.store.GetAllOrganizations(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("snapshot run failed to list organizations")
		return
	}

	var failed int
	for _, org := range orgs {
		if err := m.SnapshotOrg(ctx, org.ID, now); err != nil {
			m.logger.Error().Err(err).Str("org_id", org.ID.String()).Msg("snapshot failed")
			failed++
		}
	}

	m.logger.Info().
		Int("orgs", len(orgs)).
		Int("failed", failed).
		Msg("snapshot run completed")
}

// SnapshotOrg counts live usage for one organization and upserts the
// snapshot row for the given date. Re-running on the same date overwrites,
// so the job is safe to repeat.
func (m *Meter) SnapshotOrg(ctx context.Context, orgID uuid.UUID, date time.Time) error {
	students, err := m.store.CountActiveStudents(ctx, orgID)
	if err != nil {
		return err
	}
	trainers, err := m.store.CountTrainers(ctx, orgID)
	if err != nil {
		return err
	}
	sessions, err := m.store.CountSessionsInMonth(ctx, orgID, date)
	if err != nil {
		return err
	}

	snapshot := models.NewUsageSnapshot(orgID, date, students, trainers, sessions)
	return m.store.UpsertUsageSnapshot(ctx, snapshot)
}
