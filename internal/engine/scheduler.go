package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/rpacode/edlsync/internal/logger"
	"github.com/rpacode/edlsync/internal/model"
	"github.com/rpacode/edlsync/internal/store"
)

// Scheduler drives the engine from wall-clock time: a periodic probe of
// the remote health endpoint feeds connectivity transitions into the
// engine, each tick while online runs a sync cycle, and a daily job
// prunes old synced records. Tests bypass it by calling SetOnline and
// SyncCycle directly.
type Scheduler struct {
	engine  *Engine
	store   *store.Store
	cron    *cron.Cron
	running bool

	interval        time.Duration
	maintenanceSpec string
	retentionDays   int
}

// SchedulerConfig holds the scheduler timing knobs.
type SchedulerConfig struct {
	// SyncInterval is the probe-and-sync period. Default 30 seconds.
	SyncInterval time.Duration
	// MaintenanceSchedule is a cron expression for retention pruning.
	MaintenanceSchedule string
	// RetentionDays is the pruning cutoff, overridable at runtime by the
	// dataRetentionDays setting.
	RetentionDays int
}

// DefaultSchedulerConfig returns the default timing.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		SyncInterval:        30 * time.Second,
		MaintenanceSchedule: "0 3 * * *",
		RetentionDays:       30,
	}
}

// NewScheduler creates a Scheduler. Zero-valued config fields fall back
// to the defaults.
func NewScheduler(e *Engine, s *store.Store, cfg SchedulerConfig) *Scheduler {
	def := DefaultSchedulerConfig()
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = def.SyncInterval
	}
	if cfg.MaintenanceSchedule == "" {
		cfg.MaintenanceSchedule = def.MaintenanceSchedule
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = def.RetentionDays
	}

	return &Scheduler{
		engine:          e,
		store:           s,
		cron:            cron.New(),
		interval:        cfg.SyncInterval,
		maintenanceSpec: cfg.MaintenanceSchedule,
		retentionDays:   cfg.RetentionDays,
	}
}

// Start registers the cron jobs and runs one probe immediately so the
// engine knows its starting connectivity.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.running {
		return nil
	}

	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule sync tick: %w", err)
	}

	if _, err := s.cron.AddFunc(s.maintenanceSpec, func() { s.runMaintenance() }); err != nil {
		return fmt.Errorf("failed to schedule maintenance: %w", err)
	}

	s.cron.Start()
	s.running = true

	logger.Log.Info("scheduler started",
		zap.Duration("sync_interval", s.interval),
		zap.String("maintenance", s.maintenanceSpec))

	// Establish initial connectivity without waiting a full interval.
	go s.tick(ctx)

	return nil
}

// Stop halts the cron jobs. Running jobs finish.
func (s *Scheduler) Stop() {
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	logger.Log.Info("scheduler stopped")
}

// tick probes connectivity and, while online, runs a sync cycle. The
// engine's in-flight guard keeps a slow cycle from stacking on the next
// tick.
func (s *Scheduler) tick(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	online := s.engine.client.CheckStatus(probeCtx)
	s.engine.SetOnline(ctx, online)

	if !online {
		return
	}
	if _, err := s.engine.SyncCycle(ctx); err != nil {
		logger.Log.Error("scheduled sync cycle failed", zap.Error(err))
	}
}

// runMaintenance prunes synced records past the retention window. The
// dataRetentionDays setting overrides the configured default.
func (s *Scheduler) runMaintenance() {
	days := s.retentionDays
	var override int
	if ok, err := s.store.GetSetting(model.SettingDataRetentionDays, &override); err == nil && ok && override > 0 {
		days = override
	}

	pruned, err := s.store.CleanOldData(days)
	if err != nil {
		logger.Log.Error("maintenance pruning failed", zap.Error(err))
		return
	}
	logger.Log.Info("maintenance pruning finished",
		zap.Int("retention_days", days),
		zap.Int64("pruned", pruned))
}
