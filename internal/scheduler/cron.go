package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/airdate/internal/config"
	"github.com/amaumene/airdate/internal/controllers"
)

// Syncer runs sync passes
type Syncer interface {
	Sync(ctx context.Context, force bool) (*controllers.SyncReport, error)
}

// ListRefresher re-resolves subscribed lists
type ListRefresher interface {
	RefreshLists(ctx context.Context) error
}

// Poller fires due reminders
type Poller interface {
	Poll(ctx context.Context) (int, error)
}

// Scheduler manages scheduled tasks
type Scheduler struct {
	cron      *cron.Cron
	syncer    Syncer
	lists     ListRefresher
	reminders Poller
	cfg       config.SyncConfig
	logger    *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a new scheduler
func NewScheduler(syncer Syncer, lists ListRefresher, reminders Poller, cfg config.SyncConfig, logger *logrus.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:      cron.New(),
		syncer:    syncer,
		lists:     lists,
		reminders: reminders,
		cfg:       cfg,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start registers the jobs and runs a list refresh, sync and reminder poll
// immediately
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler")

	// Periodic sync, preceded by a refresh of subscribed lists
	if _, err := s.cron.AddFunc(s.cfg.SyncSchedule, s.runSync); err != nil {
		return fmt.Errorf("failed to add sync job: %w", err)
	}

	if _, err := s.cron.AddFunc("@every "+s.cfg.ReminderInterval.String(), s.runReminders); err != nil {
		return fmt.Errorf("failed to add reminder job: %w", err)
	}

	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"sync_schedule":     s.cfg.SyncSchedule,
		"reminder_interval": s.cfg.ReminderInterval,
	}).Info("Scheduler started")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runReminders()
		s.runSync()
		// catch releases the first pass filed under today
		s.runReminders()
	}()

	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
}

// runSync executes the sync job
func (s *Scheduler) runSync() {
	s.logger.Info("Running scheduled sync")

	if err := s.lists.RefreshLists(s.ctx); err != nil {
		s.logger.WithError(err).Warn("List refresh failed, syncing with stored snapshots")
	}

	report, err := s.syncer.Sync(s.ctx, false)
	switch {
	case errors.Is(err, controllers.ErrSyncSuperseded), errors.Is(err, context.Canceled):
		s.logger.WithError(err).Info("Scheduled sync did not complete")
	case err != nil:
		s.logger.WithError(err).Error("Sync job failed")
	default:
		s.logger.WithFields(logrus.Fields{
			"scope":  report.Scope,
			"events": report.Events,
			"failed": len(report.Failed),
		}).Info("Sync job completed successfully")
	}
}

// runReminders executes the reminder poll
func (s *Scheduler) runReminders() {
	if _, err := s.reminders.Poll(s.ctx); err != nil {
		s.logger.WithError(err).Error("Reminder poll failed")
	}
}
