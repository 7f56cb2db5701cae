package main

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/airdate/internal/api"
	"github.com/amaumene/airdate/internal/config"
	"github.com/amaumene/airdate/internal/controllers"
	"github.com/amaumene/airdate/internal/models"
	"github.com/amaumene/airdate/internal/services/cloud"
	"github.com/amaumene/airdate/internal/services/notify"
	"github.com/amaumene/airdate/internal/services/tmdb"
	"github.com/amaumene/airdate/internal/utils"
)

// app holds the wired services and controllers shared by every command
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	db     *models.Database
	store  *cloud.Store

	sync      *controllers.SyncController
	tracked   *controllers.TrackedController
	settings  *controllers.SettingsController
	reminders *controllers.ReminderController
	transfer  *controllers.TransferController
	cloud     *controllers.CloudController
}

func newApp() (*app, error) {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger
	logger := utils.NewLogger(cfg.LogLevel)
	logger.WithField("config_dir", filepath.Dir(cfg.DatabaseFile)).Info("Configuration loaded")

	// 3. Initialize database
	db, err := models.NewDatabase(cfg.DatabaseFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, db: db}

	// 4. Initialize services
	tmdbClient, err := tmdb.NewClient(cfg, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize TMDB client: %w", err)
	}

	if cfg.CloudDSN != "" {
		a.store, err = cloud.Open(cfg.CloudDSN, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open cloud store: %w", err)
		}
		logger.WithField("account", cfg.CloudAccount).Info("Cloud store enabled")
	}

	notifier := notify.Multi{notify.NewLogNotifier(logger)}
	if cfg.ReminderWebhookURL != "" {
		notifier = append(notifier, notify.NewWebhookNotifier(cfg.ReminderWebhookURL, logger))
	}

	// 5. Initialize controllers
	a.tracked = controllers.NewTrackedController(db, tmdbClient, logger)

	// a nil *CloudController must not reach the interface
	var cloudSrc controllers.CloudSource
	if a.store != nil {
		a.cloud = controllers.NewCloudController(a.store, cfg.CloudAccount, a.tracked, db, cfg.Sync, logger)
		cloudSrc = a.cloud
	}

	a.sync = controllers.NewSyncController(db, tmdbClient, a.tracked, db, cloudSrc, cfg.Sync, logger)
	a.tracked.OnChange(a.sync.Trigger)
	a.settings = controllers.NewSettingsController(db, a.sync, logger)
	a.reminders = controllers.NewReminderController(db, a.sync, notifier, logger)
	a.transfer = controllers.NewTransferController(a.tracked, a.settings, a.sync, cfg.TMDBAPIKey, cfg.CloudAccount, logger)
	logger.Info("Controllers initialized")

	return a, nil
}

func (a *app) apiControllers() api.Controllers {
	return api.Controllers{
		Sync:      a.sync,
		Tracked:   a.tracked,
		Settings:  a.settings,
		Reminders: a.reminders,
		Transfer:  a.transfer,
		Cloud:     a.cloud,
	}
}

// Close stops background passes and releases the stores
func (a *app) Close() {
	if a.sync != nil {
		a.sync.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close cloud store")
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Warn("Failed to close database")
	}
}
