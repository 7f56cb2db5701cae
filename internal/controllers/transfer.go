package controllers

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/airdate/internal/models"
	"github.com/amaumene/airdate/internal/services/devicesync"
)

// ImportReport summarizes an applied device-sync payload
type ImportReport struct {
	Added           int      `json:"added"`
	AlreadyTracked  int      `json:"already_tracked"`
	Subscribed      int      `json:"subscribed"`
	Failed          []string `json:"failed,omitempty"`
	SettingsChanged bool     `json:"settings_changed"`
	Rebucketed      bool     `json:"rebucketed"`
	APIKeyMismatch  bool     `json:"api_key_mismatch,omitempty"`
}

// SyncTrigger requests a background sync pass
type SyncTrigger interface {
	Trigger(reason string)
}

// TransferController moves the tracked set between devices
type TransferController struct {
	tracked  *TrackedController
	settings *SettingsController
	sync     SyncTrigger
	apiKey   string
	username string
	logger   *logrus.Logger
}

// NewTransferController creates a new transfer controller
func NewTransferController(tracked *TrackedController, settings *SettingsController, sync SyncTrigger, apiKey, username string, logger *logrus.Logger) *TransferController {
	return &TransferController{
		tracked:  tracked,
		settings: settings,
		sync:     sync,
		apiKey:   apiKey,
		username: username,
		logger:   logger,
	}
}

// Export encodes the watchlist, subscriptions and bucketing settings
func (c *TransferController) Export() (string, error) {
	watchlist, err := c.tracked.Watchlist()
	if err != nil {
		return "", fmt.Errorf("failed to get watchlist: %w", err)
	}
	lists, err := c.tracked.Lists()
	if err != nil {
		return "", fmt.Errorf("failed to get subscribed lists: %w", err)
	}
	settings, err := c.settings.Get()
	if err != nil {
		return "", fmt.Errorf("failed to read settings: %w", err)
	}

	p := devicesync.Payload{
		APIKey:   c.apiKey,
		Username: c.username,
		Settings: devicesync.Settings{Timezone: settings.Timezone, TimeShift: settings.TimeShift},
	}
	for _, item := range watchlist {
		p.Watchlist = append(p.Watchlist, devicesync.Ref{ID: item.ID, MediaType: item.MediaType})
	}
	for _, list := range lists {
		p.ListIDs = append(p.ListIDs, list.ListID)
	}
	return devicesync.Encode(p)
}

// Import decodes a payload, re-resolves its items through the provider and
// applies it. Items that fail to resolve are reported and skipped.
func (c *TransferController) Import(ctx context.Context, encoded string) (*ImportReport, error) {
	p, err := devicesync.Decode(encoded)
	if err != nil {
		return nil, err
	}
	report := &ImportReport{APIKeyMismatch: p.APIKey != "" && p.APIKey != c.apiKey}
	if report.APIKeyMismatch {
		c.logger.Warn("Imported payload carries a different API key, keeping the configured one")
	}

	for _, ref := range p.Watchlist {
		_, added, err := c.tracked.AddToWatchlist(ctx, ref.MediaType, ref.ID)
		switch {
		case err != nil:
			key := models.ItemKey(ref.MediaType, ref.ID)
			report.Failed = append(report.Failed, key)
			c.logger.WithError(err).WithField("item", key).Warn("Failed to import watchlist item")
		case added:
			report.Added++
		default:
			report.AlreadyTracked++
		}
	}
	for _, listID := range p.ListIDs {
		if _, err := c.tracked.Subscribe(ctx, listID); err != nil {
			report.Failed = append(report.Failed, "list:"+listID)
			c.logger.WithError(err).WithField("list", listID).Warn("Failed to import list")
			continue
		}
		report.Subscribed++
	}

	current, err := c.settings.Get()
	if err != nil {
		return report, fmt.Errorf("failed to read settings: %w", err)
	}
	next := current
	if p.Settings.Timezone != "" {
		next.Timezone = p.Settings.Timezone
	}
	next.TimeShift = p.Settings.TimeShift
	if next != current {
		rebucketed, err := c.settings.Update(next)
		if err != nil {
			return report, fmt.Errorf("failed to apply imported settings: %w", err)
		}
		report.SettingsChanged = true
		report.Rebucketed = rebucketed
	}

	c.logger.WithFields(logrus.Fields{
		"added":      report.Added,
		"subscribed": report.Subscribed,
		"failed":     len(report.Failed),
	}).Info("Device-sync payload imported")

	c.sync.Trigger("import")
	return report, nil
}
