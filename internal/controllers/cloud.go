package controllers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/airdate/internal/config"
	"github.com/amaumene/airdate/internal/dateshift"
	"github.com/amaumene/airdate/internal/models"
	"github.com/amaumene/airdate/internal/services/cloud"
	"github.com/amaumene/airdate/internal/tracked"
)

// RowStore is the account-scoped remote row store
type RowStore interface {
	RowsSince(ctx context.Context, account, from string) ([]cloud.Row, error)
	RowsBefore(ctx context.Context, account, before string) ([]cloud.Row, error)
	UpsertRows(ctx context.Context, rows []cloud.Row) error
	GetCoverage(ctx context.Context, account string) (*cloud.Coverage, error)
	SaveCoverage(ctx context.Context, cov *cloud.Coverage) error
}

// CloudController reconciles the index with the remote row store
type CloudController struct {
	store    RowStore
	account  string
	source   TrackedSource
	settings SettingsStore
	cutoff   time.Duration
	ttl      time.Duration
	logger   *logrus.Logger
	now      func() time.Time
}

// NewCloudController creates a new cloud controller for account
func NewCloudController(store RowStore, account string, source TrackedSource, settings SettingsStore, cfg config.SyncConfig, logger *logrus.Logger) *CloudController {
	return &CloudController{
		store:    store,
		account:  account,
		source:   source,
		settings: settings,
		cutoff:   cfg.ArchiveCutoff,
		ttl:      cfg.TTL,
		logger:   logger,
		now:      time.Now,
	}
}

// cutoffDate is the first day of the trailing window the default pass covers
func (c *CloudController) cutoffDate() string {
	return c.now().Add(-c.cutoff).Format(models.DateLayout)
}

// Load returns the remote events of items when the account's rows cover the
// trailing window for every item and were written within the TTL
func (c *CloudController) Load(ctx context.Context, items []models.TrackedItem) ([]models.ReleaseEvent, bool, error) {
	cov, err := c.store.GetCoverage(ctx, c.account)
	if err != nil {
		return nil, false, err
	}
	cutoff := c.cutoffDate()
	if !c.covers(cov, items, cutoff) {
		c.logger.WithField("account", c.account).Debug("Cloud rows do not cover tracked set")
		return nil, false, nil
	}

	rows, err := c.store.RowsSince(ctx, c.account, cutoff)
	if err != nil {
		return nil, false, err
	}
	return eventsFor(rows, tracked.Keys(items)), true, nil
}

func (c *CloudController) covers(cov *cloud.Coverage, items []models.TrackedItem, cutoff string) bool {
	if cov == nil || cov.CoveredFrom == "" || cov.CoveredFrom > cutoff {
		return false
	}
	if c.now().Sub(cov.CoveredAt) > c.ttl {
		return false
	}
	set := cov.TrackedSet()
	for _, item := range items {
		if !set[item.Key()] {
			return false
		}
	}
	return true
}

// Push upserts events and extends the coverage marker with the fetched keys
func (c *CloudController) Push(ctx context.Context, items []models.TrackedItem, events []models.ReleaseEvent, fetched map[string]bool) error {
	backdrops := make(map[string]string, len(items))
	for _, item := range items {
		backdrops[item.Key()] = item.BackdropPath
	}
	rows := make([]cloud.Row, 0, len(events))
	for _, e := range events {
		rows = append(rows, cloud.RowFromEvent(c.account, e, backdrops[e.ShowKey()]))
	}
	if err := c.store.UpsertRows(ctx, rows); err != nil {
		return err
	}

	prev, err := c.store.GetCoverage(ctx, c.account)
	if err != nil {
		return err
	}
	trackedKeys := tracked.Keys(items)
	covered := make(map[string]bool)
	coveredFrom := c.cutoffDate()
	if prev != nil {
		for key := range prev.TrackedSet() {
			if trackedKeys[key] {
				covered[key] = true
			}
		}
		if prev.CoveredFrom != "" && prev.CoveredFrom < coveredFrom {
			coveredFrom = prev.CoveredFrom
		}
	}
	for key := range fetched {
		covered[key] = true
	}

	if err := c.store.SaveCoverage(ctx, &cloud.Coverage{
		Account:     c.account,
		CoveredFrom: coveredFrom,
		CoveredAt:   c.now(),
		TrackedIDs:  strings.Join(sortedKeys(covered), ","),
	}); err != nil {
		return err
	}

	c.logger.WithFields(logrus.Fields{
		"account": c.account,
		"rows":    len(rows),
		"covered": len(covered),
	}).Info("Pushed events to cloud store")
	return nil
}

// LoadArchive returns tracked events older than the trailing window, bucketed
// with the current settings. It is never part of a sync pass.
func (c *CloudController) LoadArchive(ctx context.Context) (models.EpisodeIndex, error) {
	items, err := c.source.Tracked()
	if err != nil {
		return nil, fmt.Errorf("failed to derive tracked set: %w", err)
	}
	settings, err := c.settings.GetSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	rows, err := c.store.RowsBefore(ctx, c.account, c.cutoffDate())
	if err != nil {
		return nil, err
	}

	shifter := &dateshift.Shifter{Timezone: settings.Timezone, Enabled: settings.TimeShift, Now: c.now}
	index := make(models.EpisodeIndex)
	index.Merge(bucketAll(eventsFor(rows, tracked.Keys(items)), shifter))
	return index, nil
}

// eventsFor converts the rows belonging to keys, ordered by event id
func eventsFor(rows []cloud.Row, keys map[string]bool) []models.ReleaseEvent {
	events := make([]models.ReleaseEvent, 0, len(rows))
	for _, row := range rows {
		e := row.Event()
		if keys[e.ShowKey()] {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events
}
