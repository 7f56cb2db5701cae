package controllers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/airdate/internal/metrics"
	"github.com/amaumene/airdate/internal/models"
	"github.com/amaumene/airdate/internal/services/notify"
)

// ErrInvalidRule is returned for reminder rules that cannot match anything
var ErrInvalidRule = errors.New("invalid reminder rule")

// ReminderStore persists rules, delivery history and settings
type ReminderStore interface {
	SaveReminderRule(rule *models.ReminderRule) error
	DeleteReminderRule(id string) error
	GetReminderRules() ([]models.ReminderRule, error)
	HasFired(key string) (bool, error)
	MarkFired(key string, at time.Time) error
	GetSettings() (models.Settings, error)
}

// IndexSource exposes a snapshot of the published index
type IndexSource interface {
	Index() models.EpisodeIndex
}

// ReminderController fires notifications for upcoming releases
type ReminderController struct {
	db       ReminderStore
	index    IndexSource
	notifier notify.Notifier
	logger   *logrus.Logger
	now      func() time.Time
	pollMu   sync.Mutex
}

// NewReminderController creates a new reminder controller
func NewReminderController(db ReminderStore, index IndexSource, notifier notify.Notifier, logger *logrus.Logger) *ReminderController {
	return &ReminderController{
		db:       db,
		index:    index,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Rules returns every stored rule
func (c *ReminderController) Rules() ([]models.ReminderRule, error) {
	return c.db.GetReminderRules()
}

// AddRule validates and stores a rule, then polls so a reminder due today
// fires without waiting for the next tick
func (c *ReminderController) AddRule(ctx context.Context, rule models.ReminderRule) (*models.ReminderRule, error) {
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	rule.ID = uuid.NewString()
	rule.CreatedAt = c.now()
	if err := c.db.SaveReminderRule(&rule); err != nil {
		return nil, fmt.Errorf("failed to save reminder rule: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"rule":    rule.ID,
		"tmdb_id": rule.TMDBID,
		"scope":   rule.Scope,
		"offset":  rule.OffsetMinutes,
	}).Info("Reminder rule added")

	if _, err := c.Poll(ctx); err != nil {
		c.logger.WithError(err).Warn("Reminder poll after rule change failed")
	}
	return &rule, nil
}

// DeleteRule removes a rule
func (c *ReminderController) DeleteRule(id string) error {
	if err := c.db.DeleteReminderRule(id); err != nil {
		return fmt.Errorf("failed to delete reminder rule %s: %w", id, err)
	}
	c.logger.WithField("rule", id).Info("Reminder rule deleted")
	return nil
}

func validateRule(rule models.ReminderRule) error {
	switch {
	case rule.TMDBID <= 0:
		return fmt.Errorf("%w: tmdb_id is required", ErrInvalidRule)
	case !rule.MediaType.Valid():
		return fmt.Errorf("%w: unknown media type %q", ErrInvalidRule, rule.MediaType)
	case !rule.Scope.Valid():
		return fmt.Errorf("%w: unknown scope %q", ErrInvalidRule, rule.Scope)
	case rule.OffsetMinutes < 0:
		return fmt.Errorf("%w: offset_minutes must not be negative", ErrInvalidRule)
	}
	switch rule.Scope {
	case models.ScopeEpisode:
		if rule.MediaType != models.MediaTypeTV {
			return fmt.Errorf("%w: episode scope needs a tv show", ErrInvalidRule)
		}
		if rule.EpisodeSeason == nil || rule.EpisodeNumber == nil {
			return fmt.Errorf("%w: episode scope needs season and episode", ErrInvalidRule)
		}
	case models.ScopeMovieTheatrical, models.ScopeMovieDigital:
		if rule.MediaType != models.MediaTypeMovie {
			return fmt.Errorf("%w: %s scope needs a movie", ErrInvalidRule, rule.Scope)
		}
	}
	return nil
}

// Poll fires every reminder whose trigger day is today in the user's timezone
// and returns how many were delivered
func (c *ReminderController) Poll(ctx context.Context) (int, error) {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()

	rules, err := c.db.GetReminderRules()
	if err != nil {
		return 0, fmt.Errorf("failed to get reminder rules: %w", err)
	}
	if len(rules) == 0 {
		return 0, nil
	}
	settings, err := c.db.GetSettings()
	if err != nil {
		return 0, fmt.Errorf("failed to read settings: %w", err)
	}
	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		c.logger.WithField("timezone", settings.Timezone).Warn("Unknown timezone, using UTC for reminders")
		loc = time.UTC
	}

	now := c.now().In(loc)
	today := now.Format(models.DateLayout)
	events := c.index.Index().Flatten()

	fired := 0
	for _, rule := range rules {
		for _, e := range events {
			if !ruleMatches(rule, e) || e.AirDate == "" {
				continue
			}
			release, err := e.AirTime(loc)
			if err != nil {
				continue
			}
			trigger := release.Add(-time.Duration(rule.OffsetMinutes) * time.Minute)
			if trigger.Format(models.DateLayout) != today {
				continue
			}

			key := strings.Join([]string{rule.ID, e.ID, today}, "|")
			done, err := c.db.HasFired(key)
			if err != nil {
				return fired, fmt.Errorf("failed to read reminder history: %w", err)
			}
			if done {
				continue
			}

			note := notify.Notification{
				RuleID:      rule.ID,
				EventID:     e.ID,
				Title:       e.ShowName,
				Body:        describe(e),
				ReleaseDate: e.AirDate,
				TriggerAt:   trigger,
			}
			if err := c.notifier.Notify(ctx, note); err != nil {
				c.logger.WithError(err).WithFields(logrus.Fields{
					"rule":  rule.ID,
					"event": e.ID,
				}).Warn("Failed to deliver reminder, will retry on next poll")
				continue
			}
			if err := c.db.MarkFired(key, c.now()); err != nil {
				return fired, fmt.Errorf("failed to record reminder: %w", err)
			}
			fired++
			metrics.RemindersFired.Inc()
		}
	}

	if fired > 0 {
		c.logger.WithField("count", fired).Info("Reminders fired")
	}
	return fired, nil
}

// ruleMatches selects the events a rule applies to
func ruleMatches(rule models.ReminderRule, e models.ReleaseEvent) bool {
	if e.ShowID != rule.TMDBID || e.MediaType != rule.MediaType {
		return false
	}
	switch rule.Scope {
	case models.ScopeAll:
		return true
	case models.ScopeEpisode:
		return !e.IsMovie &&
			rule.EpisodeSeason != nil && *rule.EpisodeSeason == e.SeasonNumber &&
			rule.EpisodeNumber != nil && *rule.EpisodeNumber == e.EpisodeNumber
	case models.ScopeMovieTheatrical:
		return e.IsMovie && e.ReleaseType == models.ReleaseTheatrical
	case models.ScopeMovieDigital:
		return e.IsMovie && e.ReleaseType == models.ReleaseDigital
	}
	return false
}

func describe(e models.ReleaseEvent) string {
	if e.IsMovie {
		return fmt.Sprintf("%s release on %s", e.ReleaseType, e.AirDate)
	}
	return fmt.Sprintf("S%02dE%02d %s airs on %s", e.SeasonNumber, e.EpisodeNumber, e.Name, e.AirDate)
}
