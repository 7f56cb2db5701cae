package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/airdate/internal/models"
)

// ErrInvalidTimezone is returned for settings naming an unknown IANA zone
var ErrInvalidTimezone = errors.New("invalid timezone")

// Rebucketer re-files the index under new settings
type Rebucketer interface {
	Rebucket(settings models.Settings) error
}

// SettingsController owns user settings and rebuckets the index when the
// bucketing settings change
type SettingsController struct {
	store  SettingsStore
	sync   Rebucketer
	logger *logrus.Logger
}

// NewSettingsController creates a new settings controller
func NewSettingsController(store SettingsStore, sync Rebucketer, logger *logrus.Logger) *SettingsController {
	return &SettingsController{store: store, sync: sync, logger: logger}
}

// Get returns the current settings
func (c *SettingsController) Get() (models.Settings, error) {
	return c.store.GetSettings()
}

// Update validates and stores next. It reports whether the index was rebucketed.
func (c *SettingsController) Update(next models.Settings) (bool, error) {
	if next.Timezone == "" {
		next.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(next.Timezone); err != nil {
		return false, fmt.Errorf("%w: %s", ErrInvalidTimezone, next.Timezone)
	}

	current, err := c.store.GetSettings()
	if err != nil {
		return false, fmt.Errorf("failed to read settings: %w", err)
	}
	if next == current {
		return false, nil
	}
	if err := c.store.SaveSettings(next); err != nil {
		return false, fmt.Errorf("failed to save settings: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"timezone":        next.Timezone,
		"time_shift":      next.TimeShift,
		"hide_theatrical": next.HideTheatrical,
		"ignore_specials": next.IgnoreSpecials,
	}).Info("Settings updated")

	if next.SameBucketing(current) {
		return false, nil
	}
	if err := c.sync.Rebucket(next); err != nil {
		return false, err
	}
	return true, nil
}
