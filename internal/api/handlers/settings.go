package handlers

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/airdate/internal/controllers"
	"github.com/amaumene/airdate/internal/models"
)

// SettingsManager reads and updates user settings
type SettingsManager interface {
	Get() (models.Settings, error)
	Update(next models.Settings) (bool, error)
}

// SettingsResponse is returned after an update
type SettingsResponse struct {
	Settings   models.Settings `json:"settings"`
	Rebucketed bool            `json:"rebucketed"`
}

// SettingsHandler serves user settings
type SettingsHandler struct {
	settings SettingsManager
	logger   *logrus.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settings SettingsManager, logger *logrus.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

// Get returns the current settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Get()
	if err != nil {
		internalError(w, h.logger, err, "Failed to read settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// Put replaces the settings. Changing bucketing rebuckets the index before
// the response is written.
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	var next models.Settings
	if err := decodeJSON(w, r, &next); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	rebucketed, err := h.settings.Update(next)
	if errors.Is(err, controllers.ErrInvalidTimezone) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		internalError(w, h.logger, err, "Failed to update settings")
		return
	}

	current, err := h.settings.Get()
	if err != nil {
		internalError(w, h.logger, err, "Failed to read settings")
		return
	}
	writeJSON(w, http.StatusOK, SettingsResponse{Settings: current, Rebucketed: rebucketed})
}
