package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/airdate/internal/controllers"
	"github.com/amaumene/airdate/internal/models"
)

// ReminderManager edits reminder rules
type ReminderManager interface {
	Rules() ([]models.ReminderRule, error)
	AddRule(ctx context.Context, rule models.ReminderRule) (*models.ReminderRule, error)
	DeleteRule(id string) error
}

// ReminderRequest creates a rule
type ReminderRequest struct {
	TMDBID        int64                `json:"tmdb_id"`
	MediaType     models.MediaType     `json:"media_type"`
	Scope         models.ReminderScope `json:"scope"`
	EpisodeSeason *int                 `json:"episode_season,omitempty"`
	EpisodeNumber *int                 `json:"episode_number,omitempty"`
	OffsetMinutes int                  `json:"offset_minutes"`
}

// ReminderHandler serves reminder rules
type ReminderHandler struct {
	reminders ReminderManager
	logger    *logrus.Logger
}

// NewReminderHandler creates a new reminder handler
func NewReminderHandler(reminders ReminderManager, logger *logrus.Logger) *ReminderHandler {
	return &ReminderHandler{reminders: reminders, logger: logger}
}

// List returns every rule
func (h *ReminderHandler) List(w http.ResponseWriter, r *http.Request) {
	rules, err := h.reminders.Rules()
	if err != nil {
		internalError(w, h.logger, err, "Failed to get reminder rules")
		return
	}
	if rules == nil {
		rules = []models.ReminderRule{}
	}
	writeJSON(w, http.StatusOK, rules)
}

// Create stores a rule
func (h *ReminderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ReminderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	rule, err := h.reminders.AddRule(r.Context(), models.ReminderRule{
		TMDBID:        req.TMDBID,
		MediaType:     req.MediaType,
		Scope:         req.Scope,
		EpisodeSeason: req.EpisodeSeason,
		EpisodeNumber: req.EpisodeNumber,
		OffsetMinutes: req.OffsetMinutes,
	})
	if errors.Is(err, controllers.ErrInvalidRule) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		internalError(w, h.logger, err, "Failed to add reminder rule")
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

// Delete removes /api/reminders/{id}
func (h *ReminderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.reminders.DeleteRule(mux.Vars(r)["id"])
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		internalError(w, h.logger, err, "Failed to delete reminder rule")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
