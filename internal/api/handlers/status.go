package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/airdate/internal/controllers"
)

// StatusSource reports the sync engine state
type StatusSource interface {
	Status() controllers.SyncStatus
}

// StatusHandler handles status requests
type StatusHandler struct {
	sync   StatusSource
	logger *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(sync StatusSource, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		sync:   sync,
		logger: logger,
	}
}

// ServeHTTP returns the engine state, progress of a running pass and the last report
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sync.Status())
}
