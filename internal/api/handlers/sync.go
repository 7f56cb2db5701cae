package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/airdate/internal/controllers"
)

// Syncer runs sync passes
type Syncer interface {
	Sync(ctx context.Context, force bool) (*controllers.SyncReport, error)
}

// SyncHandler runs a pass on demand
type SyncHandler struct {
	sync   Syncer
	logger *logrus.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(sync Syncer, logger *logrus.Logger) *SyncHandler {
	return &SyncHandler{sync: sync, logger: logger}
}

// ServeHTTP joins or starts a pass and returns its report. ?force=true runs a
// full pass and supersedes a running one.
func (h *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	force := false
	if raw := r.URL.Query().Get("force"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid force: "+raw)
			return
		}
		force = parsed
	}

	report, err := h.sync.Sync(r.Context(), force)
	switch {
	case errors.Is(err, controllers.ErrSyncSuperseded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled):
		// client went away
	case err != nil:
		internalError(w, h.logger, err, "Sync failed")
	default:
		writeJSON(w, http.StatusOK, report)
	}
}
