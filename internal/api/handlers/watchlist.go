package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/airdate/internal/controllers"
	"github.com/amaumene/airdate/internal/models"
	"github.com/amaumene/airdate/internal/services/tmdb"
)

// TrackedManager edits the watchlist and list subscriptions
type TrackedManager interface {
	Watchlist() ([]models.TrackedItem, error)
	Lists() ([]models.SubscribedList, error)
	AddToWatchlist(ctx context.Context, mediaType models.MediaType, id int64) (models.TrackedItem, bool, error)
	RemoveFromWatchlist(mediaType models.MediaType, id int64) error
	Subscribe(ctx context.Context, listID string) (*models.SubscribedList, error)
	Unsubscribe(listID string) error
}

// WatchlistRequest adds an item to the watchlist
type WatchlistRequest struct {
	MediaType models.MediaType `json:"media_type"`
	ID        int64            `json:"id"`
}

// WatchlistHandler serves the watchlist and list subscriptions
type WatchlistHandler struct {
	tracked TrackedManager
	logger  *logrus.Logger
}

// NewWatchlistHandler creates a new watchlist handler
func NewWatchlistHandler(tracked TrackedManager, logger *logrus.Logger) *WatchlistHandler {
	return &WatchlistHandler{tracked: tracked, logger: logger}
}

// List returns the watchlist
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.tracked.Watchlist()
	if err != nil {
		internalError(w, h.logger, err, "Failed to get watchlist")
		return
	}
	if items == nil {
		items = []models.TrackedItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// Add resolves and adds an item. 201 when added, 200 when already present.
func (h *WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req WatchlistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	item, added, err := h.tracked.AddToWatchlist(r.Context(), req.MediaType, req.ID)
	if err != nil {
		h.trackedError(w, err, "Failed to add to watchlist")
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	writeJSON(w, status, item)
}

// Remove deletes /api/watchlist/{type}/{id}
func (h *WatchlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id: "+vars["id"])
		return
	}
	mediaType := models.MediaType(vars["type"])
	if !mediaType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid media type: "+vars["type"])
		return
	}

	if err := h.tracked.RemoveFromWatchlist(mediaType, id); err != nil {
		h.trackedError(w, err, "Failed to remove from watchlist")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Lists returns the subscribed lists with their snapshots
func (h *WatchlistHandler) Lists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.tracked.Lists()
	if err != nil {
		internalError(w, h.logger, err, "Failed to get lists")
		return
	}
	if lists == nil {
		lists = []models.SubscribedList{}
	}
	writeJSON(w, http.StatusOK, lists)
}

// Subscribe handles POST /api/lists/{id}
func (h *WatchlistHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	list, err := h.tracked.Subscribe(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.trackedError(w, err, "Failed to subscribe to list")
		return
	}
	writeJSON(w, http.StatusCreated, list)
}

// Unsubscribe handles DELETE /api/lists/{id}
func (h *WatchlistHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	if err := h.tracked.Unsubscribe(mux.Vars(r)["id"]); err != nil {
		h.trackedError(w, err, "Failed to unsubscribe from list")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *WatchlistHandler) trackedError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, controllers.ErrInvalidItem):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, tmdb.ErrNotFound), errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.WithError(err).Error(msg)
		writeError(w, http.StatusBadGateway, msg)
	}
}
