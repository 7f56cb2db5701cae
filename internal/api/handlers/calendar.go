package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/airdate/internal/models"
)

const (
	defaultCalendarDays = 30
	maxCalendarDays     = 366
)

// IndexSource exposes a snapshot of the published index
type IndexSource interface {
	Index() models.EpisodeIndex
}

// SettingsSource reads user settings
type SettingsSource interface {
	Get() (models.Settings, error)
}

// ArchiveSource loads events older than the trailing window
type ArchiveSource interface {
	LoadArchive(ctx context.Context) (models.EpisodeIndex, error)
}

// CalendarDay is one bucket of the calendar response
type CalendarDay struct {
	Date   string                `json:"date"`
	Events []models.ReleaseEvent `json:"events"`
}

// CalendarResponse is the calendar payload
type CalendarResponse struct {
	From  string        `json:"from,omitempty"`
	To    string        `json:"to,omitempty"`
	Total int           `json:"total"`
	Days  []CalendarDay `json:"days"`
}

// CalendarHandler serves the bucketed index
type CalendarHandler struct {
	index    IndexSource
	settings SettingsSource
	archive  ArchiveSource // nil when no cloud store is configured
	logger   *logrus.Logger
	now      func() time.Time
}

// NewCalendarHandler creates a new calendar handler. archive may be nil.
func NewCalendarHandler(index IndexSource, settings SettingsSource, archive ArchiveSource, logger *logrus.Logger) *CalendarHandler {
	return &CalendarHandler{
		index:    index,
		settings: settings,
		archive:  archive,
		logger:   logger,
		now:      time.Now,
	}
}

// GetCalendar returns buckets in [from, to]. Both default relative to today in
// the user's timezone.
func (h *CalendarHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Get()
	if err != nil {
		internalError(w, h.logger, err, "Failed to read settings")
		return
	}
	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		loc = time.UTC
	}
	today := h.now().In(loc)

	from, ok := parseDate(w, r, "from", today)
	if !ok {
		return
	}
	to, ok := parseDate(w, r, "to", from.AddDate(0, 0, defaultCalendarDays))
	if !ok {
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not be before from")
		return
	}
	if to.Sub(from) > maxCalendarDays*24*time.Hour {
		writeError(w, http.StatusBadRequest, "range too large")
		return
	}

	fromKey, toKey := from.Format(models.DateLayout), to.Format(models.DateLayout)
	resp := buildCalendar(h.index.Index().Range(fromKey, toKey), settings)
	resp.From, resp.To = fromKey, toKey
	writeJSON(w, http.StatusOK, resp)
}

// GetArchive returns tracked events older than the trailing window
func (h *CalendarHandler) GetArchive(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, http.StatusNotFound, "archive requires a cloud store")
		return
	}
	settings, err := h.settings.Get()
	if err != nil {
		internalError(w, h.logger, err, "Failed to read settings")
		return
	}
	index, err := h.archive.LoadArchive(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load archive")
		writeError(w, http.StatusBadGateway, "Failed to load archive")
		return
	}
	writeJSON(w, http.StatusOK, buildCalendar(index, settings))
}

func parseDate(w http.ResponseWriter, r *http.Request, param string, fallback time.Time) (time.Time, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(param))
	if raw == "" {
		y, m, d := fallback.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	}
	t, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+param+": "+raw)
		return time.Time{}, false
	}
	return t, true
}

// buildCalendar orders buckets and applies the display filters
func buildCalendar(index models.EpisodeIndex, settings models.Settings) CalendarResponse {
	resp := CalendarResponse{Days: []CalendarDay{}}
	for _, bucket := range index.Buckets() {
		var events []models.ReleaseEvent
		for _, e := range index[bucket] {
			if hidden(e, settings) {
				continue
			}
			events = append(events, e)
		}
		if len(events) == 0 {
			continue
		}
		resp.Days = append(resp.Days, CalendarDay{Date: bucket, Events: events})
		resp.Total += len(events)
	}
	return resp
}

func hidden(e models.ReleaseEvent, settings models.Settings) bool {
	if settings.HideTheatrical && e.IsMovie && e.ReleaseType == models.ReleaseTheatrical {
		return true
	}
	return settings.IgnoreSpecials && !e.IsMovie && e.SeasonNumber == 0
}
