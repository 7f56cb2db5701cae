package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/airdate/internal/api/handlers"
	"github.com/amaumene/airdate/internal/api/middleware"
	"github.com/amaumene/airdate/internal/config"
	"github.com/amaumene/airdate/internal/controllers"
)

// Controllers groups what the routes are served from
type Controllers struct {
	Sync      *controllers.SyncController
	Tracked   *controllers.TrackedController
	Settings  *controllers.SettingsController
	Reminders *controllers.ReminderController
	Transfer  *controllers.TransferController
	Cloud     *controllers.CloudController // nil without a cloud store
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	logger *logrus.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, ctrls Controllers, logger *logrus.Logger) *Server {
	s := &Server{logger: logger}

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      NewRouter(ctrls, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // POST /api/sync answers when the pass ends
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// NewRouter configures all HTTP routes
func NewRouter(ctrls Controllers, logger *logrus.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Logging(logger))

	r.Handle("/health", handlers.NewHealthHandler(logger)).Methods(http.MethodGet)
	r.Handle("/status", handlers.NewStatusHandler(ctrls.Sync, logger)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	var archive handlers.ArchiveSource
	if ctrls.Cloud != nil {
		archive = ctrls.Cloud
	}
	calendar := handlers.NewCalendarHandler(ctrls.Sync, ctrls.Settings, archive, logger)
	api.HandleFunc("/calendar", calendar.GetCalendar).Methods(http.MethodGet)
	api.HandleFunc("/archive", calendar.GetArchive).Methods(http.MethodGet)

	api.Handle("/sync", handlers.NewSyncHandler(ctrls.Sync, logger)).Methods(http.MethodPost)

	settings := handlers.NewSettingsHandler(ctrls.Settings, logger)
	api.HandleFunc("/settings", settings.Get).Methods(http.MethodGet)
	api.HandleFunc("/settings", settings.Put).Methods(http.MethodPut)

	watchlist := handlers.NewWatchlistHandler(ctrls.Tracked, logger)
	api.HandleFunc("/watchlist", watchlist.List).Methods(http.MethodGet)
	api.HandleFunc("/watchlist", watchlist.Add).Methods(http.MethodPost)
	api.HandleFunc("/watchlist/{type}/{id:[0-9]+}", watchlist.Remove).Methods(http.MethodDelete)
	api.HandleFunc("/lists", watchlist.Lists).Methods(http.MethodGet)
	api.HandleFunc("/lists/{id}", watchlist.Subscribe).Methods(http.MethodPost)
	api.HandleFunc("/lists/{id}", watchlist.Unsubscribe).Methods(http.MethodDelete)

	reminders := handlers.NewReminderHandler(ctrls.Reminders, logger)
	api.HandleFunc("/reminders", reminders.List).Methods(http.MethodGet)
	api.HandleFunc("/reminders", reminders.Create).Methods(http.MethodPost)
	api.HandleFunc("/reminders/{id}", reminders.Delete).Methods(http.MethodDelete)

	transfer := handlers.NewTransferHandler(ctrls.Transfer, logger)
	api.HandleFunc("/export", transfer.Export).Methods(http.MethodGet)
	api.HandleFunc("/import", transfer.Import).Methods(http.MethodPost)

	return r
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
