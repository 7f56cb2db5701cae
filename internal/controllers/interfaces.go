package controllers

import (
	"context"

	"github.com/amaumene/airdate/internal/models"
	"github.com/amaumene/airdate/internal/services/tmdb"
)

// MetadataFetcher is the metadata provider the engine resolves items through
type MetadataFetcher interface {
	GetShowDetails(ctx context.Context, id int64) (*tmdb.ShowDetails, error)
	GetSeasonDetails(ctx context.Context, id int64, seasonNumber int) (*tmdb.SeasonDetails, error)
	GetMovieDetails(ctx context.Context, id int64) (*tmdb.MovieDetails, error)
	GetMovieReleaseDates(ctx context.Context, id int64) ([]tmdb.ReleaseDate, error)
	GetListDetails(ctx context.Context, listID string) (*tmdb.ListDetails, error)
}

// CacheStore is a durable key/blob store
type CacheStore interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, data []byte) error
	Del(key string) error
}

// batchStore is implemented by stores that can write several keys atomically
type batchStore interface {
	SetMany(values map[string][]byte) error
}

// TrackedSource yields the current tracked item set
type TrackedSource interface {
	Tracked() ([]models.TrackedItem, error)
}

// SettingsStore reads and writes user settings
type SettingsStore interface {
	GetSettings() (models.Settings, error)
	SaveSettings(s models.Settings) error
}

// CloudSource is the optional remote row store consulted on sync entry
type CloudSource interface {
	// Load returns the remote events for items when the remote rows cover
	// them; ok is false when the local fetch path must run instead
	Load(ctx context.Context, items []models.TrackedItem) (events []models.ReleaseEvent, ok bool, err error)
	// Push stores freshly fetched events upstream and records coverage for
	// the fetched item keys
	Push(ctx context.Context, items []models.TrackedItem, events []models.ReleaseEvent, fetched map[string]bool) error
}
