package controllers

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/airdate/internal/models"
	"github.com/amaumene/airdate/internal/services/devicesync"
	"github.com/amaumene/airdate/internal/services/tmdb"
	"github.com/amaumene/airdate/internal/utils"
)

type recordingSync struct {
	mu        sync.Mutex
	triggers  []string
	rebuckets []models.Settings
	err       error
}

func (r *recordingSync) Trigger(reason string) {
	r.mu.Lock()
	r.triggers = append(r.triggers, reason)
	r.mu.Unlock()
}

func (r *recordingSync) Rebucket(settings models.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rebuckets = append(r.rebuckets, settings)
	return r.err
}

type transferFixture struct {
	transfer *TransferController
	tracked  *TrackedController
	settings *SettingsController
	sync     *recordingSync
	db       *models.Database
}

func newTransferFixture(t *testing.T, apiKey string) *transferFixture {
	t.Helper()
	fetcher := newFakeFetcher()
	fetcher.shows[100] = &tmdb.ShowDetails{ID: 100, Name: "Show", NumberOfSeasons: 2}
	fetcher.movies[7] = &tmdb.MovieDetails{ID: 7, Title: "Film"}
	fetcher.lists["42"] = &tmdb.ListDetails{ID: "42", Name: "Picks"}

	db := newTestDatabase(t)
	rec := &recordingSync{}
	tracked := NewTrackedController(db, fetcher, utils.NewDiscardLogger())
	settings := NewSettingsController(db, rec, utils.NewDiscardLogger())
	return &transferFixture{
		transfer: NewTransferController(tracked, settings, rec, apiKey, "me", utils.NewDiscardLogger()),
		tracked:  tracked,
		settings: settings,
		sync:     rec,
		db:       db,
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTransferFixture(t, "key")
	_, _, err := src.tracked.AddToWatchlist(ctx, models.MediaTypeTV, 100)
	require.NoError(t, err)
	_, _, err = src.tracked.AddToWatchlist(ctx, models.MediaTypeMovie, 7)
	require.NoError(t, err)
	_, err = src.tracked.Subscribe(ctx, "42")
	require.NoError(t, err)
	_, err = src.settings.Update(models.Settings{Timezone: "Asia/Tokyo", TimeShift: true, HideTheatrical: true})
	require.NoError(t, err)

	payload, err := src.transfer.Export()
	require.NoError(t, err)

	dst := newTransferFixture(t, "key")
	report, err := dst.transfer.Import(ctx, payload)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Added)
	assert.Equal(t, 1, report.Subscribed)
	assert.Empty(t, report.Failed)
	assert.True(t, report.SettingsChanged)
	assert.True(t, report.Rebucketed)
	assert.False(t, report.APIKeyMismatch)

	watchlist, err := dst.tracked.Watchlist()
	require.NoError(t, err)
	require.Len(t, watchlist, 2)
	byKey := make(map[string]models.TrackedItem)
	for _, item := range watchlist {
		byKey[item.Key()] = item
	}
	show, ok := byKey["tv:100"]
	require.True(t, ok)
	require.NotNil(t, show.NumberOfSeasons, "metadata is re-resolved through the provider")
	assert.Equal(t, 2, *show.NumberOfSeasons)
	assert.Equal(t, "Film", byKey["movie:7"].Name)

	settings, err := dst.settings.Get()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", settings.Timezone)
	assert.True(t, settings.TimeShift)
	assert.False(t, settings.HideTheatrical, "display flags are not carried")
	assert.Equal(t, []string{"import"}, dst.sync.triggers)

	report, err = dst.transfer.Import(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, 2, report.AlreadyTracked)
	assert.False(t, report.SettingsChanged)
}

func TestImportReportsUnresolvableItems(t *testing.T) {
	dst := newTransferFixture(t, "key")
	payload, err := devicesync.Encode(devicesync.Payload{
		APIKey:    "other",
		Watchlist: []devicesync.Ref{{ID: 100, MediaType: models.MediaTypeTV}, {ID: 404, MediaType: models.MediaTypeMovie}},
		ListIDs:   []string{"missing"},
		Settings:  devicesync.Settings{Timezone: "UTC"},
	})
	require.NoError(t, err)

	report, err := dst.transfer.Import(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Added)
	assert.Equal(t, []string{"movie:404", "list:missing"}, report.Failed)
	assert.True(t, report.APIKeyMismatch)
	assert.False(t, report.SettingsChanged)
}

func TestImportRejectsCorruptPayload(t *testing.T) {
	dst := newTransferFixture(t, "key")
	_, err := dst.transfer.Import(context.Background(), "garbage")
	assert.True(t, errors.Is(err, devicesync.ErrCorruptPayload))
	assert.Empty(t, dst.sync.triggers)
}

func TestSettingsUpdate(t *testing.T) {
	fx := newTransferFixture(t, "key")

	rebucketed, err := fx.settings.Update(models.Settings{Timezone: "UTC", HideTheatrical: true})
	require.NoError(t, err)
	assert.False(t, rebucketed, "display flags do not change buckets")

	rebucketed, err = fx.settings.Update(models.Settings{Timezone: "Europe/Paris", TimeShift: true})
	require.NoError(t, err)
	assert.True(t, rebucketed)
	assert.Len(t, fx.sync.rebuckets, 1)

	_, err = fx.settings.Update(models.Settings{Timezone: "Mars/Olympus"})
	assert.ErrorIs(t, err, ErrInvalidTimezone)
}
