package controllers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/amaumene/airdate/internal/config"
	"github.com/amaumene/airdate/internal/models"
	"github.com/amaumene/airdate/internal/services/tmdb"
	"github.com/amaumene/airdate/internal/utils"
)

var errFetch = errors.New("provider unavailable")

// fakeFetcher serves canned provider responses and counts calls per endpoint
type fakeFetcher struct {
	mu       sync.Mutex
	shows    map[int64]*tmdb.ShowDetails
	seasons  map[string]*tmdb.SeasonDetails // "<id>/<season>"
	movies   map[int64]*tmdb.MovieDetails
	releases map[int64][]tmdb.ReleaseDate
	lists    map[string]*tmdb.ListDetails
	failing  map[int64]bool
	calls    map[string]int

	// when set, GetShowDetails blocks until block is closed or ctx is done
	block   chan struct{}
	entered chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		shows:    make(map[int64]*tmdb.ShowDetails),
		seasons:  make(map[string]*tmdb.SeasonDetails),
		movies:   make(map[int64]*tmdb.MovieDetails),
		releases: make(map[int64][]tmdb.ReleaseDate),
		lists:    make(map[string]*tmdb.ListDetails),
		failing:  make(map[int64]bool),
		calls:    make(map[string]int),
		entered:  make(chan struct{}, 1),
	}
}

func (f *fakeFetcher) record(call string, id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[call]++
	return f.failing[id]
}

func (f *fakeFetcher) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[call]
}

func (f *fakeFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeFetcher) setFailing(id int64, failing bool) {
	f.mu.Lock()
	f.failing[id] = failing
	f.mu.Unlock()
}

func (f *fakeFetcher) GetShowDetails(ctx context.Context, id int64) (*tmdb.ShowDetails, error) {
	fail := f.record(fmt.Sprintf("show/%d", id), id)
	if f.block != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, errFetch
	}
	show, ok := f.shows[id]
	if !ok {
		return nil, tmdb.ErrNotFound
	}
	return show, nil
}

func (f *fakeFetcher) GetSeasonDetails(ctx context.Context, id int64, seasonNumber int) (*tmdb.SeasonDetails, error) {
	key := fmt.Sprintf("%d/%d", id, seasonNumber)
	if f.record("season/"+key, id) {
		return nil, errFetch
	}
	season, ok := f.seasons[key]
	if !ok {
		return nil, tmdb.ErrNotFound
	}
	return season, nil
}

func (f *fakeFetcher) GetMovieDetails(ctx context.Context, id int64) (*tmdb.MovieDetails, error) {
	if f.record(fmt.Sprintf("movie/%d", id), id) {
		return nil, errFetch
	}
	movie, ok := f.movies[id]
	if !ok {
		return nil, tmdb.ErrNotFound
	}
	return movie, nil
}

func (f *fakeFetcher) GetMovieReleaseDates(ctx context.Context, id int64) ([]tmdb.ReleaseDate, error) {
	if f.record(fmt.Sprintf("releases/%d", id), id) {
		return nil, errFetch
	}
	return f.releases[id], nil
}

func (f *fakeFetcher) GetListDetails(ctx context.Context, listID string) (*tmdb.ListDetails, error) {
	f.record("list/"+listID, 0)
	list, ok := f.lists[listID]
	if !ok {
		return nil, tmdb.ErrNotFound
	}
	return list, nil
}

// memStore is an in-memory CacheStore
type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	writes int
	setErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Set(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.writes++
	s.data[key] = data
	return nil
}

func (s *memStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *memStore) Del(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// staticTracked is a mutable TrackedSource
type staticTracked struct {
	mu    sync.Mutex
	items []models.TrackedItem
}

func (s *staticTracked) Tracked() ([]models.TrackedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TrackedItem, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *staticTracked) set(items ...models.TrackedItem) {
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
}

// memSettings is an in-memory SettingsStore
type memSettings struct {
	mu       sync.Mutex
	settings models.Settings
}

func (s *memSettings) GetSettings() (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, nil
}

func (s *memSettings) SaveSettings(settings models.Settings) error {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	return nil
}

// fakeClock is a settable clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func tvItem(id int64, name string) models.TrackedItem {
	return models.TrackedItem{ID: id, MediaType: models.MediaTypeTV, Name: name, OriginCountry: []string{"US"}}
}

func movieItem(id int64, name, releaseDate string) models.TrackedItem {
	return models.TrackedItem{ID: id, MediaType: models.MediaTypeMovie, Name: name, FirstAirDate: releaseDate, OriginCountry: []string{"US"}}
}

// addShow registers a show with the given number of seasons; each season gets
// the episodes listed under its number in airDates
func (f *fakeFetcher) addShow(id int64, name string, seasons int, airDates map[int][]string) {
	f.shows[id] = &tmdb.ShowDetails{ID: id, Name: name, NumberOfSeasons: seasons, OriginCountry: []string{"US"}}
	for n := 0; n <= seasons; n++ {
		season := &tmdb.SeasonDetails{SeasonNumber: n}
		for i, date := range airDates[n] {
			season.Episodes = append(season.Episodes, tmdb.Episode{
				AirDate:       date,
				SeasonNumber:  n,
				EpisodeNumber: i + 1,
				Name:          fmt.Sprintf("%s S%dE%d", name, n, i+1),
			})
		}
		f.seasons[fmt.Sprintf("%d/%d", id, n)] = season
	}
}

type syncFixture struct {
	ctrl     *SyncController
	fetcher  *fakeFetcher
	store    *memStore
	tracked  *staticTracked
	settings *memSettings
	clock    *fakeClock
}

func newSyncFixture(t *testing.T, items ...models.TrackedItem) *syncFixture {
	t.Helper()
	fx := &syncFixture{
		fetcher:  newFakeFetcher(),
		store:    newMemStore(),
		tracked:  &staticTracked{items: items},
		settings: &memSettings{settings: models.DefaultSettings()},
		clock:    &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
	}
	cfg := config.DefaultSyncConfig()
	cfg.BatchCooldown = time.Millisecond
	fx.ctrl = NewSyncController(fx.store, fx.fetcher, fx.tracked, fx.settings, nil, cfg, utils.NewDiscardLogger())
	fx.ctrl.now = fx.clock.Now
	t.Cleanup(fx.ctrl.Close)
	return fx
}

func (fx *syncFixture) sync(t *testing.T, force bool) *SyncReport {
	t.Helper()
	report, err := fx.ctrl.Sync(context.Background(), force)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	return report
}
