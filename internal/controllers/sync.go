package controllers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/amaumene/airdate/internal/cache"
	"github.com/amaumene/airdate/internal/config"
	"github.com/amaumene/airdate/internal/dateshift"
	"github.com/amaumene/airdate/internal/metrics"
	"github.com/amaumene/airdate/internal/models"
	"github.com/amaumene/airdate/internal/tracked"
)

// ErrSyncSuperseded is returned by a pass that was cancelled by a forced sync
var ErrSyncSuperseded = errors.New("sync superseded by a forced sync")

var tracer = otel.Tracer("github.com/amaumene/airdate/internal/controllers")

// SyncState is the phase the engine is currently in
type SyncState string

const (
	StateIdle         SyncState = "idle"
	StateLoadingCache SyncState = "loading_cache"
	StateDiffing      SyncState = "diffing"
	StateFetching     SyncState = "fetching"
	StateMerging      SyncState = "merging"
	StateCleanup      SyncState = "cleanup"
	StatePersisting   SyncState = "persisting"
)

// SyncScope is the kind of pass that ran
type SyncScope string

const (
	ScopeFull        SyncScope = "full"
	ScopeIncremental SyncScope = "incremental"
	ScopeSkip        SyncScope = "skip"
	ScopeCloud       SyncScope = "cloud"
)

// Progress counts fetched items of the running pass
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// SyncReport summarizes one pass
type SyncReport struct {
	Scope        SyncScope `json:"scope"`
	Forced       bool      `json:"forced"`
	Tracked      int       `json:"tracked"`
	Fetched      int       `json:"fetched"`
	Failed       []string  `json:"failed,omitempty"`
	Removed      int       `json:"removed"`
	Events       int       `json:"events"`
	Rebucketed   bool      `json:"rebucketed,omitempty"`
	CacheError   string    `json:"cache_error,omitempty"`
	PersistError string    `json:"persist_error,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// SyncStatus is a snapshot of the engine for status endpoints
type SyncStatus struct {
	State      SyncState       `json:"state"`
	Progress   Progress        `json:"progress"`
	LastSync   time.Time       `json:"last_sync,omitempty"`
	Events     int             `json:"events"`
	Settings   models.Settings `json:"settings"`
	LastReport *SyncReport     `json:"last_report,omitempty"`
}

// flight is one scheduled pass shared by every caller that joined it
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	force   bool
	waiters int
	done    chan struct{}
	report  *SyncReport
	err     error
}

// itemResult is the outcome of fetching one tracked item
type itemResult struct {
	item   models.TrackedItem
	events []models.ReleaseEvent
	err    error
}

// SyncController keeps the episode index in step with the tracked set
type SyncController struct {
	store    CacheStore
	fetcher  MetadataFetcher
	source   TrackedSource
	settings SettingsStore
	cloud    CloudSource
	cfg      config.SyncConfig
	logger   *logrus.Logger
	now      func() time.Time

	baseCtx  context.Context
	stop     context.CancelFunc
	flightMu sync.Mutex
	running  *flight
	queued   *flight
	passMu   sync.Mutex // held for the duration of a pass or a rebucket

	mu         sync.RWMutex
	index      models.EpisodeIndex
	meta       *cache.SyncMetadata
	state      SyncState
	progress   Progress
	lastReport *SyncReport
}

// NewSyncController creates a new sync controller. cloud may be nil.
func NewSyncController(
	store CacheStore,
	fetcher MetadataFetcher,
	source TrackedSource,
	settings SettingsStore,
	cloud CloudSource,
	cfg config.SyncConfig,
	logger *logrus.Logger,
) *SyncController {
	ctx, cancel := context.WithCancel(context.Background())
	return &SyncController{
		store:    store,
		fetcher:  fetcher,
		source:   source,
		settings: settings,
		cloud:    cloud,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		baseCtx:  ctx,
		stop:     cancel,
		index:    make(models.EpisodeIndex),
		state:    StateIdle,
	}
}

// Close cancels any running pass
func (c *SyncController) Close() {
	c.stop()
}

// Sync runs a sync pass, or joins the pass queued behind the running one.
// A forced call cancels a running non-forced pass.
func (c *SyncController) Sync(ctx context.Context, force bool) (*SyncReport, error) {
	c.flightMu.Lock()
	var f *flight
	switch {
	case c.running == nil:
		f = c.newFlight(force)
		c.running = f
		go c.fly(f)
	case c.queued == nil:
		f = c.newFlight(force)
		c.queued = f
	default:
		f = c.queued
		f.force = f.force || force
	}
	f.waiters++
	if force && c.running != f && !c.running.force {
		c.logger.Info("Cancelling running sync for forced sync")
		c.running.cancel()
	}
	c.flightMu.Unlock()

	select {
	case <-f.done:
		return f.report, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Trigger requests a background pass, for tracked-set changes
func (c *SyncController) Trigger(reason string) {
	go func() {
		report, err := c.Sync(c.baseCtx, false)
		if err != nil {
			if !errors.Is(err, ErrSyncSuperseded) && !errors.Is(err, context.Canceled) {
				c.logger.WithError(err).WithField("reason", reason).Error("Triggered sync failed")
			}
			return
		}
		c.logger.WithFields(logrus.Fields{
			"reason": reason,
			"scope":  report.Scope,
		}).Debug("Triggered sync completed")
	}()
}

func (c *SyncController) newFlight(force bool) *flight {
	ctx, cancel := context.WithCancel(c.baseCtx)
	return &flight{ctx: ctx, cancel: cancel, force: force, done: make(chan struct{})}
}

// fly runs f and then every pass queued behind it
func (c *SyncController) fly(f *flight) {
	for f != nil {
		c.flightMu.Lock()
		force := f.force
		c.flightMu.Unlock()

		f.report, f.err = c.run(f.ctx, force)
		f.cancel()
		close(f.done)

		c.flightMu.Lock()
		f = c.queued
		c.queued = nil
		c.running = f
		c.flightMu.Unlock()
	}
}

// run executes one pass
func (c *SyncController) run(ctx context.Context, force bool) (*SyncReport, error) {
	c.passMu.Lock()
	defer c.passMu.Unlock()

	ctx, span := tracer.Start(ctx, "sync.pass", trace.WithAttributes(attribute.Bool("force", force)))
	defer span.End()
	defer c.setState(StateIdle)

	start := c.now()
	report := &SyncReport{Forced: force, StartedAt: start}

	c.setState(StateLoadingCache)
	items, err := c.source.Tracked()
	if err != nil {
		return nil, fmt.Errorf("failed to derive tracked set: %w", err)
	}
	settings, err := c.settings.GetSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	shifter := c.shifter(settings)
	trackedKeys := tracked.Keys(items)
	report.Tracked = len(items)

	index, meta, err := c.loadCache()
	if err != nil {
		report.CacheError = err.Error()
		c.logger.WithError(err).Warn("Cached index unusable, starting from an empty index")
	}
	c.publish(index, meta)

	if meta != nil && !meta.Settings().SameBucketing(settings) {
		c.logger.WithFields(logrus.Fields{
			"timezone":   settings.Timezone,
			"time_shift": settings.TimeShift,
		}).Info("Bucketing settings changed, rebucketing cached index")
		index = rebucket(index, shifter)
		report.Rebucketed = true
		c.publish(index, meta)
	}

	c.setState(StateDiffing)
	cachedKeys := make(map[string]bool)
	if meta != nil {
		cachedKeys = meta.TrackedSet()
	}
	missing := difference(trackedKeys, cachedKeys)
	removed := difference(cachedKeys, trackedKeys)
	stale := meta == nil || c.now().Sub(meta.Timestamp) > c.cfg.TTL

	var worklist []models.TrackedItem
	switch {
	case force || (stale && len(missing) == 0 && len(removed) == 0):
		report.Scope = ScopeFull
		worklist = items
	case len(missing) > 0 || len(removed) > 0:
		report.Scope = ScopeIncremental
		for _, item := range items {
			if missing[item.Key()] {
				worklist = append(worklist, item)
			}
		}
	default:
		report.Scope = ScopeSkip
	}

	c.logger.WithFields(logrus.Fields{
		"scope":   report.Scope,
		"tracked": len(items),
		"missing": len(missing),
		"removed": len(removed),
		"stale":   stale,
	}).Info("Starting sync pass")

	var fetched []models.ReleaseEvent
	fetchedKeys := make(map[string]bool)

	if report.Scope != ScopeSkip && !force && c.cloud != nil {
		if events, ok := c.loadFromCloud(ctx, items); ok {
			report.Scope = ScopeCloud
			worklist = nil
			index = make(models.EpisodeIndex)
			index.Merge(bucketAll(events, shifter))
			c.publish(index, meta)
		}
	}

	if len(worklist) > 0 {
		c.setState(StateFetching)
		worklist = c.prioritize(worklist, missing, index)
		fetched, err = c.fetchAll(ctx, worklist, shifter, index, meta, fetchedKeys, report)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	c.setState(StateCleanup)
	report.Removed = index.RetainShows(trackedKeys)
	if report.Removed > 0 {
		c.logger.WithField("events", report.Removed).Info("Removed events of untracked items")
	}

	if ctx.Err() != nil {
		return nil, ErrSyncSuperseded
	}

	c.setState(StatePersisting)
	timestamp := c.now()
	if meta != nil && (report.Scope == ScopeIncremental || report.Scope == ScopeSkip) {
		timestamp = meta.Timestamp
	}
	newMeta := cache.SyncMetadata{
		Timestamp:  timestamp,
		TrackedIDs: sortedKeys(trackedKeys),
		Timezone:   settings.Timezone,
		TimeShift:  settings.TimeShift,
	}
	if err := c.persist(index, newMeta); err != nil {
		report.PersistError = err.Error()
		c.logger.WithError(err).Error("Failed to persist index, keeping in-memory copy")
	}

	if c.cloud != nil && len(fetchedKeys) > 0 {
		if err := c.cloud.Push(ctx, items, fetched, fetchedKeys); err != nil {
			c.logger.WithError(err).Warn("Failed to push events to cloud store")
		}
	}

	report.Events = index.Len()
	report.FinishedAt = c.now()

	c.mu.Lock()
	c.index = index
	c.meta = &newMeta
	c.progress = Progress{}
	c.lastReport = report
	c.mu.Unlock()

	metrics.SyncPasses.WithLabelValues(string(report.Scope)).Inc()
	metrics.SyncDuration.Observe(report.FinishedAt.Sub(start).Seconds())
	metrics.IndexedEvents.Set(float64(report.Events))
	span.SetAttributes(
		attribute.String("scope", string(report.Scope)),
		attribute.Int("fetched", report.Fetched),
		attribute.Int("failed", len(report.Failed)),
	)

	c.logger.WithFields(logrus.Fields{
		"scope":    report.Scope,
		"fetched":  report.Fetched,
		"failed":   len(report.Failed),
		"removed":  report.Removed,
		"events":   report.Events,
		"duration": report.FinishedAt.Sub(start).String(),
	}).Info("Sync pass completed")

	return report, nil
}

// fetchAll fetches worklist in batches, merging and publishing after each batch.
// An item that fetched replaces all of its events in index; failed items keep
// theirs.
func (c *SyncController) fetchAll(
	ctx context.Context,
	worklist []models.TrackedItem,
	shifter *dateshift.Shifter,
	index models.EpisodeIndex,
	meta *cache.SyncMetadata,
	fetchedKeys map[string]bool,
	report *SyncReport,
) ([]models.ReleaseEvent, error) {
	size := c.cfg.BatchSize
	if size < 1 {
		size = 1
	}
	total := len(worklist)
	c.setProgress(Progress{Total: total})

	var fetched []models.ReleaseEvent
	for start := 0; start < total; start += size {
		if start > 0 && c.cfg.BatchCooldown > 0 {
			select {
			case <-time.After(c.cfg.BatchCooldown):
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			c.logger.WithField("progress", start).Info("Sync pass superseded")
			return nil, ErrSyncSuperseded
		}

		end := start + size
		if end > total {
			end = total
		}
		batch := worklist[start:end]
		results := make([]itemResult, len(batch))

		p := pool.New().WithMaxGoroutines(len(batch))
		for i, item := range batch {
			p.Go(func() {
				events, err := c.fetchItem(ctx, item)
				results[i] = itemResult{item: item, events: events, err: err}
			})
		}
		p.Wait()

		if ctx.Err() != nil {
			c.logger.WithField("progress", start).Info("Sync pass superseded")
			return nil, ErrSyncSuperseded
		}

		c.setState(StateMerging)
		for _, res := range results {
			key := res.item.Key()
			if res.err != nil {
				report.Failed = append(report.Failed, key)
				metrics.ItemFailures.Inc()
				c.logger.WithError(res.err).WithFields(logrus.Fields{
					"item": key,
					"name": res.item.Name,
				}).Warn("Failed to fetch item, keeping cached events")
				continue
			}
			index.RemoveShows(map[string]bool{key: true})
			index.Merge(bucketAll(res.events, shifter))
			fetched = append(fetched, res.events...)
			fetchedKeys[key] = true
			report.Fetched++
		}
		c.publish(index, meta)
		c.setProgress(Progress{Current: end, Total: total})
		c.setState(StateFetching)
	}
	return fetched, nil
}

// fetchItem resolves one tracked item to its release events
func (c *SyncController) fetchItem(ctx context.Context, item models.TrackedItem) ([]models.ReleaseEvent, error) {
	ctx, span := tracer.Start(ctx, "sync.fetch_item", trace.WithAttributes(attribute.String("item", item.Key())))
	defer span.End()

	var (
		events []models.ReleaseEvent
		err    error
	)
	switch item.MediaType {
	case models.MediaTypeTV:
		events, err = c.fetchShow(ctx, item)
	case models.MediaTypeMovie:
		events, err = c.fetchMovie(ctx, item)
	default:
		err = fmt.Errorf("unsupported media type %q", item.MediaType)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return events, err
}

func (c *SyncController) fetchShow(ctx context.Context, item models.TrackedItem) ([]models.ReleaseEvent, error) {
	details, err := c.fetcher.GetShowDetails(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get show details: %w", err)
	}
	country := item.PrimaryCountry()
	if len(details.OriginCountry) > 0 {
		country = details.OriginCountry[0]
	}
	name := details.Name
	if name == "" {
		name = item.Name
	}

	var events []models.ReleaseEvent
	for _, seasonNumber := range seasonsToFetch(details.NumberOfSeasons) {
		season, err := c.fetcher.GetSeasonDetails(ctx, item.ID, seasonNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to get season %d: %w", seasonNumber, err)
		}
		poster := season.PosterPath
		if poster == "" {
			poster = details.PosterPath
		}
		for _, ep := range season.Episodes {
			if ep.AirDate == "" {
				continue
			}
			sn := ep.SeasonNumber
			if sn == 0 {
				sn = seasonNumber
			}
			events = append(events, models.ReleaseEvent{
				ID:            models.EpisodeEventID(item.ID, sn, ep.EpisodeNumber),
				ShowID:        item.ID,
				ShowName:      name,
				MediaType:     models.MediaTypeTV,
				Name:          ep.Name,
				Overview:      ep.Overview,
				AirDate:       ep.AirDate,
				SeasonNumber:  sn,
				EpisodeNumber: ep.EpisodeNumber,
				PosterPath:    poster,
				StillPath:     ep.StillPath,
				VoteAverage:   ep.VoteAverage,
				OriginCountry: country,
			})
		}
	}
	return events, nil
}

func (c *SyncController) fetchMovie(ctx context.Context, item models.TrackedItem) ([]models.ReleaseEvent, error) {
	dates, err := c.fetcher.GetMovieReleaseDates(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get release dates: %w", err)
	}

	country := item.PrimaryCountry()
	if country == "" {
		details, err := c.fetcher.GetMovieDetails(ctx, item.ID)
		if err != nil {
			c.logger.WithError(err).WithField("item", item.Key()).Debug("Failed to get movie details for origin country")
		} else if countries := details.Countries(); len(countries) > 0 {
			country = countries[0]
		}
	}

	event := func(date string, rt models.ReleaseType) models.ReleaseEvent {
		return models.ReleaseEvent{
			ID:            models.MovieEventID(item.ID, rt),
			ShowID:        item.ID,
			ShowName:      item.Name,
			MediaType:     models.MediaTypeMovie,
			Name:          item.Name,
			Overview:      item.Overview,
			AirDate:       date,
			IsMovie:       true,
			ReleaseType:   rt,
			PosterPath:    item.PosterPath,
			VoteAverage:   item.VoteAverage,
			OriginCountry: country,
		}
	}

	// dates arrive sorted, so the first of each type is the earliest
	seen := make(map[models.ReleaseType]bool)
	var events []models.ReleaseEvent
	for _, d := range dates {
		if d.Date == "" || seen[d.Type] {
			continue
		}
		seen[d.Type] = true
		events = append(events, event(d.Date, d.Type))
	}
	if len(events) == 0 && item.FirstAirDate != "" {
		events = append(events, event(item.FirstAirDate, models.ReleaseTheatrical))
	}
	return events, nil
}

// seasonsToFetch returns the current and previous season. Specials (season 0)
// are only fetched when the show has no numbered season.
func seasonsToFetch(numberOfSeasons int) []int {
	switch {
	case numberOfSeasons <= 0:
		return []int{0}
	case numberOfSeasons == 1:
		return []int{1}
	default:
		return []int{numberOfSeasons - 1, numberOfSeasons}
	}
}

// prioritize orders missing items first, then items with events near today
func (c *SyncController) prioritize(items []models.TrackedItem, missing map[string]bool, index models.EpisodeIndex) []models.TrackedItem {
	today := c.now()
	near := index.ShowsInRange(
		today.Add(-c.cfg.NearWindowBefore).Format(models.DateLayout),
		today.Add(c.cfg.NearWindowAfter).Format(models.DateLayout),
	)
	rank := func(item models.TrackedItem) int {
		switch key := item.Key(); {
		case missing[key]:
			return 0
		case near[key]:
			return 1
		default:
			return 2
		}
	}
	out := make([]models.TrackedItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool { return rank(out[i]) < rank(out[j]) })
	return out
}

func (c *SyncController) loadFromCloud(ctx context.Context, items []models.TrackedItem) ([]models.ReleaseEvent, bool) {
	events, ok, err := c.cloud.Load(ctx, items)
	if err != nil {
		c.logger.WithError(err).Warn("Cloud load failed, falling back to provider")
		return nil, false
	}
	if ok {
		c.logger.WithField("events", len(events)).Info("Loaded index from cloud store")
	}
	return events, ok
}

// Rebucket re-files every cached event under the given settings and persists
// the result. It never fetches.
func (c *SyncController) Rebucket(settings models.Settings) error {
	c.passMu.Lock()
	defer c.passMu.Unlock()

	c.mu.RLock()
	index, meta := c.index.Clone(), c.meta
	c.mu.RUnlock()

	if meta == nil {
		loaded, loadedMeta, err := c.loadCache()
		if err != nil {
			c.logger.WithError(err).Warn("Cached index unusable, rebucketing empty index")
		}
		index, meta = loaded, loadedMeta
	}

	index = rebucket(index, c.shifter(settings))

	newMeta := cache.SyncMetadata{Timestamp: c.now(), Timezone: settings.Timezone, TimeShift: settings.TimeShift}
	if meta != nil {
		newMeta.Timestamp = meta.Timestamp
		newMeta.TrackedIDs = meta.TrackedIDs
	}

	c.mu.Lock()
	c.index = index
	c.meta = &newMeta
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"timezone":   settings.Timezone,
		"time_shift": settings.TimeShift,
		"events":     index.Len(),
	}).Info("Index rebucketed")

	if meta == nil {
		// nothing was ever synced; the next pass builds the pair
		return nil
	}
	if err := c.persist(index, newMeta); err != nil {
		return fmt.Errorf("failed to persist rebucketed index: %w", err)
	}
	return nil
}

// Index returns a snapshot of the published index
func (c *SyncController) Index() models.EpisodeIndex {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.Clone()
}

// State returns the current engine phase
func (c *SyncController) State() SyncState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Progress returns the progress of the running pass
func (c *SyncController) Progress() Progress {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.progress
}

// Status returns a snapshot for status endpoints
func (c *SyncController) Status() SyncStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	status := SyncStatus{
		State:      c.state,
		Progress:   c.progress,
		Events:     c.index.Len(),
		LastReport: c.lastReport,
	}
	if c.meta != nil {
		status.LastSync = c.meta.Timestamp
		status.Settings = c.meta.Settings()
	}
	return status
}

// loadCache reads the persisted pair. A missing or unreadable pair yields an
// empty index and nil metadata.
func (c *SyncController) loadCache() (models.EpisodeIndex, *cache.SyncMetadata, error) {
	empty := make(models.EpisodeIndex)

	rawIndex, okIndex, err := c.store.Get(c.cfg.IndexKey)
	if err != nil {
		return empty, nil, fmt.Errorf("failed to read %s: %w", c.cfg.IndexKey, err)
	}
	rawMeta, okMeta, err := c.store.Get(c.cfg.MetadataKey)
	if err != nil {
		return empty, nil, fmt.Errorf("failed to read %s: %w", c.cfg.MetadataKey, err)
	}
	if !okIndex || !okMeta {
		return empty, nil, nil
	}

	index, err := cache.DecodeIndex(rawIndex)
	if err != nil {
		return empty, nil, err
	}
	meta, err := cache.DecodeMetadata(rawMeta)
	if err != nil {
		return empty, nil, err
	}
	return index, &meta, nil
}

// persist writes the index and metadata pair
func (c *SyncController) persist(index models.EpisodeIndex, meta cache.SyncMetadata) error {
	rawIndex, err := cache.EncodeIndex(index)
	if err != nil {
		return err
	}
	rawMeta, err := cache.EncodeMetadata(meta)
	if err != nil {
		return err
	}

	if bs, ok := c.store.(batchStore); ok {
		return bs.SetMany(map[string][]byte{
			c.cfg.IndexKey:    rawIndex,
			c.cfg.MetadataKey: rawMeta,
		})
	}
	if err := c.store.Set(c.cfg.IndexKey, rawIndex); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.cfg.IndexKey, err)
	}
	if err := c.store.Set(c.cfg.MetadataKey, rawMeta); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.cfg.MetadataKey, err)
	}
	return nil
}

func (c *SyncController) shifter(settings models.Settings) *dateshift.Shifter {
	return &dateshift.Shifter{Timezone: settings.Timezone, Enabled: settings.TimeShift, Now: c.now}
}

func (c *SyncController) publish(index models.EpisodeIndex, meta *cache.SyncMetadata) {
	snapshot := index.Clone()
	c.mu.Lock()
	c.index = snapshot
	if meta != nil {
		c.meta = meta
	}
	c.mu.Unlock()
}

func (c *SyncController) setState(s SyncState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *SyncController) setProgress(p Progress) {
	c.mu.Lock()
	c.progress = p
	c.mu.Unlock()
}

// rebucket rebuilds index with every event re-shifted
func rebucket(index models.EpisodeIndex, shifter *dateshift.Shifter) models.EpisodeIndex {
	out := make(models.EpisodeIndex)
	out.Merge(bucketAll(index.Flatten(), shifter))
	return out
}

func bucketAll(events []models.ReleaseEvent, shifter *dateshift.Shifter) []models.BucketedEvent {
	out := make([]models.BucketedEvent, 0, len(events))
	for _, e := range events {
		out = append(out, models.BucketedEvent{Bucket: shifter.Bucket(e.AirDate, e.OriginCountry), Event: e})
	}
	return out
}

// difference returns the keys of a that are not in b
func difference(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for k := range a {
		if !b[k] {
			out[k] = true
		}
	}
	return out
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
