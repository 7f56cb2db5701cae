package controllers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/airdate/internal/models"
	"github.com/amaumene/airdate/internal/tracked"
)

// ErrInvalidItem is returned for watchlist requests with an unknown media type or id
var ErrInvalidItem = errors.New("invalid tracked item")

// TrackedStore persists the watchlist and list subscriptions
type TrackedStore interface {
	AddWatchlistEntry(item models.TrackedItem) (bool, error)
	UpdateWatchlistItem(item models.TrackedItem) error
	RemoveWatchlistEntry(key string) error
	GetWatchlist() ([]models.TrackedItem, error)
	SaveSubscribedList(list *models.SubscribedList) error
	RemoveSubscribedList(listID string) error
	GetSubscribedLists() ([]models.SubscribedList, error)
}

// TrackedController manages the sources of the tracked item set
type TrackedController struct {
	db       TrackedStore
	fetcher  MetadataFetcher
	onChange func(reason string)
	logger   *logrus.Logger
}

// NewTrackedController creates a new tracked controller
func NewTrackedController(db TrackedStore, fetcher MetadataFetcher, logger *logrus.Logger) *TrackedController {
	return &TrackedController{
		db:      db,
		fetcher: fetcher,
		logger:  logger,
	}
}

// OnChange registers the callback run after the tracked set changed
func (c *TrackedController) OnChange(fn func(reason string)) {
	c.onChange = fn
}

// Tracked derives the tracked set from the watchlist and subscriptions
func (c *TrackedController) Tracked() ([]models.TrackedItem, error) {
	watchlist, err := c.db.GetWatchlist()
	if err != nil {
		return nil, fmt.Errorf("failed to get watchlist: %w", err)
	}
	lists, err := c.db.GetSubscribedLists()
	if err != nil {
		return nil, fmt.Errorf("failed to get subscribed lists: %w", err)
	}
	return tracked.Derive(watchlist, lists), nil
}

// Watchlist returns the watchlist in insertion order
func (c *TrackedController) Watchlist() ([]models.TrackedItem, error) {
	return c.db.GetWatchlist()
}

// Lists returns the subscribed lists in subscription order
func (c *TrackedController) Lists() ([]models.SubscribedList, error) {
	return c.db.GetSubscribedLists()
}

// AddToWatchlist resolves an item through the provider and adds it. Adding an
// item already on the watchlist is a no-op and reports added=false.
func (c *TrackedController) AddToWatchlist(ctx context.Context, mediaType models.MediaType, id int64) (models.TrackedItem, bool, error) {
	item, err := c.Resolve(ctx, mediaType, id)
	if err != nil {
		return models.TrackedItem{}, false, err
	}

	added, err := c.db.AddWatchlistEntry(item)
	if err != nil {
		return item, false, fmt.Errorf("failed to add %s to watchlist: %w", item.Key(), err)
	}
	if !added {
		// membership is unchanged; only the stored metadata is refreshed
		if err := c.db.UpdateWatchlistItem(item); err != nil {
			c.logger.WithError(err).WithField("item", item.Key()).Warn("Failed to refresh watchlist metadata")
		}
		c.logger.WithField("item", item.Key()).Debug("Item already on watchlist")
		return item, false, nil
	}

	c.logger.WithFields(logrus.Fields{
		"item": item.Key(),
		"name": item.Name,
	}).Info("Added to watchlist")
	c.changed("watchlist add")
	return item, true, nil
}

// RemoveFromWatchlist removes an item by media type and id
func (c *TrackedController) RemoveFromWatchlist(mediaType models.MediaType, id int64) error {
	key := models.ItemKey(mediaType, id)
	if err := c.db.RemoveWatchlistEntry(key); err != nil {
		return fmt.Errorf("failed to remove %s from watchlist: %w", key, err)
	}
	c.logger.WithField("item", key).Info("Removed from watchlist")
	c.changed("watchlist remove")
	return nil
}

// Resolve fetches full metadata for an item
func (c *TrackedController) Resolve(ctx context.Context, mediaType models.MediaType, id int64) (models.TrackedItem, error) {
	if id <= 0 || !mediaType.Valid() {
		return models.TrackedItem{}, fmt.Errorf("%w: %s:%d", ErrInvalidItem, mediaType, id)
	}
	switch mediaType {
	case models.MediaTypeTV:
		show, err := c.fetcher.GetShowDetails(ctx, id)
		if err != nil {
			return models.TrackedItem{}, fmt.Errorf("failed to resolve show %d: %w", id, err)
		}
		return show.TrackedItem(), nil
	default:
		movie, err := c.fetcher.GetMovieDetails(ctx, id)
		if err != nil {
			return models.TrackedItem{}, fmt.Errorf("failed to resolve movie %d: %w", id, err)
		}
		return movie.TrackedItem(), nil
	}
}

// Subscribe resolves a list and stores a snapshot of its items
func (c *TrackedController) Subscribe(ctx context.Context, listID string) (*models.SubscribedList, error) {
	details, err := c.fetcher.GetListDetails(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve list %s: %w", listID, err)
	}

	list := &models.SubscribedList{
		ListID:      listID,
		Name:        details.Name,
		Items:       details.Items,
		RefreshedAt: time.Now(),
	}
	if err := c.db.SaveSubscribedList(list); err != nil {
		return nil, fmt.Errorf("failed to save list %s: %w", listID, err)
	}

	c.logger.WithFields(logrus.Fields{
		"list":  listID,
		"name":  list.Name,
		"items": len(list.Items),
	}).Info("Subscribed to list")
	c.changed("list subscribe")
	return list, nil
}

// Unsubscribe removes a list subscription
func (c *TrackedController) Unsubscribe(listID string) error {
	if err := c.db.RemoveSubscribedList(listID); err != nil {
		return fmt.Errorf("failed to remove list %s: %w", listID, err)
	}
	c.logger.WithField("list", listID).Info("Unsubscribed from list")
	c.changed("list unsubscribe")
	return nil
}

// RefreshLists re-resolves every subscription. A list that fails to resolve
// keeps its previous snapshot.
func (c *TrackedController) RefreshLists(ctx context.Context) error {
	lists, err := c.db.GetSubscribedLists()
	if err != nil {
		return fmt.Errorf("failed to get subscribed lists: %w", err)
	}

	refreshed := 0
	for i := range lists {
		list := &lists[i]
		details, err := c.fetcher.GetListDetails(ctx, list.ListID)
		if err != nil {
			c.logger.WithError(err).WithField("list", list.ListID).Warn("Failed to refresh list, keeping snapshot")
			continue
		}
		list.Name = details.Name
		list.Items = details.Items
		list.RefreshedAt = time.Now()
		if err := c.db.SaveSubscribedList(list); err != nil {
			c.logger.WithError(err).WithField("list", list.ListID).Error("Failed to save refreshed list")
			continue
		}
		refreshed++
	}

	c.logger.WithFields(logrus.Fields{
		"lists":     len(lists),
		"refreshed": refreshed,
	}).Info("Subscribed lists refreshed")
	if refreshed > 0 {
		c.changed("list refresh")
	}
	return nil
}

func (c *TrackedController) changed(reason string) {
	if c.onChange != nil {
		c.onChange(reason)
	}
}
