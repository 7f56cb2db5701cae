// Package tracked derives the canonical set of items the engine indexes.
package tracked

import "github.com/amaumene/airdate/internal/models"

// Derive merges the watchlist and subscribed lists into one ordered set.
// The watchlist comes first, then lists in subscription order; when an item
// appears more than once the first occurrence wins.
func Derive(watchlist []models.TrackedItem, lists []models.SubscribedList) []models.TrackedItem {
	seen := make(map[string]bool)
	var out []models.TrackedItem

	add := func(item models.TrackedItem) {
		if !item.MediaType.Valid() || item.ID == 0 {
			return
		}
		key := item.Key()
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, item)
	}

	for _, item := range watchlist {
		add(item)
	}
	for _, list := range lists {
		for _, item := range list.Items {
			add(item)
		}
	}
	return out
}

// Keys returns the identity set of items
func Keys(items []models.TrackedItem) map[string]bool {
	keys := make(map[string]bool, len(items))
	for _, item := range items {
		keys[item.Key()] = true
	}
	return keys
}
