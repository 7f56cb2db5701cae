package models

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("not found")

// Database wraps the bolthold store
type Database struct {
	store *bolthold.Store
}

// blob is an opaque value stored under a string key
type blob struct {
	Key       string `boltholdKey:"Key"`
	Data      []byte
	UpdatedAt time.Time
}

type settingsRecord struct {
	Key      string `boltholdKey:"Key"`
	Settings Settings
}

const settingsKey = "settings"

// NewDatabase creates a new database connection
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// Blob operations

// Get returns the blob stored under key; ok is false when absent
func (db *Database) Get(key string) ([]byte, bool, error) {
	var b blob
	err := db.store.Get(key, &b)
	if errors.Is(err, bolthold.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b.Data, true, nil
}

// Set stores data under key, replacing any previous value
func (db *Database) Set(key string, data []byte) error {
	return db.store.Upsert(key, &blob{Key: key, Data: data, UpdatedAt: time.Now()})
}

// SetMany stores several blobs in one transaction
func (db *Database) SetMany(values map[string][]byte) error {
	return db.store.Bolt().Update(func(tx *bbolt.Tx) error {
		for key, data := range values {
			if err := db.store.TxUpsert(tx, key, &blob{Key: key, Data: data, UpdatedAt: time.Now()}); err != nil {
				return err
			}
		}
		return nil
	})
}

// Del removes the blob stored under key
func (db *Database) Del(key string) error {
	err := db.store.Delete(key, &blob{})
	if errors.Is(err, bolthold.ErrNotFound) {
		return nil
	}
	return err
}

// Watchlist operations

// AddWatchlistEntry inserts an entry; returns false when the key already exists
func (db *Database) AddWatchlistEntry(item TrackedItem) (bool, error) {
	entry := &WatchlistEntry{Key: item.Key(), Item: item, AddedAt: time.Now()}
	err := db.store.Insert(entry.Key, entry)
	if errors.Is(err, bolthold.ErrKeyExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateWatchlistItem replaces the stored metadata of an existing entry
func (db *Database) UpdateWatchlistItem(item TrackedItem) error {
	var entry WatchlistEntry
	if err := db.store.Get(item.Key(), &entry); err != nil {
		if errors.Is(err, bolthold.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	entry.Item = item
	return db.store.Update(entry.Key, &entry)
}

// RemoveWatchlistEntry deletes an entry by key
func (db *Database) RemoveWatchlistEntry(key string) error {
	err := db.store.Delete(key, &WatchlistEntry{})
	if errors.Is(err, bolthold.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// GetWatchlist returns watchlist items in the order they were added
func (db *Database) GetWatchlist() ([]TrackedItem, error) {
	var entries []WatchlistEntry
	if err := db.store.Find(&entries, nil); err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].AddedAt.Before(entries[j].AddedAt)
	})
	items := make([]TrackedItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, e.Item)
	}
	return items, nil
}

// Subscription operations

// SaveSubscribedList creates or replaces a list snapshot
func (db *Database) SaveSubscribedList(list *SubscribedList) error {
	if list.Position == 0 {
		var existing SubscribedList
		err := db.store.Get(list.ListID, &existing)
		switch {
		case err == nil:
			list.Position = existing.Position
		case errors.Is(err, bolthold.ErrNotFound):
			count, err := db.store.Count(&SubscribedList{}, nil)
			if err != nil {
				return err
			}
			list.Position = int(count) + 1
		default:
			return err
		}
	}
	return db.store.Upsert(list.ListID, list)
}

// RemoveSubscribedList deletes a list subscription
func (db *Database) RemoveSubscribedList(listID string) error {
	err := db.store.Delete(listID, &SubscribedList{})
	if errors.Is(err, bolthold.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// GetSubscribedLists returns subscriptions in subscription order
func (db *Database) GetSubscribedLists() ([]SubscribedList, error) {
	var lists []SubscribedList
	if err := db.store.Find(&lists, nil); err != nil {
		return nil, err
	}
	sort.SliceStable(lists, func(i, j int) bool {
		return lists[i].Position < lists[j].Position
	})
	return lists, nil
}

// Reminder rule operations

// SaveReminderRule creates or replaces a rule
func (db *Database) SaveReminderRule(rule *ReminderRule) error {
	return db.store.Upsert(rule.ID, rule)
}

// DeleteReminderRule removes a rule by id
func (db *Database) DeleteReminderRule(id string) error {
	err := db.store.Delete(id, &ReminderRule{})
	if errors.Is(err, bolthold.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// GetReminderRules returns all rules
func (db *Database) GetReminderRules() ([]ReminderRule, error) {
	var rules []ReminderRule
	err := db.store.Find(&rules, nil)
	return rules, err
}

// Reminder history operations

// HasFired reports whether a reminder with the given dedup key was delivered
func (db *Database) HasFired(key string) (bool, error) {
	var rec ReminderFired
	err := db.store.Get(key, &rec)
	if errors.Is(err, bolthold.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkFired records a delivered reminder
func (db *Database) MarkFired(key string, at time.Time) error {
	return db.store.Upsert(key, &ReminderFired{Key: key, FiredAt: at})
}

// Settings operations

// GetSettings returns stored settings, or defaults when none were saved
func (db *Database) GetSettings() (Settings, error) {
	var rec settingsRecord
	err := db.store.Get(settingsKey, &rec)
	if errors.Is(err, bolthold.ErrNotFound) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, err
	}
	return rec.Settings, nil
}

// SaveSettings persists settings
func (db *Database) SaveSettings(s Settings) error {
	return db.store.Upsert(settingsKey, &settingsRecord{Key: settingsKey, Settings: s})
}
