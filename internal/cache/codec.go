// Package cache encodes the engine's persisted state: the episode index blob
// and the sync metadata blob. Both are wrapped in a versioned envelope that is
// validated on decode.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/amaumene/airdate/internal/models"
)

// SchemaVersion is stamped on every blob written by this build
const SchemaVersion = 1

const (
	kindIndex    = "episode-index"
	kindMetadata = "sync-metadata"
)

var (
	// ErrCorrupt is returned for blobs that cannot be parsed or fail validation
	ErrCorrupt = errors.New("corrupt cache blob")
	// ErrIncompatible is returned for blobs written with an unknown schema version
	ErrIncompatible = errors.New("incompatible cache schema")
)

// SyncMetadata describes the index it is stored with
type SyncMetadata struct {
	Timestamp  time.Time `json:"timestamp"`
	TrackedIDs []string  `json:"tracked_ids"`
	Timezone   string    `json:"timezone"`
	TimeShift  bool      `json:"time_shift"`
}

// TrackedSet returns TrackedIDs as a set
func (m SyncMetadata) TrackedSet() map[string]bool {
	set := make(map[string]bool, len(m.TrackedIDs))
	for _, id := range m.TrackedIDs {
		set[id] = true
	}
	return set
}

// Settings returns the bucketing settings the index was built with
func (m SyncMetadata) Settings() models.Settings {
	return models.Settings{Timezone: m.Timezone, TimeShift: m.TimeShift}
}

type envelope struct {
	Version int             `json:"version"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

func encode(kind string, v interface{}) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", kind, err)
	}
	return json.Marshal(envelope{Version: SchemaVersion, Kind: kind, Payload: payload})
}

func decode(kind string, data []byte, v interface{}) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, kind, err)
	}
	if env.Version != SchemaVersion {
		return fmt.Errorf("%w: %s version %d, expected %d", ErrIncompatible, kind, env.Version, SchemaVersion)
	}
	if env.Kind != kind {
		return fmt.Errorf("%w: expected kind %q, got %q", ErrCorrupt, kind, env.Kind)
	}
	if len(env.Payload) == 0 {
		return fmt.Errorf("%w: %s has no payload", ErrCorrupt, kind)
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrCorrupt, kind, err)
	}
	return nil
}

// EncodeIndex serializes an episode index
func EncodeIndex(idx models.EpisodeIndex) ([]byte, error) {
	if idx == nil {
		idx = models.EpisodeIndex{}
	}
	return encode(kindIndex, idx)
}

// DecodeIndex parses and validates an episode index blob
func DecodeIndex(data []byte) (models.EpisodeIndex, error) {
	var idx models.EpisodeIndex
	if err := decode(kindIndex, data, &idx); err != nil {
		return nil, err
	}
	if idx == nil {
		return nil, fmt.Errorf("%w: index is null", ErrCorrupt)
	}

	seen := make(map[string]string)
	for bucket, events := range idx {
		if _, err := time.Parse(models.DateLayout, bucket); err != nil {
			return nil, fmt.Errorf("%w: bad bucket key %q", ErrCorrupt, bucket)
		}
		for _, e := range events {
			if e.ID == "" || !e.MediaType.Valid() {
				return nil, fmt.Errorf("%w: invalid event in bucket %s", ErrCorrupt, bucket)
			}
			if prev, ok := seen[e.ID]; ok {
				return nil, fmt.Errorf("%w: event %s in buckets %s and %s", ErrCorrupt, e.ID, prev, bucket)
			}
			seen[e.ID] = bucket
		}
	}
	return idx, nil
}

// EncodeMetadata serializes sync metadata
func EncodeMetadata(meta SyncMetadata) ([]byte, error) {
	return encode(kindMetadata, meta)
}

// DecodeMetadata parses and validates a sync metadata blob
func DecodeMetadata(data []byte) (SyncMetadata, error) {
	var meta SyncMetadata
	if err := decode(kindMetadata, data, &meta); err != nil {
		return SyncMetadata{}, err
	}
	if meta.Timestamp.IsZero() {
		return SyncMetadata{}, fmt.Errorf("%w: metadata has no timestamp", ErrCorrupt)
	}
	return meta, nil
}
