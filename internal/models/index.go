package models

import (
	"sort"
)

// EpisodeIndex maps a bucket date (YYYY-MM-DD, after shifting) to its events.
// An event id appears at most once in the whole index.
type EpisodeIndex map[string][]ReleaseEvent

// BucketedEvent pairs an event with the bucket it belongs in
type BucketedEvent struct {
	Bucket string
	Event  ReleaseEvent
}

// Clone returns a deep copy of the index
func (idx EpisodeIndex) Clone() EpisodeIndex {
	out := make(EpisodeIndex, len(idx))
	for bucket, events := range idx {
		cp := make([]ReleaseEvent, len(events))
		copy(cp, events)
		out[bucket] = cp
	}
	return out
}

// Len returns the number of events across all buckets
func (idx EpisodeIndex) Len() int {
	n := 0
	for _, events := range idx {
		n += len(events)
	}
	return n
}

// Merge files events under their buckets. An event whose id already exists is
// replaced; if it moved date it leaves its previous bucket.
func (idx EpisodeIndex) Merge(incoming []BucketedEvent) {
	if len(incoming) == 0 {
		return
	}
	where := idx.locate()
	touched := make(map[string]bool)

	for _, in := range incoming {
		if prev, ok := where[in.Event.ID]; ok {
			idx.removeFromBucket(prev, in.Event.ID)
			touched[prev] = true
		}
		idx[in.Bucket] = append(idx[in.Bucket], in.Event)
		where[in.Event.ID] = in.Bucket
		touched[in.Bucket] = true
	}

	for bucket := range touched {
		idx.normalize(bucket)
	}
}

// RemoveShows drops every event belonging to one of the given show keys and
// returns how many were removed
func (idx EpisodeIndex) RemoveShows(keys map[string]bool) int {
	return idx.removeWhere(func(e ReleaseEvent) bool { return keys[e.ShowKey()] })
}

// RetainShows drops every event whose show key is not in tracked
func (idx EpisodeIndex) RetainShows(tracked map[string]bool) int {
	return idx.removeWhere(func(e ReleaseEvent) bool { return !tracked[e.ShowKey()] })
}

// Flatten returns all events ordered by bucket then id
func (idx EpisodeIndex) Flatten() []ReleaseEvent {
	buckets := idx.Buckets()
	out := make([]ReleaseEvent, 0, idx.Len())
	for _, b := range buckets {
		out = append(out, idx[b]...)
	}
	return out
}

// Buckets returns the bucket keys in ascending order
func (idx EpisodeIndex) Buckets() []string {
	keys := make([]string, 0, len(idx))
	for k := range idx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Range returns the sub-index of buckets within [from, to], both inclusive.
// Empty bounds are open.
func (idx EpisodeIndex) Range(from, to string) EpisodeIndex {
	out := make(EpisodeIndex)
	for bucket, events := range idx {
		if from != "" && bucket < from {
			continue
		}
		if to != "" && bucket > to {
			continue
		}
		cp := make([]ReleaseEvent, len(events))
		copy(cp, events)
		out[bucket] = cp
	}
	return out
}

// ShowsInRange returns the show keys with at least one event bucketed in [from, to]
func (idx EpisodeIndex) ShowsInRange(from, to string) map[string]bool {
	shows := make(map[string]bool)
	for bucket, events := range idx {
		if bucket < from || bucket > to {
			continue
		}
		for _, e := range events {
			shows[e.ShowKey()] = true
		}
	}
	return shows
}

func (idx EpisodeIndex) locate() map[string]string {
	where := make(map[string]string, idx.Len())
	for bucket, events := range idx {
		for _, e := range events {
			where[e.ID] = bucket
		}
	}
	return where
}

func (idx EpisodeIndex) removeFromBucket(bucket, id string) {
	events := idx[bucket]
	kept := events[:0]
	for _, e := range events {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	idx[bucket] = kept
}

func (idx EpisodeIndex) removeWhere(drop func(ReleaseEvent) bool) int {
	removed := 0
	for bucket, events := range idx {
		kept := make([]ReleaseEvent, 0, len(events))
		for _, e := range events {
			if drop(e) {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(idx, bucket)
		} else if len(kept) != len(events) {
			idx[bucket] = kept
		}
	}
	return removed
}

// normalize dedups a bucket by id (last write wins), sorts it and drops it when empty
func (idx EpisodeIndex) normalize(bucket string) {
	events := idx[bucket]
	if len(events) == 0 {
		delete(idx, bucket)
		return
	}
	byID := make(map[string]ReleaseEvent, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}
	out := make([]ReleaseEvent, 0, len(byID))
	for _, e := range byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	idx[bucket] = out
}
