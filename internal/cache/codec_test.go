package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/airdate/internal/models"
)

func sampleIndex() models.EpisodeIndex {
	idx := models.EpisodeIndex{}
	idx.Merge([]models.BucketedEvent{{
		Bucket: "2024-05-01",
		Event: models.ReleaseEvent{
			ID:        models.EpisodeEventID(100, 5, 1),
			ShowID:    100,
			MediaType: models.MediaTypeTV,
			AirDate:   "2024-05-01",
		},
	}})
	return idx
}

func TestIndexRoundTrip(t *testing.T) {
	data, err := EncodeIndex(sampleIndex())
	require.NoError(t, err)

	idx, err := DecodeIndex(data)
	require.NoError(t, err)
	assert.Equal(t, sampleIndex(), idx)
}

func TestDecodeIndexRejectsGarbage(t *testing.T) {
	_, err := DecodeIndex([]byte("{not json"))
	assert.True(t, errors.Is(err, ErrCorrupt))

	_, err = DecodeIndex([]byte(`{"version":1,"kind":"episode-index","payload":{"yesterday":[]}}`))
	assert.True(t, errors.Is(err, ErrCorrupt), "bad bucket key should be rejected")

	_, err = DecodeIndex([]byte(`{"version":1,"kind":"sync-metadata","payload":{}}`))
	assert.True(t, errors.Is(err, ErrCorrupt), "wrong kind should be rejected")
}

func TestDecodeIndexRejectsUnknownVersion(t *testing.T) {
	_, err := DecodeIndex([]byte(`{"version":99,"kind":"episode-index","payload":{}}`))
	assert.True(t, errors.Is(err, ErrIncompatible))

	// Unversioned blobs from older builds
	_, err = DecodeIndex([]byte(`{"2024-05-01":[]}`))
	assert.True(t, errors.Is(err, ErrIncompatible))
}

func TestDecodeIndexRejectsEventInTwoBuckets(t *testing.T) {
	blob := `{"version":1,"kind":"episode-index","payload":{
		"2024-05-01":[{"id":"tv:1:s1e1","show_id":1,"media_type":"tv","air_date":"2024-05-01"}],
		"2024-05-02":[{"id":"tv:1:s1e1","show_id":1,"media_type":"tv","air_date":"2024-05-01"}]}}`
	_, err := DecodeIndex([]byte(blob))
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestMetadataRoundTrip(t *testing.T) {
	meta := SyncMetadata{
		Timestamp:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		TrackedIDs: []string{"tv:100", "movie:7"},
		Timezone:   "Europe/Paris",
		TimeShift:  true,
	}
	data, err := EncodeMetadata(meta)
	require.NoError(t, err)

	got, err := DecodeMetadata(data)
	require.NoError(t, err)
	assert.True(t, got.Timestamp.Equal(meta.Timestamp))
	assert.Equal(t, meta.TrackedIDs, got.TrackedIDs)
	assert.Equal(t, map[string]bool{"tv:100": true, "movie:7": true}, got.TrackedSet())
	assert.Equal(t, models.Settings{Timezone: "Europe/Paris", TimeShift: true}, got.Settings())
}

func TestDecodeMetadataRequiresTimestamp(t *testing.T) {
	_, err := DecodeMetadata([]byte(`{"version":1,"kind":"sync-metadata","payload":{"tracked_ids":[]}}`))
	assert.True(t, errors.Is(err, ErrCorrupt))
}
