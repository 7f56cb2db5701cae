package devicesync

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/airdate/internal/models"
)

func compress(t *testing.T, raw string) string {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	return base64.RawURLEncoding.EncodeToString(enc.EncodeAll([]byte(raw), nil))
}

func TestEncodeDecode(t *testing.T) {
	in := Payload{
		APIKey:   "key",
		Username: "me",
		Watchlist: []Ref{
			{ID: 100, MediaType: models.MediaTypeTV},
			{ID: 7, MediaType: models.MediaTypeMovie},
		},
		ListIDs:  []string{"42"},
		Settings: Settings{Timezone: "Asia/Tokyo", TimeShift: true},
	}

	encoded, err := Encode(in)
	require.NoError(t, err)
	assert.NotContains(t, encoded, "=", "payload must be unpadded base64url")

	out, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, in, *out)
}

func TestWireFormat(t *testing.T) {
	p, err := Decode(compress(t, `{"v":1,"w":[[100,"t"],[7,"m"]],"l":[],"s":{"tz":"UTC","ts":false}}`))
	require.NoError(t, err)
	require.Len(t, p.Watchlist, 2)
	assert.Equal(t, Ref{ID: 100, MediaType: models.MediaTypeTV}, p.Watchlist[0])
	assert.Equal(t, models.MediaTypeMovie, p.Watchlist[1].MediaType)
	assert.Equal(t, "UTC", p.Settings.Timezone)
}

func TestDecodeRejectsCorruptInput(t *testing.T) {
	tests := map[string]string{
		"not base64":      "!!!",
		"not zstd":        base64.RawURLEncoding.EncodeToString([]byte("plain text")),
		"not json":        compress(t, "{"),
		"wrong version":   compress(t, `{"v":2,"w":[],"l":[],"s":{}}`),
		"missing version": compress(t, `{"w":[],"l":[],"s":{}}`),
		"bad media type":  compress(t, `{"v":1,"w":[[1,"x"]],"l":[],"s":{}}`),
		"short entry":     compress(t, `{"v":1,"w":[[1]],"l":[],"s":{}}`),
		"zero id":         compress(t, `{"v":1,"w":[[0,"t"]],"l":[],"s":{}}`),
		"empty list id":   compress(t, `{"v":1,"w":[],"l":[""],"s":{}}`),
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(input)
			assert.ErrorIs(t, err, ErrCorruptPayload)
		})
	}
}

func TestEncodeRejectsUnknownMediaType(t *testing.T) {
	_, err := Encode(Payload{Watchlist: []Ref{{ID: 1, MediaType: "person"}}})
	assert.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), ErrCorruptPayload.Error()))
}
