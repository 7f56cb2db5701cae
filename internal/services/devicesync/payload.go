// Package devicesync encodes the compact payload used to move a watchlist,
// list subscriptions and bucketing settings between devices. Only ids travel;
// the receiving side re-resolves metadata through the provider.
package devicesync

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/amaumene/airdate/internal/models"
)

// Version is stamped on every payload and checked on decode
const Version = 1

// maxDecodedSize bounds the decompressed payload
const maxDecodedSize = 4 << 20

// ErrCorruptPayload is returned for payloads that cannot be decoded or validated
var ErrCorruptPayload = errors.New("corrupt sync payload")

// Payload is the device-sync content
type Payload struct {
	APIKey    string
	Username  string
	Watchlist []Ref
	ListIDs   []string
	Settings  Settings
}

// Ref identifies a watchlist item
type Ref struct {
	ID        int64
	MediaType models.MediaType
}

// Settings is the subset of settings carried between devices
type Settings struct {
	Timezone  string `json:"tz"`
	TimeShift bool   `json:"ts"`
}

type wirePayload struct {
	V int       `json:"v"`
	K string    `json:"k,omitempty"`
	U string    `json:"u,omitempty"`
	W []wireRef `json:"w"`
	L []string  `json:"l"`
	S Settings  `json:"s"`
}

// wireRef is encoded as a two element array: [id, "t"|"m"]
type wireRef Ref

func (r wireRef) MarshalJSON() ([]byte, error) {
	var code string
	switch r.MediaType {
	case models.MediaTypeTV:
		code = "t"
	case models.MediaTypeMovie:
		code = "m"
	default:
		return nil, fmt.Errorf("unknown media type %q", r.MediaType)
	}
	return json.Marshal([]interface{}{r.ID, code})
}

func (r *wireRef) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("watchlist entry has %d elements", len(pair))
	}
	var code string
	if err := json.Unmarshal(pair[0], &r.ID); err != nil {
		return fmt.Errorf("invalid watchlist id: %w", err)
	}
	if err := json.Unmarshal(pair[1], &code); err != nil {
		return fmt.Errorf("invalid watchlist type: %w", err)
	}
	switch code {
	case "t":
		r.MediaType = models.MediaTypeTV
	case "m":
		r.MediaType = models.MediaTypeMovie
	default:
		return fmt.Errorf("unknown watchlist type %q", code)
	}
	return nil
}

// Encode serializes p as JSON, compresses it with zstd and returns it base64url encoded
func Encode(p Payload) (string, error) {
	wire := wirePayload{
		V: Version,
		K: p.APIKey,
		U: p.Username,
		W: make([]wireRef, 0, len(p.Watchlist)),
		L: p.ListIDs,
		S: p.Settings,
	}
	if wire.L == nil {
		wire.L = []string{}
	}
	for _, ref := range p.Watchlist {
		wire.W = append(wire.W, wireRef(ref))
	}

	raw, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return "", fmt.Errorf("failed to create encoder: %w", err)
	}
	defer enc.Close()

	return base64.RawURLEncoding.EncodeToString(enc.EncodeAll(raw, nil)), nil
}

// Decode reverses Encode and validates the result
func Decode(s string) (*Payload, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}

	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}

	var wire wirePayload
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	if wire.V != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptPayload, wire.V)
	}

	p := &Payload{
		APIKey:   wire.K,
		Username: wire.U,
		ListIDs:  wire.L,
		Settings: wire.S,
	}
	for _, ref := range wire.W {
		if ref.ID <= 0 {
			return nil, fmt.Errorf("%w: invalid watchlist id %d", ErrCorruptPayload, ref.ID)
		}
		p.Watchlist = append(p.Watchlist, Ref(ref))
	}
	for _, id := range p.ListIDs {
		if id == "" {
			return nil, fmt.Errorf("%w: empty list id", ErrCorruptPayload)
		}
	}
	return p, nil
}
