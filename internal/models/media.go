package models

import (
	"strconv"
	"time"
)

// TrackedItem represents a show or movie the engine indexes
type TrackedItem struct {
	ID            int64     `json:"id"`
	MediaType     MediaType `json:"media_type"`
	Name          string    `json:"name"`
	PosterPath    string    `json:"poster_path,omitempty"`
	BackdropPath  string    `json:"backdrop_path,omitempty"`
	Overview      string    `json:"overview,omitempty"`
	VoteAverage   float64   `json:"vote_average,omitempty"`
	FirstAirDate  string    `json:"first_air_date,omitempty"` // release_date for movies
	OriginCountry []string  `json:"origin_country,omitempty"`

	NumberOfSeasons *int `json:"number_of_seasons,omitempty"` // nil for movies
}

// Key returns the identity of the item: ids are namespaced per media type
func (t TrackedItem) Key() string {
	return ItemKey(t.MediaType, t.ID)
}

// PrimaryCountry returns the first origin country, or "" when unknown
func (t TrackedItem) PrimaryCountry() string {
	if len(t.OriginCountry) == 0 {
		return ""
	}
	return t.OriginCountry[0]
}

// ItemKey builds the "<media_type>:<id>" identity used across the engine
func ItemKey(mediaType MediaType, id int64) string {
	return string(mediaType) + ":" + strconv.FormatInt(id, 10)
}

// WatchlistEntry is a tracked item the user added directly
type WatchlistEntry struct {
	Key     string `boltholdKey:"Key"`
	Item    TrackedItem
	AddedAt time.Time
}

// SubscribedList is a snapshot of a subscribed list's items
type SubscribedList struct {
	ListID      string        `boltholdKey:"ListID" json:"list_id"`
	Name        string        `json:"name"`
	Items       []TrackedItem `json:"items"`
	Position    int           `json:"position"` // subscription order
	RefreshedAt time.Time     `json:"refreshed_at"`
}
