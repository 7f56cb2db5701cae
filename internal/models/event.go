package models

import (
	"fmt"
	"time"
)

// ReleaseEvent is one dated unit: an episode air date or a movie release variant.
// Events are replaced wholesale on refetch, never edited in place.
type ReleaseEvent struct {
	ID            string      `json:"id"`
	ShowID        int64       `json:"show_id"`
	ShowName      string      `json:"show_name"`
	MediaType     MediaType   `json:"media_type"`
	Name          string      `json:"name"`
	Overview      string      `json:"overview,omitempty"`
	AirDate       string      `json:"air_date"` // raw provider date, before shifting
	SeasonNumber  int         `json:"season_number,omitempty"`
	EpisodeNumber int         `json:"episode_number,omitempty"`
	IsMovie       bool        `json:"is_movie"`
	ReleaseType   ReleaseType `json:"release_type,omitempty"`
	PosterPath    string      `json:"poster_path,omitempty"`
	StillPath     string      `json:"still_path,omitempty"`
	VoteAverage   float64     `json:"vote_average,omitempty"`
	OriginCountry string      `json:"origin_country,omitempty"`
}

// ShowKey returns the tracked-item key the event belongs to
func (e ReleaseEvent) ShowKey() string {
	return ItemKey(e.MediaType, e.ShowID)
}

// AirTime parses the raw air date at midnight in loc
func (e ReleaseEvent) AirTime(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, e.AirDate, loc)
}

// EpisodeEventID builds the composite identity of an episode event
func EpisodeEventID(showID int64, season, episode int) string {
	return fmt.Sprintf("tv:%d:s%de%d", showID, season, episode)
}

// MovieEventID builds the composite identity of a movie release event
func MovieEventID(movieID int64, releaseType ReleaseType) string {
	return fmt.Sprintf("movie:%d:%s", movieID, releaseType)
}
