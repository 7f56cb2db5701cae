package tmdb

import (
	"context"
	"fmt"

	"github.com/amaumene/airdate/internal/models"
)

// ShowDetails is the subset of /tv/{id} the engine reads
type ShowDetails struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	Overview        string   `json:"overview"`
	PosterPath      string   `json:"poster_path"`
	BackdropPath    string   `json:"backdrop_path"`
	VoteAverage     float64  `json:"vote_average"`
	FirstAirDate    string   `json:"first_air_date"`
	NumberOfSeasons int      `json:"number_of_seasons"`
	OriginCountry   []string `json:"origin_country"`
}

// TrackedItem converts show details to a tracked item
func (s *ShowDetails) TrackedItem() models.TrackedItem {
	seasons := s.NumberOfSeasons
	return models.TrackedItem{
		ID:              s.ID,
		MediaType:       models.MediaTypeTV,
		Name:            s.Name,
		PosterPath:      s.PosterPath,
		BackdropPath:    s.BackdropPath,
		Overview:        s.Overview,
		VoteAverage:     s.VoteAverage,
		FirstAirDate:    s.FirstAirDate,
		OriginCountry:   s.OriginCountry,
		NumberOfSeasons: &seasons,
	}
}

// SeasonDetails is the subset of /tv/{id}/season/{n} the engine reads
type SeasonDetails struct {
	SeasonNumber int       `json:"season_number"`
	PosterPath   string    `json:"poster_path"`
	Episodes     []Episode `json:"episodes"`
}

// Episode is one entry of a season; AirDate is empty when unannounced
type Episode struct {
	ID            int64   `json:"id"`
	AirDate       string  `json:"air_date"`
	SeasonNumber  int     `json:"season_number"`
	EpisodeNumber int     `json:"episode_number"`
	Name          string  `json:"name"`
	Overview      string  `json:"overview"`
	VoteAverage   float64 `json:"vote_average"`
	StillPath     string  `json:"still_path"`
}

// GetShowDetails retrieves show details, memoized for a few minutes
func (c *Client) GetShowDetails(ctx context.Context, id int64) (*ShowDetails, error) {
	cacheKey := fmt.Sprintf("tv:%d", id)
	if cached, ok := c.details.Get(cacheKey); ok {
		return cached.(*ShowDetails), nil
	}

	var details ShowDetails
	if err := c.doRequest(ctx, "tv", fmt.Sprintf("/tv/%d", id), nil, &details); err != nil {
		return nil, fmt.Errorf("failed to get show %d: %w", id, err)
	}
	details.FirstAirDate = normalizeDate(details.FirstAirDate)

	c.details.SetDefault(cacheKey, &details)
	return &details, nil
}

// GetSeasonDetails retrieves one season with its episodes
func (c *Client) GetSeasonDetails(ctx context.Context, id int64, seasonNumber int) (*SeasonDetails, error) {
	var season SeasonDetails
	path := fmt.Sprintf("/tv/%d/season/%d", id, seasonNumber)
	if err := c.doRequest(ctx, "season", path, nil, &season); err != nil {
		return nil, fmt.Errorf("failed to get season %d of show %d: %w", seasonNumber, id, err)
	}
	for i := range season.Episodes {
		season.Episodes[i].AirDate = normalizeDate(season.Episodes[i].AirDate)
	}
	return &season, nil
}
