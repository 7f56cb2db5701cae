package tmdb

import (
	"context"
	"fmt"
	"sort"

	"github.com/amaumene/airdate/internal/models"
)

// TMDB release type codes
const (
	releasePremiere          = 1
	releaseTheatricalLimited = 2
	releaseTheatrical        = 3
	releaseDigital           = 4
)

// MovieDetails is the subset of /movie/{id} the engine reads
type MovieDetails struct {
	ID                  int64    `json:"id"`
	Title               string   `json:"title"`
	Overview            string   `json:"overview"`
	PosterPath          string   `json:"poster_path"`
	BackdropPath        string   `json:"backdrop_path"`
	VoteAverage         float64  `json:"vote_average"`
	ReleaseDate         string   `json:"release_date"`
	OriginCountry       []string `json:"origin_country"`
	ProductionCountries []struct {
		ISO31661 string `json:"iso_3166_1"`
	} `json:"production_countries"`
}

// Countries returns origin countries, falling back to production countries
func (m *MovieDetails) Countries() []string {
	if len(m.OriginCountry) > 0 {
		return m.OriginCountry
	}
	var out []string
	for _, pc := range m.ProductionCountries {
		if pc.ISO31661 != "" {
			out = append(out, pc.ISO31661)
		}
	}
	return out
}

// TrackedItem converts movie details to a tracked item
func (m *MovieDetails) TrackedItem() models.TrackedItem {
	return models.TrackedItem{
		ID:            m.ID,
		MediaType:     models.MediaTypeMovie,
		Name:          m.Title,
		PosterPath:    m.PosterPath,
		BackdropPath:  m.BackdropPath,
		Overview:      m.Overview,
		VoteAverage:   m.VoteAverage,
		FirstAirDate:  m.ReleaseDate,
		OriginCountry: m.Countries(),
	}
}

// ReleaseDate is one dated release variant of a movie
type ReleaseDate struct {
	Date    string
	Type    models.ReleaseType
	Country string
}

type releaseDatesResponse struct {
	Results []struct {
		ISO31661     string `json:"iso_3166_1"`
		ReleaseDates []struct {
			ReleaseDate string `json:"release_date"`
			Type        int    `json:"type"`
		} `json:"release_dates"`
	} `json:"results"`
}

// GetMovieDetails retrieves movie details, memoized for a few minutes
func (c *Client) GetMovieDetails(ctx context.Context, id int64) (*MovieDetails, error) {
	cacheKey := fmt.Sprintf("movie:%d", id)
	if cached, ok := c.details.Get(cacheKey); ok {
		return cached.(*MovieDetails), nil
	}

	var details MovieDetails
	if err := c.doRequest(ctx, "movie", fmt.Sprintf("/movie/%d", id), nil, &details); err != nil {
		return nil, fmt.Errorf("failed to get movie %d: %w", id, err)
	}
	details.ReleaseDate = normalizeDate(details.ReleaseDate)

	c.details.SetDefault(cacheKey, &details)
	return &details, nil
}

// GetMovieReleaseDates returns theatrical and digital release dates across all
// countries, sorted by date. Premieres, physical and TV releases are skipped.
func (c *Client) GetMovieReleaseDates(ctx context.Context, id int64) ([]ReleaseDate, error) {
	var resp releaseDatesResponse
	path := fmt.Sprintf("/movie/%d/release_dates", id)
	if err := c.doRequest(ctx, "release_dates", path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get release dates of movie %d: %w", id, err)
	}

	var out []ReleaseDate
	for _, country := range resp.Results {
		for _, rd := range country.ReleaseDates {
			date := normalizeDate(rd.ReleaseDate)
			if date == "" {
				continue
			}
			var kind models.ReleaseType
			switch rd.Type {
			case releaseTheatricalLimited, releaseTheatrical:
				kind = models.ReleaseTheatrical
			case releaseDigital:
				kind = models.ReleaseDigital
			default:
				continue
			}
			out = append(out, ReleaseDate{Date: date, Type: kind, Country: country.ISO31661})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}
