package tmdb

import (
	"context"
	"fmt"
	"net/url"

	"github.com/amaumene/airdate/internal/models"
)

// ListDetails is a TMDB user list resolved to tracked items
type ListDetails struct {
	ID    string
	Name  string
	Items []models.TrackedItem
}

type listResponse struct {
	ID    interface{} `json:"id"`
	Name  string      `json:"name"`
	Items []struct {
		ID            int64    `json:"id"`
		MediaType     string   `json:"media_type"`
		Name          string   `json:"name"`
		Title         string   `json:"title"`
		PosterPath    string   `json:"poster_path"`
		BackdropPath  string   `json:"backdrop_path"`
		Overview      string   `json:"overview"`
		VoteAverage   float64  `json:"vote_average"`
		FirstAirDate  string   `json:"first_air_date"`
		ReleaseDate   string   `json:"release_date"`
		OriginCountry []string `json:"origin_country"`
	} `json:"items"`
}

// GetListDetails retrieves a list and converts its entries to tracked items.
// Entries that are neither shows nor movies are skipped.
func (c *Client) GetListDetails(ctx context.Context, listID string) (*ListDetails, error) {
	cacheKey := "list:" + listID
	if cached, ok := c.details.Get(cacheKey); ok {
		return cached.(*ListDetails), nil
	}

	var resp listResponse
	path := "/list/" + url.PathEscape(listID)
	if err := c.doRequest(ctx, "list", path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get list %s: %w", listID, err)
	}

	details := &ListDetails{ID: listID, Name: resp.Name}
	for _, it := range resp.Items {
		item := models.TrackedItem{
			ID:            it.ID,
			PosterPath:    it.PosterPath,
			BackdropPath:  it.BackdropPath,
			Overview:      it.Overview,
			VoteAverage:   it.VoteAverage,
			OriginCountry: it.OriginCountry,
		}
		switch it.MediaType {
		case "tv":
			item.MediaType = models.MediaTypeTV
			item.Name = it.Name
			item.FirstAirDate = normalizeDate(it.FirstAirDate)
		case "movie":
			item.MediaType = models.MediaTypeMovie
			item.Name = it.Title
			item.FirstAirDate = normalizeDate(it.ReleaseDate)
		default:
			continue
		}
		details.Items = append(details.Items, item)
	}

	c.details.SetDefault(cacheKey, details)
	return details, nil
}
