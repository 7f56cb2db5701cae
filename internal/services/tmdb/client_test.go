package tmdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/amaumene/airdate/internal/config"
	"github.com/amaumene/airdate/internal/models"
	"github.com/amaumene/airdate/internal/utils"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(&config.Config{
		TMDBAPIKey:    "test-key",
		TMDBBaseURL:   srv.URL,
		TMDBRateLimit: 1000,
		TMDBBurst:     100,
	}, utils.NewDiscardLogger())
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}

func TestGetShowDetailsIsMemoized(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/tv/100" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("api_key") != "test-key" {
			t.Errorf("Expected api_key query parameter")
		}
		w.Write([]byte(`{"id":100,"name":"Show","number_of_seasons":5,"origin_country":["US"],"first_air_date":"2019-09-01"}`))
	}))

	for i := 0; i < 2; i++ {
		details, err := client.GetShowDetails(context.Background(), 100)
		if err != nil {
			t.Fatalf("GetShowDetails failed: %v", err)
		}
		if details.NumberOfSeasons != 5 || details.OriginCountry[0] != "US" {
			t.Errorf("Unexpected details: %+v", details)
		}
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("Expected 1 HTTP call, got %d", calls)
	}

	item := (&ShowDetails{ID: 100, Name: "Show", NumberOfSeasons: 5}).TrackedItem()
	if item.Key() != "tv:100" || item.NumberOfSeasons == nil || *item.NumberOfSeasons != 5 {
		t.Errorf("Unexpected tracked item: %+v", item)
	}
}

func TestGetSeasonDetailsNormalizesDates(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"season_number":5,"poster_path":"/p.jpg","episodes":[
			{"air_date":"2024-05-01","season_number":5,"episode_number":1,"name":"One"},
			{"air_date":null,"season_number":5,"episode_number":2,"name":"Two"}]}`))
	}))

	season, err := client.GetSeasonDetails(context.Background(), 100, 5)
	if err != nil {
		t.Fatalf("GetSeasonDetails failed: %v", err)
	}
	if len(season.Episodes) != 2 {
		t.Fatalf("Expected 2 episodes, got %d", len(season.Episodes))
	}
	if season.Episodes[0].AirDate != "2024-05-01" {
		t.Errorf("Expected air date, got %q", season.Episodes[0].AirDate)
	}
	if season.Episodes[1].AirDate != "" {
		t.Errorf("Expected empty air date for unannounced episode, got %q", season.Episodes[1].AirDate)
	}
}

func TestGetMovieReleaseDatesMapsTypes(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":7,"results":[
			{"iso_3166_1":"US","release_dates":[
				{"release_date":"2024-07-19T00:00:00.000Z","type":3},
				{"release_date":"2024-06-01T00:00:00.000Z","type":1},
				{"release_date":"2024-09-10T00:00:00.000Z","type":4},
				{"release_date":"2024-12-01T00:00:00.000Z","type":5}]},
			{"iso_3166_1":"FR","release_dates":[
				{"release_date":"2024-07-17T00:00:00.000Z","type":2}]}]}`))
	}))

	dates, err := client.GetMovieReleaseDates(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetMovieReleaseDates failed: %v", err)
	}
	if len(dates) != 3 {
		t.Fatalf("Expected 3 release dates, got %d: %+v", len(dates), dates)
	}
	if dates[0].Date != "2024-07-17" || dates[0].Type != models.ReleaseTheatrical || dates[0].Country != "FR" {
		t.Errorf("Unexpected first release: %+v", dates[0])
	}
	if dates[2].Type != models.ReleaseDigital {
		t.Errorf("Expected digital release last, got %+v", dates[2])
	}
}

func TestGetListDetails(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"42","name":"Picks","items":[
			{"id":1,"media_type":"tv","name":"Show","first_air_date":"2020-01-01"},
			{"id":2,"media_type":"movie","title":"Film","release_date":"2021-02-02"},
			{"id":3,"media_type":"person","name":"Someone"}]}`))
	}))

	list, err := client.GetListDetails(context.Background(), "42")
	if err != nil {
		t.Fatalf("GetListDetails failed: %v", err)
	}
	if list.Name != "Picks" || len(list.Items) != 2 {
		t.Fatalf("Unexpected list: %+v", list)
	}
	if list.Items[1].Name != "Film" || list.Items[1].FirstAirDate != "2021-02-02" {
		t.Errorf("Unexpected movie item: %+v", list.Items[1])
	}
}

func TestNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	_, err := client.GetMovieDetails(context.Background(), 9)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestThrottledRequestIsRetried(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"id":9,"title":"Film","production_countries":[{"iso_3166_1":"GB"}]}`))
	}))

	movie, err := client.GetMovieDetails(context.Background(), 9)
	if err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("Expected 2 calls, got %d", calls)
	}
	if got := movie.Countries(); len(got) != 1 || got[0] != "GB" {
		t.Errorf("Expected production country fallback, got %v", got)
	}
}

func TestServerErrorIsNotRetried(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.GetSeasonDetails(context.Background(), 1, 1)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected StatusError 500, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("Expected a single call, got %d", calls)
	}
}
