package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/amaumene/airdate/internal/config"
	"github.com/amaumene/airdate/internal/metrics"
)

const (
	detailsTTL     = 5 * time.Minute
	maxThrottleTry = 3
)

// ErrNotFound is returned when TMDB answers 404
var ErrNotFound = errors.New("tmdb: not found")

// StatusError is returned for non-2xx responses
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

// Client handles communication with the TMDB v3 API
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	details    *gocache.Cache
	logger     *logrus.Logger
}

// NewClient creates a new TMDB API client
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg.TMDBAPIKey == "" {
		return nil, fmt.Errorf("tmdb API key is required")
	}
	baseURL := strings.TrimRight(cfg.TMDBBaseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("tmdb base URL is required")
	}
	burst := cfg.TMDBBurst
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if cfg.TMDBRateLimit > 0 {
		limit = rate.Limit(cfg.TMDBRateLimit)
	}

	return &Client{
		apiKey:     cfg.TMDBAPIKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(limit, burst),
		details:    gocache.New(detailsTTL, 2*detailsTTL),
		logger:     logger,
	}, nil
}

// doRequest performs a GET against TMDB, waiting on the client limiter and
// backing off when TMDB signals throttling with 429
func (c *Client) doRequest(ctx context.Context, endpoint, path string, query url.Values, result interface{}) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)
	fullURL := c.baseURL + path + "?" + query.Encode()

	c.logger.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"path":     path,
	}).Debug("Making TMDB API request")

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxThrottleTry),
		ctx,
	)

	op := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		err := c.get(ctx, fullURL, result)
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests {
			metrics.ProviderRequests.WithLabelValues(endpoint, "throttled").Inc()
			c.logger.WithField("endpoint", endpoint).Warn("TMDB throttled request, backing off")
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	if err := backoff.Retry(op, policy); err != nil {
		outcome := "error"
		if errors.Is(err, ErrNotFound) {
			outcome = "not_found"
		}
		metrics.ProviderRequests.WithLabelValues(endpoint, outcome).Inc()
		return err
	}
	metrics.ProviderRequests.WithLabelValues(endpoint, "ok").Inc()
	return nil
}

func (c *Client) get(ctx context.Context, fullURL string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "airdate/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// normalizeDate trims TMDB timestamps ("2024-05-01T00:00:00.000Z") to a date
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 10 {
		return ""
	}
	if _, err := time.Parse("2006-01-02", s[:10]); err != nil {
		return ""
	}
	return s[:10]
}
