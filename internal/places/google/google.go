package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"staychat/internal/domain"
	"staychat/internal/places"
)

// Client is a minimal Google Places Nearby Search client. Transient
// failures are retried exactly once before surfacing
// places.ErrUnavailable.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// Config configures the Google Places client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Timeout   time.Duration
}

// NewClient creates a new Places client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://maps.googleapis.com/maps/api/place"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 15 * time.Second
	}
	return &Client{baseURL: cfg.BaseURL, apiKey: key, client: &http.Client{Timeout: t}}, nil
}

// Search runs a nearby search for the category around the coordinate.
// Network errors, rate limiting, and server errors are retried once;
// API-status errors and empty result sets are not.
// https://developers.google.com/maps/documentation/places/web-service/search-nearby
func (c *Client) Search(ctx context.Context, lat, lon float64, category string, radiusMeters int) ([]domain.LookupResult, error) {
	q := url.Values{}
	q.Set("location", fmt.Sprintf("%f,%f", lat, lon))
	q.Set("radius", fmt.Sprintf("%d", radiusMeters))
	q.Set("keyword", category)
	q.Set("key", c.apiKey)
	endpoint := fmt.Sprintf("%s/nearbysearch/json?%s", c.baseURL, q.Encode())

	var lastErr error
	for attempt := 0; attempt <= 1; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(500 * time.Millisecond):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", places.ErrUnavailable, ctx.Err())
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", places.ErrUnavailable, err)
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("%w: places returned %s", places.ErrUnavailable, resp.Status)
			continue
		}
		if resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("%w: places returned %s", places.ErrUnavailable, resp.Status)
		}

		var raw struct {
			Status  string `json:"status"`
			Results []struct {
				Name     string `json:"name"`
				Vicinity string `json:"vicinity"`
			} `json:"results"`
		}
		err = json.NewDecoder(resp.Body).Decode(&raw)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("%w: decode response: %v", places.ErrUnavailable, err)
			continue
		}
		switch raw.Status {
		case "OK":
		case "ZERO_RESULTS":
			return nil, places.ErrNoResults
		default:
			return nil, fmt.Errorf("%w: places status %s", places.ErrUnavailable, raw.Status)
		}
		if len(raw.Results) == 0 {
			return nil, places.ErrNoResults
		}
		out := make([]domain.LookupResult, 0, len(raw.Results))
		for _, r := range raw.Results {
			out = append(out, domain.LookupResult{Name: r.Name, Vicinity: r.Vicinity})
		}
		return out, nil
	}
	return nil, lastErr
}
