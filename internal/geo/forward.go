package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sony/gobreaker"

	"weather-dashboard/internal/httpx"
)

// ForwardClient resolves free-text place queries to coordinates via OpenCage.
type ForwardClient struct {
	apiKey  string
	baseURL string
	httpCfg httpx.ClientConfig
	circuit *gobreaker.CircuitBreaker
	cache   *gocache.Cache
}

// NewForwardClient creates the forward geocoder. baseURL defaults to the
// public OpenCage endpoint when empty. Results are cached for cacheTTL;
// zero disables caching.
func NewForwardClient(client *http.Client, apiKey, baseURL string, cacheTTL time.Duration) *ForwardClient {
	if baseURL == "" {
		baseURL = "https://api.opencagedata.com/geocode/v1/json"
	}
	var cc *gocache.Cache
	if cacheTTL > 0 {
		cc = gocache.New(cacheTTL, 2*cacheTTL)
	}
	return &ForwardClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpCfg: httpx.ClientConfig{
			Client:  client,
			Backoff: httpx.DefaultBackoff(),
		},
		circuit: httpx.NewBreaker("opencage"),
		cache:   cc,
	}
}

// Forward looks up a place by name. It returns ErrNotConfigured when no API
// key is set (checked before any network I/O) and ErrNotFound when the
// collaborator has zero results.
func (c *ForwardClient) Forward(ctx context.Context, query string) (*Place, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	key := strings.ToLower(strings.TrimSpace(query))
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			p := v.(Place)
			return &p, nil
		}
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("q", query)
		values.Set("key", c.apiKey)
		values.Set("limit", "1")

		u := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		return req, nil
	}

	resp, err := httpx.Do(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("forward geocode %q: %w", query, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Results []struct {
			Geometry struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"geometry"`
			Components components `json:"components"`
		} `json:"results"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("forward geocode %q: decode: %w", query, err)
	}

	if len(payload.Results) == 0 {
		return nil, ErrNotFound
	}

	first := payload.Results[0]
	place := Place{
		Latitude:  first.Geometry.Lat,
		Longitude: first.Geometry.Lng,
		Name:      first.Components.pickName(query),
		Country:   first.Components.Country,
	}

	if c.cache != nil {
		c.cache.SetDefault(key, place)
	}

	return &place, nil
}
