package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// ReverseClient resolves coordinates to a place label via Nominatim.
// Nominatim's usage policy caps anonymous clients at one request per second,
// hence the limiter.
type ReverseClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	cache   *gocache.Cache
}

// NewReverseClient creates the reverse geocoder. baseURL defaults to the
// public Nominatim endpoint when empty.
func NewReverseClient(client *http.Client, baseURL string, cacheTTL time.Duration) *ReverseClient {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org/reverse"
	}
	var cc *gocache.Cache
	if cacheTTL > 0 {
		cc = gocache.New(cacheTTL, 2*cacheTTL)
	}
	return &ReverseClient{
		baseURL: baseURL,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(1), 1),
		cache:   cc,
	}
}

// Reverse resolves coordinates to a display label. It never returns an
// error: any failure is logged and degrades to DegradedLabel. Callers must
// not treat a degraded label as a reason to fail their own operation.
func (c *ReverseClient) Reverse(ctx context.Context, lat, lon float64) Label {
	key := cacheKey(lat, lon)
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			return v.(Label)
		}
	}

	label, err := c.lookup(ctx, lat, lon)
	if err != nil {
		log.Printf("geo: reverse lookup failed for (%f, %f): %v", lat, lon, err)
		return DegradedLabel()
	}

	if c.cache != nil {
		c.cache.SetDefault(key, label)
	}

	return label
}

func (c *ReverseClient) lookup(ctx context.Context, lat, lon float64) (Label, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Label{}, fmt.Errorf("rate limit wait canceled: %w", err)
	}

	values := url.Values{}
	values.Set("format", "json")
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("zoom", "10")

	u := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Label{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Label{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Label{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Address components `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Label{}, err
	}

	return Label{
		Name:    payload.Address.pickName("Unknown Location"),
		Country: payload.Address.Country,
	}, nil
}

// cacheKey rounds coordinates to ~100m so nearby lookups share an entry.
func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.3f:%.3f", lat, lon)
}
