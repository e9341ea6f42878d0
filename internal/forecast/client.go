package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"

	"weather-dashboard/internal/httpx"
)

// ErrUnavailable wraps any failure to obtain a forecast: transport error,
// non-success status, or a malformed payload.
var ErrUnavailable = errors.New("forecast unavailable")

// dailyFields is the fixed set of daily series requested from Open-Meteo.
const dailyFields = "temperature_2m_max,temperature_2m_min,weathercode,windspeed_10m_max,precipitation_sum,uv_index_max"

const forecastDays = 7

// Client fetches 7-day forecasts from Open-Meteo.
type Client struct {
	baseURL string
	httpCfg httpx.ClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewClient creates a forecast client. baseURL defaults to the public
// Open-Meteo endpoint when empty.
func NewClient(client *http.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.open-meteo.com/v1/forecast"
	}
	return &Client{
		baseURL: baseURL,
		httpCfg: httpx.ClientConfig{
			Client:  client,
			Backoff: httpx.DefaultBackoff(),
		},
		circuit: httpx.NewBreaker("openmeteo"),
	}
}

// FetchForecast retrieves the 7-day daily forecast for the given coordinates.
// The remote service resolves the timezone itself (timezone=auto).
func (c *Client) FetchForecast(ctx context.Context, lat, lon float64) (*Record, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
		values.Set("daily", dailyFields)
		values.Set("timezone", "auto")
		values.Set("forecast_days", strconv.Itoa(forecastDays))

		u := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		return req, nil
	}

	resp, err := httpx.Do(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var rec Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}

	if len(rec.Daily.Time) == 0 {
		return nil, fmt.Errorf("%w: empty daily series", ErrUnavailable)
	}

	return &rec, nil
}
