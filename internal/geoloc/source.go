// Package geoloc answers "where is the user right now" with a single
// position query. The dashboard issues the query once at startup; later
// callers see the same terminal result, success or error.
package geoloc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// ErrUnsupported is returned when no geolocation source is configured.
var ErrUnsupported = errors.New("geolocation is not available")

// Position is a resolved coordinate pair.
type Position struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Source produces the user's current position.
type Source interface {
	Locate(ctx context.Context) (Position, error)
}

// HTTPSource resolves the position from an IP-geolocation collaborator
// (ip-api.com JSON endpoint by default).
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource creates an HTTP geolocation source. baseURL defaults to the
// public ip-api.com endpoint when empty.
func NewHTTPSource(client *http.Client, baseURL string) *HTTPSource {
	if baseURL == "" {
		baseURL = "http://ip-api.com/json"
	}
	return &HTTPSource{baseURL: baseURL, client: client}
}

// Locate issues one position request.
func (s *HTTPSource) Locate(ctx context.Context) (Position, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL, nil)
	if err != nil {
		return Position{}, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Position{}, fmt.Errorf("geolocation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Position{}, fmt.Errorf("geolocation request failed: status %d", resp.StatusCode)
	}

	var payload struct {
		Status  string  `json:"status"`
		Message string  `json:"message"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Position{}, fmt.Errorf("geolocation response malformed: %w", err)
	}

	// ip-api reports denial in-band with a 200 status.
	if payload.Status != "" && payload.Status != "success" {
		return Position{}, fmt.Errorf("geolocation denied: %s", payload.Message)
	}

	return Position{Latitude: payload.Lat, Longitude: payload.Lon}, nil
}

// OneShot wraps a Source so the underlying query runs exactly once.
// Every caller after the first observes the same terminal result.
type OneShot struct {
	src Source

	once sync.Once
	pos  Position
	err  error
}

// NewOneShot wraps src. A nil src yields ErrUnsupported on every call.
func NewOneShot(src Source) *OneShot {
	return &OneShot{src: src}
}

func (o *OneShot) Locate(ctx context.Context) (Position, error) {
	o.once.Do(func() {
		if o.src == nil {
			o.err = ErrUnsupported
			return
		}
		o.pos, o.err = o.src.Locate(ctx)
	})
	return o.pos, o.err
}
