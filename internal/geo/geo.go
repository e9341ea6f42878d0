// Package geo talks to the forward (OpenCage) and reverse (Nominatim)
// geocoding collaborators. The two operations have deliberately different
// failure policies: Forward propagates errors to the caller, Reverse degrades
// to a placeholder label and never fails. Do not unify them.
package geo

import "errors"

var (
	// ErrNotConfigured is returned by Forward when no API key is set.
	ErrNotConfigured = errors.New("geocoding api key is not configured")

	// ErrNotFound is returned by Forward when the collaborator has no
	// results for the query.
	ErrNotFound = errors.New("location not found")
)

// Place is a forward-geocode result.
type Place struct {
	Latitude  float64
	Longitude float64
	Name      string
	Country   string
}

// Label is a reverse-geocode result. Reverse always produces one, falling
// back to DegradedLabel when the lookup fails.
type Label struct {
	Name    string
	Country string
}

// DegradedLabel is what Reverse returns when the collaborator cannot be
// reached or its response is unusable.
func DegradedLabel() Label {
	return Label{Name: "Current Location", Country: ""}
}

// components is the shared address-component shape of both collaborators.
type components struct {
	City    string `json:"city"`
	Town    string `json:"town"`
	Village string `json:"village"`
	County  string `json:"county"`
	Country string `json:"country"`
}

// pickName resolves the display name: city, then town, village, county,
// then the given fallback.
func (c components) pickName(fallback string) string {
	switch {
	case c.City != "":
		return c.City
	case c.Town != "":
		return c.Town
	case c.Village != "":
		return c.Village
	case c.County != "":
		return c.County
	default:
		return fallback
	}
}
