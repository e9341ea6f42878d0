package locations

import "weather-dashboard/internal/forecast"

// Current is the reserved selection id for the user's live geolocated
// position, as opposed to a saved location.
const Current = "current"

// localIDPrefix marks ids minted client-side, before (or instead of) a
// server-issued id exists.
const localIDPrefix = "loc-"

// Location is a user-saved place. Immutable once created; removed only by
// explicit deletion.
type Location struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Status is the per-entity forecast state.
type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusErrored Status = "errored"
)

// Entry is one tracked entity's forecast slot: a three-way tag so the
// presentation layer can tell "still loading" from "failed".
type Entry struct {
	Status Status           `json:"status"`
	Record *forecast.Record `json:"record,omitempty"`
	Reason string           `json:"reason,omitempty"`
}

// Snapshot is a consistent copy of the store's observable state.
type Snapshot struct {
	Active    string           `json:"active"`
	Locations []Location       `json:"locations"`
	Forecasts map[string]Entry `json:"forecasts"`
}
