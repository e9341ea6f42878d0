package locations

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"weather-dashboard/internal/forecast"
	"weather-dashboard/internal/geo"
	"weather-dashboard/internal/geoloc"
)

// ErrUnknownLocation is returned for operations referencing an id that is
// not in the sequence.
var ErrUnknownLocation = errors.New("unknown location id")

// ForecastFetcher fetches a 7-day forecast for a coordinate pair.
type ForecastFetcher interface {
	FetchForecast(ctx context.Context, lat, lon float64) (*forecast.Record, error)
}

// ForwardGeocoder resolves a free-text query to a place.
type ForwardGeocoder interface {
	Forward(ctx context.Context, query string) (*geo.Place, error)
}

// ReverseGeocoder resolves coordinates to a label, degrading on failure.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, lat, lon float64) geo.Label
}

// MirrorFunc pushes a newly added location to the backend registry.
// Fire-and-forget: the result is never read back.
type MirrorFunc func(ctx context.Context, name string, lat, lon float64) error

// Store owns the saved-location sequence, the active selection, and the
// per-entity forecast map. All collaborators are injected; the store holds
// no package-level state.
type Store struct {
	forecasts ForecastFetcher
	geocoder  ForwardGeocoder
	reverser  ReverseGeocoder
	locator   geoloc.Source
	persister Persister
	mirror    MirrorFunc
	notifier  Notifier

	mu        sync.Mutex
	locations []Location
	active    string
	entries   map[string]Entry
}

// Config bundles the store's collaborators. Mirror may be nil.
type Config struct {
	Forecasts ForecastFetcher
	Geocoder  ForwardGeocoder
	Reverser  ReverseGeocoder
	Locator   geoloc.Source
	Persister Persister
	Mirror    MirrorFunc
	Notifier  Notifier
}

// NewStore creates a Store with the active selection on the current
// location.
func NewStore(cfg Config) *Store {
	return &Store{
		forecasts: cfg.Forecasts,
		geocoder:  cfg.Geocoder,
		reverser:  cfg.Reverser,
		locator:   cfg.Locator,
		persister: cfg.Persister,
		mirror:    cfg.Mirror,
		notifier:  cfg.Notifier,
		active:    Current,
		entries:   make(map[string]Entry),
	}
}

// LoadSaved reads the persisted sequence and fetches a forecast for every
// saved location in parallel. Results are committed in a single state
// transition after all fetches settle, so observers never see a partially
// merged batch. A corrupt persisted record is logged and treated as empty;
// the user is not notified.
func (s *Store) LoadSaved(ctx context.Context) {
	locs, err := s.persister.Load()
	if err != nil {
		log.Printf("locations: failed to load saved locations: %v", err)
		return
	}
	if len(locs) == 0 {
		return
	}

	s.mu.Lock()
	s.locations = append([]Location(nil), locs...)
	for _, loc := range locs {
		s.entries[loc.ID] = Entry{Status: StatusLoading}
	}
	s.mu.Unlock()

	type result struct {
		id  string
		rec *forecast.Record
		err error
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []result
	)

	for _, loc := range locs {
		loc := loc
		wg.Add(1)
		go func() {
			defer wg.Done()

			rec, err := s.forecasts.FetchForecast(ctx, loc.Latitude, loc.Longitude)
			if err != nil {
				log.Printf("locations: forecast fetch failed for %s: %v", loc.Name, err)
			} else {
				rec.Location = &forecast.Label{Name: loc.Name}
			}

			mu.Lock()
			results = append(results, result{id: loc.ID, rec: rec, err: err})
			mu.Unlock()
		}()
	}
	wg.Wait()

	// Single commit after all siblings settle.
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range results {
		if _, tracked := s.entries[r.id]; !tracked {
			// Deleted while the batch was in flight; drop the result.
			continue
		}
		if r.err != nil {
			s.entries[r.id] = Entry{Status: StatusErrored, Reason: r.err.Error()}
			continue
		}
		s.entries[r.id] = Entry{Status: StatusReady, Record: r.rec}
	}
}

// LocateCurrent resolves the user's position once and fetches the current
// forecast and reverse-geocoded label concurrently. The label is merged in
// whatever the reverse lookup produced; only a forecast failure marks the
// current entry errored.
func (s *Store) LocateCurrent(ctx context.Context) error {
	pos, err := s.locator.Locate(ctx)
	if err != nil {
		s.setEntry(Current, Entry{Status: StatusErrored, Reason: err.Error()})
		s.notifier.Error(fmt.Sprintf("Geolocation error: %v", err))
		return err
	}

	s.setEntry(Current, Entry{Status: StatusLoading})

	rec, err := s.fetchCurrent(ctx, pos.Latitude, pos.Longitude)
	if err != nil {
		s.setEntry(Current, Entry{Status: StatusErrored, Reason: err.Error()})
		s.notifier.Error("Failed to fetch weather data")
		return err
	}

	s.setEntry(Current, Entry{Status: StatusReady, Record: rec})
	return nil
}

// fetchCurrent runs the forecast fetch and the reverse geocode concurrently
// and merges the label into the record. The reverse lookup cannot fail; it
// degrades inside the geocoder.
func (s *Store) fetchCurrent(ctx context.Context, lat, lon float64) (*forecast.Record, error) {
	var (
		wg    sync.WaitGroup
		rec   *forecast.Record
		err   error
		label geo.Label
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		rec, err = s.forecasts.FetchForecast(ctx, lat, lon)
	}()
	go func() {
		defer wg.Done()
		label = s.reverser.Reverse(ctx, lat, lon)
	}()
	wg.Wait()

	if err != nil {
		return nil, err
	}

	rec.Location = &forecast.Label{Name: label.Name, Country: label.Country}
	return rec, nil
}

// Add resolves the query, appends a new location, persists the sequence,
// mirrors the record to the registry, switches the active selection to the
// new id, and fetches its forecast. A geocoding failure leaves the store
// untouched.
func (s *Store) Add(ctx context.Context, query string) (Location, error) {
	place, err := s.geocoder.Forward(ctx, query)
	if err != nil {
		switch {
		case errors.Is(err, geo.ErrNotFound):
			s.notifier.Error(fmt.Sprintf("Location %q not found", query))
		case errors.Is(err, geo.ErrNotConfigured):
			s.notifier.Error("Location search is not configured")
		default:
			s.notifier.Error("Failed to look up location")
		}
		return Location{}, err
	}

	loc := Location{
		ID:        localIDPrefix + uuid.NewString(),
		Name:      place.Name,
		Latitude:  place.Latitude,
		Longitude: place.Longitude,
	}

	s.mu.Lock()
	s.locations = append(s.locations, loc)
	s.entries[loc.ID] = Entry{Status: StatusLoading}
	s.active = loc.ID
	seq := append([]Location(nil), s.locations...)
	s.mu.Unlock()

	s.save(seq)

	if s.mirror != nil {
		go func() {
			mctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.mirror(mctx, loc.Name, loc.Latitude, loc.Longitude); err != nil {
				log.Printf("locations: registry mirror failed for %s: %v", loc.Name, err)
			}
		}()
	}

	rec, err := s.forecasts.FetchForecast(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		s.commitEntry(loc.ID, Entry{Status: StatusErrored, Reason: err.Error()})
		s.notifier.Error(fmt.Sprintf("Failed to fetch weather for %s", loc.Name))
		return loc, nil
	}
	rec.Location = &forecast.Label{Name: loc.Name, Country: place.Country}

	s.commitEntry(loc.ID, Entry{Status: StatusReady, Record: rec})
	s.notifier.Info(fmt.Sprintf("Added %s", loc.Name))
	return loc, nil
}

// Delete removes the location and its forecast entry. If it was active the
// selection falls back to the current location. Deleting the last location
// clears persisted storage instead of writing an empty sequence.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	idx := -1
	for i, loc := range s.locations {
		if loc.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.mu.Unlock()
		return ErrUnknownLocation
	}

	s.locations = append(s.locations[:idx], s.locations[idx+1:]...)
	delete(s.entries, id)
	if s.active == id {
		s.active = Current
	}
	seq := append([]Location(nil), s.locations...)
	s.mu.Unlock()

	if len(seq) == 0 {
		if err := s.persister.Clear(); err != nil {
			log.Printf("locations: failed to clear persisted locations: %v", err)
		}
	} else {
		s.save(seq)
	}

	s.notifier.Info("Location removed")
	return nil
}

// Refresh re-fetches the forecast for whichever entity is active. The entry
// is set to loading for the duration; on failure the previous value is
// restored and the error surfaced, rather than leaving the loading sentinel
// in place.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	id := s.active
	prev := s.entries[id]
	var target Location
	if id != Current {
		idx := -1
		for i, loc := range s.locations {
			if loc.ID == id {
				idx = i
				break
			}
		}
		if idx == -1 {
			s.mu.Unlock()
			return ErrUnknownLocation
		}
		target = s.locations[idx]
	}
	s.entries[id] = Entry{Status: StatusLoading}
	s.mu.Unlock()

	var (
		rec *forecast.Record
		err error
	)

	if id == Current {
		var pos geoloc.Position
		pos, err = s.locator.Locate(ctx)
		if err == nil {
			rec, err = s.fetchCurrent(ctx, pos.Latitude, pos.Longitude)
		}
	} else {
		rec, err = s.forecasts.FetchForecast(ctx, target.Latitude, target.Longitude)
		if err == nil {
			rec.Location = &forecast.Label{Name: target.Name}
		}
	}

	if err != nil {
		if prev.Status == "" {
			// Nothing to restore; drop the loading sentinel.
			s.mu.Lock()
			delete(s.entries, id)
			s.mu.Unlock()
		} else {
			s.commitEntry(id, prev)
		}
		if id == Current {
			s.notifier.Error("Failed to refresh weather data")
		} else {
			s.notifier.Error(fmt.Sprintf("Failed to refresh weather for %s", target.Name))
		}
		return err
	}

	s.commitEntry(id, Entry{Status: StatusReady, Record: rec})
	if id == Current {
		s.notifier.Info("Weather data refreshed")
	} else {
		s.notifier.Info(fmt.Sprintf("Weather data for %s refreshed", target.Name))
	}
	return nil
}

// RefreshAll re-runs the saved-location batch fetch with the same
// all-settle commit as LoadSaved. Used by the background scheduler.
func (s *Store) RefreshAll(ctx context.Context) {
	s.mu.Lock()
	locs := append([]Location(nil), s.locations...)
	s.mu.Unlock()

	if len(locs) == 0 {
		return
	}

	type result struct {
		id  string
		rec *forecast.Record
		err error
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []result
	)

	for _, loc := range locs {
		loc := loc
		wg.Add(1)
		go func() {
			defer wg.Done()

			rec, err := s.forecasts.FetchForecast(ctx, loc.Latitude, loc.Longitude)
			if err != nil {
				log.Printf("locations: background refresh failed for %s: %v", loc.Name, err)
			} else {
				rec.Location = &forecast.Label{Name: loc.Name}
			}

			mu.Lock()
			results = append(results, result{id: loc.ID, rec: rec, err: err})
			mu.Unlock()
		}()
	}
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range results {
		if _, tracked := s.entries[r.id]; !tracked {
			continue
		}
		if r.err != nil {
			// Keep the last good forecast; a failed background refresh
			// should not blank out a tab.
			continue
		}
		s.entries[r.id] = Entry{Status: StatusReady, Record: r.rec}
	}
}

// SetActive switches the active selection. id must be Current or an
// existing location id.
func (s *Store) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == Current {
		s.active = id
		return nil
	}
	for _, loc := range s.locations {
		if loc.ID == id {
			s.active = id
			return nil
		}
	}
	return ErrUnknownLocation
}

// Snapshot returns a consistent copy of the observable state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Active:    s.active,
		Locations: append([]Location(nil), s.locations...),
		Forecasts: make(map[string]Entry, len(s.entries)),
	}
	for k, v := range s.entries {
		snap.Forecasts[k] = v
	}
	return snap
}

func (s *Store) setEntry(id string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = e
}

// commitEntry writes an entry only if the id is still tracked, so a fetch
// that outlives a deletion cannot resurrect the deleted location's slot.
func (s *Store) commitEntry(id string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != Current {
		if _, tracked := s.entries[id]; !tracked {
			return
		}
	}
	s.entries[id] = e
}

func (s *Store) save(seq []Location) {
	if err := s.persister.Save(seq); err != nil {
		log.Printf("locations: failed to persist locations: %v", err)
	}
}
