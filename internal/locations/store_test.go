package locations

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-dashboard/internal/forecast"
	"weather-dashboard/internal/geo"
	"weather-dashboard/internal/geoloc"
)

type fakeFetcher struct {
	mu      sync.Mutex
	fail    map[string]bool // keyed by "lat:lon" via coordKey
	calls   int
	started chan struct{}
	release chan struct{}
}

func coordKey(lat, lon float64) string {
	switch {
	case lat == 1:
		return "A"
	case lat == 2:
		return "B"
	case lat == 3:
		return "C"
	}
	return "?"
}

func (f *fakeFetcher) FetchForecast(ctx context.Context, lat, lon float64) (*forecast.Record, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}

	if f.fail != nil && f.fail[coordKey(lat, lon)] {
		return nil, forecast.ErrUnavailable
	}
	return &forecast.Record{
		Daily: forecast.Daily{
			Time:           []string{"2026-08-29"},
			TemperatureMax: []float64{21.5},
			TemperatureMin: []float64{12.3},
			WindSpeedMax:   []float64{14.0},
			PrecipSum:      []float64{0.2},
		},
	}, nil
}

type fakeGeocoder struct {
	place *geo.Place
	err   error
}

func (g *fakeGeocoder) Forward(ctx context.Context, query string) (*geo.Place, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.place, nil
}

type fakeReverser struct {
	label geo.Label
}

func (r *fakeReverser) Reverse(ctx context.Context, lat, lon float64) geo.Label {
	return r.label
}

type fakeLocator struct {
	pos geoloc.Position
	err error
}

func (l *fakeLocator) Locate(ctx context.Context) (geoloc.Position, error) {
	return l.pos, l.err
}

type memPersister struct {
	mu      sync.Mutex
	saved   []Location
	cleared bool
	loadErr error
}

func (p *memPersister) Load() ([]Location, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	return append([]Location(nil), p.saved...), nil
}

func (p *memPersister) Save(locs []Location) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = append([]Location(nil), locs...)
	p.cleared = false
	return nil
}

func (p *memPersister) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = nil
	p.cleared = true
	return nil
}

func newTestStore(t *testing.T, cfg Config) (*Store, *RingNotifier) {
	t.Helper()

	notifier := NewRingNotifier(16)
	if cfg.Forecasts == nil {
		cfg.Forecasts = &fakeFetcher{}
	}
	if cfg.Geocoder == nil {
		cfg.Geocoder = &fakeGeocoder{}
	}
	if cfg.Reverser == nil {
		cfg.Reverser = &fakeReverser{label: geo.Label{Name: "Berlin", Country: "Germany"}}
	}
	if cfg.Locator == nil {
		cfg.Locator = &fakeLocator{pos: geoloc.Position{Latitude: 52.5, Longitude: 13.4}}
	}
	if cfg.Persister == nil {
		cfg.Persister = &memPersister{}
	}
	cfg.Notifier = notifier

	return NewStore(cfg), notifier
}

func TestAddAppendsAndActivates(t *testing.T) {
	store, notifier := newTestStore(t, Config{
		Geocoder: &fakeGeocoder{place: &geo.Place{Latitude: 1, Longitude: 1, Name: "Paris", Country: "France"}},
	})

	loc, err := store.Add(context.Background(), "paris")
	require.NoError(t, err)

	snap := store.Snapshot()
	require.Len(t, snap.Locations, 1)
	assert.Equal(t, "Paris", snap.Locations[0].Name)
	assert.Equal(t, loc.ID, snap.Active)
	assert.Equal(t, StatusReady, snap.Forecasts[loc.ID].Status)

	msgs := notifier.Drain()
	require.NotEmpty(t, msgs)
	assert.Equal(t, "info", msgs[len(msgs)-1].Level)
}

func TestAddMintsUniqueIDs(t *testing.T) {
	store, _ := newTestStore(t, Config{
		Geocoder: &fakeGeocoder{place: &geo.Place{Latitude: 1, Longitude: 1, Name: "Paris"}},
	})

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		loc, err := store.Add(context.Background(), "paris")
		require.NoError(t, err)
		assert.False(t, seen[loc.ID], "duplicate id %s", loc.ID)
		seen[loc.ID] = true
	}
}

func TestAddGeocodeFailureLeavesStoreUntouched(t *testing.T) {
	store, notifier := newTestStore(t, Config{
		Geocoder: &fakeGeocoder{err: geo.ErrNotFound},
	})

	_, err := store.Add(context.Background(), "zzz-invalid-query")
	require.ErrorIs(t, err, geo.ErrNotFound)

	snap := store.Snapshot()
	assert.Empty(t, snap.Locations)
	assert.Empty(t, snap.Forecasts)
	assert.Equal(t, Current, snap.Active)

	msgs := notifier.Drain()
	require.Len(t, msgs, 1)
	assert.Equal(t, "error", msgs[0].Level)
	assert.Contains(t, msgs[0].Message, "not found")
}

func TestDeleteResetsActiveSelection(t *testing.T) {
	store, _ := newTestStore(t, Config{
		Geocoder: &fakeGeocoder{place: &geo.Place{Latitude: 1, Longitude: 1, Name: "Paris"}},
	})

	loc, err := store.Add(context.Background(), "paris")
	require.NoError(t, err)
	require.Equal(t, loc.ID, store.Snapshot().Active)

	require.NoError(t, store.Delete(loc.ID))

	snap := store.Snapshot()
	assert.Equal(t, Current, snap.Active)
	assert.Empty(t, snap.Locations)
	_, tracked := snap.Forecasts[loc.ID]
	assert.False(t, tracked, "forecast entry should be removed with the location")
}

func TestDeleteLastLocationClearsStorage(t *testing.T) {
	persister := &memPersister{}
	store, _ := newTestStore(t, Config{
		Geocoder:  &fakeGeocoder{place: &geo.Place{Latitude: 1, Longitude: 1, Name: "Paris"}},
		Persister: persister,
	})

	loc, err := store.Add(context.Background(), "paris")
	require.NoError(t, err)
	require.NotEmpty(t, persister.saved)

	require.NoError(t, store.Delete(loc.ID))
	assert.True(t, persister.cleared, "deleting the last location must clear storage, not write an empty list")
}

func TestDeleteUnknownID(t *testing.T) {
	store, _ := newTestStore(t, Config{})
	assert.ErrorIs(t, store.Delete("loc-nope"), ErrUnknownLocation)
}

func TestBatchLoadCommitsAllResultsAtOnce(t *testing.T) {
	saved := []Location{
		{ID: "loc-a", Name: "A", Latitude: 1, Longitude: 1},
		{ID: "loc-b", Name: "B", Latitude: 2, Longitude: 2},
		{ID: "loc-c", Name: "C", Latitude: 3, Longitude: 3},
	}

	fetcher := &fakeFetcher{
		fail:    map[string]bool{"B": true},
		started: make(chan struct{}, len(saved)),
		release: make(chan struct{}),
	}
	store, _ := newTestStore(t, Config{
		Forecasts: fetcher,
		Persister: &memPersister{saved: saved},
	})

	done := make(chan struct{})
	go func() {
		store.LoadSaved(context.Background())
		close(done)
	}()

	// Wait for every sibling fetch to be in flight.
	for range saved {
		<-fetcher.started
	}

	// Nothing may be committed while any sibling is still running.
	snap := store.Snapshot()
	for _, loc := range saved {
		assert.Equal(t, StatusLoading, snap.Forecasts[loc.ID].Status, "no partial commit for %s", loc.ID)
	}

	close(fetcher.release)
	<-done

	snap = store.Snapshot()
	assert.Equal(t, StatusReady, snap.Forecasts["loc-a"].Status)
	assert.Equal(t, StatusErrored, snap.Forecasts["loc-b"].Status)
	assert.Equal(t, StatusReady, snap.Forecasts["loc-c"].Status)
	assert.Nil(t, snap.Forecasts["loc-b"].Record)
}

func TestLoadSavedSwallowsCorruptState(t *testing.T) {
	store, notifier := newTestStore(t, Config{
		Persister: &memPersister{loadErr: errors.New("parse locations.json: unexpected end of JSON input")},
	})

	store.LoadSaved(context.Background())

	snap := store.Snapshot()
	assert.Empty(t, snap.Locations)
	assert.Empty(t, notifier.Drain(), "corrupt persisted state must not surface to the user")
}

func TestForecastMapKeysAreSubsetOfKnownIDs(t *testing.T) {
	store, _ := newTestStore(t, Config{
		Geocoder: &fakeGeocoder{place: &geo.Place{Latitude: 1, Longitude: 1, Name: "Paris"}},
	})

	require.NoError(t, store.LocateCurrent(context.Background()))
	first, err := store.Add(context.Background(), "paris")
	require.NoError(t, err)
	second, err := store.Add(context.Background(), "paris")
	require.NoError(t, err)
	require.NoError(t, store.Delete(first.ID))

	snap := store.Snapshot()
	known := map[string]bool{Current: true, second.ID: true}
	for key := range snap.Forecasts {
		assert.True(t, known[key], "forecast key %s has no owning location", key)
	}
}

func TestLocateCurrentMergesReverseLabel(t *testing.T) {
	store, notifier := newTestStore(t, Config{
		Reverser: &fakeReverser{label: geo.Label{Name: "Lisbon", Country: "Portugal"}},
	})

	require.NoError(t, store.LocateCurrent(context.Background()))

	entry := store.Snapshot().Forecasts[Current]
	require.Equal(t, StatusReady, entry.Status)
	require.NotNil(t, entry.Record.Location)
	assert.Equal(t, "Lisbon", entry.Record.Location.Name)
	assert.Equal(t, "Portugal", entry.Record.Location.Country)

	notifier.Drain()
}

func TestReverseGeocodeDegradesSilently(t *testing.T) {
	store, notifier := newTestStore(t, Config{
		Reverser: &fakeReverser{label: geo.DegradedLabel()},
	})

	require.NoError(t, store.LocateCurrent(context.Background()))

	entry := store.Snapshot().Forecasts[Current]
	require.Equal(t, StatusReady, entry.Status, "forecast must still be delivered when reverse geocoding degrades")
	require.NotNil(t, entry.Record.Location)
	assert.Equal(t, "Current Location", entry.Record.Location.Name)
	assert.Equal(t, "", entry.Record.Location.Country)

	for _, n := range notifier.Drain() {
		assert.NotEqual(t, "error", n.Level, "degraded reverse geocoding must not emit an error notification")
	}
}

func TestLocateCurrentGeolocationFailure(t *testing.T) {
	store, notifier := newTestStore(t, Config{
		Locator: &fakeLocator{err: errors.New("permission denied")},
	})

	err := store.LocateCurrent(context.Background())
	require.Error(t, err)

	entry := store.Snapshot().Forecasts[Current]
	assert.Equal(t, StatusErrored, entry.Status)

	msgs := notifier.Drain()
	require.Len(t, msgs, 1)
	assert.Equal(t, "error", msgs[0].Level)
}

func TestRefreshFailureRestoresPreviousForecast(t *testing.T) {
	fetcher := &fakeFetcher{}
	store, notifier := newTestStore(t, Config{
		Forecasts: fetcher,
		Geocoder:  &fakeGeocoder{place: &geo.Place{Latitude: 1, Longitude: 1, Name: "Paris"}},
	})

	loc, err := store.Add(context.Background(), "paris")
	require.NoError(t, err)
	before := store.Snapshot().Forecasts[loc.ID]
	require.Equal(t, StatusReady, before.Status)
	notifier.Drain()

	fetcher.fail = map[string]bool{"A": true}

	err = store.Refresh(context.Background())
	require.Error(t, err)

	after := store.Snapshot().Forecasts[loc.ID]
	assert.Equal(t, StatusReady, after.Status, "failed refresh must restore the previous value, not leave the loading sentinel")
	assert.Equal(t, before.Record, after.Record)

	msgs := notifier.Drain()
	require.Len(t, msgs, 1)
	assert.Equal(t, "error", msgs[0].Level)
}

func TestRefreshActiveSavedLocation(t *testing.T) {
	store, notifier := newTestStore(t, Config{
		Geocoder: &fakeGeocoder{place: &geo.Place{Latitude: 1, Longitude: 1, Name: "Paris"}},
	})

	_, err := store.Add(context.Background(), "paris")
	require.NoError(t, err)
	notifier.Drain()

	require.NoError(t, store.Refresh(context.Background()))

	msgs := notifier.Drain()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Message, "Paris")
}

func TestSetActiveValidation(t *testing.T) {
	store, _ := newTestStore(t, Config{
		Geocoder: &fakeGeocoder{place: &geo.Place{Latitude: 1, Longitude: 1, Name: "Paris"}},
	})

	loc, err := store.Add(context.Background(), "paris")
	require.NoError(t, err)

	assert.NoError(t, store.SetActive(Current))
	assert.NoError(t, store.SetActive(loc.ID))
	assert.ErrorIs(t, store.SetActive("loc-missing"), ErrUnknownLocation)
}

func TestPersistenceRoundTripThroughStore(t *testing.T) {
	persister := &memPersister{}
	store, _ := newTestStore(t, Config{
		Geocoder:  &fakeGeocoder{place: &geo.Place{Latitude: 1, Longitude: 1, Name: "Paris"}},
		Persister: persister,
	})

	first, err := store.Add(context.Background(), "paris")
	require.NoError(t, err)
	second, err := store.Add(context.Background(), "paris")
	require.NoError(t, err)

	// A second store over the same persisted record sees the same sequence.
	reloaded, _ := newTestStore(t, Config{Persister: persister})
	reloaded.LoadSaved(context.Background())

	snap := reloaded.Snapshot()
	require.Len(t, snap.Locations, 2)
	assert.Equal(t, first.ID, snap.Locations[0].ID)
	assert.Equal(t, second.ID, snap.Locations[1].ID)
}
