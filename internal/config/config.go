package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	// OpenCageAPIKey is the credential for the forward-geocoding
	// collaborator. Its absence is not fatal: location search reports
	// "not configured" instead of crashing.
	OpenCageAPIKey string

	// HTTPTimeout applies to every outbound collaborator call.
	HTTPTimeout time.Duration

	// DataFile holds the persisted saved-location sequence.
	DataFile string

	// RegistryDB is the sqlite path for the backend location registry.
	RegistryDB string

	// GeocodeCacheTTL controls how long geocode results are reused.
	GeocodeCacheTTL time.Duration

	// RefreshInterval re-runs the saved-location batch fetch in the
	// background. Zero disables the scheduler.
	RefreshInterval time.Duration

	// GeolocationDisabled turns off the current-location tab's position
	// lookup.
	GeolocationDisabled bool

	// Collaborator base URL overrides, used in tests and self-hosting.
	ForecastURL    string
	GeocodeURL     string
	ReverseURL     string
	GeolocationURL string

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.OpenCageAPIKey = os.Getenv("OPENCAGE_API_KEY")

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.DataFile = getenvDefault("DATA_FILE", "data/locations.json")
	cfg.RegistryDB = getenvDefault("REGISTRY_DB", "data/registry.db")

	ttlStr := getenvDefault("GEOCODE_CACHE_TTL", "10m")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid GEOCODE_CACHE_TTL: %w", err)
	}
	cfg.GeocodeCacheTTL = ttl

	// Background refresh: default off; the dashboard is client-driven.
	refreshStr := getenvDefault("REFRESH_INTERVAL", "0")
	refresh, err := time.ParseDuration(refreshStr)
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}
	cfg.RefreshInterval = refresh

	cfg.GeolocationDisabled = getenvBool("GEOLOCATION_DISABLED", false)

	cfg.ForecastURL = os.Getenv("FORECAST_URL")
	cfg.GeocodeURL = os.Getenv("GEOCODE_URL")
	cfg.ReverseURL = os.Getenv("REVERSE_GEOCODE_URL")
	cfg.GeolocationURL = os.Getenv("GEOLOCATION_URL")

	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}
