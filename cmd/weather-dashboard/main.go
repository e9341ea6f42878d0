package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	httpapi "weather-dashboard/internal/api/http"
	"weather-dashboard/internal/config"
	"weather-dashboard/internal/forecast"
	"weather-dashboard/internal/geo"
	"weather-dashboard/internal/geoloc"
	"weather-dashboard/internal/locations"
	"weather-dashboard/internal/registry"
	"weather-dashboard/internal/scheduler"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound collaborator calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Collaborator clients, each constructed once and injected below.
	forecasts := forecast.NewClient(httpClient, cfg.ForecastURL)
	forward := geo.NewForwardClient(httpClient, cfg.OpenCageAPIKey, cfg.GeocodeURL, cfg.GeocodeCacheTTL)
	reverse := geo.NewReverseClient(httpClient, cfg.ReverseURL, cfg.GeocodeCacheTTL)

	var locator geoloc.Source
	if !cfg.GeolocationDisabled {
		locator = geoloc.NewHTTPSource(httpClient, cfg.GeolocationURL)
	}

	// Backend registry (list/create mirror of saved locations).
	reg, err := registry.NewSQLiteStore(cfg.RegistryDB)
	if err != nil {
		log.Fatalf("failed to open registry: %v", err)
	}
	defer reg.Close()

	notifier := locations.NewRingNotifier(64)

	store := locations.NewStore(locations.Config{
		Forecasts: forecasts,
		Geocoder:  forward,
		Reverser:  reverse,
		Locator:   geoloc.NewOneShot(locator),
		Persister: locations.NewFileStore(cfg.DataFile),
		Mirror: func(ctx context.Context, name string, lat, lon float64) error {
			_, err := reg.Create(ctx, name, lat, lon)
			return err
		},
		Notifier: notifier,
	})

	// Startup fetches: saved locations and the current position, each on
	// its own bounded context so a slow collaborator cannot stall boot.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		store.LoadSaved(ctx)
	}()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := store.LocateCurrent(ctx); err != nil {
			log.Printf("current location unavailable: %v", err)
		}
	}()

	// Optional background refresh of saved-location forecasts.
	sched := scheduler.New(store, cfg.RefreshInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weather-dashboard",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-dashboard",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, store, reg, notifier)

	// Start server with graceful shutdown
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
