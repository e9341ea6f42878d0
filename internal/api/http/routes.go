package httpapi

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"weather-dashboard/internal/geo"
	"weather-dashboard/internal/locations"
	"weather-dashboard/internal/registry"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app. notifier may be
// nil when no notification surface is wanted (tests).
func RegisterRoutes(app *fiber.App, store *locations.Store, reg registry.Store, notifier *locations.RingNotifier) {
	v1 := app.Group("/api/v1")

	v1.Get("/dashboard", func(c *fiber.Ctx) error {
		return c.JSON(store.Snapshot())
	})

	v1.Post("/locations", func(c *fiber.Ctx) error {
		var req addLocationRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc, err := store.Add(c.Context(), req.Query)
		if err != nil {
			switch {
			case errors.Is(err, geo.ErrNotFound):
				return fiber.NewError(fiber.StatusNotFound, "location not found")
			case errors.Is(err, geo.ErrNotConfigured):
				return fiber.NewError(fiber.StatusServiceUnavailable, "location search is not configured")
			default:
				return fiber.NewError(fiber.StatusBadGateway, "failed to look up location")
			}
		}

		return c.Status(fiber.StatusCreated).JSON(loc)
	})

	v1.Delete("/locations/:id", func(c *fiber.Ctx) error {
		if err := store.Delete(c.Params("id")); err != nil {
			return fiber.NewError(fiber.StatusNotFound, "unknown location id")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Put("/active", func(c *fiber.Ctx) error {
		var req setActiveRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := store.SetActive(req.ID); err != nil {
			return fiber.NewError(fiber.StatusNotFound, "unknown location id")
		}
		return c.JSON(fiber.Map{"active": req.ID})
	})

	v1.Post("/refresh", func(c *fiber.Ctx) error {
		if err := store.Refresh(c.Context()); err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "refresh failed")
		}
		return c.JSON(store.Snapshot())
	})

	v1.Get("/notifications", func(c *fiber.Ctx) error {
		if notifier == nil {
			return c.JSON([]locations.Notification{})
		}
		items := notifier.Drain()
		if items == nil {
			items = []locations.Notification{}
		}
		return c.JSON(items)
	})

	// Backend registry resource: thin list/create, never reconciled with
	// the client-side sequence.
	if reg != nil {
		app.Get("/api/locations", func(c *fiber.Ctx) error {
			locs, err := reg.List(c.Context())
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch locations")
			}
			return c.JSON(locs)
		})

		app.Post("/api/locations", func(c *fiber.Ctx) error {
			var req createRegistryRequest
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
			}
			if err := validate.Struct(req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "name is required")
			}

			loc, err := reg.Create(c.Context(), req.Name, req.Latitude, req.Longitude)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "failed to create location")
			}
			return c.Status(fiber.StatusCreated).JSON(loc)
		})
	}
}

// addLocationRequest carries the free-text search query for a new location.
type addLocationRequest struct {
	Query string `json:"query" validate:"required"`
}

// setActiveRequest switches the active tab.
type setActiveRequest struct {
	ID string `json:"id" validate:"required"`
}

// createRegistryRequest is the registry create payload. Coordinates are
// optional and default to zero, matching the registry contract.
type createRegistryRequest struct {
	Name      string  `json:"name" validate:"required"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
