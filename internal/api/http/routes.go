package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/syakhish/weather-monitor/internal/store"
)

const serviceName = "weather-monitor"

// RegisterRoutes wires the ingestion and retrieval handlers into the Fiber
// app. The device firmware and the original dashboards use /update_data and
// /get_data; /api/v1/readings serves the same operations.
func RegisterRoutes(app *fiber.App, readings *store.Log) {
	h := &handler{readings: readings}

	app.Post("/update_data", h.updateData)
	app.Get("/get_data", h.getData)

	v1 := app.Group("/api/v1")
	v1.Post("/readings", h.updateData)
	v1.Get("/readings", h.getData)

	app.Get("/health", h.health)
}

type handler struct {
	readings *store.Log
}

// updateData appends the request body as one reading. The body is decoded as
// JSON whatever Content-Type the device declares.
func (h *handler) updateData(c *fiber.Ctx) error {
	err := h.readings.AppendJSON(c.UserContext(), c.Body())
	switch {
	case err == nil:
		return c.Status(fiber.StatusOK).SendString("Data received!")
	case errors.Is(err, store.ErrMalformedInput):
		return c.Status(fiber.StatusBadRequest).SendString("Error processing data: " + err.Error())
	case errors.Is(err, store.ErrStorageUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).SendString("Error processing data: " + err.Error())
	default:
		return err
	}
}

// getData returns every retained reading, oldest first. An empty log is an
// empty array, never an error.
func (h *handler) getData(c *fiber.Ctx) error {
	entries, err := h.readings.ReadAll(c.UserContext())
	if err != nil {
		if errors.Is(err, store.ErrStorageUnavailable) {
			return fiber.NewError(fiber.StatusServiceUnavailable, "reading storage unavailable")
		}
		return err
	}

	return c.JSON(entries)
}

func (h *handler) health(c *fiber.Ctx) error {
	n, err := h.readings.Len(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":  "unavailable",
			"service": serviceName,
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status":    "ok",
		"service":   serviceName,
		"entries":   n,
		"retention": h.readings.Retention(),
	})
}
