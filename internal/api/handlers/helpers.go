package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/maheshrc27/insights-pipeline/internal/graph"
	"github.com/maheshrc27/insights-pipeline/internal/service"
)

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

// StatusFor maps a service error to an HTTP status. Graph API status errors
// keep the upstream status code.
func StatusFor(err error) int {
	var apiErr *graph.APIError
	switch {
	case errors.Is(err, service.ErrInvalidSchedule):
		return fiber.StatusBadRequest
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400:
		return apiErr.StatusCode
	default:
		return fiber.StatusInternalServerError
	}
}
