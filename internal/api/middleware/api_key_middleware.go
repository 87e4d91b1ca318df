package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

const apiKeyHeader = "X-API-Key"

type APIKeyMiddleware struct {
	key string
}

// NewAPIKeyMiddleware guards routes with a shared key. An empty key disables
// the check.
func NewAPIKeyMiddleware(key string) *APIKeyMiddleware {
	return &APIKeyMiddleware{key: key}
}

func (m *APIKeyMiddleware) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m.key == "" {
			return c.Next()
		}

		apiKey := c.Get(apiKeyHeader)
		if apiKey == "" {
			apiKey = c.Query("api_key")
		}
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing API key",
			})
		}

		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(m.key)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid API key",
			})
		}
		return c.Next()
	}
}
