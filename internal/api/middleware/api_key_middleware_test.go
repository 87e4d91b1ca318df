package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGuardedApp(key string) *fiber.App {
	app := fiber.New()
	app.Use(NewAPIKeyMiddleware(key).Handler())
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })
	return app
}

func TestAPIKeyMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		header string
		query  string
		want   int
	}{
		{name: "disabled", key: "", want: fiber.StatusOK},
		{name: "missing", key: "secret", want: fiber.StatusUnauthorized},
		{name: "wrong header", key: "secret", header: "nope", want: fiber.StatusUnauthorized},
		{name: "header", key: "secret", header: "secret", want: fiber.StatusOK},
		{name: "query", key: "secret", query: "secret", want: fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/ping"
			if tt.query != "" {
				target += "?api_key=" + tt.query
			}
			req := httptest.NewRequest("GET", target, nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}

			resp, err := newGuardedApp(tt.key).Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
